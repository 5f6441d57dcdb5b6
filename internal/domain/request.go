package domain

import (
	"fmt"
	"strings"
)

// Variant distinguishes vocal from instrumental tracks. Requests and stored
// artifacts never cross variants: an instrumental channel must not receive a
// vocal track.
type Variant string

const (
	VariantVocal        Variant = "vocal"
	VariantInstrumental Variant = "instrumental"
)

// GenerationRequest captures the caller's intent for one track. It is
// immutable once accepted by the orchestrator.
type GenerationRequest struct {
	Scope      string  `json:"scope"`
	Category   string  `json:"category"`
	Variant    Variant `json:"variant"`
	StyleHints string  `json:"style_hints"`
	Title      string  `json:"title"`
}

// Validate rejects requests that cannot be matched or submitted. Scope and
// category are mandatory; an empty variant defaults to instrumental so that
// background channels work without explicit configuration.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Scope) == "" {
		return fmt.Errorf("%w: scope is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}
	switch r.Variant {
	case VariantVocal, VariantInstrumental:
	case "":
		r.Variant = VariantInstrumental
	default:
		return fmt.Errorf("%w: unknown variant %q", ErrInvalidRequest, r.Variant)
	}
	return nil
}
