package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StyleJSON is the structured form of a request's free-form style hints as
// persisted on tasks and handed to the provider gateway. Callers may send a
// bare string; ParseStyleHints upgrades it into this contract.
type StyleJSON struct {
	Version      string   `json:"version"`
	Prompt       string   `json:"prompt"`
	Tags         []string `json:"tags,omitempty"`
	NegativeTags []string `json:"negative_tags,omitempty"`
	Model        string   `json:"model,omitempty"`
}

const (
	// DefaultStyleVersion is the schema version persisted for style hints.
	DefaultStyleVersion = "2025-01"
	// MaxStylePromptLen caps the free-form prompt before provider-specific
	// limits apply downstream.
	MaxStylePromptLen = 3000
	// MaxStyleTags bounds the tag list to keep provider payloads small.
	MaxStyleTags = 12
)

// ParseStyleHints accepts either a JSON StyleJSON document or a plain text
// prompt and returns the normalized structured form.
func ParseStyleHints(hints string) StyleJSON {
	hints = strings.TrimSpace(hints)
	var s StyleJSON
	if strings.HasPrefix(hints, "{") {
		if err := json.Unmarshal([]byte(hints), &s); err == nil {
			s.Normalize()
			return s
		}
	}
	s = StyleJSON{Prompt: hints}
	s.Normalize()
	return s
}

// Normalize applies defaults and limits in place.
func (s *StyleJSON) Normalize() {
	if s == nil {
		return
	}
	if s.Version == "" {
		s.Version = DefaultStyleVersion
	}
	s.Prompt = strings.TrimSpace(s.Prompt)
	if len(s.Prompt) > MaxStylePromptLen {
		s.Prompt = s.Prompt[:MaxStylePromptLen]
	}
	if len(s.Tags) > MaxStyleTags {
		s.Tags = s.Tags[:MaxStyleTags]
	}
	compact := s.Tags[:0]
	for _, tag := range s.Tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			compact = append(compact, tag)
		}
	}
	s.Tags = compact
}

// TagLine renders tags as the comma-separated style string the provider
// expects, falling back to the prompt when no tags are present.
func (s StyleJSON) TagLine() string {
	if len(s.Tags) == 0 {
		return s.Prompt
	}
	return strings.Join(s.Tags, ", ")
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
