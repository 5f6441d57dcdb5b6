// Package match selects reusable artifacts for incoming generation
// requests. A hit saves a provider call; a miss is a normal outcome, not a
// failure.
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
)

// Matcher picks the best available artifact for an exact (scope, category,
// variant) triple. There is no fuzzy fallback: a close-but-wrong track is
// worse than generating a fresh one.
type Matcher struct {
	store  domain.ArtifactStore
	window *Window
	logger infra.Logger
}

func New(store domain.ArtifactStore, window *Window, logger infra.Logger) *Matcher {
	if window == nil {
		window = NewWindow(DefaultWindowSpan)
	}
	return &Matcher{store: store, window: window, logger: logger}
}

// Match returns a reserved artifact or domain.ErrNoMatch. Candidates are
// walked best-first; a reservation conflict means another task claimed the
// row between listing and reserving, so the next candidate is tried. The
// conflict never surfaces to the caller.
func (m *Matcher) Match(ctx context.Context, scope, category string, variant domain.Variant) (*domain.Artifact, error) {
	candidates, err := m.store.ListCandidates(ctx, scope, category, variant, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	for i := range candidates {
		candidate := candidates[i]
		err := m.store.MarkReserved(ctx, candidate.ID)
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reserve candidate: %w", err)
		}
		candidate.Status = domain.ArtifactStatusReserved
		m.window.RecordHit()
		m.logger.Info().
			Str("artifact_id", candidate.ID).
			Str("scope", scope).
			Str("category", category).
			Str("variant", string(variant)).
			Msg("match: reusing stored artifact")
		return &candidate, nil
	}

	m.window.RecordMiss()
	return nil, domain.ErrNoMatch
}

// Stats exposes the rolling hit/miss counters.
func (m *Matcher) Stats() (hits, misses int64) {
	return m.window.Stats()
}
