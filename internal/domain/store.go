package domain

import (
	"context"
	"time"
)

// ArtifactStore persists reusable tracks. Implementations must make
// MarkReserved an atomic compare-and-set on status: under concurrent
// matches at most one caller wins the available→reserved edge, the rest
// receive ErrConflict.
type ArtifactStore interface {
	Put(ctx context.Context, artifact *Artifact) error
	Get(ctx context.Context, id string) (*Artifact, error)
	// ListCandidates returns available, unexpired artifacts for the exact
	// attribute triple ordered by quality score descending then age
	// ascending, so the matcher can walk them in preference order.
	ListCandidates(ctx context.Context, scope, category string, variant Variant, now time.Time) ([]Artifact, error)
	MarkReserved(ctx context.Context, id string) error
	MarkConsumed(ctx context.Context, id, taskID string) error
	// Sweep expires every available artifact whose window has closed and
	// returns how many it transitioned. Expired rows are retained for the
	// statistics surface, never deleted.
	Sweep(ctx context.Context, now time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[ArtifactStatus]int64, error)
	// AvgAgeAtConsumption reports the mean time between creation and
	// consumption across consumed artifacts, zero when none exist.
	AvgAgeAtConsumption(ctx context.Context) (time.Duration, error)
}
