package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"tuneforge/internal/domain"
)

// ArtifactMemoryStore implements domain.ArtifactStore in process memory.
// It backs deployments without DATABASE_URL and every test that exercises
// matcher and orchestrator concurrency. Semantics mirror the Postgres
// implementation exactly, including the reserve compare-and-set.
type ArtifactMemoryStore struct {
	mu         sync.Mutex
	artifacts  map[string]*domain.Artifact
	consumedAt map[string]time.Time
}

func NewArtifactMemoryStore() *ArtifactMemoryStore {
	return &ArtifactMemoryStore{
		artifacts:  make(map[string]*domain.Artifact),
		consumedAt: make(map[string]time.Time),
	}
}

func (s *ArtifactMemoryStore) Put(ctx context.Context, a *domain.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.artifacts[a.ID] = &cp
	return nil
}

func (s *ArtifactMemoryStore) Get(ctx context.Context, id string) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *ArtifactMemoryStore) ListCandidates(ctx context.Context, scope, category string, variant domain.Variant, now time.Time) ([]domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Artifact
	for _, a := range s.artifacts {
		if a.Status != domain.ArtifactStatusAvailable {
			continue
		}
		if a.Scope != scope || a.Category != category || a.Variant != variant {
			continue
		}
		if a.Expired(now) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore > out[j].QualityScore
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *ArtifactMemoryStore) MarkReserved(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !a.Status.CanTransition(domain.ArtifactStatusReserved) {
		return domain.ErrConflict
	}
	a.Status = domain.ArtifactStatusReserved
	return nil
}

func (s *ArtifactMemoryStore) MarkConsumed(ctx context.Context, id, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !a.Status.CanTransition(domain.ArtifactStatusConsumed) {
		return domain.ErrConflict
	}
	a.Status = domain.ArtifactStatusConsumed
	a.ConsumedByTask = taskID
	s.consumedAt[id] = time.Now().UTC()
	return nil
}

func (s *ArtifactMemoryStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.artifacts {
		if a.Status == domain.ArtifactStatusAvailable && a.Expired(now) {
			a.Status = domain.ArtifactStatusExpired
			n++
		}
	}
	return n, nil
}

func (s *ArtifactMemoryStore) CountByStatus(ctx context.Context) (map[domain.ArtifactStatus]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.ArtifactStatus]int64)
	for _, a := range s.artifacts {
		counts[a.Status]++
	}
	return counts, nil
}

func (s *ArtifactMemoryStore) AvgAgeAtConsumption(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	var n int64
	for id, consumed := range s.consumedAt {
		a, ok := s.artifacts[id]
		if !ok {
			continue
		}
		total += consumed.Sub(a.CreatedAt)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return total / time.Duration(n), nil
}

var _ domain.ArtifactStore = (*ArtifactMemoryStore)(nil)
