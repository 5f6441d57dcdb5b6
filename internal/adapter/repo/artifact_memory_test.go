package repo

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"tuneforge/internal/domain"
)

func seedArtifact(t *testing.T, store *ArtifactMemoryStore, mutate func(*domain.Artifact)) *domain.Artifact {
	t.Helper()
	now := time.Now().UTC()
	a := &domain.Artifact{
		ID:              uuid.NewString(),
		SourceRequestID: "batch-1",
		Scope:           "chA",
		Category:        "lofi",
		Variant:         domain.VariantInstrumental,
		Title:           "Midnight Rain",
		PayloadRef:      "https://cdn.example.com/a.mp3",
		DurationSeconds: 182,
		QualityScore:    0.5,
		Status:          domain.ArtifactStatusAvailable,
		CreatedAt:       now,
		ExpiresAt:       now.Add(domain.DefaultArtifactTTL),
	}
	if mutate != nil {
		mutate(a)
	}
	if err := store.Put(context.Background(), a); err != nil {
		t.Fatalf("put artifact: %v", err)
	}
	return a
}

func TestMemoryStoreReserveConsume(t *testing.T) {
	store := NewArtifactMemoryStore()
	a := seedArtifact(t, store, nil)
	ctx := context.Background()

	if err := store.MarkReserved(ctx, a.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := store.MarkReserved(ctx, a.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second reserve = %v, want ErrConflict", err)
	}
	if err := store.MarkConsumed(ctx, a.ID, "task-1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.ArtifactStatusConsumed {
		t.Fatalf("status = %q, want consumed", got.Status)
	}
	if got.ConsumedByTask != "task-1" {
		t.Fatalf("consumed_by_task = %q, want task-1", got.ConsumedByTask)
	}
}

func TestMemoryStoreReserveUnknownID(t *testing.T) {
	store := NewArtifactMemoryStore()
	if err := store.MarkReserved(context.Background(), uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("reserve unknown = %v, want ErrNotFound", err)
	}
}

// Transition legality is enforced for every edge the store can be asked to
// take, starting from every reachable state.
func TestMemoryStoreTransitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		store := NewArtifactMemoryStore()
		a := seedArtifact(t, store, nil)

		status := domain.ArtifactStatusAvailable
		for step := 0; step < 8; step++ {
			var err error
			var next domain.ArtifactStatus
			switch rng.Intn(3) {
			case 0:
				err = store.MarkReserved(ctx, a.ID)
				next = domain.ArtifactStatusReserved
			case 1:
				err = store.MarkConsumed(ctx, a.ID, "task")
				next = domain.ArtifactStatusConsumed
			default:
				var n int64
				n, err = store.Sweep(ctx, a.ExpiresAt.Add(time.Hour))
				next = domain.ArtifactStatusExpired
				if n == 0 {
					// Sweep only moves available rows.
					if status == domain.ArtifactStatusAvailable {
						t.Fatalf("step %d: sweep skipped an available expired artifact", step)
					}
					continue
				}
			}
			if err != nil {
				continue
			}
			if !status.CanTransition(next) {
				t.Fatalf("iteration %d: illegal transition %s -> %s accepted", i, status, next)
			}
			status = next
		}

		got, err := store.Get(ctx, a.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != status {
			t.Fatalf("stored status %q diverged from tracked %q", got.Status, status)
		}
	}
}

// One artifact, many concurrent claimants: exactly one reserve succeeds.
func TestMemoryStoreConcurrentReserve(t *testing.T) {
	store := NewArtifactMemoryStore()
	a := seedArtifact(t, store, nil)

	const claimants = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.MarkReserved(context.Background(), a.ID); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var won int
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("reserve wins = %d, want exactly 1", won)
	}
}

func TestMemoryStoreSweepExcludesFromCandidates(t *testing.T) {
	store := NewArtifactMemoryStore()
	now := time.Now().UTC()
	a := seedArtifact(t, store, func(a *domain.Artifact) {
		a.ExpiresAt = now.Add(-time.Minute)
	})
	ctx := context.Background()

	n, err := store.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("sweep count = %d, want 1", n)
	}

	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.ArtifactStatusExpired {
		t.Fatalf("status = %q, want expired", got.Status)
	}

	candidates, err := store.ListCandidates(ctx, a.Scope, a.Category, a.Variant, now)
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("candidates = %d, want 0 after sweep", len(candidates))
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.ArtifactStatusExpired] != 1 {
		t.Fatalf("expired count = %d, want 1 (expired rows are retained)", counts[domain.ArtifactStatusExpired])
	}
}

func TestMemoryStoreCandidateOrdering(t *testing.T) {
	store := NewArtifactMemoryStore()
	now := time.Now().UTC()

	older := seedArtifact(t, store, func(a *domain.Artifact) {
		a.QualityScore = 0.8
		a.CreatedAt = now.Add(-2 * time.Hour)
	})
	newer := seedArtifact(t, store, func(a *domain.Artifact) {
		a.QualityScore = 0.8
		a.CreatedAt = now.Add(-time.Hour)
	})
	best := seedArtifact(t, store, func(a *domain.Artifact) {
		a.QualityScore = 0.9
		a.CreatedAt = now
	})

	candidates, err := store.ListCandidates(context.Background(), "chA", "lofi", domain.VariantInstrumental, now)
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("candidates = %d, want 3", len(candidates))
	}
	if candidates[0].ID != best.ID {
		t.Fatalf("first candidate = %s, want highest quality %s", candidates[0].ID, best.ID)
	}
	if candidates[1].ID != older.ID || candidates[2].ID != newer.ID {
		t.Fatalf("quality ties must resolve oldest-first, got %s then %s", candidates[1].ID, candidates[2].ID)
	}
}

func TestMemoryStoreAvgAgeAtConsumption(t *testing.T) {
	store := NewArtifactMemoryStore()
	ctx := context.Background()

	avg, err := store.AvgAgeAtConsumption(ctx)
	if err != nil {
		t.Fatalf("avg: %v", err)
	}
	if avg != 0 {
		t.Fatalf("avg with no consumption = %v, want 0", avg)
	}

	a := seedArtifact(t, store, func(a *domain.Artifact) {
		a.CreatedAt = time.Now().UTC().Add(-time.Hour)
	})
	if err := store.MarkReserved(ctx, a.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := store.MarkConsumed(ctx, a.ID, "task"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	avg, err = store.AvgAgeAtConsumption(ctx)
	if err != nil {
		t.Fatalf("avg: %v", err)
	}
	if avg < 59*time.Minute || avg > 61*time.Minute {
		t.Fatalf("avg = %v, want about an hour", avg)
	}
}
