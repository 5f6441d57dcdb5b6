package sweep

import (
	"context"
	"testing"
	"time"

	"tuneforge/internal/adapter/repo"
	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
)

func TestNewRejectsBadSchedule(t *testing.T) {
	store := repo.NewArtifactMemoryStore()
	if _, err := New(store, "every once in a while", infra.NewLogger("test")); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}

func TestNewDefaultsSchedule(t *testing.T) {
	store := repo.NewArtifactMemoryStore()
	s, err := New(store, "", infra.NewLogger("test"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.schedule != DefaultSchedule {
		t.Fatalf("schedule = %q, want %q", s.schedule, DefaultSchedule)
	}
}

func TestRunOnceExpiresClosedWindows(t *testing.T) {
	store := repo.NewArtifactMemoryStore()
	now := time.Now().UTC()

	put := func(id string, expiresAt time.Time) {
		t.Helper()
		err := store.Put(context.Background(), &domain.Artifact{
			ID:         id,
			Scope:      "channel-1",
			Category:   "lofi",
			Variant:    domain.VariantInstrumental,
			PayloadRef: "https://cdn.test/" + id + ".mp3",
			Status:     domain.ArtifactStatusAvailable,
			CreatedAt:  now.Add(-48 * time.Hour),
			ExpiresAt:  expiresAt,
		})
		if err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	put("stale-1", now.Add(-time.Hour))
	put("stale-2", now.Add(-time.Minute))
	put("fresh", now.Add(time.Hour))

	s, err := New(store, DefaultSchedule, infra.NewLogger("test"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	expired, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if expired != 2 {
		t.Fatalf("expired = %d, want 2", expired)
	}

	counts, err := store.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.ArtifactStatusExpired] != 2 || counts[domain.ArtifactStatusAvailable] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
