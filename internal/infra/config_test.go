package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("POLL_INTERVAL_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.ArtifactTTL != 30*24*time.Hour {
		t.Fatalf("ArtifactTTL = %v, want 720h", cfg.ArtifactTTL)
	}
	if cfg.SweepSchedule != "@hourly" {
		t.Fatalf("SweepSchedule = %q, want @hourly", cfg.SweepSchedule)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("POLL_INTERVAL_SECONDS", "1")
	t.Setenv("POLL_TIMEOUT_SECONDS", "30")
	t.Setenv("ARTIFACT_TTL_DAYS", "7")
	t.Setenv("TASK_RETENTION", "25")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerCount != 2 {
		t.Fatalf("WorkerCount = %d, want 2", cfg.WorkerCount)
	}
	if cfg.PollInterval != time.Second {
		t.Fatalf("PollInterval = %v, want 1s", cfg.PollInterval)
	}
	if cfg.PollTimeout != 30*time.Second {
		t.Fatalf("PollTimeout = %v, want 30s", cfg.PollTimeout)
	}
	if cfg.ArtifactTTL != 7*24*time.Hour {
		t.Fatalf("ArtifactTTL = %v, want 168h", cfg.ArtifactTTL)
	}
	if cfg.TaskRetention != 25 {
		t.Fatalf("TaskRetention = %d, want 25", cfg.TaskRetention)
	}
}

func TestLoadConfigRejectsBadWorkerCount(t *testing.T) {
	t.Setenv("WORKER_COUNT", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for WORKER_COUNT=0")
	}
}
