package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	SunoAPIKey  string
	SunoBaseURL string
	SunoModel   string

	StoragePath string

	WorkerCount   int
	QueueCapacity int
	PollInterval  time.Duration
	PollTimeout   time.Duration

	ArtifactTTL   time.Duration
	TaskRetention int
	SweepSchedule string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DATABASE_URL is optional: without it the service
// runs on the in-memory artifact store, which keeps local and CI
// environments working without Postgres.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SunoAPIKey:       os.Getenv("SUNO_API_KEY"),
		SunoBaseURL:      getEnv("SUNO_BASE_URL", "https://api.sunoapi.org/api/v1"),
		SunoModel:        getEnv("SUNO_MODEL", "V4"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		WorkerCount:      getEnvInt("WORKER_COUNT", 4),
		QueueCapacity:    getEnvInt("QUEUE_CAPACITY", 64),
		PollInterval:     getEnvDuration("POLL_INTERVAL_SECONDS", 5*time.Second),
		PollTimeout:      getEnvDuration("POLL_TIMEOUT_SECONDS", 5*time.Minute),
		ArtifactTTL:      time.Duration(getEnvInt("ARTIFACT_TTL_DAYS", 30)) * 24 * time.Hour,
		TaskRetention:    getEnvInt("TASK_RETENTION", 500),
		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@hourly"),
		HTTPReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT_SECONDS", 15*time.Second),
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT_SECONDS", 30*time.Second),
		HTTPIdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT_SECONDS", 60*time.Second),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
	}

	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if cfg.QueueCapacity < 1 {
		return nil, fmt.Errorf("QUEUE_CAPACITY must be at least 1")
	}
	if cfg.PollInterval <= 0 || cfg.PollTimeout <= 0 {
		return nil, fmt.Errorf("poll interval and timeout must be positive")
	}
	if cfg.TaskRetention < 1 {
		return nil, fmt.Errorf("TASK_RETENTION must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
