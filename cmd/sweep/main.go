// One-shot artifact sweep for cron or manual operation against the shared
// Postgres store. The API binary runs its own scheduled sweep; this tool
// exists for deployments that prefer external scheduling.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tuneforge/internal/adapter/repo"
	"tuneforge/internal/infra"
	"tuneforge/internal/sweep"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("sweep: DATABASE_URL is required, the in-memory store has nothing to sweep")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweep: db connection failed")
	}
	defer pool.Close()

	store := repo.NewArtifactRepository(infra.NewSQLRunner(pool, logger))
	sweeper, err := sweep.New(store, cfg.SweepSchedule, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweep: bad configuration")
	}

	expired, err := sweeper.RunOnce(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweep: run failed")
	}
	logger.Info().Int64("expired", expired).Msg("sweep: done")
}
