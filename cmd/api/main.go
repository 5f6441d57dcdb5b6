package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tuneforge/internal/adapter/repo"
	"tuneforge/internal/domain"
	"tuneforge/internal/http/handlers"
	httpapi "tuneforge/internal/http/httpapi"
	"tuneforge/internal/infra"
	"tuneforge/internal/match"
	"tuneforge/internal/orchestrator"
	"tuneforge/internal/providers/suno"
	"tuneforge/internal/registry"
	"tuneforge/internal/storage"
	"tuneforge/internal/sweep"
)

func main() {
	// .env is optional.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Artifact store: Postgres when DATABASE_URL is set, in-memory
	// otherwise. The in-memory store keeps local development working
	// without external services; parked artifacts then live only as long
	// as the process.
	var store domain.ArtifactStore
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()

		pgRepo := repo.NewArtifactRepository(infra.NewSQLRunner(pool, logger))
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure schema")
		}
		store = pgRepo
		logger.Info().Msg("artifact store: postgres")
	} else {
		store = repo.NewArtifactMemoryStore()
		logger.Warn().Msg("artifact store: in-memory (no DATABASE_URL)")
	}

	gateway, err := suno.NewClient(suno.Options{
		APIKey:  cfg.SunoAPIKey,
		BaseURL: cfg.SunoBaseURL,
		Model:   cfg.SunoModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build provider client")
	}

	var payloads orchestrator.PayloadStore
	if cfg.StoragePath != "" {
		files, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare payload storage")
		}
		payloads = files
	}

	matcher := match.New(store, nil, logger)
	reg := registry.New(cfg.TaskRetention)
	orch := orchestrator.New(reg, matcher, store, gateway, logger, orchestrator.Options{
		Workers:       cfg.WorkerCount,
		QueueCapacity: cfg.QueueCapacity,
		PollInterval:  cfg.PollInterval,
		PollBudget:    cfg.PollTimeout,
		ArtifactTTL:   cfg.ArtifactTTL,
		Payloads:      payloads,
	})

	sweeper, err := sweep.New(store, cfg.SweepSchedule, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure sweep")
	}

	app := handlers.NewApp(orch, store, matcher, reg, gateway, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMin,
		AllowedOrigins:     cfg.CORSOrigins,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCancel(orch.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCancel(sweeper.Run(gctx))
	})
	g.Go(func() error {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
