package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tuneforge/internal/http/handlers"
	"tuneforge/internal/infra"
	"tuneforge/internal/middleware"
)

// Options tunes the router's middleware stack.
type Options struct {
	Logger             infra.Logger
	RateLimitPerMinute int
	AllowedOrigins     []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}
	if opts.RateLimitPerMinute > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute))
	}

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/generations", func(r chi.Router) {
		r.Post("/", app.CreateGeneration)
		r.Get("/{taskID}", app.GetGeneration)
		r.Delete("/{taskID}", app.CancelGeneration)
	})

	r.Get("/v1/stats", app.StatsSummary)

	return r
}
