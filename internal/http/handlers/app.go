// Package handlers implements the JSON API surface. Handlers stay thin:
// they decode, delegate to the orchestrator or stores, and map domain
// errors onto HTTP status codes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
	"tuneforge/internal/match"
	"tuneforge/internal/registry"
)

// TaskService is the orchestrator surface the API needs.
type TaskService interface {
	Start(ctx context.Context, req domain.GenerationRequest) (string, error)
	GetStatus(ctx context.Context, id string) (domain.Task, error)
	Cancel(ctx context.Context, id string) error
}

// CreditsProbe reports remaining provider credits. Optional; stats omit
// the field when no probe is wired.
type CreditsProbe interface {
	Credits(ctx context.Context) (int, error)
}

type App struct {
	Tasks     TaskService
	Artifacts domain.ArtifactStore
	Matcher   *match.Matcher
	Registry  *registry.Registry
	Credits   CreditsProbe
	Logger    infra.Logger
}

func NewApp(tasks TaskService, artifacts domain.ArtifactStore, matcher *match.Matcher, reg *registry.Registry, credits CreditsProbe, logger infra.Logger) *App {
	return &App{
		Tasks:     tasks,
		Artifacts: artifacts,
		Matcher:   matcher,
		Registry:  reg,
		Credits:   credits,
		Logger:    logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": kind, "message": message},
	})
}

// domainError translates domain sentinels into HTTP responses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "unknown task id")
	case errors.Is(err, domain.ErrAlreadyTerminal):
		a.error(w, http.StatusConflict, "already_terminal", "task already reached a terminal state")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.error(w, http.StatusServiceUnavailable, "unavailable", "request aborted before the task could be scheduled")
	default:
		a.Logger.Error().Err(err).Msg("handlers: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
