package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tuneforge/internal/domain"
)

// CreateGeneration accepts a generation request, schedules it and returns
// the task id immediately. Progress is polled via GetGeneration.
func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	taskID, err := a.Tasks.Start(r.Context(), req)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"status":  string(domain.TaskStatusPending),
	})
}

// GetGeneration returns the current task snapshot.
func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	task, err := a.Tasks.GetStatus(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, task)
}

// CancelGeneration requests a best-effort cancellation. A task that already
// finished stays finished; the caller gets a conflict instead.
func (a *App) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if err := a.Tasks.Cancel(r.Context(), id); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{
		"task_id": id,
		"status":  string(domain.TaskStatusFailed),
	})
}
