package domain

import "time"

// TaskStatus enumerates the orchestration lifecycle states.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusMatching  TaskStatus = "matching"
	TaskStatusSubmitted TaskStatus = "submitted"
	TaskStatusPolling   TaskStatus = "polling"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether a task in this status will never change again.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskResult is populated only when a task reaches completed.
type TaskResult struct {
	PayloadRef      string  `json:"payload_ref"`
	ImageRef        string  `json:"image_ref,omitempty"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds"`
	// FromCache marks results served from the artifact store without a
	// provider call; ArtifactID identifies the consumed artifact then.
	FromCache  bool   `json:"from_cache"`
	ArtifactID string `json:"artifact_id,omitempty"`
	// ProviderBatchID is the provider-side job that produced the track when
	// the request missed the cache.
	ProviderBatchID string `json:"provider_batch_id,omitempty"`
}

// Task is one orchestration attempt tracked from Start to a terminal state.
// Mutation goes through the registry; callers only ever see snapshots.
type Task struct {
	ID           string            `json:"id"`
	Status       TaskStatus        `json:"status"`
	Progress     int               `json:"progress"`
	Request      GenerationRequest `json:"request"`
	Result       *TaskResult       `json:"result,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
