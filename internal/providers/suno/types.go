package suno

import "strings"

// JobStatus is the normalized lifecycle of a provider-side generation job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Unit is one generated track inside a provider batch. A single submit
// typically yields two units; the caller consumes the first and parks the
// rest.
type Unit struct {
	ID              string
	Title           string
	PayloadRef      string
	ImageRef        string
	Tags            []string
	DurationSeconds float64
}

// PollResult is one observation of a provider job.
type PollResult struct {
	Status JobStatus
	// Phase carries the provider's raw status string for logging and for
	// the synthetic progress curve.
	Phase          string
	Units          []Unit
	FailureMessage string
}

// normalizeStatus folds the provider's phase vocabulary into the four
// states the orchestrator cares about. Unknown phases read as running:
// the poll budget bounds how long that can last.
func normalizeStatus(phase string) JobStatus {
	switch strings.ToUpper(strings.TrimSpace(phase)) {
	case "PENDING", "CREATE_TASK", "QUEUED", "":
		return JobStatusQueued
	case "TEXT_SUCCESS", "FIRST_SUCCESS", "RUNNING", "GENERATING":
		return JobStatusRunning
	case "SUCCESS", "AUDIO_SUCCESS", "COMPLETE":
		return JobStatusCompleted
	case "FAILED", "CREATE_TASK_FAILED", "GENERATE_AUDIO_FAILED",
		"SENSITIVE_WORD_ERROR", "CALLBACK_EXCEPTION":
		return JobStatusFailed
	default:
		return JobStatusRunning
	}
}
