package domain

import "time"

// ArtifactStatus enumerates the reuse lifecycle of a stored track.
type ArtifactStatus string

const (
	ArtifactStatusAvailable ArtifactStatus = "available"
	ArtifactStatusReserved  ArtifactStatus = "reserved"
	ArtifactStatusConsumed  ArtifactStatus = "consumed"
	ArtifactStatusExpired   ArtifactStatus = "expired"
)

// CanTransition reports whether moving to next is a legal forward edge.
// The only edges are available→reserved→consumed and available→expired;
// nothing moves backwards and terminal states never change.
func (s ArtifactStatus) CanTransition(next ArtifactStatus) bool {
	switch s {
	case ArtifactStatusAvailable:
		return next == ArtifactStatusReserved || next == ArtifactStatusExpired
	case ArtifactStatusReserved:
		return next == ArtifactStatusConsumed
	default:
		return false
	}
}

// DefaultArtifactTTL bounds how long a surplus track stays eligible for
// reuse. Thirty days matches the provider's retention of hosted audio.
const DefaultArtifactTTL = 30 * 24 * time.Hour

// Artifact is one generated track parked for later reuse. Every provider
// call yields more tracks than the requesting task consumes; the surplus
// lands here keyed by (scope, category, variant).
type Artifact struct {
	ID              string         `json:"id"`
	SourceRequestID string         `json:"source_request_id"`
	Scope           string         `json:"scope"`
	Category        string         `json:"category"`
	Variant         Variant        `json:"variant"`
	Title           string         `json:"title"`
	PayloadRef      string         `json:"payload_ref"`
	ImageRef        string         `json:"image_ref,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
	QualityScore    float64        `json:"quality_score"`
	Status          ArtifactStatus `json:"status"`
	ConsumedByTask  string         `json:"consumed_by_task,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
}

// Expired reports whether the artifact's reuse window has closed at now.
func (a *Artifact) Expired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}
