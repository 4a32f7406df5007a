package dto

import "time"

// Notice kinds surfaced to the UI as transient, non-blocking toasts.
const (
	NoticeGenerationRetrying = "generation_retrying"
	NoticeGenerationFailed   = "generation_failed"
	NoticeSchemaInvalid      = "generation_schema_invalid"
	NoticeMilestoneFifty     = "milestone_fifty"
	NoticeMilestoneHundred   = "milestone_hundred"
	NoticePersistenceFailed  = "persistence_failed"
)

// Notice is a transient user-facing notification. Notices are never
// persisted; a dropped notice is acceptable, a blocked operation is not.
type Notice struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"user_id"`
	RoadmapID string    `json:"roadmap_id,omitempty"`
	Message   string    `json:"message"`
	Attempt   int       `json:"attempt,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// PreferenceResponse serializes the persisted per-user flag record.
type PreferenceResponse struct {
	UserID         string `json:"user_id"`
	OnboardingSeen bool   `json:"onboarding_seen"`
	ActiveRoadmap  string `json:"active_roadmap,omitempty"`
}

// PreferenceUpdateRequest mutates the flag record.
type PreferenceUpdateRequest struct {
	OnboardingSeen *bool   `json:"onboarding_seen,omitempty"`
	ActiveRoadmap  *string `json:"active_roadmap,omitempty" validate:"omitempty,uuid4"`
}
