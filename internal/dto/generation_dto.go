package dto

// LearnerProfile captures the wizard answers that fill the prompt template.
type LearnerProfile struct {
	Status       string   `json:"status" validate:"required,max=128"`
	Skills       []string `json:"skills" validate:"max=32,dive,max=128"`
	Goals        string   `json:"goals" validate:"required,max=1024"`
	HoursPerWeek int      `json:"hours_per_week" validate:"gte=0,lte=168"`
}

// DraftItem is a normalized, not-yet-persisted trackable item. Completed is
// always false on a draft; a generation response never dictates completion.
type DraftItem struct {
	Label         string `json:"label"`
	Link          string `json:"link,omitempty"`
	EstimatedTime string `json:"estimated_time,omitempty"`
}

// RoadmapDraft is a validated generation result awaiting user acceptance.
type RoadmapDraft struct {
	Title     string      `json:"title"`
	Steps     []DraftItem `json:"steps"`
	Skills    []DraftItem `json:"skills,omitempty"`
	Tools     []DraftItem `json:"tools,omitempty"`
	Resources []DraftItem `json:"resources,omitempty"`
	Timeline  []DraftItem `json:"timeline,omitempty"`
}

// ItemCount returns the number of trackable items the draft would create.
func (d RoadmapDraft) ItemCount() int {
	return len(d.Steps) + len(d.Skills) + len(d.Tools) + len(d.Resources) + len(d.Timeline)
}

// GenerateRequest asks for a fresh AI roadmap from a learner profile.
type GenerateRequest struct {
	Profile LearnerProfile `json:"profile" validate:"required"`
}

// GenerateResult carries the draft plus the extraction outcome tag.
type GenerateResult struct {
	DraftID string       `json:"draft_id,omitempty"`
	Outcome string       `json:"outcome"`
	Draft   RoadmapDraft `json:"draft,omitempty"`
}

// AcceptDraftRequest persists a previously generated draft.
type AcceptDraftRequest struct {
	DraftID string `json:"draft_id" validate:"required,uuid4"`
}

// AppendStepsRequest asks for AI-personalized steps appended to a roadmap.
type AppendStepsRequest struct {
	Profile LearnerProfile `json:"profile" validate:"required"`
}
