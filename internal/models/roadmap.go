package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Provenance records how a roadmap came to exist.
type Provenance string

const (
	ProvenanceTemplate     Provenance = "template"
	ProvenanceAICustom     Provenance = "ai-custom"
	ProvenanceUserAuthored Provenance = "user-authored"
)

// ItemCategory identifies which child collection a trackable item lives in.
type ItemCategory string

const (
	CategoryStep     ItemCategory = "step"
	CategorySkill    ItemCategory = "skill"
	CategoryTool     ItemCategory = "tool"
	CategoryResource ItemCategory = "resource"
	CategoryTimeline ItemCategory = "timeline"
)

// Categories lists every child collection carrying completion state.
func Categories() []ItemCategory {
	return []ItemCategory{CategoryStep, CategorySkill, CategoryTool, CategoryResource, CategoryTimeline}
}

// Roadmap is the aggregate root for a learning plan. Its child collections
// are owned exclusively by the roadmap and are removed with it.
type Roadmap struct {
	ID              string            `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         string            `gorm:"size:64;index" json:"owner_id"`
	Title           string            `gorm:"size:255;not null" json:"title"`
	Provenance      Provenance        `gorm:"size:32;default:template" json:"provenance"`
	ProfileSnapshot datatypes.JSONMap `gorm:"type:json" json:"profile_snapshot,omitempty"`
	Steps           []RoadmapStep     `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE" json:"steps"`
	Skills          []RoadmapSkill    `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE" json:"skills"`
	Tools           []RoadmapTool     `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE" json:"tools"`
	Resources       []RoadmapResource `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE" json:"resources"`
	Timeline        []TimelineEntry   `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE" json:"timeline"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// BeforeCreate assigns the roadmap identifier when none was provided.
func (r *Roadmap) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// RoadmapStep is a template-origin learning step.
type RoadmapStep struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoadmapID     string    `gorm:"type:uuid;index;not null" json:"roadmap_id"`
	Label         string    `gorm:"size:512;not null" json:"label"`
	Sequence      int       `gorm:"index" json:"sequence"`
	EstimatedTime string    `gorm:"size:64" json:"estimated_time,omitempty"`
	Link          string    `gorm:"size:1024" json:"link,omitempty"`
	Completed     bool      `gorm:"default:false" json:"completed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RoadmapSkill is a skill the learner should acquire.
type RoadmapSkill struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoadmapID     string    `gorm:"type:uuid;index;not null" json:"roadmap_id"`
	Label         string    `gorm:"size:512;not null" json:"label"`
	Sequence      int       `gorm:"index" json:"sequence"`
	EstimatedTime string    `gorm:"size:64" json:"estimated_time,omitempty"`
	Link          string    `gorm:"size:1024" json:"link,omitempty"`
	Completed     bool      `gorm:"default:false" json:"completed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RoadmapTool is a tool or technology the learner should pick up.
type RoadmapTool struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoadmapID     string    `gorm:"type:uuid;index;not null" json:"roadmap_id"`
	Label         string    `gorm:"size:512;not null" json:"label"`
	Sequence      int       `gorm:"index" json:"sequence"`
	EstimatedTime string    `gorm:"size:64" json:"estimated_time,omitempty"`
	Link          string    `gorm:"size:1024" json:"link,omitempty"`
	Completed     bool      `gorm:"default:false" json:"completed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RoadmapResource is a learning resource such as a course or book.
type RoadmapResource struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoadmapID     string    `gorm:"type:uuid;index;not null" json:"roadmap_id"`
	Label         string    `gorm:"size:512;not null" json:"label"`
	Sequence      int       `gorm:"index" json:"sequence"`
	EstimatedTime string    `gorm:"size:64" json:"estimated_time,omitempty"`
	Link          string    `gorm:"size:1024" json:"link,omitempty"`
	Completed     bool      `gorm:"default:false" json:"completed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TimelineEntry is a dated milestone on the roadmap timeline.
type TimelineEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoadmapID     string    `gorm:"type:uuid;index;not null" json:"roadmap_id"`
	Label         string    `gorm:"size:512;not null" json:"label"`
	Sequence      int       `gorm:"index" json:"sequence"`
	EstimatedTime string    `gorm:"size:64" json:"estimated_time,omitempty"`
	Link          string    `gorm:"size:1024" json:"link,omitempty"`
	Completed     bool      `gorm:"default:false" json:"completed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TrackableItem is the category-independent view of a completable unit.
type TrackableItem struct {
	ID            uint         `json:"id"`
	RoadmapID     string       `json:"roadmap_id"`
	Category      ItemCategory `json:"category"`
	Label         string       `json:"label"`
	Sequence      int          `json:"sequence"`
	EstimatedTime string       `json:"estimated_time,omitempty"`
	Link          string       `json:"link,omitempty"`
	Completed     bool         `json:"completed"`
}

// Item converts a step row into the trackable view.
func (s RoadmapStep) Item() TrackableItem {
	return TrackableItem{ID: s.ID, RoadmapID: s.RoadmapID, Category: CategoryStep, Label: s.Label, Sequence: s.Sequence, EstimatedTime: s.EstimatedTime, Link: s.Link, Completed: s.Completed}
}

// Item converts a skill row into the trackable view.
func (s RoadmapSkill) Item() TrackableItem {
	return TrackableItem{ID: s.ID, RoadmapID: s.RoadmapID, Category: CategorySkill, Label: s.Label, Sequence: s.Sequence, Link: s.Link, Completed: s.Completed}
}

// Item converts a tool row into the trackable view.
func (t RoadmapTool) Item() TrackableItem {
	return TrackableItem{ID: t.ID, RoadmapID: t.RoadmapID, Category: CategoryTool, Label: t.Label, Sequence: t.Sequence, Link: t.Link, Completed: t.Completed}
}

// Item converts a resource row into the trackable view.
func (r RoadmapResource) Item() TrackableItem {
	return TrackableItem{ID: r.ID, RoadmapID: r.RoadmapID, Category: CategoryResource, Label: r.Label, Sequence: r.Sequence, Link: r.Link, Completed: r.Completed}
}

// Item converts a timeline row into the trackable view.
func (e TimelineEntry) Item() TrackableItem {
	return TrackableItem{ID: e.ID, RoadmapID: e.RoadmapID, Category: CategoryTimeline, Label: e.Label, Sequence: e.Sequence, Link: e.Link, Completed: e.Completed}
}

// Items flattens every child collection into one trackable slice, steps first.
func (r Roadmap) Items() []TrackableItem {
	items := make([]TrackableItem, 0, len(r.Steps)+len(r.Skills)+len(r.Tools)+len(r.Resources)+len(r.Timeline))
	for _, s := range r.Steps {
		items = append(items, s.Item())
	}
	for _, s := range r.Skills {
		items = append(items, s.Item())
	}
	for _, t := range r.Tools {
		items = append(items, t.Item())
	}
	for _, res := range r.Resources {
		items = append(items, res.Item())
	}
	for _, e := range r.Timeline {
		items = append(items, e.Item())
	}
	return items
}
