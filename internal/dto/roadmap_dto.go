package dto

import (
	"time"

	"github.com/arahkita/arah-go-api/internal/models"
)

// ItemResponse serializes a trackable item.
type ItemResponse struct {
	ID            uint   `json:"id"`
	Category      string `json:"category"`
	Label         string `json:"label"`
	Sequence      int    `json:"sequence"`
	EstimatedTime string `json:"estimated_time,omitempty"`
	Link          string `json:"link,omitempty"`
	Completed     bool   `json:"completed"`
}

// RoadmapResponse serializes a roadmap aggregate with its derived progress.
type RoadmapResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Provenance string         `json:"provenance"`
	Items      []ItemResponse `json:"items"`
	Percentage int            `json:"percentage"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ToggleItemRequest flips completion state for a single item.
type ToggleItemRequest struct {
	Category string `json:"category" validate:"required,oneof=step skill tool resource timeline"`
	ItemID   uint   `json:"item_id" validate:"required"`
}

// ToggleItemResult reports the post-toggle progress snapshot.
type ToggleItemResult struct {
	ItemID     uint   `json:"item_id"`
	Category   string `json:"category"`
	Completed  bool   `json:"completed"`
	Percentage int    `json:"percentage"`
	Fifty      bool   `json:"crossed_fifty"`
	Hundred    bool   `json:"crossed_hundred"`
}

// TemplateResponse describes one catalog entry.
type TemplateResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ItemCount   int    `json:"item_count"`
}

// ProgressResponse is the derived completion snapshot for a roadmap.
type ProgressResponse struct {
	RoadmapID      string `json:"roadmap_id"`
	CompletedCount int    `json:"completed_count"`
	TotalCount     int    `json:"total_count"`
	Percentage     int    `json:"percentage"`
}

// NewItemResponse converts the domain view to its wire form.
func NewItemResponse(item models.TrackableItem) ItemResponse {
	return ItemResponse{
		ID:            item.ID,
		Category:      string(item.Category),
		Label:         item.Label,
		Sequence:      item.Sequence,
		EstimatedTime: item.EstimatedTime,
		Link:          item.Link,
		Completed:     item.Completed,
	}
}

// NewRoadmapResponse converts a roadmap and its precomputed percentage.
func NewRoadmapResponse(roadmap models.Roadmap, percentage int) RoadmapResponse {
	items := roadmap.Items()
	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewItemResponse(item))
	}
	return RoadmapResponse{
		ID:         roadmap.ID,
		Title:      roadmap.Title,
		Provenance: string(roadmap.Provenance),
		Items:      responses,
		Percentage: percentage,
		UpdatedAt:  roadmap.UpdatedAt,
	}
}
