package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/arahkita/arah-go-api/internal/models"
)

// ErrRoadmapNotFound indicates the requested roadmap does not exist remotely.
var ErrRoadmapNotFound = errors.New("roadmap not found")

// ErrItemNotFound indicates a completion write targeted a missing remote row.
var ErrItemNotFound = errors.New("trackable item not found")

// RoadmapRepository exposes remote persistence for roadmap aggregates and
// their completion-bearing child collections.
type RoadmapRepository interface {
	Create(ctx context.Context, roadmap *models.Roadmap) error
	Get(ctx context.Context, id string) (models.Roadmap, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Roadmap, error)
	Delete(ctx context.Context, id string) error
	SetItemCompletion(ctx context.Context, category models.ItemCategory, itemID uint, completed bool) error
	ResetCompletion(ctx context.Context, roadmapID string) error
	AppendSteps(ctx context.Context, roadmapID string, steps []models.RoadmapStep) error
}

type roadmapRepository struct {
	db *gorm.DB
}

// NewRoadmapRepository constructs a repository.
func NewRoadmapRepository(db *gorm.DB) RoadmapRepository {
	return &roadmapRepository{db: db}
}

func (r *roadmapRepository) Create(ctx context.Context, roadmap *models.Roadmap) error {
	return r.db.WithContext(ctx).Create(roadmap).Error
}

func (r *roadmapRepository) Get(ctx context.Context, id string) (models.Roadmap, error) {
	var roadmap models.Roadmap
	err := r.preloadChildren(r.db.WithContext(ctx)).First(&roadmap, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Roadmap{}, ErrRoadmapNotFound
		}
		return models.Roadmap{}, err
	}
	return roadmap, nil
}

func (r *roadmapRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Roadmap, error) {
	var roadmaps []models.Roadmap
	err := r.preloadChildren(r.db.WithContext(ctx)).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&roadmaps).Error
	if err != nil {
		return nil, err
	}
	return roadmaps, nil
}

// Delete removes the aggregate and cascades to every child collection.
func (r *roadmapRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, category := range models.Categories() {
			if err := tx.Where("roadmap_id = ?", id).Delete(categoryModel(category)).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.Roadmap{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRoadmapNotFound
		}
		return nil
	})
}

// SetItemCompletion is a last-write-wins update; there is no optimistic-lock
// conflict detection on completion toggles.
func (r *roadmapRepository) SetItemCompletion(ctx context.Context, category models.ItemCategory, itemID uint, completed bool) error {
	model := categoryModel(category)
	if model == nil {
		return fmt.Errorf("unknown item category %q", category)
	}

	result := r.db.WithContext(ctx).Model(model).
		Where("id = ?", itemID).
		Update("completed", completed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ResetCompletion clears every completed flag for one roadmap in a single
// batch per child table rather than N individual toggles.
func (r *roadmapRepository) ResetCompletion(ctx context.Context, roadmapID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, category := range models.Categories() {
			err := tx.Model(categoryModel(category)).
				Where("roadmap_id = ?", roadmapID).
				Update("completed", false).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendSteps adds personalization steps to an existing roadmap. Appends
// never reorder or remove existing structure.
func (r *roadmapRepository) AppendSteps(ctx context.Context, roadmapID string, steps []models.RoadmapStep) error {
	if len(steps) == 0 {
		return nil
	}

	var exists int64
	if err := r.db.WithContext(ctx).Model(&models.Roadmap{}).Where("id = ?", roadmapID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return ErrRoadmapNotFound
	}

	var maxSequence int
	row := r.db.WithContext(ctx).Model(&models.RoadmapStep{}).
		Where("roadmap_id = ?", roadmapID).
		Select("COALESCE(MAX(sequence), 0)")
	if err := row.Scan(&maxSequence).Error; err != nil {
		return err
	}

	for i := range steps {
		steps[i].RoadmapID = roadmapID
		steps[i].Completed = false
		steps[i].Sequence = maxSequence + i + 1
	}

	return r.db.WithContext(ctx).Create(&steps).Error
}

func (r *roadmapRepository) preloadChildren(db *gorm.DB) *gorm.DB {
	ordered := func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }
	return db.
		Preload("Steps", ordered).
		Preload("Skills", ordered).
		Preload("Tools", ordered).
		Preload("Resources", ordered).
		Preload("Timeline", ordered)
}

func categoryModel(category models.ItemCategory) interface{} {
	switch category {
	case models.CategoryStep:
		return &models.RoadmapStep{}
	case models.CategorySkill:
		return &models.RoadmapSkill{}
	case models.CategoryTool:
		return &models.RoadmapTool{}
	case models.CategoryResource:
		return &models.RoadmapResource{}
	case models.CategoryTimeline:
		return &models.TimelineEntry{}
	default:
		return nil
	}
}
