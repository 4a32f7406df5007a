package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/arahkita/arah-go-api/internal/models"
)

// PreferenceRepository persists the per-user flag record.
type PreferenceRepository interface {
	GetOrCreate(ctx context.Context, userID string) (models.UserPreference, error)
	Save(ctx context.Context, pref *models.UserPreference) error
}

type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository constructs a repository.
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) GetOrCreate(ctx context.Context, userID string) (models.UserPreference, error) {
	var pref models.UserPreference
	err := r.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserPreference{}, err
	}

	pref = models.UserPreference{UserID: userID}
	if err := r.db.WithContext(ctx).Create(&pref).Error; err != nil {
		return models.UserPreference{}, err
	}
	return pref, nil
}

func (r *preferenceRepository) Save(ctx context.Context, pref *models.UserPreference) error {
	return r.db.WithContext(ctx).Save(pref).Error
}
