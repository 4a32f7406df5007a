package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/repository"
)

// ErrPreferenceUnauthenticated is returned when preference operations are
// attempted without a signed-in user. The flag record lives only in the
// remote store, never in the local document.
var ErrPreferenceUnauthenticated = errors.New("preferences require an authenticated session")

// PreferenceService reads and updates the persisted per-user flag record.
type PreferenceService interface {
	Get(ctx context.Context, userID string) (dto.PreferenceResponse, error)
	Update(ctx context.Context, userID string, req dto.PreferenceUpdateRequest) (dto.PreferenceResponse, error)
}

type preferenceService struct {
	repo      repository.PreferenceRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPreferenceService constructs the preference service.
func NewPreferenceService(repo repository.PreferenceRepository, validate *validator.Validate, logger zerolog.Logger) PreferenceService {
	return &preferenceService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "preference_service").Logger(),
	}
}

func (s *preferenceService) Get(ctx context.Context, userID string) (dto.PreferenceResponse, error) {
	if userID == "" {
		return dto.PreferenceResponse{}, ErrPreferenceUnauthenticated
	}

	pref, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return dto.PreferenceResponse{}, err
	}

	return dto.PreferenceResponse{
		UserID:         pref.UserID,
		OnboardingSeen: pref.OnboardingSeen,
		ActiveRoadmap:  pref.ActiveRoadmap,
	}, nil
}

func (s *preferenceService) Update(ctx context.Context, userID string, req dto.PreferenceUpdateRequest) (dto.PreferenceResponse, error) {
	if userID == "" {
		return dto.PreferenceResponse{}, ErrPreferenceUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.PreferenceResponse{}, err
	}

	pref, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return dto.PreferenceResponse{}, err
	}

	if req.OnboardingSeen != nil {
		pref.OnboardingSeen = *req.OnboardingSeen
	}
	if req.ActiveRoadmap != nil {
		pref.ActiveRoadmap = *req.ActiveRoadmap
	}

	if err := s.repo.Save(ctx, &pref); err != nil {
		return dto.PreferenceResponse{}, err
	}

	return dto.PreferenceResponse{
		UserID:         pref.UserID,
		OnboardingSeen: pref.OnboardingSeen,
		ActiveRoadmap:  pref.ActiveRoadmap,
	}, nil
}
