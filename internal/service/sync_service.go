package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/models"
	"github.com/arahkita/arah-go-api/internal/observability"
	"github.com/arahkita/arah-go-api/internal/progress"
	"github.com/arahkita/arah-go-api/internal/realtime"
	"github.com/arahkita/arah-go-api/internal/repository"
	"github.com/arahkita/arah-go-api/internal/roadmapgen"
	"github.com/arahkita/arah-go-api/internal/store"
)

// ErrDraftNotFound is returned when an accept references an unknown or
// expired draft.
var ErrDraftNotFound = errors.New("draft not found")

// ErrGenerationFailed wraps any non-success generation outcome on paths that
// need a persisted result rather than a tagged draft.
var ErrGenerationFailed = errors.New("generation failed")

const draftTTL = time.Hour

// SyncService is the single write path for completion state. Every mutation
// funnels through it so the persisted stores, the in-memory views and the
// change feed can never disagree about ordering.
type SyncService interface {
	Generate(ctx context.Context, sess store.Session, req dto.GenerateRequest) (dto.GenerateResult, error)
	AcceptDraft(ctx context.Context, sess store.Session, draftID string) (dto.RoadmapResponse, error)
	AppendPersonalizedSteps(ctx context.Context, sess store.Session, roadmapID string, req dto.AppendStepsRequest) (dto.RoadmapResponse, error)
	GetRoadmap(ctx context.Context, sess store.Session, roadmapID string) (dto.RoadmapResponse, error)
	ListRoadmaps(ctx context.Context, sess store.Session) ([]dto.RoadmapResponse, error)
	CreateRoadmap(ctx context.Context, sess store.Session, roadmap models.Roadmap) (dto.RoadmapResponse, error)
	ToggleItem(ctx context.Context, sess store.Session, roadmapID string, req dto.ToggleItemRequest) (dto.ToggleItemResult, error)
	Reset(ctx context.Context, sess store.Session, roadmapID string) (dto.ProgressResponse, error)
	Progress(ctx context.Context, sess store.Session, roadmapID string) (dto.ProgressResponse, error)
	DeleteRoadmap(ctx context.Context, sess store.Session, roadmapID string) error
	Watch(ctx context.Context, sess store.Session, roadmapID string) func()
}

type syncService struct {
	dual       *store.DualStore
	generation *roadmapgen.Client
	notices    NoticeService
	feed       *realtime.Feed
	reconciler *realtime.Reconciler
	validator  *validator.Validate
	logger     zerolog.Logger
	tracer     trace.Tracer

	mu     sync.Mutex
	drafts map[string]pendingDraft
	views  map[string]models.Roadmap
}

type pendingDraft struct {
	ownerID   string
	draft     dto.RoadmapDraft
	profile   dto.LearnerProfile
	createdAt time.Time
}

// NewSyncService constructs the sync controller.
func NewSyncService(dual *store.DualStore, generation *roadmapgen.Client, notices NoticeService, feed *realtime.Feed, reconciler *realtime.Reconciler, validate *validator.Validate, logger zerolog.Logger) SyncService {
	return &syncService{
		dual:       dual,
		generation: generation,
		notices:    notices,
		feed:       feed,
		reconciler: reconciler,
		validator:  validate,
		logger:     logger.With().Str("component", "sync_service").Logger(),
		tracer:     otel.Tracer("github.com/arahkita/arah-go-api/internal/service/sync"),
		drafts:     make(map[string]pendingDraft),
		views:      make(map[string]models.Roadmap),
	}
}

// Generate runs the profile through the generation pipeline and holds the
// validated draft in memory until the user accepts it. Non-success outcomes
// come back tagged, not as errors; only a malformed request errors out.
func (s *syncService) Generate(ctx context.Context, sess store.Session, req dto.GenerateRequest) (dto.GenerateResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GenerateResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "sync.generate", trace.WithAttributes(
		attribute.String("user_id", sess.UserID),
	))
	defer span.End()

	prompt := roadmapgen.BuildPrompt(req.Profile)
	result := s.generation.Generate(ctx, prompt, s.noticeFunc(sess.UserID, ""))
	observability.GenerationOutcomes().WithLabelValues(string(result.Outcome)).Inc()

	if result.Outcome != roadmapgen.OutcomeSuccess {
		span.RecordError(result.Err)
		return dto.GenerateResult{Outcome: string(result.Outcome)}, nil
	}

	draftID := uuid.NewString()
	s.mu.Lock()
	s.pruneDraftsLocked()
	s.drafts[draftID] = pendingDraft{
		ownerID:   sess.UserID,
		draft:     result.Draft,
		profile:   req.Profile,
		createdAt: time.Now(),
	}
	s.mu.Unlock()

	return dto.GenerateResult{
		DraftID: draftID,
		Outcome: string(result.Outcome),
		Draft:   result.Draft,
	}, nil
}

// AcceptDraft persists a previously generated draft as a roadmap. Until this
// point nothing from the generation has touched either store.
func (s *syncService) AcceptDraft(ctx context.Context, sess store.Session, draftID string) (dto.RoadmapResponse, error) {
	s.mu.Lock()
	pending, ok := s.drafts[draftID]
	if ok && pending.ownerID == sess.UserID {
		delete(s.drafts, draftID)
	}
	s.mu.Unlock()
	if !ok || pending.ownerID != sess.UserID {
		return dto.RoadmapResponse{}, ErrDraftNotFound
	}

	roadmap := draftToRoadmap(pending.draft, pending.profile, sess.UserID)
	id, err := s.dual.WriteRoadmap(ctx, sess, &roadmap)
	if err != nil {
		s.publishNotice(ctx, sess.UserID, "", dto.NoticePersistenceFailed, "could not save your roadmap", 0)
		return dto.RoadmapResponse{}, err
	}

	stored, err := s.dual.ReadRoadmap(ctx, sess, id)
	if err != nil {
		return dto.RoadmapResponse{}, err
	}

	s.replaceView(stored)
	s.publishChange(ctx, id, "roadmaps")

	return dto.NewRoadmapResponse(stored, progress.Percentage(stored.Items())), nil
}

// AppendPersonalizedSteps generates follow-up steps for an existing roadmap
// and appends them. Existing items and their completion are never touched.
func (s *syncService) AppendPersonalizedSteps(ctx context.Context, sess store.Session, roadmapID string, req dto.AppendStepsRequest) (dto.RoadmapResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.RoadmapResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "sync.append_steps", trace.WithAttributes(
		attribute.String("roadmap_id", roadmapID),
	))
	defer span.End()

	current, err := s.dual.ReadRoadmap(ctx, sess, roadmapID)
	if err != nil {
		return dto.RoadmapResponse{}, err
	}

	existing := make([]string, 0, len(current.Steps))
	for _, step := range current.Steps {
		existing = append(existing, step.Label)
	}

	prompt := roadmapgen.BuildAppendPrompt(req.Profile, current.Title, existing)
	result := s.generation.Generate(ctx, prompt, s.noticeFunc(sess.UserID, roadmapID))
	observability.GenerationOutcomes().WithLabelValues(string(result.Outcome)).Inc()
	if result.Outcome != roadmapgen.OutcomeSuccess {
		span.RecordError(result.Err)
		return dto.RoadmapResponse{}, errors.Join(ErrGenerationFailed, result.Err)
	}

	steps := make([]models.RoadmapStep, 0, len(result.Draft.Steps))
	for _, item := range result.Draft.Steps {
		steps = append(steps, models.RoadmapStep{
			Label:         item.Label,
			Link:          item.Link,
			EstimatedTime: item.EstimatedTime,
		})
	}
	if len(steps) == 0 {
		return dto.RoadmapResponse{}, errors.Join(ErrGenerationFailed, errors.New("draft contained no steps"))
	}

	if err := s.dual.AppendSteps(ctx, sess, roadmapID, steps); err != nil {
		s.publishNotice(ctx, sess.UserID, roadmapID, dto.NoticePersistenceFailed, "could not save the new steps", 0)
		return dto.RoadmapResponse{}, err
	}

	stored, err := s.dual.ReadRoadmap(ctx, sess, roadmapID)
	if err != nil {
		return dto.RoadmapResponse{}, err
	}

	s.replaceView(stored)
	s.publishChange(ctx, roadmapID, "roadmap_steps")

	return dto.NewRoadmapResponse(stored, progress.Percentage(stored.Items())), nil
}

func (s *syncService) GetRoadmap(ctx context.Context, sess store.Session, roadmapID string) (dto.RoadmapResponse, error) {
	roadmap, err := s.dual.ReadRoadmap(ctx, sess, roadmapID)
	if err != nil {
		return dto.RoadmapResponse{}, err
	}

	s.replaceView(roadmap)

	return dto.NewRoadmapResponse(roadmap, progress.Percentage(roadmap.Items())), nil
}

func (s *syncService) ListRoadmaps(ctx context.Context, sess store.Session) ([]dto.RoadmapResponse, error) {
	roadmaps, err := s.dual.ListRoadmaps(ctx, sess)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.RoadmapResponse, 0, len(roadmaps))
	for _, roadmap := range roadmaps {
		responses = append(responses, dto.NewRoadmapResponse(roadmap, progress.Percentage(roadmap.Items())))
	}

	return responses, nil
}

// CreateRoadmap persists a pre-built roadmap, typically a template
// instantiation. Completion state never carries over from the source.
func (s *syncService) CreateRoadmap(ctx context.Context, sess store.Session, roadmap models.Roadmap) (dto.RoadmapResponse, error) {
	roadmap.OwnerID = sess.UserID
	id, err := s.dual.WriteRoadmap(ctx, sess, &roadmap)
	if err != nil {
		s.publishNotice(ctx, sess.UserID, "", dto.NoticePersistenceFailed, "could not save your roadmap", 0)
		return dto.RoadmapResponse{}, err
	}

	stored, err := s.dual.ReadRoadmap(ctx, sess, id)
	if err != nil {
		return dto.RoadmapResponse{}, err
	}

	s.replaceView(stored)
	s.publishChange(ctx, id, "roadmaps")

	return dto.NewRoadmapResponse(stored, progress.Percentage(stored.Items())), nil
}

// ToggleItem flips one item's completion optimistically: the in-memory view
// and the derived percentage update before the write is attempted, and roll
// back if it fails. Milestone notices fire on the transition only.
func (s *syncService) ToggleItem(ctx context.Context, sess store.Session, roadmapID string, req dto.ToggleItemRequest) (dto.ToggleItemResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ToggleItemResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "sync.toggle_item", trace.WithAttributes(
		attribute.String("roadmap_id", roadmapID),
		attribute.String("category", req.Category),
	))
	defer span.End()

	before, err := s.currentView(ctx, sess, roadmapID)
	if err != nil {
		return dto.ToggleItemResult{}, err
	}

	category := models.ItemCategory(req.Category)
	after, completed, found := flipItem(before, category, req.ItemID)
	if !found {
		return dto.ToggleItemResult{}, repository.ErrItemNotFound
	}

	prev := progress.Percentage(before.Items())
	next := progress.Percentage(after.Items())

	s.replaceView(after)

	ref := store.ItemRef{RoadmapID: roadmapID, Category: category, ItemID: req.ItemID}
	if err := s.dual.WriteItemCompletion(ctx, sess, ref, completed); err != nil {
		span.RecordError(err)
		s.replaceView(before)
		s.publishNotice(ctx, sess.UserID, roadmapID, dto.NoticePersistenceFailed, "could not save your progress", 0)
		return dto.ToggleItemResult{}, err
	}

	milestones := progress.CrossedMilestone(prev, next)
	if milestones.Fifty {
		observability.MilestoneCrossings().WithLabelValues("fifty").Inc()
		s.publishNotice(ctx, sess.UserID, roadmapID, dto.NoticeMilestoneFifty, "halfway there", 0)
	}
	if milestones.Hundred {
		observability.MilestoneCrossings().WithLabelValues("hundred").Inc()
		s.publishNotice(ctx, sess.UserID, roadmapID, dto.NoticeMilestoneHundred, "roadmap complete", 0)
	}

	s.publishChange(ctx, roadmapID, categoryTable(category))

	return dto.ToggleItemResult{
		ItemID:     req.ItemID,
		Category:   req.Category,
		Completed:  completed,
		Percentage: next,
		Fifty:      milestones.Fifty,
		Hundred:    milestones.Hundred,
	}, nil
}

// Reset clears every item in one batch and recomputes once, so observers see
// a single 0% transition instead of one event per item.
func (s *syncService) Reset(ctx context.Context, sess store.Session, roadmapID string) (dto.ProgressResponse, error) {
	ctx, span := s.tracer.Start(ctx, "sync.reset", trace.WithAttributes(
		attribute.String("roadmap_id", roadmapID),
	))
	defer span.End()

	if err := s.dual.ResetCompletion(ctx, sess, roadmapID); err != nil {
		span.RecordError(err)
		s.publishNotice(ctx, sess.UserID, roadmapID, dto.NoticePersistenceFailed, "could not reset your progress", 0)
		return dto.ProgressResponse{}, err
	}

	roadmap, err := s.dual.ReadRoadmap(ctx, sess, roadmapID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	s.replaceView(roadmap)
	s.publishChange(ctx, roadmapID, "roadmaps")

	snapshot := progress.Compute(roadmap.Items())
	return dto.ProgressResponse{
		RoadmapID:      roadmapID,
		CompletedCount: snapshot.CompletedCount,
		TotalCount:     snapshot.TotalCount,
		Percentage:     snapshot.Percentage,
	}, nil
}

func (s *syncService) Progress(ctx context.Context, sess store.Session, roadmapID string) (dto.ProgressResponse, error) {
	roadmap, err := s.currentView(ctx, sess, roadmapID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	snapshot := progress.Compute(roadmap.Items())
	return dto.ProgressResponse{
		RoadmapID:      roadmapID,
		CompletedCount: snapshot.CompletedCount,
		TotalCount:     snapshot.TotalCount,
		Percentage:     snapshot.Percentage,
	}, nil
}

func (s *syncService) DeleteRoadmap(ctx context.Context, sess store.Session, roadmapID string) error {
	if err := s.dual.DeleteRoadmap(ctx, sess, roadmapID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.views, roadmapID)
	s.mu.Unlock()

	s.publishChange(ctx, roadmapID, "roadmaps")
	return nil
}

// Watch keeps the in-memory view of one roadmap reconciled with the change
// feed. A dirty signal triggers a full re-fetch; the fresh copy replaces the
// view wholesale. The returned cancel func stops watching.
func (s *syncService) Watch(ctx context.Context, sess store.Session, roadmapID string) func() {
	if s.reconciler == nil {
		return func() {}
	}
	return s.reconciler.Watch(ctx, sess, roadmapID, s.replaceView)
}

func (s *syncService) publishChange(ctx context.Context, roadmapID, table string) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, roadmapID, table)
}

func (s *syncService) noticeFunc(userID, roadmapID string) roadmapgen.NoticeFunc {
	return func(kind, message string, attempt int) {
		s.publishNotice(context.Background(), userID, roadmapID, kind, message, attempt)
	}
}

func (s *syncService) publishNotice(ctx context.Context, userID, roadmapID, kind, message string, attempt int) {
	if s.notices == nil {
		return
	}
	s.notices.Publish(ctx, dto.Notice{
		Kind:      kind,
		UserID:    userID,
		RoadmapID: roadmapID,
		Message:   message,
		Attempt:   attempt,
	})
}

func (s *syncService) currentView(ctx context.Context, sess store.Session, roadmapID string) (models.Roadmap, error) {
	s.mu.Lock()
	view, ok := s.views[roadmapID]
	s.mu.Unlock()
	if ok {
		return view, nil
	}

	roadmap, err := s.dual.ReadRoadmap(ctx, sess, roadmapID)
	if err != nil {
		return models.Roadmap{}, err
	}

	s.replaceView(roadmap)
	return roadmap, nil
}

func (s *syncService) replaceView(roadmap models.Roadmap) {
	s.mu.Lock()
	s.views[roadmap.ID] = roadmap
	s.mu.Unlock()
}

func (s *syncService) pruneDraftsLocked() {
	cutoff := time.Now().Add(-draftTTL)
	for id, pending := range s.drafts {
		if pending.createdAt.Before(cutoff) {
			delete(s.drafts, id)
		}
	}
}

func draftToRoadmap(draft dto.RoadmapDraft, profile dto.LearnerProfile, ownerID string) models.Roadmap {
	roadmap := models.Roadmap{
		OwnerID:    ownerID,
		Title:      draft.Title,
		Provenance: models.ProvenanceAICustom,
		ProfileSnapshot: datatypes.JSONMap{
			"status":         profile.Status,
			"goals":          profile.Goals,
			"hours_per_week": profile.HoursPerWeek,
		},
	}

	for i, item := range draft.Steps {
		roadmap.Steps = append(roadmap.Steps, models.RoadmapStep{
			Label: item.Label, Sequence: i + 1, Link: item.Link, EstimatedTime: item.EstimatedTime,
		})
	}
	for i, item := range draft.Skills {
		roadmap.Skills = append(roadmap.Skills, models.RoadmapSkill{
			Label: item.Label, Sequence: i + 1, Link: item.Link, EstimatedTime: item.EstimatedTime,
		})
	}
	for i, item := range draft.Tools {
		roadmap.Tools = append(roadmap.Tools, models.RoadmapTool{
			Label: item.Label, Sequence: i + 1, Link: item.Link, EstimatedTime: item.EstimatedTime,
		})
	}
	for i, item := range draft.Resources {
		roadmap.Resources = append(roadmap.Resources, models.RoadmapResource{
			Label: item.Label, Sequence: i + 1, Link: item.Link, EstimatedTime: item.EstimatedTime,
		})
	}
	for i, item := range draft.Timeline {
		roadmap.Timeline = append(roadmap.Timeline, models.TimelineEntry{
			Label: item.Label, Sequence: i + 1, Link: item.Link, EstimatedTime: item.EstimatedTime,
		})
	}

	return roadmap
}

// flipItem returns a deep-enough copy of roadmap with one item flipped. The
// child slices are copied so a rollback can restore the original untouched.
func flipItem(roadmap models.Roadmap, category models.ItemCategory, itemID uint) (models.Roadmap, bool, bool) {
	out := roadmap
	switch category {
	case models.CategoryStep:
		out.Steps = append([]models.RoadmapStep(nil), roadmap.Steps...)
		for i := range out.Steps {
			if out.Steps[i].ID == itemID {
				out.Steps[i].Completed = !out.Steps[i].Completed
				return out, out.Steps[i].Completed, true
			}
		}
	case models.CategorySkill:
		out.Skills = append([]models.RoadmapSkill(nil), roadmap.Skills...)
		for i := range out.Skills {
			if out.Skills[i].ID == itemID {
				out.Skills[i].Completed = !out.Skills[i].Completed
				return out, out.Skills[i].Completed, true
			}
		}
	case models.CategoryTool:
		out.Tools = append([]models.RoadmapTool(nil), roadmap.Tools...)
		for i := range out.Tools {
			if out.Tools[i].ID == itemID {
				out.Tools[i].Completed = !out.Tools[i].Completed
				return out, out.Tools[i].Completed, true
			}
		}
	case models.CategoryResource:
		out.Resources = append([]models.RoadmapResource(nil), roadmap.Resources...)
		for i := range out.Resources {
			if out.Resources[i].ID == itemID {
				out.Resources[i].Completed = !out.Resources[i].Completed
				return out, out.Resources[i].Completed, true
			}
		}
	case models.CategoryTimeline:
		out.Timeline = append([]models.TimelineEntry(nil), roadmap.Timeline...)
		for i := range out.Timeline {
			if out.Timeline[i].ID == itemID {
				out.Timeline[i].Completed = !out.Timeline[i].Completed
				return out, out.Timeline[i].Completed, true
			}
		}
	}
	return roadmap, false, false
}

func categoryTable(category models.ItemCategory) string {
	switch category {
	case models.CategoryStep:
		return "roadmap_steps"
	case models.CategorySkill:
		return "roadmap_skills"
	case models.CategoryTool:
		return "roadmap_tools"
	case models.CategoryResource:
		return "roadmap_resources"
	case models.CategoryTimeline:
		return "timeline_entries"
	default:
		return "roadmaps"
	}
}
