// Package store consolidates the "remote when signed in, local otherwise"
// branching into one persistence contract. Callers never inspect session
// state themselves; they hand the session to the store and get a single
// read/write surface over both backends.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/arahkita/arah-go-api/internal/cache"
	"github.com/arahkita/arah-go-api/internal/models"
	"github.com/arahkita/arah-go-api/internal/repository"
)

// Session identifies the calling principal. An authenticated session makes
// the remote store the write target and read source of truth; otherwise the
// local document is the sole store. UserID doubles as the anonymous device
// identifier so offline state survives restarts.
type Session struct {
	UserID        string
	Authenticated bool
}

// ItemRef addresses one trackable item inside a roadmap.
type ItemRef struct {
	RoadmapID string
	Category  models.ItemCategory
	ItemID    uint
}

// DualStore is the single persistence abstraction over the remote structured
// store and the local whole-document cache.
type DualStore struct {
	repo   repository.RoadmapRepository
	local  *cache.RoadmapCache
	logger zerolog.Logger
	tracer trace.Tracer
}

// New constructs the dual store.
func New(repo repository.RoadmapRepository, local *cache.RoadmapCache, logger zerolog.Logger) *DualStore {
	return &DualStore{
		repo:   repo,
		local:  local,
		logger: logger.With().Str("component", "dual_store").Logger(),
		tracer: otel.Tracer("github.com/arahkita/arah-go-api/internal/store"),
	}
}

// ReadRoadmap loads one roadmap. Remote data, when available, always
// supersedes the local document; the local copy is consulted only when the
// remote read fails or the caller is unauthenticated.
func (s *DualStore) ReadRoadmap(ctx context.Context, sess Session, id string) (models.Roadmap, error) {
	ctx, span := s.tracer.Start(ctx, "store.read_roadmap", trace.WithAttributes(
		attribute.Bool("authenticated", sess.Authenticated),
	))
	defer span.End()

	if sess.Authenticated {
		roadmap, err := s.repo.Get(ctx, id)
		if err == nil {
			return roadmap, nil
		}
		s.logger.Warn().Err(err).Str("roadmap_id", id).Msg("remote read failed, falling back to local document")
	}

	doc, err := s.local.Read(ctx, sess.UserID)
	if err != nil {
		return models.Roadmap{}, err
	}
	roadmap, ok := doc.Find(id)
	if !ok {
		return models.Roadmap{}, repository.ErrRoadmapNotFound
	}
	return roadmap, nil
}

// ListRoadmaps returns the caller's roadmap collection under the same
// precedence rules as ReadRoadmap.
func (s *DualStore) ListRoadmaps(ctx context.Context, sess Session) ([]models.Roadmap, error) {
	if sess.Authenticated {
		roadmaps, err := s.repo.ListByOwner(ctx, sess.UserID)
		if err == nil {
			return roadmaps, nil
		}
		s.logger.Warn().Err(err).Msg("remote list failed, falling back to local document")
	}

	doc, err := s.local.Read(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return doc.Roadmaps, nil
}

// WriteRoadmap persists a new roadmap aggregate and returns its id. For an
// authenticated session the remote write happens first and the local mirror
// only after it succeeds, never before.
func (s *DualStore) WriteRoadmap(ctx context.Context, sess Session, roadmap *models.Roadmap) (string, error) {
	ctx, span := s.tracer.Start(ctx, "store.write_roadmap", trace.WithAttributes(
		attribute.Bool("authenticated", sess.Authenticated),
	))
	defer span.End()

	roadmap.OwnerID = sess.UserID

	if sess.Authenticated {
		if err := s.repo.Create(ctx, roadmap); err != nil {
			span.RecordError(err)
			return "", err
		}
		s.mirror(ctx, sess.UserID, func(doc *cache.LocalDocument) { doc.Upsert(*roadmap) })
		return roadmap.ID, nil
	}

	if roadmap.ID == "" {
		roadmap.ID = uuid.NewString()
	}
	assignLocalItemIDs(roadmap)

	doc, err := s.local.Read(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	doc.Upsert(*roadmap)
	if err := s.local.Write(ctx, sess.UserID, doc); err != nil {
		return "", err
	}
	return roadmap.ID, nil
}

// WriteItemCompletion flips one item's completed flag. Last-write-wins by
// call order; an item missing from the local document is created as a shadow
// copy rather than raising.
func (s *DualStore) WriteItemCompletion(ctx context.Context, sess Session, ref ItemRef, completed bool) error {
	ctx, span := s.tracer.Start(ctx, "store.write_item_completion", trace.WithAttributes(
		attribute.String("category", string(ref.Category)),
		attribute.Bool("authenticated", sess.Authenticated),
	))
	defer span.End()

	if sess.Authenticated {
		if err := s.repo.SetItemCompletion(ctx, ref.Category, ref.ItemID, completed); err != nil {
			span.RecordError(err)
			return err
		}
		s.mirror(ctx, sess.UserID, func(doc *cache.LocalDocument) {
			doc.SetItemCompletion(ref.RoadmapID, ref.Category, ref.ItemID, completed)
		})
		return nil
	}

	doc, err := s.local.Read(ctx, sess.UserID)
	if err != nil {
		return err
	}
	doc.SetItemCompletion(ref.RoadmapID, ref.Category, ref.ItemID, completed)
	return s.local.Write(ctx, sess.UserID, doc)
}

// ResetCompletion clears every completed flag on one roadmap in a single
// batch, leaving structure untouched.
func (s *DualStore) ResetCompletion(ctx context.Context, sess Session, roadmapID string) error {
	if sess.Authenticated {
		if err := s.repo.ResetCompletion(ctx, roadmapID); err != nil {
			return err
		}
		s.mirror(ctx, sess.UserID, func(doc *cache.LocalDocument) { doc.ResetCompletion(roadmapID) })
		return nil
	}

	doc, err := s.local.Read(ctx, sess.UserID)
	if err != nil {
		return err
	}
	doc.ResetCompletion(roadmapID)
	return s.local.Write(ctx, sess.UserID, doc)
}

// AppendSteps appends personalization steps to an existing roadmap.
func (s *DualStore) AppendSteps(ctx context.Context, sess Session, roadmapID string, steps []models.RoadmapStep) error {
	if sess.Authenticated {
		if err := s.repo.AppendSteps(ctx, roadmapID, steps); err != nil {
			return err
		}
		if refreshed, err := s.repo.Get(ctx, roadmapID); err == nil {
			s.mirror(ctx, sess.UserID, func(doc *cache.LocalDocument) { doc.Upsert(refreshed) })
		}
		return nil
	}

	doc, err := s.local.Read(ctx, sess.UserID)
	if err != nil {
		return err
	}
	roadmap, ok := doc.Find(roadmapID)
	if !ok {
		return repository.ErrRoadmapNotFound
	}
	nextSeq := len(roadmap.Steps)
	nextID := uint(0)
	for _, item := range roadmap.Items() {
		if item.ID > nextID {
			nextID = item.ID
		}
	}
	for i := range steps {
		nextID++
		steps[i].ID = nextID
		steps[i].RoadmapID = roadmapID
		steps[i].Completed = false
		steps[i].Sequence = nextSeq + i + 1
	}
	roadmap.Steps = append(roadmap.Steps, steps...)
	doc.Upsert(roadmap)
	return s.local.Write(ctx, sess.UserID, doc)
}

// DeleteRoadmap destroys the aggregate; children cascade.
func (s *DualStore) DeleteRoadmap(ctx context.Context, sess Session, id string) error {
	if sess.Authenticated {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		s.mirror(ctx, sess.UserID, func(doc *cache.LocalDocument) { doc.Remove(id) })
		return nil
	}

	doc, err := s.local.Read(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if !doc.Remove(id) {
		return repository.ErrRoadmapNotFound
	}
	return s.local.Write(ctx, sess.UserID, doc)
}

// mirror applies a mutation to the local document after a successful remote
// write. Mirror failures are logged, never surfaced; the remote store
// already holds the truth.
func (s *DualStore) mirror(ctx context.Context, ownerID string, mutate func(doc *cache.LocalDocument)) {
	doc, err := s.local.Read(ctx, ownerID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("local mirror read failed")
		return
	}
	mutate(&doc)
	if err := s.local.Write(ctx, ownerID, doc); err != nil {
		s.logger.Warn().Err(err).Msg("local mirror write failed")
	}
}

// assignLocalItemIDs gives locally created items stable non-zero ids so
// toggles can address them before any remote sync exists.
func assignLocalItemIDs(roadmap *models.Roadmap) {
	next := uint(1)
	for i := range roadmap.Steps {
		if roadmap.Steps[i].ID == 0 {
			roadmap.Steps[i].ID = next
		}
		roadmap.Steps[i].RoadmapID = roadmap.ID
		next++
	}
	for i := range roadmap.Skills {
		if roadmap.Skills[i].ID == 0 {
			roadmap.Skills[i].ID = next
		}
		roadmap.Skills[i].RoadmapID = roadmap.ID
		next++
	}
	for i := range roadmap.Tools {
		if roadmap.Tools[i].ID == 0 {
			roadmap.Tools[i].ID = next
		}
		roadmap.Tools[i].RoadmapID = roadmap.ID
		next++
	}
	for i := range roadmap.Resources {
		if roadmap.Resources[i].ID == 0 {
			roadmap.Resources[i].ID = next
		}
		roadmap.Resources[i].RoadmapID = roadmap.ID
		next++
	}
	for i := range roadmap.Timeline {
		if roadmap.Timeline[i].ID == 0 {
			roadmap.Timeline[i].ID = next
		}
		roadmap.Timeline[i].RoadmapID = roadmap.ID
		next++
	}
}
