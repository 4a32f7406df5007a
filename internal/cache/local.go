// Package cache implements the local roadmap store: one namespaced blob per
// owner holding the whole roadmap collection as a single JSON document.
// Reads and writes are whole-document; there is no partial update primitive.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/models"
	"github.com/arahkita/arah-go-api/internal/observability"
)

const keyPrefix = "arah:cache:roadmaps:"

// LocalDocument is the whole-document value stored under an owner's key.
type LocalDocument struct {
	Roadmaps  []models.Roadmap `json:"roadmaps"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// RoadmapCache reads and writes owner documents in redis.
type RoadmapCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRoadmapCache constructs the local store. A zero ttl keeps documents
// until overwritten.
func NewRoadmapCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RoadmapCache {
	return &RoadmapCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "roadmap_cache").Logger(),
	}
}

func ownerKey(ownerID string) string {
	return keyPrefix + ownerID
}

// Read loads the owner's document. A missing key yields an empty document,
// not an error.
func (c *RoadmapCache) Read(ctx context.Context, ownerID string) (LocalDocument, error) {
	payload, err := c.client.Get(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observability.LocalCacheOps().WithLabelValues("read", "miss").Inc()
			return LocalDocument{}, nil
		}
		observability.LocalCacheOps().WithLabelValues("read", "error").Inc()
		return LocalDocument{}, err
	}

	var doc LocalDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		c.logger.Warn().Err(err).Msg("corrupt local roadmap document, treating as empty")
		observability.LocalCacheOps().WithLabelValues("read", "corrupt").Inc()
		return LocalDocument{}, nil
	}

	observability.LocalCacheOps().WithLabelValues("read", "hit").Inc()
	return doc, nil
}

// Write replaces the owner's document wholesale.
func (c *RoadmapCache) Write(ctx context.Context, ownerID string, doc LocalDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, ownerKey(ownerID), payload, c.ttl).Err(); err != nil {
		observability.LocalCacheOps().WithLabelValues("write", "error").Inc()
		return err
	}

	observability.LocalCacheOps().WithLabelValues("write", "ok").Inc()
	return nil
}

// Find returns the roadmap with the given id, if present.
func (d LocalDocument) Find(roadmapID string) (models.Roadmap, bool) {
	for _, roadmap := range d.Roadmaps {
		if roadmap.ID == roadmapID {
			return roadmap, true
		}
	}
	return models.Roadmap{}, false
}

// Upsert replaces the roadmap with the same id or appends it.
func (d *LocalDocument) Upsert(roadmap models.Roadmap) {
	for i, existing := range d.Roadmaps {
		if existing.ID == roadmap.ID {
			d.Roadmaps[i] = roadmap
			return
		}
	}
	d.Roadmaps = append(d.Roadmaps, roadmap)
}

// Remove deletes the roadmap with the given id, reporting whether it existed.
func (d *LocalDocument) Remove(roadmapID string) bool {
	for i, existing := range d.Roadmaps {
		if existing.ID == roadmapID {
			d.Roadmaps = append(d.Roadmaps[:i], d.Roadmaps[i+1:]...)
			return true
		}
	}
	return false
}

// SetItemCompletion flips completion state for one item inside the document.
// An item (or roadmap) missing locally is created as a shadow copy rather
// than raising, so completions recorded offline survive until a remote sync.
func (d *LocalDocument) SetItemCompletion(roadmapID string, category models.ItemCategory, itemID uint, completed bool) {
	idx := -1
	for i, roadmap := range d.Roadmaps {
		if roadmap.ID == roadmapID {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.Roadmaps = append(d.Roadmaps, models.Roadmap{ID: roadmapID})
		idx = len(d.Roadmaps) - 1
	}

	roadmap := &d.Roadmaps[idx]
	switch category {
	case models.CategoryStep:
		if !setCompleted(stepIDs(roadmap.Steps), itemID, func(i int) { roadmap.Steps[i].Completed = completed }) {
			roadmap.Steps = append(roadmap.Steps, models.RoadmapStep{ID: itemID, RoadmapID: roadmapID, Completed: completed})
		}
	case models.CategorySkill:
		if !setCompleted(skillIDs(roadmap.Skills), itemID, func(i int) { roadmap.Skills[i].Completed = completed }) {
			roadmap.Skills = append(roadmap.Skills, models.RoadmapSkill{ID: itemID, RoadmapID: roadmapID, Completed: completed})
		}
	case models.CategoryTool:
		if !setCompleted(toolIDs(roadmap.Tools), itemID, func(i int) { roadmap.Tools[i].Completed = completed }) {
			roadmap.Tools = append(roadmap.Tools, models.RoadmapTool{ID: itemID, RoadmapID: roadmapID, Completed: completed})
		}
	case models.CategoryResource:
		if !setCompleted(resourceIDs(roadmap.Resources), itemID, func(i int) { roadmap.Resources[i].Completed = completed }) {
			roadmap.Resources = append(roadmap.Resources, models.RoadmapResource{ID: itemID, RoadmapID: roadmapID, Completed: completed})
		}
	case models.CategoryTimeline:
		if !setCompleted(timelineIDs(roadmap.Timeline), itemID, func(i int) { roadmap.Timeline[i].Completed = completed }) {
			roadmap.Timeline = append(roadmap.Timeline, models.TimelineEntry{ID: itemID, RoadmapID: roadmapID, Completed: completed})
		}
	}
}

// ResetCompletion clears every completed flag on one roadmap, leaving
// structure untouched.
func (d *LocalDocument) ResetCompletion(roadmapID string) {
	for i := range d.Roadmaps {
		if d.Roadmaps[i].ID != roadmapID {
			continue
		}
		roadmap := &d.Roadmaps[i]
		for j := range roadmap.Steps {
			roadmap.Steps[j].Completed = false
		}
		for j := range roadmap.Skills {
			roadmap.Skills[j].Completed = false
		}
		for j := range roadmap.Tools {
			roadmap.Tools[j].Completed = false
		}
		for j := range roadmap.Resources {
			roadmap.Resources[j].Completed = false
		}
		for j := range roadmap.Timeline {
			roadmap.Timeline[j].Completed = false
		}
		return
	}
}

func setCompleted(ids []uint, itemID uint, apply func(i int)) bool {
	for i, id := range ids {
		if id == itemID {
			apply(i)
			return true
		}
	}
	return false
}

func stepIDs(items []models.RoadmapStep) []uint {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func skillIDs(items []models.RoadmapSkill) []uint {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func toolIDs(items []models.RoadmapTool) []uint {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func resourceIDs(items []models.RoadmapResource) []uint {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func timelineIDs(items []models.TimelineEntry) []uint {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
