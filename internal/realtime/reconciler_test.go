package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arahkita/arah-go-api/internal/cache"
	"github.com/arahkita/arah-go-api/internal/models"
	"github.com/arahkita/arah-go-api/internal/store"
)

type viewHolder struct {
	mu      sync.Mutex
	roadmap models.Roadmap
	applied int
}

func (v *viewHolder) replace(roadmap models.Roadmap) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.roadmap = roadmap
	v.applied++
}

func (v *viewHolder) state() (models.Roadmap, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.roadmap, v.applied
}

func TestWatchRefetchesAndReplacesOnSignal(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	local := cache.NewRoadmapCache(client, time.Hour, zerolog.Nop())
	dualStore := store.New(nil, local, zerolog.Nop())
	feed := NewFeed(client, "arah:changes", nil, zerolog.Nop())
	reconciler := NewReconciler(feed, dualStore, zerolog.Nop())

	ctx := context.Background()
	anon := store.Session{UserID: "device-1"}

	roadmap := models.Roadmap{Title: "Plan", Steps: []models.RoadmapStep{{Label: "A", Sequence: 1}}}
	id, err := dualStore.WriteRoadmap(ctx, anon, &roadmap)
	require.NoError(t, err)

	view := &viewHolder{}
	cancel := reconciler.Watch(ctx, anon, id, view.replace)
	defer cancel()

	// Another session completes the step; the stored copy changes.
	ref := store.ItemRef{RoadmapID: id, Category: models.CategoryStep, ItemID: roadmap.Steps[0].ID}
	require.NoError(t, dualStore.WriteItemCompletion(ctx, anon, ref, true))
	feed.Publish(ctx, id, "steps")

	require.Eventually(t, func() bool {
		current, applied := view.state()
		return applied == 1 && len(current.Steps) == 1 && current.Steps[0].Completed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchKeepsLastKnownGoodOnRefetchFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	local := cache.NewRoadmapCache(client, time.Hour, zerolog.Nop())
	dualStore := store.New(nil, local, zerolog.Nop())
	feed := NewFeed(client, "arah:changes", nil, zerolog.Nop())
	reconciler := NewReconciler(feed, dualStore, zerolog.Nop())

	ctx := context.Background()
	anon := store.Session{UserID: "device-1"}

	view := &viewHolder{}
	view.replace(models.Roadmap{ID: "r-1", Title: "Last known good"})

	cancel := reconciler.Watch(ctx, anon, "r-1", view.replace)
	defer cancel()

	// The roadmap is nowhere to be found; re-fetch fails and is swallowed.
	mr.Close()
	feed.Publish(ctx, "r-1", "steps")

	time.Sleep(100 * time.Millisecond)
	current, applied := view.state()
	require.Equal(t, 1, applied)
	require.Equal(t, "Last known good", current.Title)
}

func TestWatchCancelStopsDelivery(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	local := cache.NewRoadmapCache(client, time.Hour, zerolog.Nop())
	dualStore := store.New(nil, local, zerolog.Nop())
	feed := NewFeed(client, "arah:changes", nil, zerolog.Nop())
	reconciler := NewReconciler(feed, dualStore, zerolog.Nop())

	ctx := context.Background()
	anon := store.Session{UserID: "device-1"}

	view := &viewHolder{}
	cancel := reconciler.Watch(ctx, anon, "r-1", view.replace)
	cancel()

	feed.Publish(ctx, "r-1", "steps")
	time.Sleep(50 * time.Millisecond)
	_, applied := view.state()
	require.Zero(t, applied)
}
