package realtime

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/models"
	"github.com/arahkita/arah-go-api/internal/observability"
	"github.com/arahkita/arah-go-api/internal/store"
)

// Reconciler keeps an in-memory roadmap view consistent with the change
// feed. On any signal it re-fetches the whole aggregate and hands it to the
// watcher wholesale; it never patches fields, so a freshly fetched remote
// state always overwrites stale optimistic flags.
type Reconciler struct {
	feed   *Feed
	store  *store.DualStore
	logger zerolog.Logger
}

// NewReconciler constructs a reconciler over the feed and the dual store.
func NewReconciler(feed *Feed, dualStore *store.DualStore, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		feed:   feed,
		store:  dualStore,
		logger: logger.With().Str("component", "reconciler").Logger(),
	}
}

// Watch subscribes to change signals for one roadmap and invokes replace
// with the re-fetched aggregate after every signal. A re-fetch failure is
// logged and swallowed; the watcher keeps its last-known-good state. The
// returned cancel func tears the subscription down deterministically.
func (r *Reconciler) Watch(ctx context.Context, sess store.Session, roadmapID string, replace func(models.Roadmap)) func() {
	events, unsubscribe := r.feed.Subscribe(roadmapID)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				r.refetch(ctx, sess, roadmapID, replace)
			}
		}
	}()

	return func() {
		unsubscribe()
		<-done
	}
}

func (r *Reconciler) refetch(ctx context.Context, sess store.Session, roadmapID string, replace func(models.Roadmap)) {
	roadmap, err := r.store.ReadRoadmap(ctx, sess, roadmapID)
	if err != nil {
		observability.ReconcileRuns().WithLabelValues("error").Inc()
		r.logger.Warn().Err(err).Str("roadmap_id", roadmapID).Msg("reconcile re-fetch failed, keeping last known state")
		return
	}

	observability.ReconcileRuns().WithLabelValues("ok").Inc()
	replace(roadmap)
}
