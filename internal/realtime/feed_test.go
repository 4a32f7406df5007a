package realtime

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestFeed(t *testing.T, mr *miniredis.Miniredis) *Feed {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewFeed(client, "arah:changes", nil, zerolog.Nop())
}

func TestPublishDeliversToLocalSubscriber(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	feed := newTestFeed(t, mr)
	events, cancel := feed.Subscribe("r-1")
	defer cancel()

	feed.Publish(context.Background(), "r-1", "steps")

	select {
	case event := <-events:
		require.Equal(t, "r-1", event.RoadmapID)
		require.Equal(t, "steps", event.Table)
	case <-time.After(time.Second):
		t.Fatal("expected a change event")
	}
}

func TestPublishScopedToRoadmap(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	feed := newTestFeed(t, mr)
	events, cancel := feed.Subscribe("r-1")
	defer cancel()

	feed.Publish(context.Background(), "r-2", "steps")

	select {
	case <-events:
		t.Fatal("event for another roadmap must not be delivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCrossInstanceDeliveryViaRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	publisher := newTestFeed(t, mr)
	consumer := newTestFeed(t, mr)
	consumer.Start(ctx)

	events, cancel := consumer.Subscribe("r-1")
	defer cancel()

	// The consumer goroutine needs its subscription live before publishing.
	require.Eventually(t, func() bool {
		publisher.Publish(ctx, "r-1", "skills")
		select {
		case <-events:
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}

func TestUnsubscribeClosesChannelDeterministically(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	feed := newTestFeed(t, mr)
	events, cancel := feed.Subscribe("r-1")
	cancel()
	cancel() // repeated teardown is safe

	_, open := <-events
	require.False(t, open)

	// Publishing after teardown must not panic or deliver.
	feed.Publish(context.Background(), "r-1", "steps")
}
