// Package realtime carries "something changed" signals between sessions.
// Events deliberately have no entity payload; a consumer's only correct move
// is a full re-fetch, which sidesteps field-level merge conflicts with
// concurrent optimistic updates.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const feedBufferSize = 16

// ChangeEvent is a dirty signal scoped to one roadmap and one child table.
type ChangeEvent struct {
	Source    string    `json:"source"`
	RoadmapID string    `json:"roadmap_id"`
	Table     string    `json:"table"`
	SentAt    time.Time `json:"sent_at"`
}

// Feed publishes and consumes change signals. Redis pub/sub carries events
// between processes; NATS mirrors them across nodes when configured. An
// in-process broker delivers to local subscribers either way.
type Feed struct {
	redis       *redis.Client
	channelBase string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	broker      *feedBroker
	nodeID      string
}

type feedBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan ChangeEvent]struct{}
}

// NewFeed constructs a change feed. channelBase namespaces the redis
// channels; natsConn may be nil.
func NewFeed(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) *Feed {
	if channelBase == "" {
		channelBase = "arah:changes"
	}

	subject := ""
	if natsConn != nil {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".changes"
	}

	return &Feed{
		redis:       redisClient,
		channelBase: channelBase,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "change_feed").Logger(),
		broker: &feedBroker{
			subscribers: make(map[string]map[chan ChangeEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

// Start launches the background consumers. It returns immediately.
func (f *Feed) Start(ctx context.Context) {
	if f.redis != nil {
		go f.consumeRedis(ctx)
	}
	if f.nats != nil && f.natsSubject != "" {
		go f.consumeNATS(ctx)
	}
}

// Publish emits a dirty signal for one roadmap's table. Local subscribers
// are notified directly; remote processes get the signal via the brokers.
func (f *Feed) Publish(ctx context.Context, roadmapID, table string) {
	event := ChangeEvent{
		Source:    f.nodeID,
		RoadmapID: roadmapID,
		Table:     table,
		SentAt:    time.Now().UTC(),
	}

	f.broker.broadcast(roadmapID, event)

	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn().Err(err).Msg("failed to encode change event")
		return
	}

	if f.redis != nil {
		if err := f.redis.Publish(ctx, f.channel(table), payload).Err(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to publish change event to redis")
		}
	}

	if f.nats != nil && f.natsSubject != "" {
		if err := f.nats.Publish(f.natsSubject, payload); err != nil {
			f.logger.Warn().Err(err).Msg("failed to publish change event to nats")
		}
	}
}

// Subscribe registers for signals scoped to one roadmap id. The returned
// cleanup must be called on teardown; it closes the channel and drops the
// subscription deterministically.
func (f *Feed) Subscribe(roadmapID string) (<-chan ChangeEvent, func()) {
	channel := make(chan ChangeEvent, feedBufferSize)
	f.broker.subscribe(roadmapID, channel)

	cleanup := func() {
		f.broker.unsubscribe(roadmapID, channel)
	}

	return channel, cleanup
}

func (f *Feed) channel(table string) string {
	return f.channelBase + ":" + table
}

func (f *Feed) consumeRedis(ctx context.Context) {
	pubsub := f.redis.PSubscribe(ctx, f.channelBase+":*")
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			f.logger.Error().Err(err).Msg("change feed redis subscription closed")
			return
		}
		f.handleEvent([]byte(msg.Payload))
	}
}

func (f *Feed) consumeNATS(ctx context.Context) {
	sub, err := f.nats.QueueSubscribe(f.natsSubject, "arah-changes", func(msg *nats.Msg) {
		f.handleEvent(msg.Data)
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to subscribe to nats change subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to drain change feed nats subscription")
		}
	}()
}

func (f *Feed) handleEvent(payload []byte) {
	var event ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		f.logger.Warn().Err(err).Msg("invalid change event payload")
		return
	}

	// Publish already broadcast locally for our own events.
	if event.Source == f.nodeID {
		return
	}

	f.broker.broadcast(event.RoadmapID, event)
}

func (b *feedBroker) subscribe(roadmapID string, ch chan ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[roadmapID]; !exists {
		b.subscribers[roadmapID] = make(map[chan ChangeEvent]struct{})
	}
	b.subscribers[roadmapID][ch] = struct{}{}
}

func (b *feedBroker) unsubscribe(roadmapID string, ch chan ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[roadmapID]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, roadmapID)
		}
	}
}

func (b *feedBroker) broadcast(roadmapID string, event ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[roadmapID] {
		select {
		case ch <- event:
		default:
		}
	}
}
