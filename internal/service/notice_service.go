package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/dto"
)

const noticeBufferSize = 16

// NoticeService fans transient user-facing notices out to connected clients.
// Notices are fire-and-forget: nothing is persisted, a slow subscriber drops
// events instead of blocking the publisher.
type NoticeService interface {
	Publish(ctx context.Context, notice dto.Notice)
	Subscribe(userID string) (<-chan dto.Notice, func())
	Start(ctx context.Context)
}

type noticeService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	sanitizer    *bluemonday.Policy
	broker       *noticeBroker
	nodeID       string
}

type noticeEvent struct {
	Source string     `json:"source"`
	Notice dto.Notice `json:"notice"`
	SentAt time.Time  `json:"sent_at"`
}

type noticeBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.Notice]struct{}
}

// NewNoticeService constructs a notice service. Both brokers are optional;
// with neither configured notices still reach subscribers on this node.
func NewNoticeService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) NoticeService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":notices"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notices"
	}

	return &noticeService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "notice_service").Logger(),
		sanitizer:    bluemonday.StrictPolicy(),
		broker: &noticeBroker{
			subscribers: make(map[string]map[chan dto.Notice]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *noticeService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Publish delivers a notice to local subscribers and mirrors it across nodes.
// Failures are logged and dropped; publishing never blocks the caller's flow.
func (s *noticeService) Publish(ctx context.Context, notice dto.Notice) {
	notice.Message = strings.TrimSpace(s.sanitizer.Sanitize(notice.Message))
	if notice.Message == "" || notice.UserID == "" {
		return
	}
	if notice.SentAt.IsZero() {
		notice.SentAt = time.Now().UTC()
	}

	s.broker.broadcast(notice.UserID, notice)
	if err := s.publish(ctx, notice); err != nil {
		s.logger.Warn().Err(err).Str("kind", notice.Kind).Msg("failed to mirror notice across nodes")
	}
}

func (s *noticeService) Subscribe(userID string) (<-chan dto.Notice, func()) {
	channel := make(chan dto.Notice, noticeBufferSize)

	s.broker.subscribe(userID, channel)

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(userID, channel)
		})
	}

	return channel, cleanup
}

func (s *noticeService) publish(ctx context.Context, notice dto.Notice) error {
	event := noticeEvent{
		Source: s.nodeID,
		Notice: notice,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *noticeService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notice redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *noticeService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "arah-notices", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notices subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notice nats subscription")
		}
	}()
}

func (s *noticeService) handleEvent(payload []byte) {
	var event noticeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notice event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.broker.broadcast(event.Notice.UserID, event.Notice)
}

func (b *noticeBroker) subscribe(userID string, ch chan dto.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.Notice]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *noticeBroker) unsubscribe(userID string, ch chan dto.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *noticeBroker) broadcast(userID string, notice dto.Notice) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers := b.subscribers[userID]
	for ch := range subscribers {
		select {
		case ch <- notice:
		default:
		}
	}
}
