package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/middleware"
	"github.com/arahkita/arah-go-api/internal/observability"
	"github.com/arahkita/arah-go-api/internal/realtime"
	"github.com/arahkita/arah-go-api/internal/service"
	"github.com/arahkita/arah-go-api/internal/store"
)

const realtimePingInterval = 30 * time.Second

// RealtimeHandler upgrades clients to a websocket that streams transient
// notices and dirty-signal change events. Scoping to one roadmap keeps the
// in-memory view reconciled while the socket is open.
type RealtimeHandler struct {
	notices service.NoticeService
	feed    *realtime.Feed
	sync    service.SyncService
	logger  zerolog.Logger
}

type streamMessage struct {
	Type   string                `json:"type"`
	Notice *dto.Notice           `json:"notice,omitempty"`
	Change *realtime.ChangeEvent `json:"change,omitempty"`
}

// NewRealtimeHandler constructs a realtime handler.
func NewRealtimeHandler(notices service.NoticeService, feed *realtime.Feed, sync service.SyncService, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		notices: notices,
		feed:    feed,
		sync:    sync,
		logger:  logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register wires the websocket upgrade route.
func (h *RealtimeHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			c.Locals("session", middleware.SessionFromCtx(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *RealtimeHandler) handleConnection(conn *websocket.Conn) {
	sess, _ := conn.Locals("session").(store.Session)
	if sess.UserID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session missing"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	observability.RealtimeClientsActive().Inc()
	defer observability.RealtimeClientsActive().Dec()

	notices, cancelNotices := h.notices.Subscribe(sess.UserID)
	defer cancelNotices()

	var changes <-chan realtime.ChangeEvent
	roadmapID := strings.TrimSpace(conn.Query("roadmap_id"))
	if roadmapID != "" {
		feedEvents, cancelFeed := h.feed.Subscribe(roadmapID)
		defer cancelFeed()
		changes = feedEvents

		stopWatch := h.sync.Watch(ctx, sess, roadmapID)
		defer stopWatch()
	}

	h.logger.Info().Str("user_id", sess.UserID).Str("roadmap_id", roadmapID).Msg("realtime client connected")
	defer h.logger.Info().Str("user_id", sess.UserID).Msg("realtime client disconnected")

	// The read loop only detects the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(realtimePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case notice, ok := <-notices:
			if !ok {
				return
			}
			if err := conn.WriteJSON(streamMessage{Type: "notice", Notice: &notice}); err != nil {
				return
			}
		case change, ok := <-changes:
			if !ok {
				return
			}
			if err := conn.WriteJSON(streamMessage{Type: "change", Change: &change}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
