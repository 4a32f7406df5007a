package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/middleware"
	"github.com/arahkita/arah-go-api/internal/service"
	"github.com/arahkita/arah-go-api/internal/utils"
)

// PreferenceHandler exposes the persisted per-user flag record.
type PreferenceHandler struct {
	preferences service.PreferenceService
	logger      zerolog.Logger
}

// NewPreferenceHandler constructs a preference handler.
func NewPreferenceHandler(preferences service.PreferenceService, logger zerolog.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		preferences: preferences,
		logger:      logger.With().Str("component", "preference_handler").Logger(),
	}
}

// Register wires preference routes. Callers must be authenticated; the flag
// record lives only in the remote store.
func (h *PreferenceHandler) Register(router fiber.Router) {
	router.Get("/", middleware.RequireAuth(), h.get)
	router.Patch("/", middleware.RequireAuth(), h.update)
}

func (h *PreferenceHandler) get(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)

	pref, err := h.preferences.Get(c.UserContext(), sess.UserID)
	if err != nil {
		return h.sendError(c, err, "fetch preferences")
	}

	return utils.SendSuccess(c, "preferences retrieved", pref)
}

func (h *PreferenceHandler) update(c *fiber.Ctx) error {
	var req dto.PreferenceUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	sess := middleware.SessionFromCtx(c)
	pref, err := h.preferences.Update(c.UserContext(), sess.UserID, req)
	if err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid preference update", validationDetails(err))
		}
		return h.sendError(c, err, "update preferences")
	}

	return utils.SendSuccess(c, "preferences updated", pref)
}

func (h *PreferenceHandler) sendError(c *fiber.Ctx, err error, action string) error {
	if errors.Is(err, service.ErrPreferenceUnauthenticated) {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	requestLogger(h.logger, c).Error().Err(err).Msgf("failed to %s", action)
	return utils.SendError(c, fiber.StatusInternalServerError, "failed to "+action)
}
