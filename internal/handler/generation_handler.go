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

// GenerationHandler exposes the AI roadmap generation flow: generate a
// draft, accept it, or append personalized steps to an existing roadmap.
type GenerationHandler struct {
	sync   service.SyncService
	logger zerolog.Logger
}

// NewGenerationHandler constructs a generation handler.
func NewGenerationHandler(sync service.SyncService, logger zerolog.Logger) *GenerationHandler {
	return &GenerationHandler{
		sync:   sync,
		logger: logger.With().Str("component", "generation_handler").Logger(),
	}
}

// Register wires generation routes.
func (h *GenerationHandler) Register(router fiber.Router) {
	router.Post("/", h.generate)
	router.Post("/accept", h.accept)
	router.Post("/personalize/:id", h.personalize)
}

func (h *GenerationHandler) generate(c *fiber.Ctx) error {
	var req dto.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	sess := middleware.SessionFromCtx(c)
	result, err := h.sync.Generate(c.UserContext(), sess, req)
	if err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid learner profile", validationDetails(err))
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("generation request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "generation failed")
	}

	if result.DraftID == "" {
		// The pipeline finished without a usable draft; the outcome tag
		// tells the client whether retrying makes sense.
		return utils.SendSuccessWithStatus(c, fiber.StatusUnprocessableEntity, "generation produced no draft", result)
	}

	return utils.SendSuccess(c, "draft generated", result)
}

func (h *GenerationHandler) accept(c *fiber.Ctx) error {
	var req dto.AcceptDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.DraftID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "draft_id is required")
	}

	sess := middleware.SessionFromCtx(c)
	roadmap, err := h.sync.AcceptDraft(c.UserContext(), sess, req.DraftID)
	if err != nil {
		if errors.Is(err, service.ErrDraftNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "draft not found or expired")
		}
		return sendStoreError(c, err, requestLogger(h.logger, c), "accept draft")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "roadmap created from draft", roadmap)
}

func (h *GenerationHandler) personalize(c *fiber.Ctx) error {
	var req dto.AppendStepsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	sess := middleware.SessionFromCtx(c)
	roadmap, err := h.sync.AppendPersonalizedSteps(c.UserContext(), sess, c.Params("id"), req)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid learner profile", validationDetails(err))
		case errors.Is(err, service.ErrGenerationFailed):
			requestLogger(h.logger, c).Warn().Err(err).Msg("personalization produced no steps")
			return utils.SendError(c, fiber.StatusUnprocessableEntity, "personalization failed")
		default:
			return sendStoreError(c, err, requestLogger(h.logger, c), "personalize roadmap")
		}
	}

	return utils.SendSuccess(c, "steps appended", roadmap)
}
