package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/middleware"
	"github.com/arahkita/arah-go-api/internal/service"
	"github.com/arahkita/arah-go-api/internal/utils"
)

// TemplateHandler exposes the static roadmap catalog.
type TemplateHandler struct {
	templates service.TemplateService
	logger    zerolog.Logger
}

// NewTemplateHandler constructs a template handler.
func NewTemplateHandler(templates service.TemplateService, logger zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{
		templates: templates,
		logger:    logger.With().Str("component", "template_handler").Logger(),
	}
}

// Register wires template routes.
func (h *TemplateHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/:id/instantiate", h.instantiate)
}

func (h *TemplateHandler) list(c *fiber.Ctx) error {
	templates := h.templates.List()
	return utils.OK(c, templates, "templates retrieved", fiber.Map{"count": len(templates)})
}

func (h *TemplateHandler) instantiate(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)

	roadmap, err := h.templates.Instantiate(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "template not found")
		}
		return sendStoreError(c, err, requestLogger(h.logger, c), "instantiate template")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "roadmap created from template", roadmap)
}
