package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/middleware"
	"github.com/arahkita/arah-go-api/internal/models"
	"github.com/arahkita/arah-go-api/internal/service"
	"github.com/arahkita/arah-go-api/internal/utils"
)

// RoadmapHandler exposes roadmap CRUD, completion toggles and progress.
type RoadmapHandler struct {
	sync   service.SyncService
	logger zerolog.Logger
}

// NewRoadmapHandler constructs a roadmap handler.
func NewRoadmapHandler(sync service.SyncService, logger zerolog.Logger) *RoadmapHandler {
	return &RoadmapHandler{
		sync:   sync,
		logger: logger.With().Str("component", "roadmap_handler").Logger(),
	}
}

// Register wires roadmap routes.
func (h *RoadmapHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Get("/:id", h.get)
	router.Delete("/:id", h.remove)
	router.Get("/:id/progress", h.progress)
	router.Post("/:id/items/toggle", h.toggleItem)
	router.Post("/:id/reset", h.reset)
}

func (h *RoadmapHandler) list(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)

	roadmaps, err := h.sync.ListRoadmaps(c.UserContext(), sess)
	if err != nil {
		return sendStoreError(c, err, requestLogger(h.logger, c), "list roadmaps")
	}

	return utils.OK(c, roadmaps, "roadmaps retrieved", fiber.Map{"count": len(roadmaps)})
}

type createRoadmapRequest struct {
	Title string `json:"title" validate:"required,max=255"`
	Steps []struct {
		Label         string `json:"label" validate:"required,max=512"`
		EstimatedTime string `json:"estimated_time"`
		Link          string `json:"link"`
	} `json:"steps" validate:"required,min=1,dive"`
}

func (h *RoadmapHandler) create(c *fiber.Ctx) error {
	var req createRoadmapRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" || len(req.Steps) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "title and at least one step are required")
	}

	roadmap := models.Roadmap{
		Title:      req.Title,
		Provenance: models.ProvenanceUserAuthored,
	}
	for i, step := range req.Steps {
		roadmap.Steps = append(roadmap.Steps, models.RoadmapStep{
			Label:         step.Label,
			Sequence:      i + 1,
			EstimatedTime: step.EstimatedTime,
			Link:          step.Link,
		})
	}

	sess := middleware.SessionFromCtx(c)
	created, err := h.sync.CreateRoadmap(c.UserContext(), sess, roadmap)
	if err != nil {
		return sendStoreError(c, err, requestLogger(h.logger, c), "create roadmap")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "roadmap created", created)
}

func (h *RoadmapHandler) get(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)

	roadmap, err := h.sync.GetRoadmap(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return sendStoreError(c, err, requestLogger(h.logger, c), "fetch roadmap")
	}

	return utils.SendSuccess(c, "roadmap retrieved", roadmap)
}

func (h *RoadmapHandler) remove(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)

	if err := h.sync.DeleteRoadmap(c.UserContext(), sess, c.Params("id")); err != nil {
		return sendStoreError(c, err, requestLogger(h.logger, c), "delete roadmap")
	}

	return utils.SendSuccess(c, "roadmap deleted", nil)
}

func (h *RoadmapHandler) progress(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)

	snapshot, err := h.sync.Progress(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return sendStoreError(c, err, requestLogger(h.logger, c), "compute progress")
	}

	return utils.SendSuccess(c, "progress computed", snapshot)
}

func (h *RoadmapHandler) toggleItem(c *fiber.Ctx) error {
	var req dto.ToggleItemRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	sess := middleware.SessionFromCtx(c)
	result, err := h.sync.ToggleItem(c.UserContext(), sess, c.Params("id"), req)
	if err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid toggle request", validationDetails(err))
		}
		return sendStoreError(c, err, requestLogger(h.logger, c), "toggle item")
	}

	return utils.SendSuccess(c, "item toggled", result)
}

func (h *RoadmapHandler) reset(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)

	snapshot, err := h.sync.Reset(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return sendStoreError(c, err, requestLogger(h.logger, c), "reset progress")
	}

	return utils.SendSuccess(c, "progress reset", snapshot)
}
