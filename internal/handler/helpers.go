package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/middleware"
	"github.com/arahkita/arah-go-api/internal/repository"
	"github.com/arahkita/arah-go-api/internal/utils"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

// sendStoreError maps persistence errors to HTTP responses without leaking
// internals.
func sendStoreError(c *fiber.Ctx, err error, logger *zerolog.Logger, action string) error {
	switch {
	case errors.Is(err, repository.ErrRoadmapNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "roadmap not found")
	case errors.Is(err, repository.ErrItemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "item not found")
	default:
		logger.Error().Err(err).Msgf("failed to %s", action)
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to "+action)
	}
}
