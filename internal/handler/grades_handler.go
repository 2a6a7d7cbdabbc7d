package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/acadgrade/backend/internal/service"
	"github.com/acadgrade/backend/internal/utils"
)

// GradesHandler serves the student grade report.
type GradesHandler struct {
	service service.GradesService
	logger  zerolog.Logger
}

// NewGradesHandler builds a grades handler instance.
func NewGradesHandler(service service.GradesService, logger zerolog.Logger) *GradesHandler {
	return &GradesHandler{
		service: service,
		logger:  logger.With().Str("component", "grades_handler").Logger(),
	}
}

// RegisterStudent attaches the student-facing routes.
func (h *GradesHandler) RegisterStudent(router fiber.Router) {
	router.Get("/grades", h.report)
}

func (h *GradesHandler) report(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	report, err := h.service.Report(c.UserContext(), studentID)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "student not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "grades retrieved", report)
}
