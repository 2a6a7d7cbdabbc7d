package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/acadgrade/backend/internal/service"
	"github.com/acadgrade/backend/internal/utils"
)

// ActivityHandler serves the teacher's recent audit entries.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler builds an activity handler instance.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// RegisterTeacher attaches the teacher-facing routes.
func (h *ActivityHandler) RegisterTeacher(router fiber.Router) {
	router.Get("/activity", h.recent)
}

func (h *ActivityHandler) recent(c *fiber.Ctx) error {
	entries, err := h.service.Recent(c.UserContext(), userIDFromContext(c), parseQueryInt(c, "limit"))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "activity retrieved", entries)
}
