package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/acadgrade/backend/internal/dto"
	"github.com/acadgrade/backend/internal/grading"
	"github.com/acadgrade/backend/internal/service"
	"github.com/acadgrade/backend/internal/utils"
)

// SubmissionHandler manages the submission lifecycle endpoints.
type SubmissionHandler struct {
	submissions service.SubmissionService
	grades      service.GradesService
	logger      zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance. The grades
// service is optional; when present the cached grade report of the
// affected student is invalidated after submits, reopens and grades.
func NewSubmissionHandler(submissions service.SubmissionService, grades service.GradesService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
		grades:      grades,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// RegisterStudent attaches the student-facing routes.
func (h *SubmissionHandler) RegisterStudent(router fiber.Router) {
	router.Post("/submissions", h.submit)
}

// RegisterTeacher attaches the teacher-facing routes.
func (h *SubmissionHandler) RegisterTeacher(router fiber.Router) {
	router.Get("/submissions", h.list)
	router.Get("/submissions/:id", h.get)
	router.Patch("/submissions/:id/grade", h.grade)
	router.Post("/assignments/:id/reopen", h.reopen)
	router.Post("/score-preview", h.scorePreview)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.SubmitSolutionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.submissions.Submit(c.UserContext(), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	h.invalidateGrades(c, studentID)

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission recorded", submission)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	var filter dto.SubmissionFilter
	var err error

	if filter.AssignmentID, err = parseQueryUint(c, "assignment_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment_id")
	}
	if filter.StudentID, err = parseQueryUint(c, "student_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student_id")
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	submissions, err := h.submissions.List(c.UserContext(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	submission, err := h.submissions.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) reopen(c *fiber.Ctx) error {
	teacherID := userIDFromContext(c)
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	var payload dto.ReopenAssignmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.submissions.Reopen(c.UserContext(), teacherID, assignmentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if payload.StudentID != nil {
		h.invalidateGrades(c, *payload.StudentID)
	}

	return utils.SendSuccess(c, "assignment reopened", result)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	teacherID := userIDFromContext(c)
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.submissions.Grade(c.UserContext(), teacherID, submissionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	h.invalidateGrades(c, submission.StudentID)

	return utils.SendSuccess(c, "submission graded", submission)
}

// scorePreview scores a raw judge response without persisting anything,
// using the penalized tiered variant for the third scenario. Teachers
// use it to sanity check judge output before grading disputes.
func (h *SubmissionHandler) scorePreview(c *fiber.Ctx) error {
	var payload grading.RawJudgeResponse
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := grading.ScoreJudgeResponse(payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "score computed", result)
}

func (h *SubmissionHandler) invalidateGrades(c *fiber.Ctx, studentID uint) {
	if h.grades == nil {
		return
	}
	if err := h.grades.Invalidate(c.UserContext(), studentID); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate grade cache")
	}
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var notEligible *service.NotEligibleError
	switch {
	case errors.As(err, &notEligible):
		return utils.SendError(c, fiber.StatusConflict, notEligible.Error())
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrNoQuestionsAvailable):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "no questions available for assignment")
	case errors.Is(err, grading.ErrMalformedJudgeResponse):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrStudentNotInAssignment):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "student not in assignment")
	case errors.Is(err, service.ErrSubmissionAlreadyReopened):
		return utils.SendError(c, fiber.StatusConflict, "submission already reopened")
	case errors.Is(err, service.ErrSubmissionAwaitingResubmit):
		return utils.SendError(c, fiber.StatusConflict, "submission awaiting resubmission")
	case errors.Is(err, service.ErrMarksExceedMax):
		return utils.SendError(c, fiber.StatusBadRequest, "marks exceed assignment maximum")
	case errors.Is(err, service.ErrReopenTargetRequired):
		return utils.SendError(c, fiber.StatusBadRequest, "student_id or reopen_for_all is required")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
