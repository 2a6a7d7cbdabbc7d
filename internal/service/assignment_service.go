package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/acadgrade/backend/internal/dto"
	"github.com/acadgrade/backend/internal/models"
	"github.com/acadgrade/backend/internal/repository"
)

// ErrAssignmentNotFound indicates the assignment could not be located.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrInvalidWindow indicates a submission window that closes before it opens.
var ErrInvalidWindow = errors.New("due_at must be after open_at")

// ErrInvalidTimestamp indicates a timestamp that is not RFC3339.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ErrUnknownQuestions indicates question ids that do not exist.
var ErrUnknownQuestions = errors.New("one or more questions do not exist")

// ErrUnknownStudents indicates student ids that do not exist.
var ErrUnknownStudents = errors.New("one or more students do not exist")

// AssignmentService manages teacher-owned assignments and the
// student-facing assignment listing.
type AssignmentService interface {
	Create(ctx context.Context, teacherID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, teacherID, assignmentID uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, teacherID, assignmentID uint) error
	Get(ctx context.Context, assignmentID uint) (dto.AssignmentResponse, error)
	ListForTeacher(ctx context.Context, teacherID uint) ([]dto.AssignmentResponse, error)
	ListForStudent(ctx context.Context, studentID uint) ([]dto.StudentAssignmentResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	questions   repository.QuestionRepository
	students    repository.StudentRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs the assignment management service.
func NewAssignmentService(assignmentRepo repository.AssignmentRepository, questionRepo repository.QuestionRepository, studentRepo repository.StudentRepository, submissionRepo repository.SubmissionRepository, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignmentRepo,
		questions:   questionRepo,
		students:    studentRepo,
		submissions: submissionRepo,
		validator:   validate,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, teacherID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	openAt, dueAt, err := parseWindow(payload.OpenAt, payload.DueAt)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	questions, err := s.resolveQuestions(ctx, payload.QuestionIDs)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	students, err := s.resolveStudents(ctx, payload.StudentIDs)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Title:     payload.Title,
		CourseID:  payload.CourseID,
		TeacherID: teacherID,
		OpenAt:    openAt,
		DueAt:     dueAt,
		MaxMarks:  payload.MaxMarks,
		Questions: questions,
		Students:  students,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	created, err := s.assignments.GetByID(ctx, assignment.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Uint("teacher_id", teacherID).
		Int("questions", len(questions)).
		Int("students", len(students)).
		Msg("assignment created")

	return dto.NewAssignmentResponse(created), nil
}

func (s *assignmentService) Update(ctx context.Context, teacherID, assignmentID uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if assignment.TeacherID != teacherID {
		return dto.AssignmentResponse{}, ErrForbidden
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.MaxMarks != nil {
		assignment.MaxMarks = *payload.MaxMarks
	}

	if payload.OpenAt != nil {
		openAt, err := parseTimestamp(*payload.OpenAt)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.OpenAt = openAt
	}
	if payload.DueAt != nil {
		dueAt, err := parseTimestamp(*payload.DueAt)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.DueAt = dueAt
	}
	if !assignment.DueAt.After(assignment.OpenAt) {
		return dto.AssignmentResponse{}, ErrInvalidWindow
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.QuestionIDs != nil {
		questions, err := s.resolveQuestions(ctx, payload.QuestionIDs)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		if err := s.assignments.ReplaceQuestions(ctx, &assignment, questions); err != nil {
			return dto.AssignmentResponse{}, err
		}
	}

	if payload.StudentIDs != nil {
		students, err := s.resolveStudents(ctx, payload.StudentIDs)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		if err := s.assignments.ReplaceStudents(ctx, &assignment, students); err != nil {
			return dto.AssignmentResponse{}, err
		}
	}

	updated, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignmentID).Msg("assignment updated")
	return dto.NewAssignmentResponse(updated), nil
}

func (s *assignmentService) Delete(ctx context.Context, teacherID, assignmentID uint) error {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	if assignment.TeacherID != teacherID {
		return ErrForbidden
	}

	if err := s.assignments.Delete(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.logger.Info().Uint("assignment_id", assignmentID).Msg("assignment deleted")
	return nil
}

func (s *assignmentService) Get(ctx context.Context, assignmentID uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListForTeacher(ctx context.Context, teacherID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListForTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

// ListForStudent returns the assignments the student is rostered on,
// annotated with window state and the student's own submission status.
func (s *assignmentService) ListForStudent(ctx context.Context, studentID uint) ([]dto.StudentAssignmentResponse, error) {
	assignments, err := s.assignments.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}

	statusByAssignment := make(map[uint]string, len(submissions))
	for _, submission := range submissions {
		statusByAssignment[submission.AssignmentID] = submission.Status
	}

	now := s.now()
	responses := make([]dto.StudentAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.StudentAssignmentResponse{
			ID:               assignment.ID,
			Title:            assignment.Title,
			OpenAt:           assignment.OpenAt,
			DueAt:            assignment.DueAt,
			MaxMarks:         assignment.MaxMarks,
			Open:             assignment.IsOpenAt(now),
			SubmissionStatus: statusByAssignment[assignment.ID],
		})
	}

	return responses, nil
}

func (s *assignmentService) resolveQuestions(ctx context.Context, ids []uint) ([]models.Question, error) {
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(questions) != len(ids) {
		return nil, ErrUnknownQuestions
	}

	return questions, nil
}

func (s *assignmentService) resolveStudents(ctx context.Context, ids []uint) ([]models.Student, error) {
	students, err := s.students.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(students) != len(ids) {
		return nil, ErrUnknownStudents
	}

	return students, nil
}

func parseWindow(openRaw, dueRaw string) (time.Time, time.Time, error) {
	openAt, err := parseTimestamp(openRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	dueAt, err := parseTimestamp(dueRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if !dueAt.After(openAt) {
		return time.Time{}, time.Time{}, ErrInvalidWindow
	}

	return openAt, dueAt, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidTimestamp, raw, err)
	}

	return parsed, nil
}
