package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/acadgrade/backend/internal/dto"
	"github.com/acadgrade/backend/internal/grading"
	"github.com/acadgrade/backend/internal/models"
	"github.com/acadgrade/backend/internal/observability"
	"github.com/acadgrade/backend/internal/repository"
	"github.com/acadgrade/backend/pkg/notify"
)

// ErrSubmissionNotFound indicates the submission could not be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrNoQuestionsAvailable indicates the assignment has an empty question pool.
var ErrNoQuestionsAvailable = errors.New("no questions available for assignment")

// ErrForbidden indicates the requester does not own the targeted assignment.
var ErrForbidden = errors.New("forbidden")

// ErrStudentNotInAssignment indicates a reopen targeted a student outside the roster.
var ErrStudentNotInAssignment = errors.New("student not in assignment")

// ErrSubmissionAlreadyReopened indicates a reopen on an already reopened submission.
var ErrSubmissionAlreadyReopened = errors.New("submission already reopened")

// ErrSubmissionAwaitingResubmit indicates a grade on a reopened submission;
// graded is only reachable from submitted or resubmitted.
var ErrSubmissionAwaitingResubmit = errors.New("submission reopened and awaiting resubmission")

// ErrMarksExceedMax indicates a manual grade above the assignment ceiling.
var ErrMarksExceedMax = errors.New("marks exceed assignment maximum")

// ErrReopenTargetRequired indicates a reopen with neither a student nor the all flag.
var ErrReopenTargetRequired = errors.New("student_id or reopen_for_all is required")

// SubmissionService drives the submission lifecycle: eligibility-gated
// submits, teacher reopens and manual grading.
type SubmissionService interface {
	Submit(ctx context.Context, studentID uint, payload dto.SubmitSolutionRequest) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	Reopen(ctx context.Context, teacherID, assignmentID uint, payload dto.ReopenAssignmentRequest) (dto.ReopenAssignmentResponse, error)
	Grade(ctx context.Context, teacherID, submissionID uint, payload dto.GradeSubmissionRequest) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	publisher   notify.Publisher
	logger      zerolog.Logger
	now         func() time.Time
	draw        func(n int) int
}

// NewSubmissionService constructs the submission lifecycle service.
// The question draw is uniformly random per submit; it is injected so
// tests can pin it.
func NewSubmissionService(subRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, validate *validator.Validate, activity ActivityRecorder, publisher notify.Publisher, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		assignments: assignmentRepo,
		validator:   validate,
		activity:    activity,
		publisher:   publisher,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
		draw:        rand.Intn,
	}
}

func (s *submissionService) Submit(ctx context.Context, studentID uint, payload dto.SubmitSolutionRequest) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/acadgrade/backend/internal/service/submission")
	ctx, span := tracer.Start(ctx, "submission.submit")
	span.SetAttributes(
		attribute.Int64("submission.student_id", int64(studentID)),
		attribute.Int64("submission.assignment_id", int64(payload.AssignmentID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	existing, err := s.findExisting(ctx, payload.AssignmentID, studentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := CanSubmit(assignment, studentID, existing, s.now()); err != nil {
		span.SetStatus(codes.Error, "not_eligible")
		return dto.SubmissionResponse{}, err
	}

	if len(assignment.Questions) == 0 {
		return dto.SubmissionResponse{}, ErrNoQuestionsAvailable
	}

	outcomes, err := grading.Normalize(payload.JudgeResponse)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed_judge_response")
		return dto.SubmissionResponse{}, err
	}

	score := grading.Score(outcomes)
	final := score.ClampedFinal(assignment.MaxMarks)

	encoded, err := json.Marshal(outcomes)
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("failed to encode outcomes: %w", err)
	}

	question := assignment.Questions[s.draw(len(assignment.Questions))]
	now := s.now()
	resubmission := existing != nil

	var submission models.Submission
	if resubmission {
		// Reopened attempt: the unique (assignment, student) row is
		// updated in place and moves to resubmitted.
		submission = *existing
		submission.QuestionID = question.ID
		submission.ResponseText = payload.ResponseText
		submission.TimeTakenSecs = payload.TimeTakenSecs
		submission.Outcomes = datatypes.JSON(encoded)
		submission.Status = models.SubmissionStatusResubmitted
		submission.Scenario1Marks = score.Scenario1
		submission.Scenario2Marks = score.Scenario2
		submission.Scenario3Marks = score.Scenario3
		submission.MarksObtained = final
		submission.SubmittedAt = now

		if err := s.submissions.Update(ctx, &submission); err != nil {
			return dto.SubmissionResponse{}, err
		}
	} else {
		submission = models.Submission{
			AssignmentID:   payload.AssignmentID,
			StudentID:      studentID,
			QuestionID:     question.ID,
			ResponseText:   payload.ResponseText,
			TimeTakenSecs:  payload.TimeTakenSecs,
			Outcomes:       datatypes.JSON(encoded),
			Status:         models.SubmissionStatusSubmitted,
			Scenario1Marks: score.Scenario1,
			Scenario2Marks: score.Scenario2,
			Scenario3Marks: score.Scenario3,
			MarksObtained:  final,
			Attempts:       1,
			SubmittedAt:    now,
		}

		if err := s.submissions.Create(ctx, &submission); err != nil {
			// A concurrent duplicate lost the race against the unique
			// index; surface it as the eligibility rejection the loser
			// would have seen.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				span.SetStatus(codes.Error, "duplicate_submission")
				return dto.SubmissionResponse{}, &NotEligibleError{Reason: ReasonAlreadySubmitted}
			}
			return dto.SubmissionResponse{}, err
		}
	}

	observability.Submissions().WithLabelValues(submission.Status).Inc()
	observability.Marks().Observe(final)

	if s.publisher != nil {
		event := notify.SubmissionEvent{
			SubmissionID: submission.ID,
			AssignmentID: assignment.ID,
			StudentID:    studentID,
			TeacherID:    assignment.TeacherID,
			Resubmission: resubmission,
			SubmittedAt:  now,
		}
		if err := s.publisher.PublishSubmissionReceived(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to notify teacher")
		}
	}

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(
		attribute.Float64("submission.marks", final),
		attribute.String("submission.status", submission.Status),
	)
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("question_id", question.ID).
		Float64("marks", final).
		Bool("resubmission", resubmission).
		Msg("submission scored")

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		StudentID:    filter.StudentID,
		Status:       filter.Status,
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Reopen(ctx context.Context, teacherID, assignmentID uint, payload dto.ReopenAssignmentRequest) (dto.ReopenAssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReopenAssignmentResponse{}, err
	}

	if !payload.All && payload.StudentID == nil {
		return dto.ReopenAssignmentResponse{}, ErrReopenTargetRequired
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReopenAssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.ReopenAssignmentResponse{}, err
	}

	if assignment.TeacherID != teacherID {
		return dto.ReopenAssignmentResponse{}, ErrForbidden
	}

	var result dto.ReopenAssignmentResponse
	if payload.All {
		result, err = s.reopenAll(ctx, assignmentID)
	} else {
		result, err = s.reopenOne(ctx, assignment, *payload.StudentID)
	}
	if err != nil {
		return dto.ReopenAssignmentResponse{}, err
	}

	if s.activity != nil {
		metadata := map[string]interface{}{
			"assignment_id": assignmentID,
			"reopened":      result.Reopened,
			"for_all":       payload.All,
		}
		if payload.StudentID != nil {
			metadata["student_id"] = *payload.StudentID
		}
		_ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    teacherID,
			ActorRole:  "teacher",
			Action:     "assignment.reopened",
			EntityType: "assignment",
			EntityID:   &assignmentID,
			Metadata:   metadata,
		})
	}

	return result, nil
}

func (s *submissionService) reopenOne(ctx context.Context, assignment models.Assignment, studentID uint) (dto.ReopenAssignmentResponse, error) {
	if !assignment.HasStudent(studentID) {
		return dto.ReopenAssignmentResponse{}, ErrStudentNotInAssignment
	}

	submission, err := s.submissions.FindByAssignmentAndStudent(ctx, assignment.ID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReopenAssignmentResponse{}, ErrSubmissionNotFound
		}
		return dto.ReopenAssignmentResponse{}, err
	}

	if submission.IsReopened() {
		return dto.ReopenAssignmentResponse{}, ErrSubmissionAlreadyReopened
	}

	s.markReopened(&submission)
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.ReopenAssignmentResponse{}, err
	}

	observability.Reopens().Inc()
	return dto.ReopenAssignmentResponse{Reopened: 1}, nil
}

// reopenAll sweeps every submission of the assignment. Items fail
// independently: an update error is counted and logged, never fatal.
func (s *submissionService) reopenAll(ctx context.Context, assignmentID uint) (dto.ReopenAssignmentResponse, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return dto.ReopenAssignmentResponse{}, err
	}

	var result dto.ReopenAssignmentResponse
	for i := range submissions {
		submission := submissions[i]
		if submission.IsReopened() {
			result.Skipped++
			continue
		}

		s.markReopened(&submission)
		if err := s.submissions.Update(ctx, &submission); err != nil {
			result.Failed++
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to reopen submission")
			continue
		}

		observability.Reopens().Inc()
		result.Reopened++
	}

	return result, nil
}

func (s *submissionService) markReopened(submission *models.Submission) {
	submission.Status = models.SubmissionStatusReopened
	submission.Attempts++
}

func (s *submissionService) Grade(ctx context.Context, teacherID, submissionID uint, payload dto.GradeSubmissionRequest) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer("github.com/acadgrade/backend/internal/service/submission")
	ctx, span := tracer.Start(ctx, "submission.grade")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.teacher_id", int64(teacherID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.Assignment.TeacherID != teacherID {
		span.SetStatus(codes.Error, "forbidden")
		return dto.SubmissionResponse{}, ErrForbidden
	}

	if submission.IsReopened() {
		span.SetStatus(codes.Error, "awaiting_resubmit")
		return dto.SubmissionResponse{}, ErrSubmissionAwaitingResubmit
	}

	ceiling := submission.Assignment.MaxMarks
	if ceiling <= 0 {
		ceiling = grading.Scale
	}
	if payload.Marks > ceiling+1e-9 {
		span.SetStatus(codes.Error, "marks_exceed_max")
		return dto.SubmissionResponse{}, ErrMarksExceedMax
	}

	submission.MarksObtained = math.Round(payload.Marks*100) / 100
	submission.Status = models.SubmissionStatusGraded

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	observability.GradeOverrides().Inc()

	if s.activity != nil {
		_ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    teacherID,
			ActorRole:  "teacher",
			Action:     "submission.graded",
			EntityType: "submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"assignment_id": submission.AssignmentID,
				"student_id":    submission.StudentID,
				"marks":         submission.MarksObtained,
			},
		})
	}

	updated, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(attribute.Float64("grading.marks", submission.MarksObtained))
	s.logger.Info().Uint("submission_id", submission.ID).Float64("marks", submission.MarksObtained).Msg("submission graded")

	return dto.NewSubmissionResponse(updated), nil
}

func (s *submissionService) findExisting(ctx context.Context, assignmentID, studentID uint) (*models.Submission, error) {
	submission, err := s.submissions.FindByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &submission, nil
}
