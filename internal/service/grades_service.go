package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/acadgrade/backend/internal/dto"
	"github.com/acadgrade/backend/internal/repository"
)

// ErrStudentNotFound indicates the student could not be located.
var ErrStudentNotFound = errors.New("student not found")

// GradesService assembles per-student grade reports.
type GradesService interface {
	Report(ctx context.Context, studentID uint) (dto.GradeReportResponse, error)
	Invalidate(ctx context.Context, studentID uint) error
}

type gradesService struct {
	students    repository.StudentRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradesService constructs the grade report service. The report is
// cached in Redis per student; submits and regrades invalidate it.
func NewGradesService(studentRepo repository.StudentRepository, assignmentRepo repository.AssignmentRepository, submissionRepo repository.SubmissionRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) GradesService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &gradesService{
		students:    studentRepo,
		assignments: assignmentRepo,
		submissions: submissionRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "grades_service").Logger(),
		now:         time.Now,
	}
}

func gradeCacheKey(studentID uint) string {
	return fmt.Sprintf("acadgrade:grades:student:%d", studentID)
}

func (s *gradesService) Report(ctx context.Context, studentID uint) (dto.GradeReportResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, gradeCacheKey(studentID)).Result()
		if err == nil {
			var report dto.GradeReportResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &report); unmarshalErr == nil {
				report.CacheHit = true
				return report, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("grade cache read failed")
		}
	}

	report, err := s.buildReport(ctx, studentID)
	if err != nil {
		return dto.GradeReportResponse{}, err
	}

	if s.cache != nil {
		encoded, err := json.Marshal(report)
		if err == nil {
			if err := s.cache.Set(ctx, gradeCacheKey(studentID), encoded, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("grade cache write failed")
			}
		}
	}

	return report, nil
}

// Invalidate drops the cached report so the next read rebuilds it.
func (s *gradesService) Invalidate(ctx context.Context, studentID uint) error {
	if s.cache == nil {
		return nil
	}

	return s.cache.Del(ctx, gradeCacheKey(studentID)).Err()
}

func (s *gradesService) buildReport(ctx context.Context, studentID uint) (dto.GradeReportResponse, error) {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeReportResponse{}, ErrStudentNotFound
		}
		return dto.GradeReportResponse{}, err
	}

	assignments, err := s.assignments.ListForStudent(ctx, studentID)
	if err != nil {
		return dto.GradeReportResponse{}, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return dto.GradeReportResponse{}, err
	}

	byAssignment := make(map[uint]int, len(submissions))
	for i, submission := range submissions {
		byAssignment[submission.AssignmentID] = i
	}

	entries := make([]dto.GradeEntry, 0, len(assignments))
	for _, assignment := range assignments {
		entry := dto.GradeEntry{
			AssignmentID:    assignment.ID,
			AssignmentTitle: assignment.Title,
			MaxMarks:        assignment.MaxMarks,
		}

		if i, ok := byAssignment[assignment.ID]; ok {
			submission := submissions[i]
			entry.Status = submission.Status
			// A reopened attempt's previous mark is withheld until the
			// student resubmits.
			if !submission.IsReopened() {
				marks := submission.MarksObtained
				entry.MarksObtained = &marks
				submittedAt := submission.SubmittedAt
				entry.SubmittedAt = &submittedAt
			}
		}

		entries = append(entries, entry)
	}

	return dto.GradeReportResponse{
		StudentID:   studentID,
		Entries:     entries,
		GeneratedAt: s.now(),
	}, nil
}
