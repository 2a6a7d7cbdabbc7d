package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/acadgrade/backend/internal/models"
)

type gradesFixture struct {
	service     GradesService
	assignments *memoryAssignmentRepo
	submissions *memorySubmissionRepo
	redis       *miniredis.Miniredis
}

func newGradesFixture(t *testing.T) *gradesFixture {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	assignments := newMemoryAssignmentRepo()
	submissions := newMemorySubmissionRepo(assignments)
	students := newMemoryStudentRepo(1, 2)

	assignment := models.Assignment{
		Title:     "Graph Traversal",
		CourseID:  1,
		TeacherID: 7,
		OpenAt:    time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		DueAt:     time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC),
		MaxMarks:  10,
		Students:  []models.Student{{ID: 1}, {ID: 2}},
	}
	require.NoError(t, assignments.Create(context.Background(), &assignment))

	service := NewGradesService(students, assignments, submissions, client, time.Minute, zerolog.Nop())

	return &gradesFixture{
		service:     service,
		assignments: assignments,
		submissions: submissions,
		redis:       server,
	}
}

func TestGradeReportListsAssignments(t *testing.T) {
	fx := newGradesFixture(t)

	submission := models.Submission{
		AssignmentID:  1,
		StudentID:     1,
		Status:        models.SubmissionStatusGraded,
		MarksObtained: 7.5,
		SubmittedAt:   time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, fx.submissions.Create(context.Background(), &submission))

	report, err := fx.service.Report(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, uint(1), report.StudentID)
	require.False(t, report.CacheHit)
	require.Len(t, report.Entries, 1)
	require.Equal(t, models.SubmissionStatusGraded, report.Entries[0].Status)
	require.NotNil(t, report.Entries[0].MarksObtained)
	require.InDelta(t, 7.5, *report.Entries[0].MarksObtained, 0.001)
}

func TestGradeReportSecondReadHitsCache(t *testing.T) {
	fx := newGradesFixture(t)

	first, err := fx.service.Report(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	second, err := fx.service.Report(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.GeneratedAt.Unix(), second.GeneratedAt.Unix())
}

func TestGradeReportWithholdsReopenedMarks(t *testing.T) {
	fx := newGradesFixture(t)

	submission := models.Submission{
		AssignmentID:  1,
		StudentID:     1,
		Status:        models.SubmissionStatusReopened,
		MarksObtained: 4.0,
		SubmittedAt:   time.Now(),
	}
	require.NoError(t, fx.submissions.Create(context.Background(), &submission))

	report, err := fx.service.Report(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	require.Equal(t, models.SubmissionStatusReopened, report.Entries[0].Status)
	require.Nil(t, report.Entries[0].MarksObtained)
}

func TestGradeReportUnknownStudent(t *testing.T) {
	fx := newGradesFixture(t)

	_, err := fx.service.Report(context.Background(), 404)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestGradeReportInvalidateForcesRebuild(t *testing.T) {
	fx := newGradesFixture(t)

	_, err := fx.service.Report(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, fx.service.Invalidate(context.Background(), 1))

	submission := models.Submission{
		AssignmentID:  1,
		StudentID:     1,
		Status:        models.SubmissionStatusSubmitted,
		MarksObtained: 6.0,
		SubmittedAt:   time.Now(),
	}
	require.NoError(t, fx.submissions.Create(context.Background(), &submission))

	rebuilt, err := fx.service.Report(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, rebuilt.CacheHit)
	require.Equal(t, models.SubmissionStatusSubmitted, rebuilt.Entries[0].Status)
}
