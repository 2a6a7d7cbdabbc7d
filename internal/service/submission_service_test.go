package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/acadgrade/backend/internal/dto"
	"github.com/acadgrade/backend/internal/grading"
	"github.com/acadgrade/backend/internal/models"
	"github.com/acadgrade/backend/internal/repository"
	"github.com/acadgrade/backend/pkg/notify"
)

type memorySubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uint]models.Submission
	nextID      uint
	assignments *memoryAssignmentRepo
}

func newMemorySubmissionRepo(assignments *memoryAssignmentRepo) *memorySubmissionRepo {
	return &memorySubmissionRepo{
		submissions: make(map[uint]models.Submission),
		nextID:      1,
		assignments: assignments,
	}
}

// hydrate mirrors the Assignment preload the GORM repository performs.
func (m *memorySubmissionRepo) hydrate(submission models.Submission) models.Submission {
	if m.assignments != nil {
		if assignment, ok := m.assignments.assignments[submission.AssignmentID]; ok {
			submission.Assignment = assignment
		}
	}
	return submission
}

func (m *memorySubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]models.Submission, 0, len(m.submissions))
	for _, submission := range m.submissions {
		if filter.AssignmentID != nil && submission.AssignmentID != *filter.AssignmentID {
			continue
		}
		if filter.StudentID != nil && submission.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		results = append(results, m.hydrate(submission))
	}
	return results, nil
}

func (m *memorySubmissionRepo) GetByID(_ context.Context, id uint) (models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	submission, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return m.hydrate(submission), nil
}

func (m *memorySubmissionRepo) FindByAssignmentAndStudent(_ context.Context, assignmentID, studentID uint) (models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, submission := range m.submissions {
		if submission.AssignmentID == assignmentID && submission.StudentID == studentID {
			return m.hydrate(submission), nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (m *memorySubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Mirrors the unique (assignment_id, student_id) index.
	for _, existing := range m.submissions {
		if existing.AssignmentID == submission.AssignmentID && existing.StudentID == submission.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}

	submission.ID = m.nextID
	submission.CreatedAt = time.Now()
	submission.UpdatedAt = time.Now()
	m.submissions[m.nextID] = *submission
	m.nextID++
	return nil
}

func (m *memorySubmissionRepo) Update(_ context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	submission.UpdatedAt = time.Now()
	m.submissions[submission.ID] = *submission
	return nil
}

type memoryAssignmentRepo struct {
	assignments map[uint]models.Assignment
	nextID      uint
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{
		assignments: make(map[uint]models.Assignment),
		nextID:      1,
	}
}

func (m *memoryAssignmentRepo) GetByID(_ context.Context, id uint) (models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryAssignmentRepo) ListForTeacher(_ context.Context, teacherID uint) ([]models.Assignment, error) {
	results := make([]models.Assignment, 0, len(m.assignments))
	for _, assignment := range m.assignments {
		if assignment.TeacherID == teacherID {
			results = append(results, assignment)
		}
	}
	return results, nil
}

func (m *memoryAssignmentRepo) ListForStudent(_ context.Context, studentID uint) ([]models.Assignment, error) {
	results := make([]models.Assignment, 0, len(m.assignments))
	for _, assignment := range m.assignments {
		if assignment.HasStudent(studentID) {
			results = append(results, assignment)
		}
	}
	return results, nil
}

func (m *memoryAssignmentRepo) Create(_ context.Context, assignment *models.Assignment) error {
	assignment.ID = m.nextID
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = time.Now()
	m.assignments[m.nextID] = *assignment
	m.nextID++
	return nil
}

func (m *memoryAssignmentRepo) Update(_ context.Context, assignment *models.Assignment) error {
	stored, ok := m.assignments[assignment.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	assignment.Questions = stored.Questions
	assignment.Students = stored.Students
	assignment.UpdatedAt = time.Now()
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) ReplaceQuestions(_ context.Context, assignment *models.Assignment, questions []models.Question) error {
	stored, ok := m.assignments[assignment.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Questions = questions
	m.assignments[assignment.ID] = stored
	return nil
}

func (m *memoryAssignmentRepo) ReplaceStudents(_ context.Context, assignment *models.Assignment, students []models.Student) error {
	stored, ok := m.assignments[assignment.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Students = students
	m.assignments[assignment.ID] = stored
	return nil
}

func (m *memoryAssignmentRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	return nil
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (r *recordingActivity) Record(_ context.Context, entry ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.SubmissionEvent
}

func (r *recordingPublisher) PublishSubmissionReceived(_ context.Context, event notify.SubmissionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func passingVerdicts(passed, failed int) grading.RawJudgeResponse {
	var raw grading.RawJudgeResponse
	for i := 0; i < passed; i++ {
		raw.Submissions = append(raw.Submissions, grading.RawVerdict{
			Status: &grading.RawStatus{ID: 3, Description: "Accepted"},
			Time:   grading.Seconds(0.02),
			Memory: 1024,
		})
	}
	for i := 0; i < failed; i++ {
		raw.Submissions = append(raw.Submissions, grading.RawVerdict{
			Status: &grading.RawStatus{ID: 4, Description: "Wrong Answer"},
			Time:   grading.Seconds(0.02),
			Memory: 1024,
		})
	}
	return raw
}

type submissionFixture struct {
	service     SubmissionService
	submissions *memorySubmissionRepo
	assignments *memoryAssignmentRepo
	activity    *recordingActivity
	publisher   *recordingPublisher
	assignment  models.Assignment
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()

	assignments := newMemoryAssignmentRepo()
	submissions := newMemorySubmissionRepo(assignments)
	activity := &recordingActivity{}
	publisher := &recordingPublisher{}

	assignment := models.Assignment{
		Title:     "Sorting Basics",
		CourseID:  1,
		TeacherID: 7,
		OpenAt:    time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		DueAt:     time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC),
		MaxMarks:  10,
		Questions: []models.Question{{ID: 11}, {ID: 12}},
		Students:  []models.Student{{ID: 1}, {ID: 2}},
	}
	require.NoError(t, assignments.Create(context.Background(), &assignment))

	service := NewSubmissionService(submissions, assignments, validator.New(), activity, publisher, zerolog.Nop())
	if concrete, ok := service.(*submissionService); ok {
		concrete.now = func() time.Time { return time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC) }
		concrete.draw = func(int) int { return 0 }
	}

	return &submissionFixture{
		service:     service,
		submissions: submissions,
		assignments: assignments,
		activity:    activity,
		publisher:   publisher,
		assignment:  assignment,
	}
}

func TestSubmitScoresAndPersists(t *testing.T) {
	fx := newSubmissionFixture(t)

	response, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "def solve(): pass",
		TimeTakenSecs: 42,
		JudgeResponse: passingVerdicts(3, 2),
	})
	require.NoError(t, err)

	require.Equal(t, models.SubmissionStatusSubmitted, response.Status)
	require.Equal(t, 1, response.Attempts)
	require.Equal(t, uint(11), response.QuestionID)
	require.InDelta(t, 6.0, response.Marks.Scenario1, 0.001)
	require.Len(t, response.Outcomes, 5)
	require.Positive(t, response.MarksObtained)

	require.Len(t, fx.publisher.events, 1)
	require.False(t, fx.publisher.events[0].Resubmission)
	require.Equal(t, fx.assignment.TeacherID, fx.publisher.events[0].TeacherID)
}

func TestSubmitFinalIsMaxOfScenariosClamped(t *testing.T) {
	fx := newSubmissionFixture(t)

	lowCeiling := fx.assignment
	lowCeiling.MaxMarks = 5
	require.NoError(t, fx.assignments.Update(context.Background(), &lowCeiling))

	response, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "print(42)",
		JudgeResponse: passingVerdicts(5, 0),
	})
	require.NoError(t, err)

	require.InDelta(t, 10.0, response.Marks.Scenario1, 0.001)
	require.InDelta(t, 5.0, response.MarksObtained, 0.001)
}

func TestSubmitRejectsUnassignedStudent(t *testing.T) {
	fx := newSubmissionFixture(t)

	_, err := fx.service.Submit(context.Background(), 99, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "x",
		JudgeResponse: passingVerdicts(1, 0),
	})
	require.ErrorIs(t, err, ErrNotEligible)

	var notEligible *NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	require.Equal(t, ReasonNotAssigned, notEligible.Reason)
}

func TestSubmitRejectsOutsideWindow(t *testing.T) {
	fx := newSubmissionFixture(t)
	if concrete, ok := fx.service.(*submissionService); ok {
		concrete.now = func() time.Time { return time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC) }
	}

	_, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "x",
		JudgeResponse: passingVerdicts(1, 0),
	})

	var notEligible *NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	require.Equal(t, ReasonWindowClosed, notEligible.Reason)
}

func TestSubmitRejectsSecondAttempt(t *testing.T) {
	fx := newSubmissionFixture(t)

	_, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "first",
		JudgeResponse: passingVerdicts(1, 0),
	})
	require.NoError(t, err)

	_, err = fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "second",
		JudgeResponse: passingVerdicts(1, 0),
	})

	var notEligible *NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	require.Equal(t, ReasonAlreadySubmitted, notEligible.Reason)
}

func TestSubmitConcurrentDuplicateLosesRace(t *testing.T) {
	fx := newSubmissionFixture(t)

	payload := dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "race",
		JudgeResponse: passingVerdicts(2, 0),
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.service.Submit(context.Background(), 2, payload)
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrNotEligible)
		rejected++
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, rejected)
}

func TestSubmitRejectsMalformedJudgeResponse(t *testing.T) {
	fx := newSubmissionFixture(t)

	raw := passingVerdicts(2, 0)
	raw.Submissions[1].Status = nil

	_, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "x",
		JudgeResponse: raw,
	})
	require.ErrorIs(t, err, grading.ErrMalformedJudgeResponse)

	stored, err := fx.submissions.List(context.Background(), repository.SubmissionFilter{})
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestSubmitRejectsEmptyQuestionPool(t *testing.T) {
	fx := newSubmissionFixture(t)

	bare := fx.assignment
	bare.Questions = nil
	fx.assignments.assignments[bare.ID] = bare

	_, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "x",
		JudgeResponse: passingVerdicts(1, 0),
	})
	require.ErrorIs(t, err, ErrNoQuestionsAvailable)
}

func TestReopenThenResubmit(t *testing.T) {
	fx := newSubmissionFixture(t)

	first, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "first",
		JudgeResponse: passingVerdicts(1, 4),
	})
	require.NoError(t, err)

	studentID := uint(1)
	result, err := fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{StudentID: &studentID})
	require.NoError(t, err)
	require.Equal(t, 1, result.Reopened)

	reopened, err := fx.service.Get(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusReopened, reopened.Status)
	require.Equal(t, 2, reopened.Attempts)

	second, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "second",
		JudgeResponse: passingVerdicts(5, 0),
	})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, models.SubmissionStatusResubmitted, second.Status)
	require.Equal(t, "second", second.ResponseText)
	require.InDelta(t, 10.0, second.MarksObtained, 0.001)

	require.Len(t, fx.publisher.events, 2)
	require.True(t, fx.publisher.events[1].Resubmission)
	require.Len(t, fx.activity.entries, 1)
	require.Equal(t, "assignment.reopened", fx.activity.entries[0].Action)
}

func TestReopenRejectsNonOwner(t *testing.T) {
	fx := newSubmissionFixture(t)

	studentID := uint(1)
	_, err := fx.service.Reopen(context.Background(), 999, fx.assignment.ID, dto.ReopenAssignmentRequest{StudentID: &studentID})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestReopenRejectsStudentOutsideRoster(t *testing.T) {
	fx := newSubmissionFixture(t)

	outsider := uint(42)
	_, err := fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{StudentID: &outsider})
	require.ErrorIs(t, err, ErrStudentNotInAssignment)
}

func TestReopenRejectsMissingSubmission(t *testing.T) {
	fx := newSubmissionFixture(t)

	studentID := uint(1)
	_, err := fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{StudentID: &studentID})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestReopenRejectsAlreadyReopened(t *testing.T) {
	fx := newSubmissionFixture(t)

	_, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "x",
		JudgeResponse: passingVerdicts(1, 0),
	})
	require.NoError(t, err)

	studentID := uint(1)
	_, err = fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{StudentID: &studentID})
	require.NoError(t, err)

	_, err = fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{StudentID: &studentID})
	require.ErrorIs(t, err, ErrSubmissionAlreadyReopened)
}

func TestReopenRequiresTarget(t *testing.T) {
	fx := newSubmissionFixture(t)

	_, err := fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{})
	require.ErrorIs(t, err, ErrReopenTargetRequired)
}

func TestReopenAllSkipsAlreadyReopened(t *testing.T) {
	fx := newSubmissionFixture(t)

	for _, studentID := range []uint{1, 2} {
		_, err := fx.service.Submit(context.Background(), studentID, dto.SubmitSolutionRequest{
			AssignmentID:  fx.assignment.ID,
			ResponseText:  "x",
			JudgeResponse: passingVerdicts(1, 0),
		})
		require.NoError(t, err)
	}

	first := uint(1)
	_, err := fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{StudentID: &first})
	require.NoError(t, err)

	result, err := fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{All: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Reopened)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 0, result.Failed)
}

func TestGradeOverridesComputedMarks(t *testing.T) {
	fx := newSubmissionFixture(t)

	submitted, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "x",
		JudgeResponse: passingVerdicts(3, 2),
	})
	require.NoError(t, err)

	graded, err := fx.service.Grade(context.Background(), fx.assignment.TeacherID, submitted.ID, dto.GradeSubmissionRequest{Marks: 8.456})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusGraded, graded.Status)
	require.InDelta(t, 8.46, graded.MarksObtained, 0.001)

	require.Len(t, fx.activity.entries, 1)
	require.Equal(t, "submission.graded", fx.activity.entries[0].Action)
}

func TestGradeRejectsNonOwner(t *testing.T) {
	fx := newSubmissionFixture(t)

	submitted, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "x",
		JudgeResponse: passingVerdicts(1, 0),
	})
	require.NoError(t, err)

	_, err = fx.service.Grade(context.Background(), 999, submitted.ID, dto.GradeSubmissionRequest{Marks: 5})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGradeRejectsReopenedSubmission(t *testing.T) {
	fx := newSubmissionFixture(t)

	submitted, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "x",
		JudgeResponse: passingVerdicts(1, 0),
	})
	require.NoError(t, err)

	studentID := uint(1)
	_, err = fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{StudentID: &studentID})
	require.NoError(t, err)

	_, err = fx.service.Grade(context.Background(), fx.assignment.TeacherID, submitted.ID, dto.GradeSubmissionRequest{Marks: 5})
	require.ErrorIs(t, err, ErrSubmissionAwaitingResubmit)
}

func TestGradeRejectsMarksAboveCeiling(t *testing.T) {
	fx := newSubmissionFixture(t)

	submitted, err := fx.service.Submit(context.Background(), 1, dto.SubmitSolutionRequest{
		AssignmentID:  fx.assignment.ID,
		ResponseText:  "x",
		JudgeResponse: passingVerdicts(1, 0),
	})
	require.NoError(t, err)

	_, err = fx.service.Grade(context.Background(), fx.assignment.TeacherID, submitted.ID, dto.GradeSubmissionRequest{Marks: 10.5})
	require.ErrorIs(t, err, ErrMarksExceedMax)
}

func TestGradeMissingSubmission(t *testing.T) {
	fx := newSubmissionFixture(t)

	_, err := fx.service.Grade(context.Background(), fx.assignment.TeacherID, 404, dto.GradeSubmissionRequest{Marks: 5})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	fx := newSubmissionFixture(t)

	for _, studentID := range []uint{1, 2} {
		_, err := fx.service.Submit(context.Background(), studentID, dto.SubmitSolutionRequest{
			AssignmentID:  fx.assignment.ID,
			ResponseText:  "x",
			JudgeResponse: passingVerdicts(1, 0),
		})
		require.NoError(t, err)
	}

	first := uint(1)
	_, err := fx.service.Reopen(context.Background(), fx.assignment.TeacherID, fx.assignment.ID, dto.ReopenAssignmentRequest{StudentID: &first})
	require.NoError(t, err)

	status := models.SubmissionStatusReopened
	results, err := fx.service.List(context.Background(), dto.SubmissionFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint(1), results[0].StudentID)
}
