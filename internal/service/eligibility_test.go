package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acadgrade/backend/internal/models"
)

func eligibilityAssignment() models.Assignment {
	return models.Assignment{
		ID:       1,
		OpenAt:   time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		DueAt:    time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC),
		Students: []models.Student{{ID: 1}},
	}
}

func TestCanSubmitOrderOfChecks(t *testing.T) {
	assignment := eligibilityAssignment()
	// Outside the window AND unassigned: roster check wins.
	late := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	err := CanSubmit(assignment, 99, nil, late)
	var notEligible *NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	require.Equal(t, ReasonNotAssigned, notEligible.Reason)
}

func TestCanSubmitWindowBoundsInclusive(t *testing.T) {
	assignment := eligibilityAssignment()

	require.NoError(t, CanSubmit(assignment, 1, nil, assignment.OpenAt))
	require.NoError(t, CanSubmit(assignment, 1, nil, assignment.DueAt))

	err := CanSubmit(assignment, 1, nil, assignment.DueAt.Add(time.Second))
	var notEligible *NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	require.Equal(t, ReasonWindowClosed, notEligible.Reason)

	err = CanSubmit(assignment, 1, nil, assignment.OpenAt.Add(-time.Second))
	require.ErrorAs(t, err, &notEligible)
	require.Equal(t, ReasonWindowClosed, notEligible.Reason)
}

func TestCanSubmitExistingSubmission(t *testing.T) {
	assignment := eligibilityAssignment()
	during := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	for _, status := range []string{
		models.SubmissionStatusSubmitted,
		models.SubmissionStatusResubmitted,
		models.SubmissionStatusGraded,
	} {
		existing := &models.Submission{Status: status}
		err := CanSubmit(assignment, 1, existing, during)
		var notEligible *NotEligibleError
		require.ErrorAs(t, err, &notEligible, status)
		require.Equal(t, ReasonAlreadySubmitted, notEligible.Reason)
	}

	reopened := &models.Submission{Status: models.SubmissionStatusReopened}
	require.NoError(t, CanSubmit(assignment, 1, reopened, during))
}
