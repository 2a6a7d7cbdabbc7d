package service

import (
	"errors"
	"time"

	"github.com/acadgrade/backend/internal/models"
)

// Eligibility rejection reasons, in check order.
const (
	ReasonNotAssigned      = "not_assigned"
	ReasonWindowClosed     = "window_closed"
	ReasonAlreadySubmitted = "already_submitted"
)

// ErrNotEligible is the sentinel every eligibility rejection matches.
var ErrNotEligible = errors.New("not eligible to submit")

// NotEligibleError carries the first failed eligibility check.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return "not eligible to submit: " + e.Reason
}

// Is lets errors.Is(err, ErrNotEligible) match regardless of reason.
func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}

// CanSubmit decides whether a student may submit to an assignment at
// the given time. Checks short-circuit in order: roster membership,
// submission window, prior-submission state. A reopened prior
// submission grants eligibility; the next attempt is a resubmission.
// Pure decision over current state, no side effects.
func CanSubmit(assignment models.Assignment, studentID uint, existing *models.Submission, now time.Time) error {
	if !assignment.HasStudent(studentID) {
		return &NotEligibleError{Reason: ReasonNotAssigned}
	}

	if !assignment.IsOpenAt(now) {
		return &NotEligibleError{Reason: ReasonWindowClosed}
	}

	if existing != nil && !existing.IsReopened() {
		return &NotEligibleError{Reason: ReasonAlreadySubmitted}
	}

	return nil
}
