package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission lifecycle states. A submission is "active" in every state
// except reopened; reopened hands the attempt back to the student.
const (
	SubmissionStatusSubmitted   = "submitted"
	SubmissionStatusReopened    = "reopened"
	SubmissionStatusResubmitted = "resubmitted"
	SubmissionStatusGraded      = "graded"
)

// Submission records one student's attempt at one assignment.
//
// The (assignment_id, student_id) pair is unique: a student holds at
// most one submission row per assignment, and resubmissions after a
// reopen update that row in place. The unique index is what closes the
// concurrent double-submit race; the service layer translates the
// duplicate-key error into an eligibility rejection. Rows are never
// deleted so the audit trail survives regrades.
type Submission struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	AssignmentID   uint           `gorm:"not null;uniqueIndex:idx_submission_attempt" json:"assignment_id"`
	StudentID      uint           `gorm:"not null;uniqueIndex:idx_submission_attempt" json:"student_id"`
	QuestionID     uint           `gorm:"not null" json:"question_id"`
	ResponseText   string         `gorm:"type:text" json:"response_text"`
	TimeTakenSecs  float64        `gorm:"default:0" json:"time_taken_secs"`
	Outcomes       datatypes.JSON `gorm:"type:json" json:"outcomes"`
	Status         string         `gorm:"size:32;not null" json:"status"`
	Scenario1Marks float64        `gorm:"default:0" json:"scenario1_marks"`
	Scenario2Marks float64        `gorm:"default:0" json:"scenario2_marks"`
	Scenario3Marks float64        `gorm:"default:0" json:"scenario3_marks"`
	MarksObtained  float64        `gorm:"default:0" json:"marks_obtained"`
	Attempts       int            `gorm:"default:1" json:"attempts"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Assignment     Assignment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student        Student        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Question       Question       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
}

// IsReopened reports whether the submission is awaiting a new attempt.
func (s Submission) IsReopened() bool {
	return s.Status == SubmissionStatusReopened
}

// IsGraded reports whether a teacher has finalised the mark.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}
