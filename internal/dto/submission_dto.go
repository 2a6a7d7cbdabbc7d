package dto

import (
	"encoding/json"
	"time"

	"github.com/acadgrade/backend/internal/grading"
	"github.com/acadgrade/backend/internal/models"
)

// SubmitSolutionRequest carries one student attempt at an assignment.
// JudgeResponse is the raw verdict batch forwarded from the execution
// judge; normalization and scoring happen server side.
type SubmitSolutionRequest struct {
	AssignmentID  uint                     `json:"assignment_id" validate:"required,gt=0"`
	ResponseText  string                   `json:"response_text" validate:"required"`
	TimeTakenSecs float64                  `json:"time_taken_secs" validate:"gte=0"`
	JudgeResponse grading.RawJudgeResponse `json:"judge_response"`
}

// ReopenAssignmentRequest targets one student or the whole assignment.
type ReopenAssignmentRequest struct {
	StudentID *uint `json:"student_id" validate:"omitempty,gt=0"`
	All       bool  `json:"reopen_for_all"`
}

// GradeSubmissionRequest is the teacher's manual grading payload. The
// supplied marks supersede the computed score.
type GradeSubmissionRequest struct {
	Marks float64 `json:"marks" validate:"gte=0"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=submitted reopened resubmitted graded"`
}

// MarksBreakdown reports every candidate policy score so teachers can
// audit which policy produced the persisted mark.
type MarksBreakdown struct {
	Scenario1 float64 `json:"scenario1_marks"`
	Scenario2 float64 `json:"scenario2_marks"`
	Scenario3 float64 `json:"scenario3_marks"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID            uint                  `json:"id"`
	AssignmentID  uint                  `json:"assignment_id"`
	StudentID     uint                  `json:"student_id"`
	QuestionID    uint                  `json:"question_id"`
	ResponseText  string                `json:"response_text"`
	TimeTakenSecs float64               `json:"time_taken_secs"`
	Status        string                `json:"status"`
	Attempts      int                   `json:"attempts"`
	Marks         MarksBreakdown        `json:"marks"`
	MarksObtained float64               `json:"marks_obtained"`
	Outcomes      []grading.TestOutcome `json:"outcomes"`
	SubmittedAt   time.Time             `json:"submitted_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	Assignment    AssignmentLite        `json:"assignment"`
	Student       StudentLite           `json:"student"`
}

// ReopenAssignmentResponse summarizes a reopen sweep. Failed counts
// submissions that could not be updated; one failure never aborts the
// remaining items.
type ReopenAssignmentResponse struct {
	Reopened int `json:"reopened"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:            model.ID,
		AssignmentID:  model.AssignmentID,
		StudentID:     model.StudentID,
		QuestionID:    model.QuestionID,
		ResponseText:  model.ResponseText,
		TimeTakenSecs: model.TimeTakenSecs,
		Status:        model.Status,
		Attempts:      model.Attempts,
		Marks: MarksBreakdown{
			Scenario1: model.Scenario1Marks,
			Scenario2: model.Scenario2Marks,
			Scenario3: model.Scenario3Marks,
		},
		MarksObtained: model.MarksObtained,
		SubmittedAt:   model.SubmittedAt,
		UpdatedAt:     model.UpdatedAt,
	}

	if len(model.Outcomes) > 0 {
		var outcomes []grading.TestOutcome
		if err := json.Unmarshal(model.Outcomes, &outcomes); err == nil {
			response.Outcomes = outcomes
		}
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:       model.Assignment.ID,
			Title:    model.Assignment.Title,
			OpenAt:   model.Assignment.OpenAt,
			DueAt:    model.Assignment.DueAt,
			MaxMarks: model.Assignment.MaxMarks,
		}
	}

	if model.Student.ID != 0 {
		response.Student = StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
