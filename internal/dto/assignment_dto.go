package dto

import (
	"time"

	"github.com/acadgrade/backend/internal/models"
)

// AssignmentCreateRequest describes the payload for creating an assignment.
// OpenAt and DueAt are RFC3339 timestamps.
type AssignmentCreateRequest struct {
	Title       string  `json:"title" validate:"required,min=3"`
	CourseID    uint    `json:"course_id" validate:"required,gt=0"`
	OpenAt      string  `json:"open_at" validate:"required"`
	DueAt       string  `json:"due_at" validate:"required"`
	MaxMarks    float64 `json:"max_marks" validate:"gt=0"`
	QuestionIDs []uint  `json:"question_ids" validate:"required,min=1,dive,gt=0"`
	StudentIDs  []uint  `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

// AssignmentUpdateRequest carries partial assignment updates.
type AssignmentUpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3"`
	OpenAt      *string  `json:"open_at"`
	DueAt       *string  `json:"due_at"`
	MaxMarks    *float64 `json:"max_marks" validate:"omitempty,gt=0"`
	QuestionIDs []uint   `json:"question_ids" validate:"omitempty,min=1,dive,gt=0"`
	StudentIDs  []uint   `json:"student_ids" validate:"omitempty,min=1,dive,gt=0"`
}

// AssignmentLite summarizes an assignment inside other payloads.
type AssignmentLite struct {
	ID       uint      `json:"id"`
	Title    string    `json:"title"`
	OpenAt   time.Time `json:"open_at"`
	DueAt    time.Time `json:"due_at"`
	MaxMarks float64   `json:"max_marks"`
}

// AssignmentResponse is the teacher-facing assignment view.
type AssignmentResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	CourseID    uint      `json:"course_id"`
	TeacherID   uint      `json:"teacher_id"`
	OpenAt      time.Time `json:"open_at"`
	DueAt       time.Time `json:"due_at"`
	MaxMarks    float64   `json:"max_marks"`
	QuestionIDs []uint    `json:"question_ids"`
	StudentIDs  []uint    `json:"student_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StudentAssignmentResponse is the student-facing assignment view: no
// question pool or roster, but the student's own submission state.
type StudentAssignmentResponse struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	OpenAt           time.Time `json:"open_at"`
	DueAt            time.Time `json:"due_at"`
	MaxMarks         float64   `json:"max_marks"`
	Open             bool      `json:"open"`
	SubmissionStatus string    `json:"submission_status,omitempty"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	questionIDs := make([]uint, 0, len(model.Questions))
	for _, question := range model.Questions {
		questionIDs = append(questionIDs, question.ID)
	}

	studentIDs := make([]uint, 0, len(model.Students))
	for _, student := range model.Students {
		studentIDs = append(studentIDs, student.ID)
	}

	return AssignmentResponse{
		ID:          model.ID,
		Title:       model.Title,
		CourseID:    model.CourseID,
		TeacherID:   model.TeacherID,
		OpenAt:      model.OpenAt,
		DueAt:       model.DueAt,
		MaxMarks:    model.MaxMarks,
		QuestionIDs: questionIDs,
		StudentIDs:  studentIDs,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts assignment models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
