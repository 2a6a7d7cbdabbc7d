package dto

import (
	"encoding/json"
	"time"

	"github.com/acadgrade/backend/internal/models"
)

// QuestionExamplePayload is one sample input/output pair.
type QuestionExamplePayload struct {
	Input  string `json:"input" validate:"required"`
	Output string `json:"output" validate:"required"`
}

// QuestionTestCasePayload is one hidden judge case.
type QuestionTestCasePayload struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// QuestionCreateRequest describes the payload for creating a question.
type QuestionCreateRequest struct {
	Prompt    string                    `json:"prompt" validate:"required,min=10"`
	Subject   string                    `json:"subject"`
	Marks     float64                   `json:"marks" validate:"gt=0"`
	Examples  []QuestionExamplePayload  `json:"examples" validate:"dive"`
	TestCases []QuestionTestCasePayload `json:"test_cases" validate:"required,min=1,dive"`
}

// QuestionUpdateRequest carries partial question updates.
type QuestionUpdateRequest struct {
	Prompt    *string                   `json:"prompt" validate:"omitempty,min=10"`
	Subject   *string                   `json:"subject"`
	Marks     *float64                  `json:"marks" validate:"omitempty,gt=0"`
	Examples  []QuestionExamplePayload  `json:"examples" validate:"omitempty,dive"`
	TestCases []QuestionTestCasePayload `json:"test_cases" validate:"omitempty,min=1,dive"`
}

// QuestionResponse is returned to API clients when viewing questions.
type QuestionResponse struct {
	ID        uint                      `json:"id"`
	Prompt    string                    `json:"prompt"`
	Subject   string                    `json:"subject"`
	Marks     float64                   `json:"marks"`
	TeacherID uint                      `json:"teacher_id"`
	Examples  []QuestionExamplePayload  `json:"examples"`
	TestCases []QuestionTestCasePayload `json:"test_cases"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// NewQuestionResponse converts a Question model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	response := QuestionResponse{
		ID:        model.ID,
		Prompt:    model.Prompt,
		Subject:   model.Subject,
		Marks:     model.Marks,
		TeacherID: model.TeacherID,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}

	if len(model.Examples) > 0 {
		var examples []QuestionExamplePayload
		if err := json.Unmarshal(model.Examples, &examples); err == nil {
			response.Examples = examples
		}
	}

	if len(model.TestCases) > 0 {
		var cases []QuestionTestCasePayload
		if err := json.Unmarshal(model.TestCases, &cases); err == nil {
			response.TestCases = cases
		}
	}

	return response
}

// NewQuestionResponseSlice converts question models into DTOs.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}

	return responses
}
