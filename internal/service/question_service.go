package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/acadgrade/backend/internal/dto"
	"github.com/acadgrade/backend/internal/models"
	"github.com/acadgrade/backend/internal/repository"
)

// ErrQuestionNotFound indicates the question could not be located.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionService manages the teacher-owned question bank.
type QuestionService interface {
	Create(ctx context.Context, teacherID uint, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, teacherID, questionID uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, teacherID, questionID uint) error
	Get(ctx context.Context, questionID uint) (dto.QuestionResponse, error)
	List(ctx context.Context, filter repository.QuestionFilter) ([]dto.QuestionResponse, error)
}

type questionService struct {
	questions repository.QuestionRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewQuestionService constructs the question bank service. Prompts may
// carry markup authored by teachers, so they pass through a UGC
// sanitizer; example and test case payloads are raw program I/O and are
// stored untouched.
func NewQuestionService(questionRepo repository.QuestionRepository, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		questions: questionRepo,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Create(ctx context.Context, teacherID uint, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	examples, err := encodeJSON(payload.Examples)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	cases, err := encodeJSON(payload.TestCases)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		Prompt:    s.sanitizer.Sanitize(payload.Prompt),
		Subject:   payload.Subject,
		Marks:     payload.Marks,
		Examples:  examples,
		TestCases: cases,
		TeacherID: teacherID,
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().Uint("question_id", question.ID).Uint("teacher_id", teacherID).Msg("question created")
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Update(ctx context.Context, teacherID, questionID uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	if question.TeacherID != teacherID {
		return dto.QuestionResponse{}, ErrForbidden
	}

	if payload.Prompt != nil {
		question.Prompt = s.sanitizer.Sanitize(*payload.Prompt)
	}
	if payload.Subject != nil {
		question.Subject = *payload.Subject
	}
	if payload.Marks != nil {
		question.Marks = *payload.Marks
	}
	if payload.Examples != nil {
		examples, err := encodeJSON(payload.Examples)
		if err != nil {
			return dto.QuestionResponse{}, err
		}
		question.Examples = examples
	}
	if payload.TestCases != nil {
		cases, err := encodeJSON(payload.TestCases)
		if err != nil {
			return dto.QuestionResponse{}, err
		}
		question.TestCases = cases
	}

	if err := s.questions.Update(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().Uint("question_id", questionID).Msg("question updated")
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Delete(ctx context.Context, teacherID, questionID uint) error {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	if question.TeacherID != teacherID {
		return ErrForbidden
	}

	if err := s.questions.Delete(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	s.logger.Info().Uint("question_id", questionID).Msg("question deleted")
	return nil
}

func (s *questionService) Get(ctx context.Context, questionID uint) (dto.QuestionResponse, error) {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) List(ctx context.Context, filter repository.QuestionFilter) ([]dto.QuestionResponse, error) {
	questions, err := s.questions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewQuestionResponseSlice(questions), nil
}

func encodeJSON(value interface{}) (datatypes.JSON, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	return datatypes.JSON(encoded), nil
}
