package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadgrade/backend/internal/models"
)

// QuestionFilter narrows question listings.
type QuestionFilter struct {
	TeacherID *uint
	Subject   *string
}

// QuestionRepository defines persistence operations for questions.
type QuestionRepository interface {
	List(ctx context.Context, filter QuestionFilter) ([]models.Question, error)
	GetByID(ctx context.Context, id uint) (models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) List(ctx context.Context, filter QuestionFilter) ([]models.Question, error) {
	query := r.db.WithContext(ctx).Model(&models.Question{})

	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}

	if filter.Subject != nil {
		query = query.Where("subject = ?", *filter.Subject)
	}

	var questions []models.Question
	if err := query.Order("created_at DESC").Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *questionRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var questions []models.Question
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Question{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
