package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadgrade/backend/internal/models"
)

// StudentRepository provides lookups for students.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var students []models.Student
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}
