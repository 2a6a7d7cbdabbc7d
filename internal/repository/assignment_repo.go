package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadgrade/backend/internal/models"
)

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	ListForTeacher(ctx context.Context, teacherID uint) ([]models.Assignment, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	ReplaceQuestions(ctx context.Context, assignment *models.Assignment, questions []models.Question) error
	ReplaceStudents(ctx context.Context, assignment *models.Assignment, students []models.Student) error
	Delete(ctx context.Context, id uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Assignment{}).
		Preload("Questions").
		Preload("Students")
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.baseQuery(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) ListForTeacher(ctx context.Context, teacherID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.baseQuery(ctx).
		Where("teacher_id = ?", teacherID).
		Order("due_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.baseQuery(ctx).
		Joins("JOIN assignment_students ON assignment_students.assignment_id = assignments.id").
		Where("assignment_students.student_id = ?", studentID).
		Order("due_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit("Questions", "Students").Save(assignment).Error
}

func (r *assignmentRepository) ReplaceQuestions(ctx context.Context, assignment *models.Assignment, questions []models.Question) error {
	return r.db.WithContext(ctx).Model(assignment).Association("Questions").Replace(questions)
}

func (r *assignmentRepository) ReplaceStudents(ctx context.Context, assignment *models.Assignment, students []models.Student) error {
	return r.db.WithContext(ctx).Model(assignment).Association("Students").Replace(students)
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Assignment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
