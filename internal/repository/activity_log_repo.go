package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/acadgrade/backend/internal/models"
)

// ActivityLogRepository persists auditable teacher actions.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	ListByActor(ctx context.Context, actorID uint, limit int) ([]models.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository instantiates the repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) ListByActor(ctx context.Context, actorID uint, limit int) ([]models.ActivityLog, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("actor_id = ?", actorID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.ActivityLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
