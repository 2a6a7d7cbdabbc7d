package service

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/acadgrade/backend/internal/models"
	"github.com/acadgrade/backend/internal/repository"
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder records auditable teacher actions (grading, reopens).
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

// ActivityService is the full audit-trail surface: recording plus the
// per-actor feed the teacher dashboard reads.
type ActivityService interface {
	ActivityRecorder
	Recent(ctx context.Context, actorID uint, limit int) ([]models.ActivityLog, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the audit-trail service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) error {
	log := models.ActivityLog{
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   datatypes.JSONMap(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &log); err != nil {
		s.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to persist activity entry")
		return err
	}

	return nil
}

func (s *activityService) Recent(ctx context.Context, actorID uint, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	return s.repo.ListByActor(ctx, actorID, limit)
}
