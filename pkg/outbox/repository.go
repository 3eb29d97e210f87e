package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/pkg/db/models"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
)

// Repository persists and drains outbox events.
type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, event *models.OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed outbox repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Insert(ctx context.Context, tx *gorm.DB, event *models.OutboxEvent) error {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	if err := conn.WithContext(ctx).Create(event).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert outbox event")
	}
	return nil
}

func (r *gormRepository) FetchUnpublished(ctx context.Context, limit int, maxAttempts int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Where("attempt_count < ?", maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch unpublished outbox events")
	}
	return events, nil
}

func (r *gormRepository) MarkPublished(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	now := time.Now().UTC()
	err := conn.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": now,
			"last_error":   nil,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark outbox event published")
	}
	return nil
}

func (r *gormRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error":    cause,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark outbox event failed")
	}
	return nil
}
