package cameras

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/internal/repo"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
)

// Repository exposes camera persistence.
type Repository interface {
	Create(ctx context.Context, camera *models.Camera) error
	Update(ctx context.Context, camera *models.Camera) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Camera, error)
	List(ctx context.Context, plotID *uuid.UUID) ([]models.Camera, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a cameras repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) Create(ctx context.Context, camera *models.Camera) error {
	return r.DB(ctx).Create(camera).Error
}

func (r *repositoryImpl) Update(ctx context.Context, camera *models.Camera) error {
	return r.DB(ctx).Save(camera).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.DB(ctx).Delete(&models.Camera{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Camera, error) {
	var camera models.Camera
	err := r.DB(ctx).Preload("Plot").First(&camera, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &camera, nil
}

func (r *repositoryImpl) List(ctx context.Context, plotID *uuid.UUID) ([]models.Camera, error) {
	query := r.DB(ctx).Model(&models.Camera{}).Preload("Plot")
	if plotID != nil {
		query = query.Where("plot_id = ?", *plotID)
	}

	var rows []models.Camera
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
