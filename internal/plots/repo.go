package plots

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/internal/repo"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// ListFilter narrows plot listings.
type ListFilter struct {
	Status    *enums.PlotStatus
	ProjectID *uuid.UUID
}

// Repository exposes plot persistence operations.
type Repository interface {
	Create(ctx context.Context, plot *models.Plot) error
	Update(ctx context.Context, plot *models.Plot) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plot, error)
	List(ctx context.Context, filter ListFilter) ([]models.Plot, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PlotStatus) (bool, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a plots repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) Create(ctx context.Context, plot *models.Plot) error {
	return r.DB(ctx).Create(plot).Error
}

func (r *repositoryImpl) Update(ctx context.Context, plot *models.Plot) error {
	return r.DB(ctx).Save(plot).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.DB(ctx).Delete(&models.Plot{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Plot, error) {
	var plot models.Plot
	if err := r.DB(ctx).Preload("Project").First(&plot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plot, nil
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.Plot, error) {
	query := r.DB(ctx).Model(&models.Plot{}).Preload("Project")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}

	var plots []models.Plot
	if err := query.Order("created_at DESC").Find(&plots).Error; err != nil {
		return nil, err
	}
	return plots, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PlotStatus) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Plot{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
