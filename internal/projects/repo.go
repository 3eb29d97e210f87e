package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/internal/repo"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
)

// Repository exposes project persistence operations.
type Repository interface {
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a projects repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) Create(ctx context.Context, project *models.Project) error {
	return r.DB(ctx).Create(project).Error
}

func (r *repositoryImpl) Update(ctx context.Context, project *models.Project) error {
	return r.DB(ctx).Save(project).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.DB(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repositoryImpl) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.DB(ctx).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}
