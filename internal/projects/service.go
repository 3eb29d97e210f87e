package projects

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/pkg/db/models"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
)

// ProjectDTO is the transport shape for a development project.
type ProjectDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProjectDTO carries admin input for a new project.
type CreateProjectDTO struct {
	Name     string  `json:"name" validate:"required"`
	Location *string `json:"location"`
}

// Service defines project operations.
type Service interface {
	Create(ctx context.Context, input CreateProjectDTO) (*ProjectDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProjectDTO, error)
	List(ctx context.Context) ([]ProjectDTO, error)
}

type service struct {
	repo Repository
}

// NewService wires the projects service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "projects repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateProjectDTO) (*ProjectDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name required").
			WithDetails(map[string]string{"field": "name"})
	}

	project := &models.Project{Name: name, Location: input.Location}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create project")
	}
	return fromModel(project), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProjectDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	return fromModel(project), nil
}

func (s *service) List(ctx context.Context) ([]ProjectDTO, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list projects")
	}
	out := make([]ProjectDTO, 0, len(projects))
	for i := range projects {
		out = append(out, *fromModel(&projects[i]))
	}
	return out, nil
}

func fromModel(p *models.Project) *ProjectDTO {
	return &ProjectDTO{
		ID:        p.ID,
		Name:      p.Name,
		Location:  p.Location,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
