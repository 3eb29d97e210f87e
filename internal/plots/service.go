package plots

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/internal/projects"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
)

// PlotDTO is the transport shape for a sellable plot.
type PlotDTO struct {
	ID        uuid.UUID            `json:"id"`
	ProjectID *uuid.UUID           `json:"project_id,omitempty"`
	Title     string               `json:"title"`
	Location  string               `json:"location"`
	Status    enums.PlotStatus     `json:"status"`
	Project   *projects.ProjectDTO `json:"project,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// CreatePlotDTO carries admin input for a new plot.
type CreatePlotDTO struct {
	ProjectID *uuid.UUID `json:"project_id"`
	Title     string     `json:"title" validate:"required"`
	Location  string     `json:"location" validate:"required"`
	Status    string     `json:"status"`
}

// UpdatePlotDTO carries admin updates for an existing plot.
type UpdatePlotDTO struct {
	Title    *string `json:"title"`
	Location *string `json:"location"`
	Status   *string `json:"status"`
}

// Service defines plot operations.
type Service interface {
	Create(ctx context.Context, input CreatePlotDTO) (*PlotDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePlotDTO) (*PlotDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*PlotDTO, error)
	List(ctx context.Context, status string, projectID *uuid.UUID) ([]PlotDTO, error)
}

type service struct {
	repo Repository
}

// NewService wires the plots service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plots repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreatePlotDTO) (*PlotDTO, error) {
	title := strings.TrimSpace(input.Title)
	location := strings.TrimSpace(input.Location)
	if title == "" || location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and location required")
	}

	status := enums.PlotStatusAvailable
	if strings.TrimSpace(input.Status) != "" {
		parsed, err := enums.ParsePlotStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plot status").
				WithDetails(map[string]string{"field": "status"})
		}
		status = parsed
	}

	plot := &models.Plot{
		ProjectID: input.ProjectID,
		Title:     title,
		Location:  location,
		Status:    status,
	}
	if err := s.repo.Create(ctx, plot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plot")
	}
	return fromModel(plot), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePlotDTO) (*PlotDTO, error) {
	plot, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		plot.Title = title
	}
	if input.Location != nil {
		location := strings.TrimSpace(*input.Location)
		if location == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "location cannot be empty")
		}
		plot.Location = location
	}
	if input.Status != nil {
		status, err := enums.ParsePlotStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plot status")
		}
		plot.Status = status
	}

	if err := s.repo.Update(ctx, plot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plot")
	}
	return fromModel(plot), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "plot id required")
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete plot")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "plot not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PlotDTO, error) {
	plot, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromModel(plot), nil
}

func (s *service) List(ctx context.Context, status string, projectID *uuid.UUID) ([]PlotDTO, error) {
	filter := ListFilter{ProjectID: projectID}
	if strings.TrimSpace(status) != "" {
		parsed, err := enums.ParsePlotStatus(status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plot status filter")
		}
		filter.Status = &parsed
	}

	plots, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plots")
	}
	out := make([]PlotDTO, 0, len(plots))
	for i := range plots {
		out = append(out, *fromModel(&plots[i]))
	}
	return out, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Plot, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plot id required")
	}
	plot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plot")
	}
	return plot, nil
}

func fromModel(p *models.Plot) *PlotDTO {
	dto := &PlotDTO{
		ID:        p.ID,
		ProjectID: p.ProjectID,
		Title:     p.Title,
		Location:  p.Location,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Project != nil {
		dto.Project = &projects.ProjectDTO{
			ID:        p.Project.ID,
			Name:      p.Project.Name,
			Location:  p.Project.Location,
			CreatedAt: p.Project.CreatedAt,
			UpdatedAt: p.Project.UpdatedAt,
		}
	}
	return dto
}
