package users

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
)

// Service mirrors identity provider events into local users and serves the
// manager directory.
type Service interface {
	SyncUpsert(ctx context.Context, event IdentityEventDTO) (*UserDTO, error)
	SyncDelete(ctx context.Context, subjectID string) error
	ResolveBySubjectID(ctx context.Context, subjectID string) (*UserDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	ListManagers(ctx context.Context) ([]ManagerDTO, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the users service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) SyncUpsert(ctx context.Context, event IdentityEventDTO) (*UserDTO, error) {
	subjectID := strings.TrimSpace(event.SubjectID)
	if subjectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject id required")
	}
	email := strings.ToLower(strings.TrimSpace(event.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	role := event.Role
	if !role.IsValid() {
		role = enums.RoleClient
	}

	user := &models.User{
		SubjectID: &subjectID,
		Name:      strings.TrimSpace(event.Name),
		Email:     email,
		Phone:     event.Phone,
		Role:      role,
	}
	if err := s.repo.UpsertBySubjectID(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mirror identity user")
	}

	stored, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mirrored user")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"subject_id": subjectID,
		"role":       string(stored.Role),
	}), "identity user mirrored")
	return FromModel(stored), nil
}

func (s *service) SyncDelete(ctx context.Context, subjectID string) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject id required")
	}

	removed, err := s.repo.DeleteBySubjectID(ctx, subjectID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete mirrored user")
	}
	if !removed {
		// Deletion events can arrive for subjects never mirrored; not an error.
		s.logg.Info(s.logg.WithField(ctx, "subject_id", subjectID), "identity delete for unknown subject")
	}
	return nil
}

func (s *service) ResolveBySubjectID(ctx context.Context, subjectID string) (*UserDTO, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "subject id required")
	}

	user, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown subject")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve subject")
	}
	return FromModel(user), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) ListManagers(ctx context.Context) ([]ManagerDTO, error) {
	managers, err := s.repo.ListManagers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list managers")
	}

	out := make([]ManagerDTO, 0, len(managers))
	for _, manager := range managers {
		out = append(out, managerFromLoad(manager))
	}
	return out, nil
}

func isNotFound(err error) bool {
	return stdErrors.Is(err, gorm.ErrRecordNotFound)
}
