package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plotvista/plotvista-backend/internal/repo"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// ManagerLoad pairs a manager with the number of open visit requests assigned
// to them, for the assignment UI.
type ManagerLoad struct {
	models.User
	OpenAssignments int64 `gorm:"column:open_assignments"`
}

// Repository exposes user persistence operations.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	UpsertBySubjectID(ctx context.Context, user *models.User) error
	DeleteBySubjectID(ctx context.Context, subjectID string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindBySubjectID(ctx context.Context, subjectID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListManagers(ctx context.Context) ([]ManagerLoad, error)
	ListByRole(ctx context.Context, role enums.Role) ([]models.User, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a users repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) Create(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Create(user).Error
}

// UpsertBySubjectID inserts the mirrored identity row or refreshes its
// contact fields and role when the subject id already exists.
func (r *repositoryImpl) UpsertBySubjectID(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "phone", "role", "updated_at"}),
	}).Create(user).Error
}

func (r *repositoryImpl) DeleteBySubjectID(ctx context.Context, subjectID string) (bool, error) {
	result := r.DB(ctx).Where("subject_id = ?", subjectID).Delete(&models.User{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) FindBySubjectID(ctx context.Context, subjectID string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "subject_id = ?", subjectID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) ListManagers(ctx context.Context) ([]ManagerLoad, error) {
	var managers []ManagerLoad
	err := r.DB(ctx).
		Model(&models.User{}).
		Select(`users.*, (
			SELECT COUNT(*) FROM visit_requests vr
			WHERE vr.assigned_manager_id = users.id
			  AND vr.status IN ?
		) AS open_assignments`, openStatusStrings()).
		Where("role = ?", enums.RoleManager).
		Order("users.name ASC").
		Find(&managers).Error
	if err != nil {
		return nil, err
	}
	return managers, nil
}

func (r *repositoryImpl) ListByRole(ctx context.Context, role enums.Role) ([]models.User, error) {
	var out []models.User
	err := r.DB(ctx).
		Where("role = ?", role).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func openStatusStrings() []string {
	out := make([]string, 0, len(enums.OpenVisitRequestStatuses))
	for _, status := range enums.OpenVisitRequestStatuses {
		out = append(out, string(status))
	}
	return out
}
