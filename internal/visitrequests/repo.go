package visitrequests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/internal/repo"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// ListFilter narrows visit request listings. Zero value lists everything.
type ListFilter struct {
	UserID            *uuid.UUID
	Email             string
	AssignedManagerID *uuid.UUID
}

// Repository exposes visit request persistence. All transitions are atomic
// conditional updates predicated on the expected current state; callers
// classify a zero-row result by re-reading the row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vr *models.VisitRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VisitRequest, error)
	List(ctx context.Context, filter ListFilter) ([]models.VisitRequest, error)
	HasOpenBooking(ctx context.Context, plotID uuid.UUID, userID *uuid.UUID, email string) (bool, error)
	MarkAssigned(ctx context.Context, id, managerID uuid.UUID, now time.Time) (bool, error)
	MarkApproved(ctx context.Context, id, managerID uuid.UUID, qrCode string, expiresAt, now time.Time) (bool, error)
	MarkRejected(ctx context.Context, id, managerID uuid.UUID, reason string, now time.Time) (bool, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a visit requests repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	return &repositoryImpl{Base: r.Tx(tx)}
}

func (r *repositoryImpl) Create(ctx context.Context, vr *models.VisitRequest) error {
	return r.DB(ctx).Create(vr).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.VisitRequest, error) {
	var vr models.VisitRequest
	err := r.DB(ctx).
		Preload("Plot").
		Preload("Plot.Project").
		First(&vr, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &vr, nil
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.VisitRequest, error) {
	query := r.DB(ctx).Model(&models.VisitRequest{}).Preload("Plot")

	switch {
	case filter.AssignedManagerID != nil:
		query = query.Where("assigned_manager_id = ?", *filter.AssignedManagerID)
	case filter.UserID != nil && filter.Email != "":
		// own history: linked rows plus guest rows matched by email
		query = query.Where("user_id = ? OR email = ?", *filter.UserID, filter.Email)
	case filter.UserID != nil:
		query = query.Where("user_id = ?", *filter.UserID)
	case filter.Email != "":
		query = query.Where("email = ?", filter.Email)
	}

	var rows []models.VisitRequest
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) HasOpenBooking(ctx context.Context, plotID uuid.UUID, userID *uuid.UUID, email string) (bool, error) {
	query := r.DB(ctx).
		Model(&models.VisitRequest{}).
		Where("plot_id = ?", plotID).
		Where("status IN ?", openStatusStrings())

	if userID != nil {
		query = query.Where("user_id = ? OR email = ?", *userID, email)
	} else {
		query = query.Where("email = ?", email)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) MarkAssigned(ctx context.Context, id, managerID uuid.UUID, now time.Time) (bool, error) {
	result := r.DB(ctx).
		Model(&models.VisitRequest{}).
		Where("id = ? AND status = ?", id, enums.VisitRequestPending).
		Updates(map[string]any{
			"status":              enums.VisitRequestAssigned,
			"assigned_manager_id": managerID,
			"updated_at":          now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkApproved(ctx context.Context, id, managerID uuid.UUID, qrCode string, expiresAt, now time.Time) (bool, error) {
	result := r.DB(ctx).
		Model(&models.VisitRequest{}).
		Where("id = ? AND status = ? AND assigned_manager_id = ?", id, enums.VisitRequestAssigned, managerID).
		Updates(map[string]any{
			"status":     enums.VisitRequestApproved,
			"qr_code":    qrCode,
			"expires_at": expiresAt,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkRejected(ctx context.Context, id, managerID uuid.UUID, reason string, now time.Time) (bool, error) {
	result := r.DB(ctx).
		Model(&models.VisitRequest{}).
		Where("id = ? AND status = ? AND assigned_manager_id = ?", id, enums.VisitRequestAssigned, managerID).
		Updates(map[string]any{
			"status":           enums.VisitRequestRejected,
			"rejection_reason": reason,
			"qr_code":          nil,
			"expires_at":       nil,
			"updated_at":       now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func openStatusStrings() []string {
	out := make([]string, 0, len(enums.OpenVisitRequestStatuses))
	for _, status := range enums.OpenVisitRequestStatuses {
		out = append(out, string(status))
	}
	return out
}
