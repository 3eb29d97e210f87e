package leaverequests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/internal/repo"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// ListFilter narrows a leave request listing.
type ListFilter struct {
	ManagerID *uuid.UUID
	Status    *enums.LeaveRequestStatus
}

// Repository exposes leave request persistence. Decisions are written with a
// conditional update so concurrent admins cannot both win.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lr *models.LeaveRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LeaveRequest, error)
	List(ctx context.Context, filter ListFilter) ([]models.LeaveRequest, error)
	HasOverlap(ctx context.Context, managerID uuid.UUID, start, end time.Time) (bool, error)
	MarkDecided(ctx context.Context, id uuid.UUID, status enums.LeaveRequestStatus, decidedBy uuid.UUID, reason *string, now time.Time) (bool, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a leave requests repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	return &repositoryImpl{Base: r.Tx(tx)}
}

func (r *repositoryImpl) Create(ctx context.Context, lr *models.LeaveRequest) error {
	return r.DB(ctx).Create(lr).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.LeaveRequest, error) {
	var lr models.LeaveRequest
	err := r.DB(ctx).Preload("Manager").First(&lr, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.LeaveRequest, error) {
	query := r.DB(ctx).Model(&models.LeaveRequest{}).Preload("Manager")
	if filter.ManagerID != nil {
		query = query.Where("manager_id = ?", *filter.ManagerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var rows []models.LeaveRequest
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) HasOverlap(ctx context.Context, managerID uuid.UUID, start, end time.Time) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.LeaveRequest{}).
		Where("manager_id = ?", managerID).
		Where("status IN ?", []string{string(enums.LeaveRequestPending), string(enums.LeaveRequestApproved)}).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) MarkDecided(ctx context.Context, id uuid.UUID, status enums.LeaveRequestStatus, decidedBy uuid.UUID, reason *string, now time.Time) (bool, error) {
	result := r.DB(ctx).
		Model(&models.LeaveRequest{}).
		Where("id = ? AND status = ?", id, enums.LeaveRequestPending).
		Updates(map[string]any{
			"status":          status,
			"decided_by_id":   decidedBy,
			"decision_reason": reason,
			"updated_at":      now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
