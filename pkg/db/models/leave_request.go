package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// LeaveRequest is a manager's time-off request awaiting an admin decision.
type LeaveRequest struct {
	ID             uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ManagerID      uuid.UUID                `gorm:"column:manager_id;type:uuid;not null;index"`
	StartDate      time.Time                `gorm:"column:start_date;not null"`
	EndDate        time.Time                `gorm:"column:end_date;not null"`
	Reason         string                   `gorm:"type:text;not null"`
	Status         enums.LeaveRequestStatus `gorm:"type:leave_request_status;not null;default:'PENDING'"`
	DecisionReason *string                  `gorm:"column:decision_reason;type:text"`
	DecidedByID    *uuid.UUID               `gorm:"column:decided_by_id;type:uuid"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Manager *User `gorm:"foreignKey:ManagerID"`
}
