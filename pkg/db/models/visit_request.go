package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// VisitRequest is one visitor's booking to tour a plot.
//
// Invariants enforced by the lifecycle service:
//   - PlotID never changes after creation.
//   - QRCode and ExpiresAt are set together and only while APPROVED.
//   - RejectionReason is set only while REJECTED.
//   - AssignedManagerID is null until the request leaves PENDING.
type VisitRequest struct {
	ID                uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string                   `gorm:"type:text;not null"`
	Email             string                   `gorm:"type:text;not null;index"`
	Phone             string                   `gorm:"type:text;not null"`
	Date              time.Time                `gorm:"column:date;not null"`
	Time              string                   `gorm:"column:time;type:text;not null"`
	PlotID            uuid.UUID                `gorm:"column:plot_id;type:uuid;not null;index"`
	UserID            *uuid.UUID               `gorm:"column:user_id;type:uuid;index"`
	Status            enums.VisitRequestStatus `gorm:"type:visit_request_status;not null;default:'PENDING'"`
	QRCode            *string                  `gorm:"column:qr_code;type:text"`
	ExpiresAt         *time.Time               `gorm:"column:expires_at"`
	RejectionReason   *string                  `gorm:"column:rejection_reason;type:text"`
	AssignedManagerID *uuid.UUID               `gorm:"column:assigned_manager_id;type:uuid;index"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Plot            *Plot `gorm:"foreignKey:PlotID"`
	User            *User `gorm:"foreignKey:UserID"`
	AssignedManager *User `gorm:"foreignKey:AssignedManagerID"`
}
