package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// Plot is one sellable land parcel. Visit bookings reference plots and are
// only accepted while the status is AVAILABLE.
type Plot struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID *uuid.UUID       `gorm:"column:project_id;type:uuid;index"`
	Title     string           `gorm:"type:text;not null"`
	Location  string           `gorm:"type:text;not null"`
	Status    enums.PlotStatus `gorm:"type:plot_status;not null;default:'AVAILABLE'"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`

	Project *Project `gorm:"foreignKey:ProjectID"`
}
