package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// User mirrors an identity owned by the external identity provider. Rows are
// written by the identity webhook or created ad hoc during guest bookings;
// SubjectID is the provider's stable key and is null for purely local guests.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubjectID *string    `gorm:"column:subject_id;uniqueIndex:ux_users_subject_id"`
	Name      string     `gorm:"type:text;not null"`
	Email     string     `gorm:"type:text;not null;index"`
	Phone     *string    `gorm:"column:phone"`
	Role      enums.Role `gorm:"type:user_role;not null;default:'GUEST'"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
