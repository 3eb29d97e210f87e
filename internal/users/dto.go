package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// UserDTO is the transport shape for a mirrored identity.
type UserDTO struct {
	ID        uuid.UUID  `json:"id"`
	SubjectID *string    `json:"subject_id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     *string    `json:"phone,omitempty"`
	Role      enums.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ManagerDTO extends the user shape with the assignment load used by the
// admin assignment view.
type ManagerDTO struct {
	UserDTO
	OpenAssignments int64 `json:"open_assignments"`
}

// IdentityEventDTO is the normalized payload extracted from an identity
// provider webhook event.
type IdentityEventDTO struct {
	SubjectID string
	Name      string
	Email     string
	Phone     *string
	Role      enums.Role
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		SubjectID: u.SubjectID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func managerFromLoad(m ManagerLoad) ManagerDTO {
	return ManagerDTO{
		UserDTO:         *FromModel(&m.User),
		OpenAssignments: m.OpenAssignments,
	}
}
