package visitrequests

import (
	"time"

	"github.com/google/uuid"

	"github.com/plotvista/plotvista-backend/internal/plots"
	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
)

// SubmitDTO carries a booking submission. SubjectID is the external identity
// key of an authenticated submitter; both it and UserID are optional for
// guest bookings.
type SubmitDTO struct {
	Name      string     `json:"name" validate:"required"`
	Email     string     `json:"email" validate:"required"`
	Phone     string     `json:"phone" validate:"required"`
	Date      string     `json:"date" validate:"required"`
	Time      string     `json:"time" validate:"required"`
	PlotID    string     `json:"plot_id" validate:"required"`
	SubjectID string     `json:"-"`
	UserID    *uuid.UUID `json:"-"`
}

// Actor identifies the authenticated caller of a transition.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// ListParams scopes a listing to the viewer.
type ListParams struct {
	Viewer       Actor
	ViewerEmail  string
	ManagerQueue bool
}

// VisitRequestDTO is the transport shape for a booking. QRCode and ExpiresAt
// are surfaced only while the request is APPROVED.
type VisitRequestDTO struct {
	ID                uuid.UUID                `json:"id"`
	Name              string                   `json:"name"`
	Email             string                   `json:"email"`
	Phone             string                   `json:"phone"`
	Date              time.Time                `json:"date"`
	Time              string                   `json:"time"`
	PlotID            uuid.UUID                `json:"plot_id"`
	UserID            *uuid.UUID               `json:"user_id,omitempty"`
	Status            enums.VisitRequestStatus `json:"status"`
	QRCode            *string                  `json:"qr_code,omitempty"`
	ExpiresAt         *time.Time               `json:"expires_at,omitempty"`
	RejectionReason   *string                  `json:"rejection_reason,omitempty"`
	AssignedManagerID *uuid.UUID               `json:"assigned_manager_id,omitempty"`
	Plot              *plots.PlotDTO           `json:"plot,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

func fromModel(vr *models.VisitRequest) *VisitRequestDTO {
	if vr == nil {
		return nil
	}
	dto := &VisitRequestDTO{
		ID:                vr.ID,
		Name:              vr.Name,
		Email:             vr.Email,
		Phone:             vr.Phone,
		Date:              vr.Date,
		Time:              vr.Time,
		PlotID:            vr.PlotID,
		UserID:            vr.UserID,
		Status:            vr.Status,
		RejectionReason:   vr.RejectionReason,
		AssignedManagerID: vr.AssignedManagerID,
		CreatedAt:         vr.CreatedAt,
		UpdatedAt:         vr.UpdatedAt,
	}
	// Stored QR artifacts stay hidden unless the request is APPROVED.
	if vr.Status == enums.VisitRequestApproved {
		dto.QRCode = vr.QRCode
		dto.ExpiresAt = vr.ExpiresAt
	}
	if vr.Plot != nil {
		dto.Plot = &plots.PlotDTO{
			ID:        vr.Plot.ID,
			ProjectID: vr.Plot.ProjectID,
			Title:     vr.Plot.Title,
			Location:  vr.Plot.Location,
			Status:    vr.Plot.Status,
			CreatedAt: vr.Plot.CreatedAt,
			UpdatedAt: vr.Plot.UpdatedAt,
		}
	}
	return dto
}

func fromModels(rows []models.VisitRequest) []VisitRequestDTO {
	out := make([]VisitRequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out
}
