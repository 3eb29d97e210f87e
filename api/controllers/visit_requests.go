package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plotvista/plotvista-backend/api/middleware"
	"github.com/plotvista/plotvista-backend/api/responses"
	"github.com/plotvista/plotvista-backend/api/validators"
	visitsvc "github.com/plotvista/plotvista-backend/internal/visitrequests"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
)

// SubmitVisitRequest accepts a public booking. When the caller carries an
// identity header the booking is linked to their account, otherwise the
// service resolves or creates a guest by email.
func SubmitVisitRequest(svc visitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "visit request service unavailable"))
			return
		}

		var payload visitsvc.SubmitDTO
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload.SubjectID = middleware.SubjectIDFromContext(r.Context())
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			if userID, err := uuid.Parse(raw); err == nil {
				payload.UserID = &userID
			}
		}

		created, err := svc.Submit(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListVisitRequests scopes the listing to the caller. Managers may request
// their assignment queue with ?manager_queue=true, admins see everything,
// everyone else sees their own bookings.
func ListVisitRequests(svc visitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "visit request service unavailable"))
			return
		}

		userID, role, err := callerIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := visitsvc.ListParams{
			Viewer:       visitsvc.Actor{UserID: userID, Role: role},
			ViewerEmail:  middleware.EmailFromContext(r.Context()),
			ManagerQueue: validators.ParseQueryBool(r, "manager_queue"),
		}

		items, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

func GetVisitRequest(svc visitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "visit request service unavailable"))
			return
		}

		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, role, err := callerIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := visitsvc.Actor{UserID: userID, Role: role}
		item, err := svc.Get(r.Context(), requestID, viewer, middleware.EmailFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

type assignVisitRequest struct {
	ManagerID string `json:"manager_id" validate:"required"`
}

// AssignVisitRequest routes a pending booking to a manager. Admin only.
func AssignVisitRequest(svc visitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "visit request service unavailable"))
			return
		}

		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignVisitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		managerID, err := validators.ParsePathUUID(payload.ManagerID, "manager_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Assign(r.Context(), requestID, managerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// AcceptVisitRequest approves an assigned booking and issues the entry pass.
func AcceptVisitRequest(svc visitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "visit request service unavailable"))
			return
		}

		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, role, err := callerIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Accept(r.Context(), requestID, visitsvc.Actor{UserID: userID, Role: role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

type rejectVisitRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RejectVisitRequest declines an assigned booking with a reason.
func RejectVisitRequest(svc visitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "visit request service unavailable"))
			return
		}

		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, role, err := callerIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload rejectVisitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Reject(r.Context(), requestID, visitsvc.Actor{UserID: userID, Role: role}, strings.TrimSpace(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}
