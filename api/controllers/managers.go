package controllers

import (
	"net/http"

	"github.com/plotvista/plotvista-backend/api/responses"
	usersvc "github.com/plotvista/plotvista-backend/internal/users"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
)

// ListManagers backs the admin assignment picker.
func ListManagers(svc usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		items, err := svc.ListManagers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}
