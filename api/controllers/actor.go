package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/plotvista/plotvista-backend/api/middleware"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
)

// callerIdentity resolves the authenticated caller seeded by the identity
// middleware. Handlers behind that middleware can rely on both values.
func callerIdentity(ctx context.Context) (uuid.UUID, enums.Role, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseRole(middleware.RoleFromContext(ctx))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}
	return userID, role, nil
}
