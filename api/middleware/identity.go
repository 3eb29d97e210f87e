package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/plotvista/plotvista-backend/api/responses"
	"github.com/plotvista/plotvista-backend/internal/users"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
)

const subjectIDHeader = "X-Subject-Id"

type identityResolver interface {
	ResolveBySubjectID(ctx context.Context, subjectID string) (*users.UserDTO, error)
}

// Identity resolves the gateway-verified subject header to a local user row
// and seeds the request context. Requests without the header are rejected.
func Identity(resolver identityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subjectID := strings.TrimSpace(r.Header.Get(subjectIDHeader))
			if subjectID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity subject"))
				return
			}

			user, err := resolver.ResolveBySubjectID(r.Context(), subjectID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithSubjectID(r.Context(), subjectID)
			ctx = WithIdentity(ctx, user.ID.String(), string(user.Role), user.Email)
			if logg != nil {
				ctx = logg.WithUserID(ctx, user.ID.String())
				ctx = logg.WithActorRole(ctx, string(user.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalIdentity resolves the subject header when present but lets
// anonymous requests through. Public booking uses it to link guest history.
func OptionalIdentity(resolver identityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subjectID := strings.TrimSpace(r.Header.Get(subjectIDHeader))
			if subjectID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithSubjectID(r.Context(), subjectID)
			if user, err := resolver.ResolveBySubjectID(r.Context(), subjectID); err == nil {
				ctx = WithIdentity(ctx, user.ID.String(), string(user.Role), user.Email)
				if logg != nil {
					ctx = logg.WithUserID(ctx, user.ID.String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
