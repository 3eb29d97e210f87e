package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/plotvista/plotvista-backend/api/responses"
	usersvc "github.com/plotvista/plotvista-backend/internal/users"
	"github.com/plotvista/plotvista-backend/pkg/config"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	redispkg "github.com/plotvista/plotvista-backend/pkg/redis"
)

// identityEvent is the envelope the identity provider delivers. Deletions
// carry only the subject id.
type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID        string  `json:"id"`
		FirstName string  `json:"first_name"`
		LastName  string  `json:"last_name"`
		Email     string  `json:"email"`
		Phone     *string `json:"phone,omitempty"`
		Role      string  `json:"role"`
	} `json:"data"`
}

type eventGuard interface {
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// IdentityWebhook ingests user lifecycle events from the identity provider,
// keeping the local user directory in sync.
func IdentityWebhook(svc usersvc.Service, cfg config.IdentityWebhookConfig, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		wh, err := svix.NewWebhook(cfg.SigningSecret)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "webhook verifier"))
			return
		}
		if err := wh.Verify(payload, r.Header); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
			return
		}

		var event identityEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		subjectID := strings.TrimSpace(event.Data.ID)
		if subjectID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event subject id missing"))
			return
		}

		eventID := strings.TrimSpace(r.Header.Get("svix-id"))
		if eventID == "" {
			eventID = fmt.Sprintf("%s:%s", event.Type, subjectID)
		}

		dedupKey := redispkg.WebhookEventKey("identity", eventID)
		if guard != nil {
			fresh, guardErr := guard.SetNX(ctx, dedupKey, "1", cfg.EventTTL)
			if guardErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, guardErr, "check event dedup"))
				return
			}
			if !fresh {
				responses.WriteSuccess(w, nil)
				return
			}
		}

		if err := handleIdentityEvent(ctx, svc, event, subjectID); err != nil {
			if guard != nil {
				_ = guard.Del(ctx, dedupKey)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("identity event %s processed", event.Type))
		}
		responses.WriteSuccess(w, nil)
	}
}

func handleIdentityEvent(ctx context.Context, svc usersvc.Service, event identityEvent, subjectID string) error {
	switch event.Type {
	case "user.created", "user.updated":
		role, err := enums.ParseRole(event.Data.Role)
		if err != nil {
			role = enums.RoleClient
		}
		name := strings.TrimSpace(event.Data.FirstName + " " + event.Data.LastName)
		_, err = svc.SyncUpsert(ctx, usersvc.IdentityEventDTO{
			SubjectID: subjectID,
			Name:      name,
			Email:     strings.ToLower(strings.TrimSpace(event.Data.Email)),
			Phone:     event.Data.Phone,
			Role:      role,
		})
		return err
	case "user.deleted":
		return svc.SyncDelete(ctx, subjectID)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported event type").WithDetails(map[string]any{"type": event.Type})
	}
}
