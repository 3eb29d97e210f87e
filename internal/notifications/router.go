package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/outbox"
)

type userDirectory interface {
	ListByRole(ctx context.Context, role enums.Role) ([]models.User, error)
}

// Router turns drained outbox events into notification rows. Guests without a
// linked account simply get no in-app row, their request still moves.
type Router struct {
	repo  Repository
	users userDirectory
	logg  *logger.Logger
}

// NewRouter builds an event router for the outbox drain loop.
func NewRouter(repo Repository, users userDirectory, logg *logger.Logger) (*Router, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Router{repo: repo, users: users, logg: logg}, nil
}

// Handle fans one event out to its recipients inside the caller's transaction.
func (r *Router) Handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	payload, err := outbox.DecodePayload(event.EventType, event.Payload)
	if err != nil {
		return err
	}

	var rows []models.Notification
	switch data := payload.(type) {
	case *outbox.VisitRequestEventData:
		rows, err = r.visitRows(ctx, event.EventType, data)
	case *outbox.LeaveRequestEventData:
		rows, err = r.leaveRows(ctx, event.EventType, data)
	default:
		return fmt.Errorf("unroutable payload for event %s", event.EventType)
	}
	if err != nil {
		return err
	}

	repo := r.repo.WithTx(tx)
	for i := range rows {
		if err := repo.Create(ctx, &rows[i]); err != nil {
			return err
		}
	}

	r.logg.Info(
		r.logg.WithFields(ctx, map[string]any{
			"event_id":   event.ID.String(),
			"event_type": string(event.EventType),
			"recipients": len(rows),
		}),
		"outbox event routed",
	)
	return nil
}

func (r *Router) visitRows(ctx context.Context, eventType enums.OutboxEventType, data *outbox.VisitRequestEventData) ([]models.Notification, error) {
	var rows []models.Notification

	switch eventType {
	case enums.EventVisitRequestSubmitted:
		admins, err := r.users.ListByRole(ctx, enums.RoleAdmin)
		if err != nil {
			return nil, err
		}
		for _, admin := range admins {
			rows = append(rows, row(admin.ID, enums.NotificationVisitRequestSubmitted,
				"New visit request",
				fmt.Sprintf("%s requested a visit to %s on %s", data.VisitorName, data.PlotTitle, data.RequestedDate)))
		}
		if recipient := parseRecipient(data.RequesterID); recipient != nil {
			rows = append(rows, row(*recipient, enums.NotificationVisitRequestSubmitted,
				"Visit request received",
				fmt.Sprintf("Your visit to %s on %s is pending assignment", data.PlotTitle, data.RequestedDate)))
		}

	case enums.EventVisitRequestAssigned:
		if manager := parseRecipient(data.AssignedManagerID); manager != nil {
			rows = append(rows, row(*manager, enums.NotificationVisitRequestAssigned,
				"Visit request assigned to you",
				fmt.Sprintf("%s requested a visit to %s on %s", data.VisitorName, data.PlotTitle, data.RequestedDate)))
		}
		if recipient := parseRecipient(data.RequesterID); recipient != nil {
			rows = append(rows, row(*recipient, enums.NotificationVisitRequestUpdated,
				"Visit request update",
				fmt.Sprintf("A manager was assigned to your visit to %s", data.PlotTitle)))
		}

	case enums.EventVisitRequestApproved:
		if recipient := parseRecipient(data.RequesterID); recipient != nil {
			rows = append(rows, row(*recipient, enums.NotificationVisitRequestApproved,
				"Visit approved",
				fmt.Sprintf("Your visit to %s on %s is approved, your entry pass is ready", data.PlotTitle, data.RequestedDate)))
		}

	case enums.EventVisitRequestRejected:
		if recipient := parseRecipient(data.RequesterID); recipient != nil {
			reason := ""
			if data.RejectionReason != nil {
				reason = ": " + *data.RejectionReason
			}
			rows = append(rows, row(*recipient, enums.NotificationVisitRequestRejected,
				"Visit rejected",
				fmt.Sprintf("Your visit to %s was rejected%s", data.PlotTitle, reason)))
		}

	default:
		return nil, fmt.Errorf("unsupported visit request event %s", eventType)
	}
	return rows, nil
}

func (r *Router) leaveRows(ctx context.Context, eventType enums.OutboxEventType, data *outbox.LeaveRequestEventData) ([]models.Notification, error) {
	switch eventType {
	case enums.EventLeaveRequestSubmitted:
		admins, err := r.users.ListByRole(ctx, enums.RoleAdmin)
		if err != nil {
			return nil, err
		}
		rows := make([]models.Notification, 0, len(admins))
		for _, admin := range admins {
			rows = append(rows, row(admin.ID, enums.NotificationLeaveRequestSubmitted,
				"New leave request",
				fmt.Sprintf("A manager requested leave from %s to %s", data.StartDate, data.EndDate)))
		}
		return rows, nil

	case enums.EventLeaveRequestDecided:
		manager, err := uuid.Parse(data.ManagerID)
		if err != nil {
			return nil, fmt.Errorf("invalid manager id in payload: %w", err)
		}
		message := fmt.Sprintf("Your leave from %s to %s was %s", data.StartDate, data.EndDate, data.Status)
		if data.DecisionReason != nil {
			message += ": " + *data.DecisionReason
		}
		return []models.Notification{
			row(manager, enums.NotificationLeaveRequestDecided, "Leave request decided", message),
		}, nil
	}
	return nil, fmt.Errorf("unsupported leave request event %s", eventType)
}

func row(userID uuid.UUID, kind enums.NotificationType, title, message string) models.Notification {
	return models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
}

func parseRecipient(raw *string) *uuid.UUID {
	if raw == nil {
		return nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}
