package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/plotvista/plotvista-backend/pkg/db/models"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/outbox"
)

type fakeDirectory struct {
	admins []models.User
}

func (f *fakeDirectory) ListByRole(ctx context.Context, role enums.Role) ([]models.User, error) {
	if role == enums.RoleAdmin {
		return f.admins, nil
	}
	return nil, nil
}

func newRouter(t *testing.T, admins ...models.User) (*Router, *fakeRepository) {
	t.Helper()
	repo := &fakeRepository{}
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	router, err := NewRouter(repo, &fakeDirectory{admins: admins}, logg)
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return router, repo
}

func visitEvent(t *testing.T, eventType enums.OutboxEventType, data outbox.VisitRequestEventData) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateVisitRequest,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func TestRouterSubmittedFansOutToAdminsAndRequester(t *testing.T) {
	admin := models.User{ID: uuid.New(), Role: enums.RoleAdmin}
	router, repo := newRouter(t, admin)

	requester := uuid.New().String()
	event := visitEvent(t, enums.EventVisitRequestSubmitted, outbox.VisitRequestEventData{
		VisitRequestID: uuid.NewString(),
		PlotTitle:      "Plot 4",
		VisitorName:    "Asha",
		RequesterID:    &requester,
		RequestedDate:  "2026-09-20",
	})

	if err := router.Handle(context.Background(), nil, event); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(repo.created))
	}
	if repo.created[0].UserID != admin.ID {
		t.Fatalf("expected admin recipient first, got %s", repo.created[0].UserID)
	}
	if repo.created[0].Type != enums.NotificationVisitRequestSubmitted {
		t.Fatalf("unexpected type %s", repo.created[0].Type)
	}
}

func TestRouterSubmittedGuestSkipsRequesterRow(t *testing.T) {
	router, repo := newRouter(t)

	event := visitEvent(t, enums.EventVisitRequestSubmitted, outbox.VisitRequestEventData{
		VisitRequestID: uuid.NewString(),
		PlotTitle:      "Plot 4",
		VisitorName:    "Walk-in",
		RequestedDate:  "2026-09-20",
	})

	if err := router.Handle(context.Background(), nil, event); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no notifications for unlinked guest, got %d", len(repo.created))
	}
}

func TestRouterAssignedNotifiesManagerAndRequester(t *testing.T) {
	router, repo := newRouter(t)

	manager := uuid.New().String()
	requester := uuid.New().String()
	event := visitEvent(t, enums.EventVisitRequestAssigned, outbox.VisitRequestEventData{
		VisitRequestID:    uuid.NewString(),
		PlotTitle:         "Plot 4",
		VisitorName:       "Asha",
		AssignedManagerID: &manager,
		RequesterID:       &requester,
		RequestedDate:     "2026-09-20",
	})

	if err := router.Handle(context.Background(), nil, event); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(repo.created))
	}
	if repo.created[0].Type != enums.NotificationVisitRequestAssigned {
		t.Fatalf("expected manager assignment type, got %s", repo.created[0].Type)
	}
	if repo.created[1].Type != enums.NotificationVisitRequestUpdated {
		t.Fatalf("expected requester update type, got %s", repo.created[1].Type)
	}
}

func TestRouterRejectedCarriesReason(t *testing.T) {
	router, repo := newRouter(t)

	requester := uuid.New().String()
	reason := "double booked"
	event := visitEvent(t, enums.EventVisitRequestRejected, outbox.VisitRequestEventData{
		VisitRequestID:  uuid.NewString(),
		PlotTitle:       "Plot 4",
		VisitorName:     "Asha",
		RequesterID:     &requester,
		RejectionReason: &reason,
		RequestedDate:   "2026-09-20",
	})

	if err := router.Handle(context.Background(), nil, event); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	if repo.created[0].Message != "Your visit to Plot 4 was rejected: double booked" {
		t.Fatalf("unexpected message %q", repo.created[0].Message)
	}
}

func TestRouterLeaveDecidedNotifiesManager(t *testing.T) {
	router, repo := newRouter(t)

	managerID := uuid.New()
	reason := "coverage gap"
	payload, err := json.Marshal(outbox.LeaveRequestEventData{
		LeaveRequestID: uuid.NewString(),
		ManagerID:      managerID.String(),
		StartDate:      "2026-10-01",
		EndDate:        "2026-10-03",
		Status:         string(enums.LeaveRequestRejected),
		DecisionReason: &reason,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventLeaveRequestDecided,
		AggregateType: enums.AggregateLeaveRequest,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}

	if err := router.Handle(context.Background(), nil, event); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	if repo.created[0].UserID != managerID {
		t.Fatalf("expected manager recipient, got %s", repo.created[0].UserID)
	}
	if repo.created[0].Type != enums.NotificationLeaveRequestDecided {
		t.Fatalf("unexpected type %s", repo.created[0].Type)
	}
}

func TestRouterUnknownEventFails(t *testing.T) {
	router, _ := newRouter(t)

	event := models.OutboxEvent{
		ID:        uuid.New(),
		EventType: enums.OutboxEventType("mystery"),
		Payload:   json.RawMessage(`{}`),
	}
	if err := router.Handle(context.Background(), nil, event); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
