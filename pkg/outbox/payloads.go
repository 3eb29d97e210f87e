package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/plotvista/plotvista-backend/pkg/enums"
	pkgerrors "github.com/plotvista/plotvista-backend/pkg/errors"
)

// VisitRequestEventData is the payload carried by every visit request
// lifecycle event. Optional fields are set per transition.
type VisitRequestEventData struct {
	VisitRequestID    string  `json:"visit_request_id"`
	PlotID            string  `json:"plot_id"`
	PlotTitle         string  `json:"plot_title"`
	VisitorName       string  `json:"visitor_name"`
	VisitorEmail      string  `json:"visitor_email"`
	RequesterID       *string `json:"requester_id,omitempty"`
	AssignedManagerID *string `json:"assigned_manager_id,omitempty"`
	RejectionReason   *string `json:"rejection_reason,omitempty"`
	RequestedDate     string  `json:"requested_date"`
}

// LeaveRequestEventData is the payload carried by leave request events.
type LeaveRequestEventData struct {
	LeaveRequestID string  `json:"leave_request_id"`
	ManagerID      string  `json:"manager_id"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	Status         string  `json:"status"`
	DecisionReason *string `json:"decision_reason,omitempty"`
	DecidedByID    *string `json:"decided_by_id,omitempty"`
}

// DecodePayload unmarshals a raw outbox payload into the typed struct for the
// given event type. The worker uses this to route events to notifications.
func DecodePayload(eventType enums.OutboxEventType, raw json.RawMessage) (any, error) {
	switch eventType {
	case enums.EventVisitRequestSubmitted,
		enums.EventVisitRequestAssigned,
		enums.EventVisitRequestApproved,
		enums.EventVisitRequestRejected:
		var data VisitRequestEventData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("decode %s payload", eventType))
		}
		return &data, nil
	case enums.EventLeaveRequestSubmitted,
		enums.EventLeaveRequestDecided:
		var data LeaveRequestEventData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("decode %s payload", eventType))
		}
		return &data, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown outbox event type %q", eventType))
	}
}
