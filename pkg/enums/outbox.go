package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateVisitRequest OutboxAggregateType = "visit_request"
	AggregateLeaveRequest OutboxAggregateType = "leave_request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateVisitRequest,
	AggregateLeaveRequest,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventVisitRequestSubmitted OutboxEventType = "visit_request_submitted"
	EventVisitRequestAssigned  OutboxEventType = "visit_request_assigned"
	EventVisitRequestApproved  OutboxEventType = "visit_request_approved"
	EventVisitRequestRejected  OutboxEventType = "visit_request_rejected"
	EventLeaveRequestSubmitted OutboxEventType = "leave_request_submitted"
	EventLeaveRequestDecided   OutboxEventType = "leave_request_decided"
)

var validOutboxEventTypes = []OutboxEventType{
	EventVisitRequestSubmitted,
	EventVisitRequestAssigned,
	EventVisitRequestApproved,
	EventVisitRequestRejected,
	EventLeaveRequestSubmitted,
	EventLeaveRequestDecided,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
