package enums

import "fmt"

// VisitRequestStatus represents the visit_request_status enum in Postgres.
//
// Lifecycle: PENDING -> ASSIGNED -> APPROVED | REJECTED. APPROVED and
// REJECTED are terminal.
type VisitRequestStatus string

const (
	VisitRequestPending  VisitRequestStatus = "PENDING"
	VisitRequestAssigned VisitRequestStatus = "ASSIGNED"
	VisitRequestApproved VisitRequestStatus = "APPROVED"
	VisitRequestRejected VisitRequestStatus = "REJECTED"
)

var validVisitRequestStatuses = []VisitRequestStatus{
	VisitRequestPending,
	VisitRequestAssigned,
	VisitRequestApproved,
	VisitRequestRejected,
}

// OpenVisitRequestStatuses are the states in which a booking still blocks a
// duplicate submission for the same plot and visitor.
var OpenVisitRequestStatuses = []VisitRequestStatus{
	VisitRequestPending,
	VisitRequestAssigned,
	VisitRequestApproved,
}

// String implements fmt.Stringer.
func (s VisitRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known VisitRequestStatus.
func (s VisitRequestStatus) IsValid() bool {
	for _, candidate := range validVisitRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the status counts as an open booking.
func (s VisitRequestStatus) IsOpen() bool {
	for _, candidate := range OpenVisitRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s VisitRequestStatus) IsTerminal() bool {
	return s == VisitRequestApproved || s == VisitRequestRejected
}

// ParseVisitRequestStatus converts raw input into a VisitRequestStatus.
func ParseVisitRequestStatus(value string) (VisitRequestStatus, error) {
	for _, candidate := range validVisitRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid visit request status %q", value)
}
