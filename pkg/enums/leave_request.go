package enums

import "fmt"

// LeaveRequestStatus represents the leave_request_status enum in Postgres.
type LeaveRequestStatus string

const (
	LeaveRequestPending  LeaveRequestStatus = "PENDING"
	LeaveRequestApproved LeaveRequestStatus = "APPROVED"
	LeaveRequestRejected LeaveRequestStatus = "REJECTED"
)

var validLeaveRequestStatuses = []LeaveRequestStatus{
	LeaveRequestPending,
	LeaveRequestApproved,
	LeaveRequestRejected,
}

// String implements fmt.Stringer.
func (s LeaveRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LeaveRequestStatus.
func (s LeaveRequestStatus) IsValid() bool {
	for _, candidate := range validLeaveRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLeaveRequestStatus converts raw input into a LeaveRequestStatus.
func ParseLeaveRequestStatus(value string) (LeaveRequestStatus, error) {
	for _, candidate := range validLeaveRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid leave request status %q", value)
}
