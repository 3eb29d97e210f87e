package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationVisitRequestSubmitted NotificationType = "VISIT_REQUEST_SUBMITTED"
	NotificationVisitRequestAssigned  NotificationType = "VISIT_REQUEST_ASSIGNED"
	NotificationVisitRequestUpdated   NotificationType = "VISIT_REQUEST_UPDATED"
	NotificationVisitRequestApproved  NotificationType = "VISIT_REQUEST_APPROVED"
	NotificationVisitRequestRejected  NotificationType = "VISIT_REQUEST_REJECTED"
	NotificationLeaveRequestSubmitted NotificationType = "LEAVE_REQUEST_SUBMITTED"
	NotificationLeaveRequestDecided   NotificationType = "LEAVE_REQUEST_DECIDED"
)

var validNotificationTypes = []NotificationType{
	NotificationVisitRequestSubmitted,
	NotificationVisitRequestAssigned,
	NotificationVisitRequestUpdated,
	NotificationVisitRequestApproved,
	NotificationVisitRequestRejected,
	NotificationLeaveRequestSubmitted,
	NotificationLeaveRequestDecided,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
