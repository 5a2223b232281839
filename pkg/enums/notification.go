package enums

import "fmt"

// NotificationKind classifies guardian-facing notifications.
type NotificationKind string

const (
	NotificationAbsence       NotificationKind = "absence"
	NotificationLateArrival   NotificationKind = "late_arrival"
	NotificationRankingUpdate NotificationKind = "ranking_update"
)

var validNotificationKinds = []NotificationKind{
	NotificationAbsence,
	NotificationLateArrival,
	NotificationRankingUpdate,
}

// IsValid reports whether the value is a known NotificationKind.
func (k NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
