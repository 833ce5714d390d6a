package alarm

import (
	"fmt"
	"strings"
)

// ArmingStatus describes whether the system is disarmed or armed in one of its modes.
type ArmingStatus string

const (
	// Disarmed means sensors and the camera never escalate the alarm.
	Disarmed ArmingStatus = "DISARMED"
	// ArmedHome is used while somebody is at home; a cat sighting raises the alarm immediately.
	ArmedHome ArmingStatus = "ARMED_HOME"
	// ArmedAway is used while the house is empty.
	ArmedAway ArmingStatus = "ARMED_AWAY"
)

// AlarmStatus is the three-level escalation state of the alarm.
type AlarmStatus string

const (
	// NoAlarm means nothing is triggered.
	NoAlarm AlarmStatus = "NO_ALARM"
	// PendingAlarm means a single trigger was observed and the system waits for confirmation.
	PendingAlarm AlarmStatus = "PENDING_ALARM"
	// Alarm means the alarm is sounding.
	Alarm AlarmStatus = "ALARM"
)

// ArmingStatuses lists all arming statuses in declaration order.
func ArmingStatuses() []ArmingStatus {
	return []ArmingStatus{Disarmed, ArmedHome, ArmedAway}
}

// AlarmStatuses lists all alarm statuses in escalation order.
func AlarmStatuses() []AlarmStatus {
	return []AlarmStatus{NoAlarm, PendingAlarm, Alarm}
}

// Valid reports whether s is one of the declared arming statuses.
func (s ArmingStatus) Valid() bool {
	switch s {
	case Disarmed, ArmedHome, ArmedAway:
		return true
	default:
		return false
	}
}

// IsArmed reports whether the system is armed in any mode.
func (s ArmingStatus) IsArmed() bool {
	return s == ArmedHome || s == ArmedAway
}

// Description returns a human readable label.
func (s ArmingStatus) Description() string {
	switch s {
	case Disarmed:
		return "Disarmed"
	case ArmedHome:
		return "Armed - At Home"
	case ArmedAway:
		return "Armed - Away"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is one of the declared alarm statuses.
func (s AlarmStatus) Valid() bool {
	switch s {
	case NoAlarm, PendingAlarm, Alarm:
		return true
	default:
		return false
	}
}

// Description returns a human readable label.
func (s AlarmStatus) Description() string {
	switch s {
	case NoAlarm:
		return "Cool and Good"
	case PendingAlarm:
		return "I'm in Danger..."
	case Alarm:
		return "Awooga!"
	default:
		return "Unknown"
	}
}

// ParseArmingStatus converts user input such as "armed-home" or "ARMED_HOME" into an ArmingStatus.
// The short forms "home" and "away" are accepted too.
func ParseArmingStatus(s string) (ArmingStatus, error) {
	normalized := normalizeEnum(s)

	switch normalized {
	case "HOME":
		return ArmedHome, nil
	case "AWAY":
		return ArmedAway, nil
	}

	status := ArmingStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("unknown arming status %q", s)
	}

	return status, nil
}

// ParseAlarmStatus converts user input such as "pending-alarm" into an AlarmStatus.
func ParseAlarmStatus(s string) (AlarmStatus, error) {
	status := AlarmStatus(normalizeEnum(s))
	if !status.Valid() {
		return "", fmt.Errorf("unknown alarm status %q", s)
	}

	return status, nil
}

// normalizeEnum upper-cases the input and replaces dashes and spaces with underscores.
func normalizeEnum(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))

	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}
