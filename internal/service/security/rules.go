package security

import (
	"slices"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
)

// trigger is the event that asks the rule table for a new alarm status.
type trigger uint8

const (
	// triggerDisarmed fires when the arming status is set to DISARMED.
	triggerDisarmed trigger = iota + 1
	// triggerArmed fires after an armed status was applied and all sensors were reset.
	triggerArmed
	// triggerSensorActivated fires when a sensor is asked to become active.
	triggerSensorActivated
	// triggerSensorDeactivated fires when a sensor is asked to become inactive.
	triggerSensorDeactivated
	// triggerCatDetected fires when a scan found a cat.
	triggerCatDetected
	// triggerNoCatDetected fires when a scan found no cat.
	triggerNoCatDetected
)

func (t trigger) String() string {
	switch t {
	case triggerDisarmed:
		return "disarmed"
	case triggerArmed:
		return "armed"
	case triggerSensorActivated:
		return "sensor_activated"
	case triggerSensorDeactivated:
		return "sensor_deactivated"
	case triggerCatDetected:
		return "cat_detected"
	case triggerNoCatDetected:
		return "no_cat_detected"
	default:
		return "unknown"
	}
}

// facts is everything a rule may look at.
type facts struct {
	// alarm is the alarm status before the event.
	alarm domain.AlarmStatus
	// arming is the arming status after the event.
	arming domain.ArmingStatus
	// wasActive tells whether the changed sensor was active before the event.
	wasActive bool
	// anyActive tells whether any sensor is active after the event.
	anyActive bool
	// catDetected is the remembered result of the last scan.
	catDetected bool
}

// rule is one row of the decision table.
// Empty alarm or arming lists match any value; a nil guard always passes.
type rule struct {
	name    string
	trigger trigger
	alarm   []domain.AlarmStatus
	arming  []domain.ArmingStatus
	guard   func(facts) bool
	next    domain.AlarmStatus
}

// matches reports whether the row applies to the event.
func (r *rule) matches(t trigger, f facts) bool {
	if r.trigger != t {
		return false
	}

	if len(r.alarm) > 0 && !slices.Contains(r.alarm, f.alarm) {
		return false
	}

	if len(r.arming) > 0 && !slices.Contains(r.arming, f.arming) {
		return false
	}

	return r.guard == nil || r.guard(f)
}

var (
	// armedStatuses are the modes in which sensors escalate the alarm.
	armedStatuses = []domain.ArmingStatus{domain.ArmedHome, domain.ArmedAway}

	// rules is the ordered decision table. The first matching row wins;
	// when nothing matches the alarm status stays as it is.
	//
	// Sensor events are never evaluated while the alarm is sounding:
	// the controller drops them before consulting the table.
	//
	//nolint:gochecknoglobals // Immutable lookup table.
	rules = []rule{
		{
			name:    "disarm clears the alarm",
			trigger: triggerDisarmed,
			next:    domain.NoAlarm,
		},
		{
			name:    "arming at home with a cat in view",
			trigger: triggerArmed,
			arming:  []domain.ArmingStatus{domain.ArmedHome},
			guard:   func(f facts) bool { return f.catDetected },
			next:    domain.Alarm,
		},
		{
			name:    "first trigger while armed",
			trigger: triggerSensorActivated,
			alarm:   []domain.AlarmStatus{domain.NoAlarm},
			arming:  armedStatuses,
			next:    domain.PendingAlarm,
		},
		{
			name:    "trigger while pending",
			trigger: triggerSensorActivated,
			alarm:   []domain.AlarmStatus{domain.PendingAlarm},
			arming:  armedStatuses,
			next:    domain.Alarm,
		},
		{
			name:    "last active sensor cleared while pending",
			trigger: triggerSensorDeactivated,
			alarm:   []domain.AlarmStatus{domain.PendingAlarm},
			guard:   func(f facts) bool { return f.wasActive && !f.anyActive },
			next:    domain.NoAlarm,
		},
		{
			name:    "cat while armed at home",
			trigger: triggerCatDetected,
			arming:  []domain.ArmingStatus{domain.ArmedHome},
			next:    domain.Alarm,
		},
		{
			name:    "no cat and nothing triggered",
			trigger: triggerNoCatDetected,
			guard:   func(f facts) bool { return !f.anyActive },
			next:    domain.NoAlarm,
		},
	}
)

// decide returns the alarm status after the event and the name of the row that
// produced it. When no row matches it returns the current status and an empty name.
func decide(t trigger, f facts) (domain.AlarmStatus, string) {
	for i := range rules {
		if rules[i].matches(t, f) {
			return rules[i].next, rules[i].name
		}
	}

	return f.alarm, ""
}
