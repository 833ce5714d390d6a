package alarm

import "time"

// State represents the controller status at a specific point in time.
type State struct {
	// Timestamp is when the state was last changed.
	Timestamp time.Time `yaml:"timestamp"`
	// ArmingStatus is the current arming mode.
	ArmingStatus ArmingStatus `yaml:"arming_status"`
	// AlarmStatus is the current escalation level.
	AlarmStatus AlarmStatus `yaml:"alarm_status"`
	// CatDetected is the result of the most recent image scan.
	CatDetected bool `yaml:"cat_detected"`
}

// DefaultState returns a disarmed state without alarm.
func DefaultState() *State {
	return &State{
		ArmingStatus: Disarmed,
		AlarmStatus:  NoAlarm,
	}
}

// Clone returns a copy of the state to avoid leaking internal references.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// Normalize replaces unknown values with defaults and enforces that a
// disarmed system never reports an alarm.
func (s *State) Normalize() {
	if !s.ArmingStatus.Valid() {
		s.ArmingStatus = Disarmed
	}

	if !s.AlarmStatus.Valid() || s.ArmingStatus == Disarmed {
		s.AlarmStatus = NoAlarm
	}
}
