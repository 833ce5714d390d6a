package alarm

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SensorType is the kind of monitored point.
type SensorType string

const (
	// Door sensors report opened doors.
	Door SensorType = "DOOR"
	// Window sensors report opened windows.
	Window SensorType = "WINDOW"
	// Motion sensors report movement.
	Motion SensorType = "MOTION"
)

// Valid reports whether t is one of the declared sensor types.
func (t SensorType) Valid() bool {
	switch t {
	case Door, Window, Motion:
		return true
	default:
		return false
	}
}

// ParseSensorType converts user input such as "door" into a SensorType.
func ParseSensorType(s string) (SensorType, error) {
	t := SensorType(normalizeEnum(s))
	if !t.Valid() {
		return "", fmt.Errorf("unknown sensor type %q", s)
	}

	return t, nil
}

// SensorKey is the identity of a sensor.
// Two sensors with the same name and type are the same sensor.
type SensorKey struct {
	// Name is the user-facing sensor name.
	Name string
	// Type is the kind of monitored point.
	Type SensorType
}

// String renders the key as "name (TYPE)".
func (k SensorKey) String() string {
	return fmt.Sprintf("%s (%s)", k.Name, k.Type)
}

// Sensor is a monitored point with a binary active state.
type Sensor struct {
	// Name is the user-facing sensor name.
	Name string `yaml:"name" db:"name"`
	// Type is the kind of monitored point.
	Type SensorType `yaml:"type" db:"type"`
	// Active is true while the sensor is triggered.
	Active bool `yaml:"active" db:"active"`
}

// NewSensor returns an inactive sensor.
func NewSensor(name string, sensorType SensorType) Sensor {
	return Sensor{
		Name: name,
		Type: sensorType,
	}
}

// Key returns the identity of the sensor.
func (s Sensor) Key() SensorKey {
	return SensorKey{
		Name: s.Name,
		Type: s.Type,
	}
}

// Same reports whether both sensors share an identity, ignoring the active flag.
func (s Sensor) Same(other Sensor) bool {
	return s.Key() == other.Key()
}

// Validate checks that the sensor has a name and a known type.
func (s Sensor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("sensor name is required")
	}

	if !s.Type.Valid() {
		return fmt.Errorf("sensor %q: unknown type %q", s.Name, s.Type)
	}

	return nil
}

// SortSensors orders sensors by name, then by type, for stable output.
func SortSensors(sensors []Sensor) {
	slices.SortFunc(sensors, func(a, b Sensor) int {
		return cmp.Or(
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Type, b.Type),
		)
	})
}
