package sensor

import (
	"context"
	"errors"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
)

// Store defines persistence operations for sensors.
// Sensors are identified by name and type; the active flag is data.
type Store interface {
	// Add stores the sensor, replacing a stored sensor with the same identity.
	Add(ctx context.Context, sensor domain.Sensor) error
	// Remove deletes the sensor. It returns ErrNotFound when nothing was stored.
	Remove(ctx context.Context, sensor domain.Sensor) error
	// Update overwrites the active flag. It returns ErrNotFound when nothing was stored.
	Update(ctx context.Context, sensor domain.Sensor) error
	// List returns all stored sensors ordered by name and type.
	List(ctx context.Context) ([]domain.Sensor, error)
	// Clear removes every sensor.
	Clear(ctx context.Context) error
}

// ErrNotFound is returned when the sensor is not stored.
var ErrNotFound = errors.New("sensor not found")
