package sensor

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
)

// MemoryStore keeps sensors in a map. The zero value is not usable; call NewMemoryStore.
type MemoryStore struct {
	// sensors maps identity to the stored record.
	sensors map[domain.SensorKey]domain.Sensor
	// mu protects sensors.
	mu sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store, optionally seeded with sensors.
func NewMemoryStore(seed ...domain.Sensor) *MemoryStore {
	s := &MemoryStore{
		sensors: make(map[domain.SensorKey]domain.Sensor, len(seed)),
	}

	for _, sensor := range seed {
		s.sensors[sensor.Key()] = sensor
	}

	return s
}

// Add stores the sensor.
func (s *MemoryStore) Add(_ context.Context, sensor domain.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sensors[sensor.Key()] = sensor

	return nil
}

// Remove deletes the sensor.
func (s *MemoryStore) Remove(_ context.Context, sensor domain.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sensors[sensor.Key()]; !ok {
		return fmt.Errorf("remove %s: %w", sensor.Key(), ErrNotFound)
	}

	delete(s.sensors, sensor.Key())

	return nil
}

// Update overwrites the stored active flag.
func (s *MemoryStore) Update(_ context.Context, sensor domain.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sensors[sensor.Key()]; !ok {
		return fmt.Errorf("update %s: %w", sensor.Key(), ErrNotFound)
	}

	s.sensors[sensor.Key()] = sensor

	return nil
}

// List returns a sorted copy of all sensors.
func (s *MemoryStore) List(_ context.Context) ([]domain.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := slices.Collect(maps.Values(s.sensors))
	domain.SortSensors(result)

	return result, nil
}

// Clear removes every sensor.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.sensors)

	return nil
}
