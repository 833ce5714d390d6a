package sensor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
)

// filePermissions restricts the sensor file to its owner.
const filePermissions = 0o600

// FileStore persists sensors as a YAML document on disk.
// Every call reads and rewrites the whole file, which is fine for the
// handful of sensors a house has.
type FileStore struct {
	// path is the filesystem location of the YAML file.
	path string
	// mu serialises read-modify-write cycles.
	mu sync.Mutex
}

// fileDocument is the on-disk layout.
type fileDocument struct {
	Sensors []domain.Sensor `yaml:"sensors"`
}

// NewFileStore creates a store that reads/writes YAML at the provided path.
// The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: filepath.Clean(path),
	}
}

// Add stores the sensor, replacing one with the same identity.
func (s *FileStore) Add(_ context.Context, sensor domain.Sensor) error {
	return s.modify(func(sensors []domain.Sensor) ([]domain.Sensor, error) {
		idx := indexOf(sensors, sensor)
		if idx < 0 {
			return append(sensors, sensor), nil
		}

		sensors[idx] = sensor

		return sensors, nil
	})
}

// Remove deletes the sensor.
func (s *FileStore) Remove(_ context.Context, sensor domain.Sensor) error {
	return s.modify(func(sensors []domain.Sensor) ([]domain.Sensor, error) {
		idx := indexOf(sensors, sensor)
		if idx < 0 {
			return nil, fmt.Errorf("remove %s: %w", sensor.Key(), ErrNotFound)
		}

		return slices.Delete(sensors, idx, idx+1), nil
	})
}

// Update overwrites the stored active flag.
func (s *FileStore) Update(_ context.Context, sensor domain.Sensor) error {
	return s.modify(func(sensors []domain.Sensor) ([]domain.Sensor, error) {
		idx := indexOf(sensors, sensor)
		if idx < 0 {
			return nil, fmt.Errorf("update %s: %w", sensor.Key(), ErrNotFound)
		}

		sensors[idx] = sensor

		return sensors, nil
	})
}

// List returns all sensors sorted by name and type.
func (s *FileStore) List(_ context.Context) ([]domain.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sensors, err := s.read()
	if err != nil {
		return nil, err
	}

	domain.SortSensors(sensors)

	return sensors, nil
}

// Clear removes every sensor.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(nil)
}

// modify runs fn over the stored sensors under the lock and writes the result back.
func (s *FileStore) modify(fn func([]domain.Sensor) ([]domain.Sensor, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sensors, err := s.read()
	if err != nil {
		return err
	}

	sensors, err = fn(sensors)
	if err != nil {
		return err
	}

	return s.write(sensors)
}

// read loads the document; a missing file means no sensors.
func (s *FileStore) read() ([]domain.Sensor, error) {
	contents, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read sensor file: %w", err)
	}

	var doc fileDocument
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode sensor file: %w", err)
	}

	return doc.Sensors, nil
}

// write replaces the document on disk.
func (s *FileStore) write(sensors []domain.Sensor) error {
	domain.SortSensors(sensors)

	data, err := yaml.Marshal(&fileDocument{Sensors: sensors})
	if err != nil {
		return fmt.Errorf("encode sensors: %w", err)
	}

	if err = os.WriteFile(s.path, data, filePermissions); err != nil {
		return fmt.Errorf("write sensor file: %w", err)
	}

	return nil
}

// indexOf returns the position of the sensor with the same identity, or -1.
func indexOf(sensors []domain.Sensor, sensor domain.Sensor) int {
	return slices.IndexFunc(sensors, sensor.Same)
}
