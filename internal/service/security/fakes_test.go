package security

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
	"github.com/oshokin/catpoint/internal/repository/sensor"
)

var (
	errTestAnalyzer = errors.New("test analyzer error")
	errTestStore    = errors.New("test store error")
	errTestSave     = errors.New("test save error")
)

// testImage is a non-nil image; the stub analyzer never looks at it.
//
//nolint:gochecknoglobals // Shared read-only fixture.
var testImage = image.NewRGBA(image.Rect(0, 0, 1, 1))

// stubAnalyzer answers with a configurable detection result.
type stubAnalyzer struct {
	// mu protects the fields below.
	mu sync.Mutex
	// detected is returned by ContainsCat.
	detected bool
	// err is returned by ContainsCat when set.
	err error
	// thresholds records every threshold the controller asked for.
	thresholds []float32
}

// ContainsCat returns the configured answer and records the threshold.
func (a *stubAnalyzer) ContainsCat(_ context.Context, _ image.Image, threshold float32) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.thresholds = append(a.thresholds, threshold)

	return a.detected, a.err
}

// set changes the answer for following scans.
func (a *stubAnalyzer) set(detected bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.detected = detected
}

// recordingListener remembers every callback in order.
type recordingListener struct {
	// mu protects events.
	mu sync.Mutex
	// events holds "alarm:<status>" and "cat:<bool>" entries.
	events []string
	// log, when set, receives the same entries tagged with name.
	log *[]string
	// name tags entries written to log.
	name string
}

// OnAlarmStatusChanged records the new alarm status.
func (l *recordingListener) OnAlarmStatusChanged(_ context.Context, status domain.AlarmStatus) {
	l.record("alarm:" + string(status))
}

// OnCatDetectionEvent records the detection result.
func (l *recordingListener) OnCatDetectionEvent(_ context.Context, detected bool) {
	if detected {
		l.record("cat:true")
	} else {
		l.record("cat:false")
	}
}

func (l *recordingListener) record(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
	if l.log != nil {
		*l.log = append(*l.log, l.name+"/"+event)
	}
}

// recorded returns a copy of the recorded events.
func (l *recordingListener) recorded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.events...)
}

// flakyStore wraps a MemoryStore and fails selected calls.
type flakyStore struct {
	*sensor.MemoryStore

	// mu protects the counters below.
	mu sync.Mutex
	// failUpdateAt makes the n-th Update call (1-based) fail; 0 disables.
	failUpdateAt int
	// updates counts Update calls.
	updates int
	// failAdd makes Add fail.
	failAdd bool
	// failRemove makes Remove fail.
	failRemove bool
}

// Add fails when configured, otherwise delegates.
func (s *flakyStore) Add(ctx context.Context, sn domain.Sensor) error {
	if s.failAdd {
		return errTestStore
	}

	return s.MemoryStore.Add(ctx, sn)
}

// Remove fails when configured, otherwise delegates.
func (s *flakyStore) Remove(ctx context.Context, sn domain.Sensor) error {
	if s.failRemove {
		return errTestStore
	}

	return s.MemoryStore.Remove(ctx, sn)
}

// Update fails on the configured call, otherwise delegates.
func (s *flakyStore) Update(ctx context.Context, sn domain.Sensor) error {
	s.mu.Lock()
	s.updates++
	fail := s.failUpdateAt > 0 && s.updates == s.failUpdateAt
	s.mu.Unlock()

	if fail {
		return errTestStore
	}

	return s.MemoryStore.Update(ctx, sn)
}

// memoryStateRepository is a minimal in-memory state.Repository for tests.
type memoryStateRepository struct {
	// state is returned from Load.
	state *domain.State
	// loadErr is returned from Load.
	loadErr error
	// saveErr is returned from Save.
	saveErr error
	// saved stores the last state passed to Save.
	saved *domain.State
}

// Load returns the configured state and error.
func (m *memoryStateRepository) Load(context.Context) (*domain.State, error) {
	return m.state.Clone(), m.loadErr
}

// Save records the state unless an error is configured.
func (m *memoryStateRepository) Save(_ context.Context, s *domain.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}

	m.saved = s.Clone()

	return nil
}

// fixture bundles a controller with its collaborators.
type fixture struct {
	ctrl     *Controller
	analyzer *stubAnalyzer
	store    *flakyStore
}

// newFixture builds a controller over an in-memory store and a stub analyzer.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		analyzer: new(stubAnalyzer),
		store:    &flakyStore{MemoryStore: sensor.NewMemoryStore()},
	}

	ctrl, err := New(context.Background(), f.store, f.analyzer, opts...)
	require.NoError(t, err)

	f.ctrl = ctrl

	return f
}

// addSensors registers the sensors and fails the test on error.
func (f *fixture) addSensors(t *testing.T, sensors ...domain.Sensor) {
	t.Helper()

	for _, s := range sensors {
		require.NoError(t, f.ctrl.AddSensor(context.Background(), s))
	}
}

// storedSensors lists the sensors currently in the store.
func (f *fixture) storedSensors(t *testing.T) []domain.Sensor {
	t.Helper()

	sensors, err := f.store.List(context.Background())
	require.NoError(t, err)

	return sensors
}

// houseSensors returns the door/window/motion trio used by many tests.
func houseSensors(active bool) []domain.Sensor {
	return []domain.Sensor{
		{Name: "door", Type: domain.Door, Active: active},
		{Name: "window", Type: domain.Window, Active: active},
		{Name: "motion", Type: domain.Motion, Active: active},
	}
}
