package security

import (
	"context"
	"errors"
	"fmt"
	"image"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/repository/sensor"
	"github.com/oshokin/catpoint/internal/repository/state"
)

// DefaultConfidenceThreshold is the minimum confidence, in percent, the
// analyzer must have before an image counts as showing a cat.
const DefaultConfidenceThreshold float32 = 50

// instrumentationName names the tracer used by the controller.
const instrumentationName = "github.com/oshokin/catpoint/internal/service/security"

// ImageAnalyzer answers whether an image depicts a cat.
type ImageAnalyzer interface {
	ContainsCat(ctx context.Context, img image.Image, confidenceThreshold float32) (bool, error)
}

var (
	// ErrSensorNotRegistered is returned when an operation names a sensor the controller does not know.
	ErrSensorNotRegistered = errors.New("sensor is not registered")
	// ErrInvalidStatus is returned for arming or alarm values outside their enums.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrAlarmWhileDisarmed is returned when seeding an alarm on a disarmed system.
	ErrAlarmWhileDisarmed = errors.New("alarm status must be NO_ALARM while disarmed")

	errStoreRequired    = errors.New("sensor store is required")
	errAnalyzerRequired = errors.New("image analyzer is required")
	errImageRequired    = errors.New("image is required")
)

// Controller owns the arming status, the alarm status and the registered
// sensors, applies the alarm rules and notifies listeners about changes.
// All methods are safe for concurrent use; each public operation holds a
// single lock for its whole duration, so multi-step rules are atomic.
type Controller struct {
	// store persists sensor records.
	store sensor.Store
	// analyzer classifies camera images.
	analyzer ImageAnalyzer
	// stateRepo persists the controller state; optional.
	stateRepo state.Repository
	// tracer records a span per operation.
	tracer trace.Tracer
	// now returns the current time.
	now func() time.Time

	// mu serialises every public operation.
	mu sync.Mutex
	// state holds arming status, alarm status and the last detection.
	state *domain.State
	// registry is the in-memory set of registered sensors.
	registry map[domain.SensorKey]domain.Sensor
	// listeners are notified in registration order.
	listeners []StatusListener
	// issued is the next delivery ticket handed out under mu.
	issued uint64

	// dispatchMu guards delivered and backs dispatchCond.
	dispatchMu sync.Mutex
	// dispatchCond wakes deliveries waiting for their turn.
	dispatchCond *sync.Cond
	// delivered is the ticket whose notifications go out next.
	delivered uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithStateRepository persists the controller state so it survives restarts.
func WithStateRepository(repo state.Repository) Option {
	return func(c *Controller) {
		c.stateRepo = repo
	}
}

// WithTracerProvider replaces the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) {
		if tp != nil {
			c.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithClock overrides the time source used for state timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a controller, restoring registered sensors from the store and,
// when a state repository is configured, the last persisted state.
// A missing state starts the system disarmed without alarm.
func New(ctx context.Context, store sensor.Store, analyzer ImageAnalyzer, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errStoreRequired
	}

	if analyzer == nil {
		return nil, errAnalyzerRequired
	}

	c := &Controller{
		store:    store,
		analyzer: analyzer,
		tracer:   otel.GetTracerProvider().Tracer(instrumentationName),
		now:      time.Now,
		registry: make(map[domain.SensorKey]domain.Sensor),
	}
	c.dispatchCond = sync.NewCond(&c.dispatchMu)

	for _, opt := range opts {
		opt(c)
	}

	c.state = domain.DefaultState()
	c.state.Timestamp = c.now()

	if c.stateRepo != nil {
		restored, err := c.stateRepo.Load(ctx)
		switch {
		case err == nil:
			if restored != nil {
				restored.Normalize()
				c.state = restored
			}
		case errors.Is(err, state.ErrNotFound):
			// Keep default state.
		default:
			return nil, fmt.Errorf("load state: %w", err)
		}
	}

	sensors, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sensors: %w", err)
	}

	for _, s := range sensors {
		c.registry[s.Key()] = s
	}

	logger.InfoKV(ctx, "Security controller ready",
		"arming_status", c.state.ArmingStatus,
		"alarm_status", c.state.AlarmStatus,
		"sensors", len(c.registry),
	)

	return c, nil
}

// AlarmStatus returns the current alarm status.
func (c *Controller) AlarmStatus() domain.AlarmStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.AlarmStatus
}

// ArmingStatus returns the current arming status.
func (c *Controller) ArmingStatus() domain.ArmingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.ArmingStatus
}

// State returns a snapshot of the controller state.
func (c *Controller) State() *domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Clone()
}

// Sensors returns a sorted copy of the registered sensors.
// Modifying the result does not affect the controller.
func (c *Controller) Sensors() []domain.Sensor {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := slices.Collect(maps.Values(c.registry))
	domain.SortSensors(result)

	return result
}

// SetArmingStatus changes the arming mode.
// Disarming always clears the alarm. Arming resets every sensor to inactive
// without evaluating sensor rules, then raises the alarm when arming at home
// while the last scan saw a cat.
func (c *Controller) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) (err error) {
	ctx, span := c.startSpan(ctx, "SetArmingStatus", attribute.String("arming_status", string(status)))
	defer func() { endSpan(span, err) }()

	if !status.Valid() {
		return fmt.Errorf("arming status %q: %w", status, ErrInvalidStatus)
	}

	return c.mutate(ctx, func() (*change, error) {
		next := c.state.Clone()
		next.ArmingStatus = status

		ch := &change{state: next}

		t := triggerDisarmed
		if status.IsArmed() {
			t = triggerArmed

			for _, s := range c.registry {
				if s.Active {
					s.Active = false
					ch.sensors = append(ch.sensors, s)
				}
			}

			domain.SortSensors(ch.sensors)
		}

		next.AlarmStatus, ch.rule = decide(t, facts{
			alarm:       c.state.AlarmStatus,
			arming:      status,
			catDetected: c.state.CatDetected,
		})

		return ch, nil
	})
}

// SetAlarmStatus sets the alarm status directly, bypassing the rules.
// A disarmed system only accepts NO_ALARM.
func (c *Controller) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) (err error) {
	ctx, span := c.startSpan(ctx, "SetAlarmStatus", attribute.String("alarm_status", string(status)))
	defer func() { endSpan(span, err) }()

	if !status.Valid() {
		return fmt.Errorf("alarm status %q: %w", status, ErrInvalidStatus)
	}

	return c.mutate(ctx, func() (*change, error) {
		if c.state.ArmingStatus == domain.Disarmed && status != domain.NoAlarm {
			return nil, fmt.Errorf("set %s: %w", status, ErrAlarmWhileDisarmed)
		}

		next := c.state.Clone()
		next.AlarmStatus = status

		return &change{state: next, rule: "direct"}, nil
	})
}

// AddSensor registers the sensor with the store and the controller.
// Adding a sensor whose name and type are already registered does nothing.
func (c *Controller) AddSensor(ctx context.Context, s domain.Sensor) (err error) {
	ctx, span := c.startSpan(ctx, "AddSensor", sensorAttributes(s)...)
	defer func() { endSpan(span, err) }()

	if err = s.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.registry[s.Key()]; ok {
		return nil
	}

	if err = c.store.Add(ctx, s); err != nil {
		return fmt.Errorf("add sensor %s: %w", s.Key(), err)
	}

	c.registry[s.Key()] = s

	logger.InfoKV(ctx, "Sensor added", "sensor", s.Key().String(), "active", s.Active)

	return nil
}

// RemoveSensor unregisters the sensor. Removing an unknown sensor does nothing.
func (c *Controller) RemoveSensor(ctx context.Context, s domain.Sensor) (err error) {
	ctx, span := c.startSpan(ctx, "RemoveSensor", sensorAttributes(s)...)
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err = c.store.Remove(ctx, s); err != nil && !errors.Is(err, sensor.ErrNotFound) {
		return fmt.Errorf("remove sensor %s: %w", s.Key(), err)
	}

	if _, ok := c.registry[s.Key()]; ok {
		delete(c.registry, s.Key())
		logger.InfoKV(ctx, "Sensor removed", "sensor", s.Key().String())
	}

	return nil
}

// ChangeSensorActivationStatus records a sensor becoming active or inactive
// and escalates or clears the alarm accordingly. While the alarm is sounding
// the request is ignored entirely, even for sensors that are not registered.
func (c *Controller) ChangeSensorActivationStatus(ctx context.Context, s domain.Sensor, active bool) (err error) {
	ctx, span := c.startSpan(ctx, "ChangeSensorActivationStatus",
		append(sensorAttributes(s), attribute.Bool("active", active))...)
	defer func() { endSpan(span, err) }()

	return c.mutate(ctx, func() (*change, error) {
		if c.state.AlarmStatus == domain.Alarm {
			logger.DebugKV(ctx, "Sensor change ignored while alarm is sounding",
				"sensor", s.Key().String(), "active", active)

			return nil, nil
		}

		current, ok := c.registry[s.Key()]
		if !ok {
			return nil, fmt.Errorf("change %s: %w", s.Key(), ErrSensorNotRegistered)
		}

		updated := current
		updated.Active = active

		t := triggerSensorDeactivated
		if active {
			t = triggerSensorActivated
		}

		ch := &change{sensors: []domain.Sensor{updated}}

		alarmStatus, rule := decide(t, facts{
			alarm:     c.state.AlarmStatus,
			arming:    c.state.ArmingStatus,
			wasActive: current.Active,
			anyActive: c.anyActiveWith(updated),
		})

		if alarmStatus != c.state.AlarmStatus {
			next := c.state.Clone()
			next.AlarmStatus = alarmStatus
			ch.state = next
			ch.rule = rule
		}

		return ch, nil
	})
}

// ProcessImage asks the analyzer whether img shows a cat and applies the camera rules.
// The result is remembered so that arming at home later can raise the alarm,
// and listeners are told about the detection on every successful scan.
func (c *Controller) ProcessImage(ctx context.Context, img image.Image) (err error) {
	ctx, span := c.startSpan(ctx, "ProcessImage")
	defer func() { endSpan(span, err) }()

	if img == nil {
		return errImageRequired
	}

	return c.mutate(ctx, func() (*change, error) {
		detected, analyzeErr := c.analyzer.ContainsCat(ctx, img, DefaultConfidenceThreshold)
		if analyzeErr != nil {
			return nil, fmt.Errorf("analyze image: %w", analyzeErr)
		}

		span.SetAttributes(attribute.Bool("cat_detected", detected))

		t := triggerNoCatDetected
		if detected {
			t = triggerCatDetected
		}

		next := c.state.Clone()
		next.CatDetected = detected

		ch := &change{state: next, catEvent: &detected}

		next.AlarmStatus, ch.rule = decide(t, facts{
			alarm:     c.state.AlarmStatus,
			arming:    c.state.ArmingStatus,
			anyActive: c.anyActiveWith(),
		})

		return ch, nil
	})
}

// anyActiveWith reports whether any registered sensor is active once the
// overrides replace their registered counterparts.
func (c *Controller) anyActiveWith(overrides ...domain.Sensor) bool {
	for key, s := range c.registry {
		if i := slices.IndexFunc(overrides, func(o domain.Sensor) bool { return o.Key() == key }); i >= 0 {
			s = overrides[i]
		}

		if s.Active {
			return true
		}
	}

	return false
}

// startSpan opens a span for a controller operation.
//
//nolint:spancheck // Spans are ended by the caller through endSpan.
func (c *Controller) startSpan(
	ctx context.Context,
	op string,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "security."+op, trace.WithAttributes(attrs...))
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

func sensorAttributes(s domain.Sensor) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("sensor.name", s.Name),
		attribute.String("sensor.type", string(s.Type)),
	}
}
