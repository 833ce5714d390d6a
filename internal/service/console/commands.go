package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
	"github.com/oshokin/catpoint/internal/camera"
	"github.com/oshokin/catpoint/internal/notify"
)

var (
	// ErrSensorNotFound is returned when no registered sensor has the given name.
	ErrSensorNotFound = errors.New("sensor not found")
	// ErrAmbiguousSensor is returned when a name matches sensors of several types.
	ErrAmbiguousSensor = errors.New("sensor name matches several types, specify the type")
)

// Status prints arming status, alarm status, the last scan and sensor counts.
func (s *Session) Status(_ context.Context) error {
	st := s.Controller.State()
	sensors := s.Controller.Sensors()

	active := 0

	for _, sn := range sensors {
		if sn.Active {
			active++
		}
	}

	s.printf("Arming status: %s (%s)\n", st.ArmingStatus, st.ArmingStatus.Description())
	s.printf("Alarm status:  %s (%s)\n", st.AlarmStatus, st.AlarmStatus.Description())
	s.printf("Cat detected:  %s\n", yesNo(st.CatDetected))
	s.printf("Sensors:       %d registered, %d active\n", len(sensors), active)

	return nil
}

// SetArming parses mode ("home", "away", "disarmed" or the full names) and applies it.
func (s *Session) SetArming(ctx context.Context, mode string) error {
	status, err := domain.ParseArmingStatus(mode)
	if err != nil {
		return err
	}

	return s.run(func() error {
		return s.Controller.SetArmingStatus(ctx, status)
	})
}

// AddSensor registers a new inactive sensor.
func (s *Session) AddSensor(ctx context.Context, name, sensorType string) error {
	t, err := domain.ParseSensorType(sensorType)
	if err != nil {
		return err
	}

	sn := domain.NewSensor(name, t)
	if err = s.Controller.AddSensor(ctx, sn); err != nil {
		return err
	}

	s.printf("Sensor %s registered\n", sn.Key())

	return nil
}

// RemoveSensor unregisters the sensor named name. sensorType may be empty when the name is unique.
func (s *Session) RemoveSensor(ctx context.Context, name, sensorType string) error {
	sn, err := s.findSensor(name, sensorType)
	if err != nil {
		return err
	}

	if err = s.Controller.RemoveSensor(ctx, sn); err != nil {
		return err
	}

	s.printf("Sensor %s removed\n", sn.Key())

	return nil
}

// SetSensorActive activates or deactivates the sensor named name.
func (s *Session) SetSensorActive(ctx context.Context, name, sensorType string, active bool) error {
	sn, err := s.findSensor(name, sensorType)
	if err != nil {
		return err
	}

	return s.run(func() error {
		return s.Controller.ChangeSensorActivationStatus(ctx, sn, active)
	})
}

// ListSensors prints every registered sensor.
func (s *Session) ListSensors(_ context.Context) error {
	sensors := s.Controller.Sensors()
	if len(sensors) == 0 {
		s.printf("No sensors registered\n")

		return nil
	}

	for _, sn := range sensors {
		activity := "inactive"
		if sn.Active {
			activity = "active"
		}

		s.printf("%-20s %-8s %s\n", sn.Name, sn.Type, activity)
	}

	return nil
}

// Scan loads the image at path and feeds it to the controller.
func (s *Session) Scan(ctx context.Context, path string) error {
	img, err := camera.LoadImage(path, s.Config.Camera.MaxSide)
	if err != nil {
		return err
	}

	return s.run(func() error {
		return s.Controller.ProcessImage(ctx, img)
	})
}

// Watch feeds snapshots from the camera inbox to the controller until ctx is done.
func (s *Session) Watch(ctx context.Context) error {
	w, err := camera.NewWatcher(s.Config.Camera.Inbox, s.Controller,
		camera.WithMinScanInterval(s.Config.Camera.MinScanInterval),
		camera.WithMaxSide(s.Config.Camera.MaxSide),
	)
	if err != nil {
		return err
	}

	return w.Run(ctx)
}

// run executes op and prints the notifications it produced.
func (s *Session) run(op func() error) error {
	s.Recorder.Reset()

	if err := op(); err != nil {
		return err
	}

	for _, e := range s.Recorder.Events() {
		switch e.Kind {
		case notify.KindAlarmStatus:
			s.printf("Alarm status changed: %s (%s)\n", e.AlarmStatus, e.AlarmStatus.Description())
		case notify.KindCatDetection:
			if e.CatDetected {
				s.printf("Camera: DANGER - CAT DETECTED\n")
			} else {
				s.printf("Camera: no cats detected\n")
			}
		}
	}

	return nil
}

// findSensor resolves a registered sensor by name and optional type.
func (s *Session) findSensor(name, sensorType string) (domain.Sensor, error) {
	var matches []domain.Sensor

	for _, sn := range s.Controller.Sensors() {
		if sn.Name != name {
			continue
		}

		if sensorType != "" && !strings.EqualFold(string(sn.Type), sensorType) {
			continue
		}

		matches = append(matches, sn)
	}

	switch len(matches) {
	case 0:
		return domain.Sensor{}, fmt.Errorf("%w: %s", ErrSensorNotFound, name)
	case 1:
		return matches[0], nil
	default:
		return domain.Sensor{}, fmt.Errorf("%w: %s", ErrAmbiguousSensor, name)
	}
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
