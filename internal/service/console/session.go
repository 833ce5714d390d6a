package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/notify"
	"github.com/oshokin/catpoint/internal/repository/sensor"
	"github.com/oshokin/catpoint/internal/repository/state"
	"github.com/oshokin/catpoint/internal/service/security"
	"github.com/oshokin/catpoint/internal/telemetry"
	"github.com/oshokin/catpoint/internal/vision"
)

// recorderLimit bounds the notifications kept for command output.
const recorderLimit = 64

// Options controls how a session is opened.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Out receives command output; defaults to stdout.
	Out io.Writer
	// Analyzer replaces the default random analyzer.
	Analyzer security.ImageAnalyzer
	// Verbose forces debug logging regardless of the configured level.
	Verbose bool
}

// Session is an opened controller with its collaborators.
type Session struct {
	// Config is the loaded configuration.
	Config *config.Config
	// Controller is the security controller.
	Controller *security.Controller
	// Recorder collects notifications for printing.
	Recorder *notify.Recorder

	out      io.Writer
	closers  []func(context.Context) error
	closeErr error
}

// Open loads configuration and builds a controller backed by the configured stores.
// The caller must Close the session.
func Open(ctx context.Context, opts *Options) (*Session, error) {
	if opts == nil {
		opts = new(Options)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if opts.Verbose {
		logger.SetLogger(logger.New(nil, logger.WithLevel(zapcore.DebugLevel)))
	}

	s := &Session{
		Config:   cfg,
		Recorder: notify.NewRecorder(recorderLimit),
		out:      opts.Out,
	}

	if s.out == nil {
		s.out = os.Stdout
	}

	if err = s.open(ctx, opts); err != nil {
		return nil, errors.Join(err, s.Close(ctx))
	}

	return s, nil
}

func (s *Session) open(ctx context.Context, opts *Options) error {
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    s.Config.Telemetry.Endpoint,
		ServiceName: s.Config.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}

	s.closers = append(s.closers, shutdown)

	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}

	analyzer, err := s.newAnalyzer(ctx, opts)
	if err != nil {
		return err
	}

	ctrl, err := security.New(ctx, store, analyzer,
		security.WithStateRepository(state.NewFileRepository(s.Config.StateFile)),
	)
	if err != nil {
		return fmt.Errorf("initialise controller: %w", err)
	}

	ctrl.AddStatusListener(notify.NewLogListener())
	ctrl.AddStatusListener(s.Recorder)

	s.Controller = ctrl

	return nil
}

// newAnalyzer returns the analyzer from opts, the label detection service when
// one is configured, or the random fake analyzer.
func (s *Session) newAnalyzer(ctx context.Context, opts *Options) (security.ImageAnalyzer, error) {
	if opts.Analyzer != nil {
		return opts.Analyzer, nil
	}

	settings := s.Config.Vision
	if settings.Endpoint == "" {
		logger.Debug(ctx, "No vision endpoint configured, using random analyzer")

		return vision.NewFakeAnalyzer(nil), nil
	}

	detector, err := vision.NewHTTPDetector(settings.Endpoint, vision.WithTimeout(settings.Timeout))
	if err != nil {
		return nil, fmt.Errorf("create label detector: %w", err)
	}

	analyzer, err := vision.NewLabelAnalyzer(detector, vision.WithMaxLabels(settings.MaxLabels))
	if err != nil {
		return nil, fmt.Errorf("create label analyzer: %w", err)
	}

	logger.InfoKV(ctx, "Using label detection service", "endpoint", settings.Endpoint)

	return analyzer, nil
}

// openStore builds the sensor store selected by the configured driver.
func (s *Session) openStore(ctx context.Context) (sensor.Store, error) {
	settings := s.Config.SensorStore

	switch settings.Driver {
	case config.DriverMemory:
		return sensor.NewMemoryStore(), nil
	case config.DriverFile:
		return sensor.NewFileStore(settings.Path), nil
	case config.DriverSQLite:
		store, err := sensor.OpenSQLite(ctx, settings.Path)
		if err != nil {
			return nil, fmt.Errorf("open sensor database: %w", err)
		}

		s.closers = append(s.closers, func(context.Context) error { return store.Close() })

		return store, nil
	default:
		return nil, fmt.Errorf("unsupported sensor store driver %q", settings.Driver)
	}
}

// Close releases stores and flushes telemetry. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			logger.Errorf(ctx, "Failed to release session resource: %v", err)
			s.closeErr = errors.Join(s.closeErr, err)
		}
	}

	s.closers = nil

	return s.closeErr
}
