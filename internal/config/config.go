package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/catpoint/internal/logger"
)

// Config holds the settings shared by catpoint commands.
type Config struct {
	// LogLevel is the minimum level written to the log.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	// StateFile is the path to the YAML file storing arming and alarm status.
	StateFile string `yaml:"state_file" env:"STATE_FILE"`
	// SensorStore selects where registered sensors are kept.
	SensorStore SensorStore `yaml:"sensor_store" envPrefix:"SENSOR_STORE_"`
	// Camera configures the snapshot inbox.
	Camera Camera `yaml:"camera" envPrefix:"CAMERA_"`
	// Telemetry configures trace export.
	Telemetry Telemetry `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	// Vision selects the image analyzer.
	Vision Vision `yaml:"vision" envPrefix:"VISION_"`
}

// SensorStore selects the sensor persistence backend.
type SensorStore struct {
	// Driver is one of DriverMemory, DriverFile or DriverSQLite.
	Driver string `yaml:"driver" env:"DRIVER"`
	// Path is the YAML file or SQLite database path. Unused by the memory driver.
	Path string `yaml:"path" env:"PATH"`
}

// Camera configures the inbox watcher.
type Camera struct {
	// Inbox is the directory new snapshots are dropped into.
	Inbox string `yaml:"inbox" env:"INBOX"`
	// MinScanInterval is the minimum time between two analyzed snapshots.
	MinScanInterval time.Duration `yaml:"min_scan_interval" env:"MIN_SCAN_INTERVAL"`
	// MaxSide is the longest side, in pixels, of analyzed images.
	MaxSide int `yaml:"max_side" env:"MAX_SIDE"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	// Endpoint is the OTLP/HTTP collector URL. Empty disables tracing.
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	// ServiceName is reported as service.name.
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Vision configures the label detection service.
type Vision struct {
	// Endpoint is the detection service URL. Empty uses the random fake analyzer.
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	// Timeout bounds a single detection request.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// MaxLabels caps the labels requested per image.
	MaxLabels int `yaml:"max_labels" env:"MAX_LABELS"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "catpoint-settings.yaml"

	// DefaultStateFilename is the default filename for controller state.
	DefaultStateFilename = "catpoint-state.yaml"

	// DefaultSensorsFilename is the default sensor file for the file driver.
	DefaultSensorsFilename = "catpoint-sensors.yaml"

	// DefaultDatabaseFilename is the default database for the sqlite driver.
	DefaultDatabaseFilename = "catpoint.db"

	// DefaultCameraInbox is the default snapshot directory.
	DefaultCameraInbox = "camera-inbox"

	// DefaultMinScanInterval is the default time between analyzed snapshots.
	DefaultMinScanInterval = time.Second

	// DefaultMaxSide is the default longest image side, in pixels.
	DefaultMaxSide = 1200

	// DefaultVisionTimeout is the default detection request timeout.
	DefaultVisionTimeout = 10 * time.Second

	// DefaultVisionMaxLabels is the default number of labels requested per image.
	DefaultVisionMaxLabels = 10

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultServiceName is the default telemetry service name.
	DefaultServiceName = "catpoint"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CATPOINT_"
)

// Sensor store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownDriver is returned for an unsupported sensor store driver.
	errUnknownDriver = errors.New("unknown sensor store driver")
	// errInvalidLogLevel is returned for an unparsable log level.
	errInvalidLogLevel = errors.New("invalid log level")
	// errNegativeValue is returned for negative durations or sizes.
	errNegativeValue = errors.New("value must not be negative")
)

// Load reads configuration from path, applies CATPOINT_* environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults and environment only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills in defaults for empty fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.LogLevel)
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	if err := validateSensorStore(&cfg.SensorStore); err != nil {
		return err
	}

	if err := validateCamera(&cfg.Camera); err != nil {
		return err
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}

	return validateVision(&cfg.Vision)
}

func validateSensorStore(s *SensorStore) error {
	if s.Driver == "" {
		s.Driver = DriverFile
	}

	if !slices.Contains([]string{DriverMemory, DriverFile, DriverSQLite}, s.Driver) {
		return fmt.Errorf("%w: %q", errUnknownDriver, s.Driver)
	}

	if s.Path != "" {
		return nil
	}

	switch s.Driver {
	case DriverFile:
		s.Path = DefaultSensorsFilename
	case DriverSQLite:
		s.Path = DefaultDatabaseFilename
	}

	return nil
}

func validateCamera(c *Camera) error {
	if c.Inbox == "" {
		c.Inbox = DefaultCameraInbox
	}

	if c.MinScanInterval < 0 {
		return fmt.Errorf("camera min_scan_interval: %w", errNegativeValue)
	}

	if c.MinScanInterval == 0 {
		c.MinScanInterval = DefaultMinScanInterval
	}

	if c.MaxSide < 0 {
		return fmt.Errorf("camera max_side: %w", errNegativeValue)
	}

	if c.MaxSide == 0 {
		c.MaxSide = DefaultMaxSide
	}

	return nil
}

func validateVision(v *Vision) error {
	if v.Timeout < 0 {
		return fmt.Errorf("vision timeout: %w", errNegativeValue)
	}

	if v.Timeout == 0 {
		v.Timeout = DefaultVisionTimeout
	}

	if v.MaxLabels < 0 {
		return fmt.Errorf("vision max_labels: %w", errNegativeValue)
	}

	if v.MaxLabels == 0 {
		v.MaxLabels = DefaultVisionMaxLabels
	}

	return nil
}
