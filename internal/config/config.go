package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Tracker configuration
	Tracker TrackerConfig `yaml:"tracker"`

	// Persistence backend the tracker delivers to
	Backend BackendConfig `yaml:"backend"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Backend server configuration
	Web WebConfig `yaml:"web"`

	// Local command surface of the tracker process
	Control ControlConfig `yaml:"control"`

	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics"`

	// Report configuration
	Report ReportConfig `yaml:"report"`
}

// TrackerConfig holds sampling and scoring configuration
type TrackerConfig struct {
	MinuteInterval    time.Duration `yaml:"minute_interval"`     // Time between minute samples
	MaxExpectedInput  int           `yaml:"max_expected_input"`  // Input events per block that score 100%
	CaptureTimeout    time.Duration `yaml:"capture_timeout"`     // How long delivery waits for a screenshot
	DeliveryTimeout   time.Duration `yaml:"delivery_timeout"`    // Bound on one backend call
	InputPollInterval time.Duration `yaml:"input_poll_interval"` // Pointer/keymap polling rate
}

// BackendConfig holds the persistence backend client configuration
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database file

	// Retention is how long the backend keeps delivered blocks; zero keeps
	// them forever.
	Retention time.Duration `yaml:"retention"`
}

// WebConfig holds backend server configuration
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ControlConfig holds the command surface configuration
type ControlConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file"` // Path to PID file for daemon management
	LogFile string `yaml:"log_file"`
}

// MetricsConfig holds OTLP export configuration
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string `yaml:"time_zone"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			MinuteInterval:    time.Minute,
			MaxExpectedInput:  1000,
			CaptureTimeout:    30 * time.Second,
			DeliveryTimeout:   30 * time.Second,
			InputPollInterval: 200 * time.Millisecond,
		},
		Backend: BackendConfig{
			URL:     "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/tasktrack/tasktrack.db
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 3000,
		},
		Control: ControlConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid(), // One command surface per user
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/tasktrack-%d.pid", os.Getuid()),
			LogFile: "/tmp/tasktrack.log",
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Tracker.MinuteInterval <= 0 {
		return fmt.Errorf("minute interval must be positive, got %v", c.Tracker.MinuteInterval)
	}
	if c.Tracker.MaxExpectedInput <= 0 {
		return fmt.Errorf("max expected input must be positive, got %d", c.Tracker.MaxExpectedInput)
	}
	if c.Tracker.CaptureTimeout <= 0 || c.Tracker.DeliveryTimeout <= 0 {
		return fmt.Errorf("capture and delivery timeouts must be positive")
	}
	if c.Tracker.InputPollInterval <= 0 {
		return fmt.Errorf("input poll interval must be positive, got %v", c.Tracker.InputPollInterval)
	}

	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend url %q is not an absolute URL", c.Backend.URL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %v", c.Backend.Timeout)
	}

	if err := validatePort("web", c.Web.Port); err != nil {
		return err
	}
	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}
	if err := validatePort("control", c.Control.Port); err != nil {
		return err
	}
	if c.Control.Host == "" {
		return fmt.Errorf("control host cannot be empty")
	}

	if c.Database.Retention < 0 {
		return fmt.Errorf("database retention cannot be negative, got %v", c.Database.Retention)
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if c.Metrics.Enabled && c.Metrics.Endpoint == "" {
		return fmt.Errorf("metrics endpoint is required when metrics are enabled")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s port must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

// SetMinuteInterval sets the minute sampling interval with validation
func (c *Config) SetMinuteInterval(interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("minute interval cannot be less than %v", time.Second)
	}
	c.Tracker.MinuteInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if err := validatePort("web", port); err != nil {
		return err
	}
	c.Web.Port = port
	return nil
}

// SetControlPort sets the command surface port with validation
func (c *Config) SetControlPort(port int) error {
	if err := validatePort("control", port); err != nil {
		return err
	}
	c.Control.Port = port
	return nil
}

// SetRetention sets how long the backend keeps delivered blocks; zero keeps
// them forever
func (c *Config) SetRetention(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("database retention cannot be negative, got %v", d)
	}
	c.Database.Retention = d
	return nil
}

// Location resolves the report time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Report.TimeZone == "" || c.Report.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Report.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid report time zone %q: %w", c.Report.TimeZone, err)
	}
	return loc, nil
}

// WebAddr returns the backend server listen address.
func (c *Config) WebAddr() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// ControlAddr returns the command surface listen address.
func (c *Config) ControlAddr() string {
	return fmt.Sprintf("%s:%d", c.Control.Host, c.Control.Port)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Tracker:
    Minute Interval: %v
    Max Expected Input: %d
    Capture Timeout: %v
    Delivery Timeout: %v
    Input Poll Interval: %v
  Backend:
    URL: %s
    Timeout: %v
  Database:
    Path: %s
    Retention: %v
  Web:
    Address: %s
  Control:
    Address: %s
  Daemon:
    PID File: %s
    Log File: %s
  Metrics:
    Enabled: %v
    Endpoint: %s
  Report:
    Time Zone: %s`,
		c.Tracker.MinuteInterval,
		c.Tracker.MaxExpectedInput,
		c.Tracker.CaptureTimeout,
		c.Tracker.DeliveryTimeout,
		c.Tracker.InputPollInterval,
		c.Backend.URL,
		c.Backend.Timeout,
		c.Database.Path,
		c.Database.Retention,
		c.WebAddr(),
		c.ControlAddr(),
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Metrics.Enabled,
		c.Metrics.Endpoint,
		c.Report.TimeZone,
	)
}
