package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default and file values
func LoadFromEnv(cfg *Config) {
	// Tracker configuration
	setDuration("TASKTRACK_MINUTE_INTERVAL", &cfg.Tracker.MinuteInterval)
	if v := os.Getenv("TASKTRACK_MAX_EXPECTED_INPUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Tracker.MaxExpectedInput = n
		}
	}
	setDuration("TASKTRACK_CAPTURE_TIMEOUT", &cfg.Tracker.CaptureTimeout)
	setDuration("TASKTRACK_DELIVERY_TIMEOUT", &cfg.Tracker.DeliveryTimeout)
	setDuration("TASKTRACK_INPUT_POLL_INTERVAL", &cfg.Tracker.InputPollInterval)

	// Backend client
	if v := os.Getenv("TASKTRACK_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	setDuration("TASKTRACK_BACKEND_TIMEOUT", &cfg.Backend.Timeout)

	// Database configuration
	if dbPath := os.Getenv("TASKTRACK_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	setDuration("TASKTRACK_DB_RETENTION", &cfg.Database.Retention)

	// Web configuration
	if webHost := os.Getenv("TASKTRACK_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}
	setPort("TASKTRACK_WEB_PORT", &cfg.Web.Port)

	// Control configuration
	if host := os.Getenv("TASKTRACK_CONTROL_HOST"); host != "" {
		cfg.Control.Host = host
	}
	setPort("TASKTRACK_CONTROL_PORT", &cfg.Control.Port)

	// Daemon configuration
	if pidFile := os.Getenv("TASKTRACK_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}
	if logFile := os.Getenv("TASKTRACK_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	// Metrics configuration
	if v := os.Getenv("TASKTRACK_OTEL_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
	if v := os.Getenv("TASKTRACK_OTEL_ENDPOINT"); v != "" {
		cfg.Metrics.Endpoint = v
	}
	if v := os.Getenv("TASKTRACK_OTEL_INSECURE"); v != "" {
		if insecure, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Insecure = insecure
		}
	}

	// Report configuration
	if timeZone := os.Getenv("TASKTRACK_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}
}

// setDuration accepts Go duration strings ("90s") or plain seconds ("90").
func setDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
		return
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		*dst = time.Duration(seconds) * time.Second
	}
}

func setPort(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			*dst = port
		}
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}

// Load layers defaults, an optional YAML file and the environment.
// An empty path falls back to TASKTRACK_CONFIG.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TASKTRACK_CONFIG")
	}
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
