package config_test

import (
	"fmt"
	"time"

	"github.com/actionsum/tasktrack/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Minute Interval:", cfg.Tracker.MinuteInterval)
	fmt.Println("Max Expected Input:", cfg.Tracker.MaxExpectedInput)
	fmt.Println("Backend:", cfg.Backend.URL)
	// Output:
	// Minute Interval: 1m0s
	// Max Expected Input: 1000
	// Backend: http://localhost:3000
}

// Example of setting the minute interval with validation
func ExampleConfig_SetMinuteInterval() {
	cfg := config.Default()

	if err := cfg.SetMinuteInterval(30 * time.Second); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Minute interval set to:", cfg.Tracker.MinuteInterval)
	}

	if err := cfg.SetMinuteInterval(500 * time.Millisecond); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Minute interval set to: 30s
	// Error: minute interval cannot be less than 1s
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	} else {
		fmt.Println("Configuration is valid")
	}

	cfg.Metrics.Enabled = true
	fmt.Println(cfg.Validate())

	// Output:
	// Configuration is valid
	// metrics endpoint is required when metrics are enabled
}
