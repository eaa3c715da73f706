// Package scheduler runs the periodic auto refresh of open sessions
package scheduler

import (
	"errors"
	"time"
)

var (
	// ErrInvalidTickInterval is returned when the tick interval is not positive
	ErrInvalidTickInterval = errors.New("tick interval must be positive")
)

// Config defines scheduler configuration
type Config struct {
	Enabled bool `yaml:"enabled" default:"true"`
	// TickInterval is how often sessions are checked for due refreshes
	TickInterval time.Duration `yaml:"tickInterval" default:"1s"`
	// MinRefreshFrequency bounds refresh_frequency from below
	MinRefreshFrequency time.Duration `yaml:"minRefreshFrequency" default:"10s"`
	// TrackerTTL expires last run timestamps of sessions that went away
	TrackerTTL time.Duration `yaml:"trackerTTL" default:"24h"`
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}

	return nil
}
