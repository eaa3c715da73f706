package worker

import (
	"errors"
	"time"
)

var (
	// ErrInvalidConcurrency is returned when concurrency is not positive
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
	// ErrInvalidResultTTL is returned when the result TTL is negative
	ErrInvalidResultTTL = errors.New("result TTL must not be negative")
)

// Config contains worker-specific settings
type Config struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	Concurrency     int           `yaml:"concurrency" default:"10"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"30s"`
	// ResultTTL is how long refreshed chart data stays readable
	ResultTTL time.Duration `yaml:"resultTTL" default:"1h"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.ResultTTL < 0 {
		return ErrInvalidResultTTL
	}

	return nil
}
