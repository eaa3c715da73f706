// Package api serves the report viewer REST API
package api

import (
	"errors"
	"time"
)

var (
	// ErrAPIAddrRequired is returned when API is enabled but no address is configured
	ErrAPIAddrRequired = errors.New("api address is required when API is enabled")
	// ErrInvalidBodyLimit is returned when the body limit is not positive
	ErrInvalidBodyLimit = errors.New("body limit must be positive")
)

// Config represents API service configuration
type Config struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Addr    string `yaml:"addr" default:":8080" validate:"hostname_port"`
	// BodyLimit caps request bodies in bytes
	BodyLimit       int           `yaml:"bodyLimit" default:"4194304"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
	// AllowOrigins lists the CORS origins
	AllowOrigins []string `yaml:"allowOrigins" default:"[\"*\"]"`
}

// Validate validates the API configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Addr == "" {
		return ErrAPIAddrRequired
	}

	if c.BodyLimit <= 0 {
		return ErrInvalidBodyLimit
	}

	return nil
}
