// Package chartdata provides the client of the chart data API charts are
// queried through on refresh
package chartdata

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Static errors for configuration validation
var (
	ErrURLRequired = errors.New("chart data URL is required")
	ErrInvalidURL  = errors.New("chart data URL must be absolute http(s)")
)

// Config contains chart data API connection settings
type Config struct {
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	QueryTimeout time.Duration `yaml:"queryTimeout" default:"60s"`
	KeepAlive    time.Duration `yaml:"keepAlive" default:"30s"`
	Debug        bool          `yaml:"debug"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 60 * time.Second
	}

	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
}
