// Package keyvalue stores filter state and permalink blobs in Redis under
// opaque keys.
package keyvalue

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist or has expired
	ErrNotFound = errors.New("key not found")
	// ErrInvalidValue is returned when a filter state value is not JSON
	ErrInvalidValue = errors.New("value must be a JSON document")
	// ErrInvalidTTL is returned for negative expirations
	ErrInvalidTTL = errors.New("ttl must not be negative")
)

// Config holds expirations of stored entries. A zero TTL keeps entries
// until they are deleted.
type Config struct {
	FilterStateTTL time.Duration `yaml:"filterStateTTL" default:"2160h"`
	PermalinkTTL   time.Duration `yaml:"permalinkTTL"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FilterStateTTL < 0 || c.PermalinkTTL < 0 {
		return ErrInvalidTTL
	}

	return nil
}
