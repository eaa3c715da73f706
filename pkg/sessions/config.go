// Package sessions keeps the open report viewer sessions of this process
package sessions

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for unknown or evicted sessions
	ErrNotFound = errors.New("session not found")
	// ErrSessionExists is returned when a session id is already open
	ErrSessionExists = errors.New("session already open")
	// ErrTooManySessions is returned when the session limit is reached
	ErrTooManySessions = errors.New("too many open sessions")
	// ErrPermalinkMismatch is returned when a permalink belongs to another report viewer
	ErrPermalinkMismatch = errors.New("permalink belongs to another report viewer")
	// ErrInvalidIdleTimeout is returned when the idle timeout is not positive
	ErrInvalidIdleTimeout = errors.New("idle timeout must be positive")
	// ErrInvalidEvictionInterval is returned when the eviction interval is not positive
	ErrInvalidEvictionInterval = errors.New("eviction interval must be positive")
)

// Config holds session registry settings
type Config struct {
	// IdleTimeout closes sessions not used for this long
	IdleTimeout time.Duration `yaml:"idleTimeout" default:"30m"`
	// EvictionInterval is how often idle sessions are looked for
	EvictionInterval time.Duration `yaml:"evictionInterval" default:"1m"`
	// MaxSessions caps open sessions; zero means no limit
	MaxSessions int `yaml:"maxSessions" default:"1000"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.IdleTimeout <= 0 {
		return ErrInvalidIdleTimeout
	}

	if c.EvictionInterval <= 0 {
		return ErrInvalidEvictionInterval
	}

	return nil
}
