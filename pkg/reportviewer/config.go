// Package reportviewer persists report viewers and the charts placed on them
package reportviewer

import (
	"errors"
	"fmt"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Static errors for configuration validation
var (
	ErrDSNRequired       = errors.New("database DSN is required")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Config holds database connection settings
type Config struct {
	Driver       string `yaml:"driver" default:"sqlite"`
	DSN          string `yaml:"dsn" default:"file:reportviewer.db?_pragma=foreign_keys(1)"`
	MaxOpenConns int    `yaml:"maxOpenConns" default:"10"`
	AutoMigrate  bool   `yaml:"autoMigrate" default:"true"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}

	if c.DSN == "" {
		return ErrDSNRequired
	}

	return nil
}
