// Package server wires the report viewer services into one process
package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/api"
	"github.com/ethpandaops/reportviewer/pkg/chartdata"
	"github.com/ethpandaops/reportviewer/pkg/keyvalue"
	"github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/scheduler"
	"github.com/ethpandaops/reportviewer/pkg/sessions"
	"github.com/ethpandaops/reportviewer/pkg/urls"
	"github.com/ethpandaops/reportviewer/pkg/worker"
	"github.com/sirupsen/logrus"
)

// Define static errors
var (
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
)

// Config holds the configuration of every service the server runs
type Config struct {
	// Logging is the logging level to use.
	Logging string `yaml:"logging" default:"info"`
	// MetricsAddr is the address to listen on for metrics.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// ShutdownTimeout bounds the graceful shutdown of the HTTP servers.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`

	Redis     redis.Config        `yaml:"redis"`
	Database  reportviewer.Config `yaml:"database"`
	KeyValue  keyvalue.Config     `yaml:"keyValue"`
	Sessions  sessions.Config     `yaml:"sessions"`
	Scheduler scheduler.Config    `yaml:"scheduler"`
	Worker    worker.Config       `yaml:"worker"`
	ChartData chartdata.Config    `yaml:"chartData"`
	URLs      urls.Config         `yaml:"urls"`
	API       api.Config          `yaml:"api"`
}

type check struct {
	name     string
	validate func() error
}

// Validate checks if the configuration is valid. The chart data API is
// only required when this process runs the worker.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logging); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	checks := []check{
		{"redis", c.Redis.Validate},
		{"database", c.Database.Validate},
		{"keyValue", c.KeyValue.Validate},
		{"sessions", c.Sessions.Validate},
		{"scheduler", c.Scheduler.Validate},
		{"worker", c.Worker.Validate},
		{"urls", c.URLs.Validate},
		{"api", c.API.Validate},
	}

	if c.Worker.Enabled {
		checks = append(checks, check{"chartData", c.ChartData.Validate})
	}

	for _, v := range checks {
		if err := v.validate(); err != nil {
			return fmt.Errorf("invalid %s configuration: %w", v.name, err)
		}
	}

	return nil
}
