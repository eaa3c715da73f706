// Package testutil provides test helpers shared across packages:
//   - Miniredis servers and clients for Redis backed code (miniredis.go)
//   - A stored report viewer with charts for session and API tests (fixtures.go)
//
// None of the helpers need Docker.
package testutil

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger that discards output unless -v is set
func NewLogger(t *testing.T) *logrus.Logger {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	if !testing.Verbose() {
		log.SetOutput(io.Discard)
	}

	return log
}
