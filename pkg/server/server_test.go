package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/reportviewer/internal/testutil"
	"github.com/ethpandaops/reportviewer/pkg/chartdata"
	"github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, redisURL string) *Config {
	t.Helper()

	cfg := &Config{}
	require.NoError(t, defaults.Set(cfg))

	cfg.Redis.URL = redisURL
	cfg.Database.DSN = "file::memory:?_pragma=foreign_keys(1)"
	cfg.Database.MaxOpenConns = 1
	cfg.Worker.Enabled = false

	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "defaults with redis",
			mutate: func(_ *Config) {},
		},
		{
			name:    "missing redis url",
			mutate:  func(c *Config) { c.Redis.URL = "" },
			wantErr: redis.ErrURLRequired,
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.ShutdownTimeout = 0 },
			wantErr: ErrInvalidShutdownTimeout,
		},
		{
			name:    "worker needs chart data api",
			mutate:  func(c *Config) { c.Worker.Enabled = true },
			wantErr: chartdata.ErrURLRequired,
		},
		{
			name: "worker with chart data api",
			mutate: func(c *Config) {
				c.Worker.Enabled = true
				c.ChartData.URL = "http://superset:8088"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "redis://localhost:6379/0")
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}

	cfg := testConfig(t, "redis://localhost:6379/0")
	cfg.Logging = "loud"
	require.Error(t, cfg.Validate())
}

func TestNewServerRoles(t *testing.T) {
	mr := testutil.NewMiniredis(t)

	t.Run("api and scheduler", func(t *testing.T) {
		s, err := NewServer(context.Background(), testutil.NewLogger(t), testConfig(t, "redis://"+mr.Addr()))
		require.NoError(t, err)

		t.Cleanup(s.closeClients)

		assert.NotNil(t, s.api)
		assert.NotNil(t, s.scheduler)
		assert.NotNil(t, s.registry)
		assert.NotNil(t, s.queue)
		assert.Nil(t, s.worker)
		assert.Nil(t, s.chartClient)
	})

	t.Run("worker only", func(t *testing.T) {
		cfg := testConfig(t, "redis://"+mr.Addr())
		cfg.API.Enabled = false
		cfg.Scheduler.Enabled = false
		cfg.Worker.Enabled = true
		cfg.ChartData.URL = "http://127.0.0.1:1"

		s, err := NewServer(context.Background(), testutil.NewLogger(t), cfg)
		require.NoError(t, err)

		t.Cleanup(s.closeClients)

		assert.Nil(t, s.api)
		assert.Nil(t, s.registry)
		assert.NotNil(t, s.worker)
		assert.NotNil(t, s.chartClient)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewServer(context.Background(), testutil.NewLogger(t), testConfig(t, ""))
		require.ErrorIs(t, err, redis.ErrURLRequired)
	})
}

func TestHealthHandler(t *testing.T) {
	mr := testutil.NewMiniredis(t)

	s, err := NewServer(context.Background(), testutil.NewLogger(t), testConfig(t, "redis://"+mr.Addr()))
	require.NoError(t, err)

	t.Cleanup(s.closeClients)

	handler := s.healthHandler()

	get := func(path string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/health"))
	assert.Equal(t, http.StatusOK, get("/ready"))

	mr.Close()

	assert.Eventually(t, func() bool {
		return get("/ready") == http.StatusServiceUnavailable
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, http.StatusOK, get("/health"))
}
