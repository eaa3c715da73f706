package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ethpandaops/reportviewer/internal/testutil"
	"github.com/ethpandaops/reportviewer/pkg/chartdata"
	r "github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/tasks"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "valid", cfg: Config{Enabled: true, Concurrency: 5, ResultTTL: time.Hour}},
		{name: "zero concurrency", cfg: Config{Enabled: true}, wantErr: ErrInvalidConcurrency},
		{name: "negative concurrency", cfg: Config{Enabled: true, Concurrency: -1}, wantErr: ErrInvalidConcurrency},
		{name: "negative ttl", cfg: Config{Enabled: true, Concurrency: 1, ResultTTL: -time.Second}, wantErr: ErrInvalidResultTTL},
		{name: "disabled skips checks", cfg: Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestNewService(t *testing.T) {
	log := testutil.NewLogger(t)
	opt := &redis.Options{Addr: "localhost:6379"}

	svc, err := NewService(log, &Config{Enabled: true, Concurrency: 2}, opt, &r.Config{Prefix: "rv"}, &ChartExecutor{})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	_, err = NewService(log, &Config{Enabled: true}, opt, nil, &ChartExecutor{})
	require.ErrorIs(t, err, ErrInvalidConcurrency)
}

func TestServiceLifecycle(t *testing.T) {
	mr := testutil.NewMiniredis(t)

	svc, err := NewService(testutil.NewLogger(t), &Config{Enabled: true, Concurrency: 1, ShutdownTimeout: time.Second},
		&redis.Options{Addr: mr.Addr()}, &r.Config{Prefix: "rv"}, &ChartExecutor{})
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop())
}

type fakeCharts struct {
	charts []reportviewer.Chart
	err    error
}

func (f *fakeCharts) Charts(_ context.Context, _ int) ([]reportviewer.Chart, error) {
	return f.charts, f.err
}

type fakeClient struct {
	queries []chartdata.Query
	data    json.RawMessage
	err     error
}

func (f *fakeClient) Query(_ context.Context, q chartdata.Query) (json.RawMessage, error) {
	f.queries = append(f.queries, q)

	if f.err != nil {
		return nil, f.err
	}

	return f.data, nil
}

func (f *fakeClient) Start(_ context.Context) error {
	return nil
}

func (f *fakeClient) Stop() error {
	return nil
}

func newExecutor(t *testing.T, charts ChartSource, client chartdata.ClientInterface) (*ChartExecutor, tasks.ResultStore) {
	t.Helper()

	_, rc := testutil.NewMiniredisClient(t)
	results := tasks.NewResultStore(rc, &r.Config{Prefix: "rv"}, time.Hour)

	return NewChartExecutor(testutil.NewLogger(t), charts, client, results), results
}

func TestChartExecutor(t *testing.T) {
	ctx := context.Background()
	charts := &fakeCharts{charts: []reportviewer.Chart{
		{ID: 1, Name: "Revenue", FormData: map[string]any{"viz_type": "line"}},
	}}

	payload := tasks.RefreshPayload{
		SessionID:      "sess-a",
		ReportViewerID: 5,
		ChartID:        1,
		Reason:         refresh.ReasonManual,
		ExtraFilters:   []refresh.ExtraFilter{{Col: "region", Op: "in", Val: []any{"a"}}},
	}

	t.Run("stores the queried data", func(t *testing.T) {
		client := &fakeClient{data: json.RawMessage(`{"result": []}`)}
		exec, results := newExecutor(t, charts, client)

		require.NoError(t, exec.Execute(ctx, payload))

		require.Len(t, client.queries, 1)
		assert.Equal(t, "line", client.queries[0].FormData["viz_type"])
		assert.True(t, client.queries[0].Force, "manual refreshes bypass the cache")
		assert.Equal(t, payload.ExtraFilters, client.queries[0].ExtraFilters)

		got, err := results.Get(ctx, "sess-a", 5, 1)
		require.NoError(t, err)
		assert.Equal(t, tasks.StatusSuccess, got.Status)
		assert.JSONEq(t, `{"result": []}`, string(got.Data))
	})

	t.Run("failed queries are stored and returned", func(t *testing.T) {
		client := &fakeClient{err: errors.New("timeout")}
		exec, results := newExecutor(t, charts, client)

		require.Error(t, exec.Execute(ctx, payload))

		got, err := results.Get(ctx, "sess-a", 5, 1)
		require.NoError(t, err)
		assert.Equal(t, tasks.StatusFailed, got.Status)
		assert.Equal(t, "timeout", got.Error)
	})

	t.Run("removed charts are not retried", func(t *testing.T) {
		client := &fakeClient{}
		exec, _ := newExecutor(t, charts, client)

		missing := payload
		missing.ChartID = 42

		err := exec.Execute(ctx, missing)
		require.ErrorIs(t, err, ErrChartNotPlaced)
		require.ErrorIs(t, err, asynq.SkipRetry)
		assert.Empty(t, client.queries)
	})

	t.Run("deleted report viewers are not retried", func(t *testing.T) {
		exec, _ := newExecutor(t, &fakeCharts{err: reportviewer.ErrNotFound}, &fakeClient{})

		err := exec.Execute(ctx, payload)
		require.ErrorIs(t, err, reportviewer.ErrNotFound)
		require.ErrorIs(t, err, asynq.SkipRetry)
	})
}
