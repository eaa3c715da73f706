package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethpandaops/reportviewer/internal/testutil"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/sessions"
	"github.com/ethpandaops/reportviewer/pkg/state"
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
		{name: "valid", cfg: Config{Enabled: true, TickInterval: time.Second}},
		{name: "disabled skips checks", cfg: Config{Enabled: false}},
		{name: "no tick interval", cfg: Config{Enabled: true}, wantErr: ErrInvalidTickInterval},
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

type recordingRefresher struct {
	mu       sync.Mutex
	requests []refresh.Request
}

func (r *recordingRefresher) Refresh(_ context.Context, req refresh.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, req)

	return nil
}

func (r *recordingRefresher) scheduled() []refresh.Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []refresh.Request

	for _, req := range r.requests {
		if req.Reason == refresh.ReasonScheduled {
			out = append(out, req)
		}
	}

	return out
}

type fixture struct {
	mr        *miniredis.Miniredis
	client    *redis.Client
	registry  *sessions.Registry
	refresher *recordingRefresher
	session   *sessions.Session
}

func newFixture(t *testing.T, frequency int) fixture {
	t.Helper()

	mr, client := testutil.NewMiniredisClient(t)
	refresher := &recordingRefresher{}

	initial, _ := state.Hydrate(state.HydrateInput{
		ReportViewer: reportviewer.ReportViewer{
			ID:           1,
			PositionJSON: testutil.PositionJSON,
			JSONMetadata: testutil.MetadataJSON,
		},
		Charts: testutil.Charts(),
	})

	store := state.NewStore(testutil.NewLogger(t), initial, refresher)
	_, err := store.Dispatch(context.Background(), state.SetRefreshFrequency{Frequency: frequency})
	require.NoError(t, err)

	registry := sessions.NewRegistry(testutil.NewLogger(t), sessions.Config{
		IdleTimeout:      time.Hour,
		EvictionInterval: time.Minute,
		MaxSessions:      10,
	})

	sess, err := registry.Open(registry.NewID(), 1, store, state.Report{})
	require.NoError(t, err)

	return fixture{mr: mr, client: client, registry: registry, refresher: refresher, session: sess}
}

func (f fixture) newService(t *testing.T) *service {
	t.Helper()

	cfg := &Config{
		Enabled:             true,
		TickInterval:        time.Second,
		MinRefreshFrequency: 10 * time.Second,
		TrackerTTL:          time.Hour,
	}

	return NewService(testutil.NewLogger(t), cfg, f.client, testutil.RedisConfig(f.mr), f.registry).(*service)
}

func (f fixture) checkAt(s *service, offset time.Duration) {
	s.now = func() time.Time { return f.session.OpenedAt.Add(offset) }
	s.checkSchedules(context.Background())
}

func TestCheckSchedules(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newService(t)
	ctx := context.Background()

	f.checkAt(s, 5*time.Second)
	assert.Empty(t, f.refresher.scheduled())

	f.checkAt(s, 10*time.Second)
	require.Len(t, f.refresher.scheduled(), 1)
	assert.ElementsMatch(t, []int{1, 2, 10}, f.refresher.scheduled()[0].ChartIDs())

	lastRun, err := s.tracker.GetLastRun(ctx, f.session.ID)
	require.NoError(t, err)
	assert.True(t, lastRun.Equal(f.session.OpenedAt.Add(10*time.Second)))

	f.checkAt(s, 15*time.Second)
	assert.Len(t, f.refresher.scheduled(), 1)

	f.checkAt(s, 20*time.Second)
	assert.Len(t, f.refresher.scheduled(), 2)

	t.Run("edit mode skips the refresh", func(t *testing.T) {
		_, err := f.session.Store().Dispatch(ctx, state.SetEditMode{EditMode: true})
		require.NoError(t, err)

		f.checkAt(s, 30*time.Second)
		assert.Len(t, f.refresher.scheduled(), 2)

		_, err = f.session.Store().Dispatch(ctx, state.SetEditMode{EditMode: false})
		require.NoError(t, err)
	})

	t.Run("turning auto refresh off forgets the session", func(t *testing.T) {
		_, err := f.session.Store().Dispatch(ctx, state.SetRefreshFrequency{Frequency: 0})
		require.NoError(t, err)

		f.checkAt(s, 60*time.Second)
		assert.Len(t, f.refresher.scheduled(), 2)
		assert.NotContains(t, s.entries, f.session.ID)

		lastRun, err := s.tracker.GetLastRun(ctx, f.session.ID)
		require.NoError(t, err)
		assert.True(t, lastRun.IsZero())
	})
}

func TestCheckSchedulesMinimumFrequency(t *testing.T) {
	f := newFixture(t, 1)
	s := f.newService(t)

	f.checkAt(s, 5*time.Second)
	assert.Empty(t, f.refresher.scheduled())

	f.checkAt(s, 10*time.Second)
	assert.Len(t, f.refresher.scheduled(), 1)
}

func TestCheckSchedulesClosedSession(t *testing.T) {
	f := newFixture(t, 10)
	s := f.newService(t)

	f.checkAt(s, 10*time.Second)
	require.Contains(t, s.entries, f.session.ID)

	require.NoError(t, f.registry.Close(f.session.ID))

	f.checkAt(s, 20*time.Second)
	assert.NotContains(t, s.entries, f.session.ID)
	assert.Len(t, f.refresher.scheduled(), 1)
}

func TestCheckSchedulesResumesFromLastRun(t *testing.T) {
	f := newFixture(t, 10)

	first := f.newService(t)
	f.checkAt(first, 10*time.Second)
	require.Len(t, f.refresher.scheduled(), 1)

	second := f.newService(t)

	f.checkAt(second, 15*time.Second)
	assert.Len(t, f.refresher.scheduled(), 1, "next run follows the tracked last run")

	f.checkAt(second, 20*time.Second)
	assert.Len(t, f.refresher.scheduled(), 2)
}

func TestServiceLifecycle(t *testing.T) {
	f := newFixture(t, 10)

	svc := NewService(testutil.NewLogger(t), &Config{
		Enabled:             true,
		TickInterval:        10 * time.Millisecond,
		MinRefreshFrequency: 10 * time.Second,
		TrackerTTL:          time.Hour,
	}, f.client, testutil.RedisConfig(f.mr), f.registry)

	require.NoError(t, svc.Start(context.Background()))

	assert.Eventually(t, func() bool {
		s := svc.(*service)
		s.mu.Lock()
		defer s.mu.Unlock()

		_, ok := s.entries[f.session.ID]

		return ok
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Stop())

	disabled := NewService(testutil.NewLogger(t), &Config{}, f.client, testutil.RedisConfig(f.mr), f.registry)
	require.NoError(t, disabled.Start(context.Background()))
	require.NoError(t, disabled.Stop())
}
