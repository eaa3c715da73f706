package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethpandaops/reportviewer/internal/testutil"
	"github.com/ethpandaops/reportviewer/pkg/keyvalue"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "valid", cfg: Config{IdleTimeout: time.Minute, EvictionInterval: time.Second}},
		{name: "no idle timeout", cfg: Config{EvictionInterval: time.Second}, wantErr: ErrInvalidIdleTimeout},
		{name: "no eviction interval", cfg: Config{IdleTimeout: time.Minute}, wantErr: ErrInvalidEvictionInterval},
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

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newTestRegistry(t *testing.T, cfg Config) (*Registry, *clock) {
	t.Helper()

	c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	reg := NewRegistry(testutil.NewLogger(t), cfg)
	reg.now = c.Now

	return reg, c
}

func emptyStore(t *testing.T) *state.Store {
	t.Helper()

	initial, _ := state.Hydrate(state.HydrateInput{ReportViewer: reportviewer.ReportViewer{ID: 1}})

	return state.NewStore(testutil.NewLogger(t), initial, nil)
}

func TestRegistry(t *testing.T) {
	reg, c := newTestRegistry(t, Config{IdleTimeout: 10 * time.Minute, MaxSessions: 2})

	a, err := reg.Open(reg.NewID(), 1, emptyStore(t), state.Report{})
	require.NoError(t, err)
	b, err := reg.Open(reg.NewID(), 1, emptyStore(t), state.Report{})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = reg.Open(reg.NewID(), 1, emptyStore(t), state.Report{})
	require.ErrorIs(t, err, ErrTooManySessions)

	_, err = reg.Open(a.ID, 1, emptyStore(t), state.Report{})
	require.ErrorIs(t, err, ErrSessionExists)

	got, err := reg.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = reg.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, reg.List(), 2)

	require.NoError(t, reg.Close(b.ID))
	require.ErrorIs(t, reg.Close(b.ID), ErrNotFound)
	assert.Equal(t, 1, reg.Len())

	t.Run("idle sessions are evicted", func(t *testing.T) {
		c.Advance(5 * time.Minute)

		fresh, err := reg.Open(reg.NewID(), 2, emptyStore(t), state.Report{})
		require.NoError(t, err)

		c.Advance(6 * time.Minute)
		assert.Equal(t, []string{a.ID}, reg.Evict())

		_, err = reg.Get(fresh.ID)
		require.NoError(t, err)

		_, err = reg.Get(a.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRegistryEvictionLoop(t *testing.T) {
	reg := NewRegistry(testutil.NewLogger(t), Config{IdleTimeout: time.Nanosecond, EvictionInterval: 5 * time.Millisecond})

	_, err := reg.Open(reg.NewID(), 1, emptyStore(t), state.Report{})
	require.NoError(t, err)

	reg.Start(context.Background())
	defer reg.Stop()

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
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

type fixture struct {
	svc       *Service
	rv        reportviewer.ReportViewer
	kv        keyvalue.Store
	refresher *recordingRefresher
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	log := testutil.NewLogger(t)
	repo := testutil.NewRepository(t)
	rv := testutil.SeedReportViewer(t, repo)

	mr, client := testutil.NewMiniredisClient(t)
	kv := keyvalue.NewStore(log, client, testutil.RedisConfig(mr), keyvalue.Config{FilterStateTTL: time.Hour})

	refresher := &recordingRefresher{}
	reg := NewRegistry(log, Config{IdleTimeout: time.Hour, EvictionInterval: time.Minute})

	return fixture{
		svc:       NewService(log, reg, reportviewer.NewService(log, repo), kv, refresher),
		rv:        rv,
		kv:        kv,
		refresher: refresher,
	}
}

func TestServiceOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.svc.Open(ctx, f.rv.ID, OpenOptions{})
	require.NoError(t, err)

	st := sess.Store().State()
	assert.Equal(t, sess.ID, st.SessionID)
	assert.Equal(t, f.rv.ID, st.ReportViewerID)
	assert.Equal(t, []int{1, 2, 10}, st.SliceIDs)
	assert.Contains(t, st.Filters.Active(), "10_region")

	require.Len(t, f.refresher.requests, 1)
	assert.Equal(t, refresh.ReasonAdded, f.refresher.requests[0].Reason)
	assert.Equal(t, []int{1, 2, 10}, f.refresher.requests[0].ChartIDs())

	_, err = f.svc.Open(ctx, 999, OpenOptions{})
	require.ErrorIs(t, err, reportviewer.ErrNotFound)
}

func TestServiceSessionsOnOneReportViewer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.svc.Open(ctx, f.rv.ID, OpenOptions{})
	require.NoError(t, err)

	b, err := f.svc.Open(ctx, f.rv.ID, OpenOptions{})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	for _, sess := range []*Session{a, b} {
		_, err := f.svc.Dispatch(ctx, sess.ID, state.ChangeFilter{
			ChartID: 10,
			Values:  map[string][]any{"region": {sess.ID}},
		})
		require.NoError(t, err)
	}

	require.Len(t, f.refresher.requests, 4)

	for i, sess := range []*Session{a, b} {
		req := f.refresher.requests[2+i]
		assert.Equal(t, sess.ID, req.SessionID)
		require.NotEmpty(t, req.Charts)

		for _, chart := range req.Charts {
			require.Len(t, chart.ExtraFilters, 1)
			assert.Equal(t, []any{sess.ID}, chart.ExtraFilters[0].Val, "refreshes carry the filters of their own session")
		}
	}
}

func TestServiceOpenRestoresState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.svc.Open(ctx, f.rv.ID, OpenOptions{})
	require.NoError(t, err)

	_, err = f.svc.Dispatch(ctx, sess.ID, state.UpdateDataMask{ID: "NATIVE_FILTER-a", DataMask: nativefilters.DataMask{
		FilterState:   nativefilters.FilterState{Value: []any{"nz"}},
		ExtraFormData: map[string]any{"filters": []any{"country"}},
	}})
	require.NoError(t, err)

	_, err = f.svc.Dispatch(ctx, sess.ID, state.SetActiveTabs{ActiveTabs: []string{"TAB-X"}})
	require.NoError(t, err)

	t.Run("filter state key", func(t *testing.T) {
		key, err := f.svc.SaveFilterState(ctx, sess.ID, "tab-1")
		require.NoError(t, err)

		restored, err := f.svc.Open(ctx, f.rv.ID, OpenOptions{FilterStateKey: key})
		require.NoError(t, err)
		assert.Equal(t, []any{"nz"}, restored.Store().State().DataMask["NATIVE_FILTER-a"].FilterState.Value)
	})

	t.Run("permalink", func(t *testing.T) {
		key, err := f.svc.Permalink(ctx, sess.ID, "CHART-1")
		require.NoError(t, err)

		restored, err := f.svc.Open(ctx, f.rv.ID, OpenOptions{PermalinkKey: key})
		require.NoError(t, err)

		st := restored.Store().State()
		assert.Equal(t, []any{"nz"}, st.DataMask["NATIVE_FILTER-a"].FilterState.Value)
		assert.Equal(t, []string{"TAB-X"}, st.ActiveTabs)
		assert.Equal(t, "CHART-1", st.DirectPathToChild[len(st.DirectPathToChild)-1])
	})

	t.Run("permalink of another report viewer", func(t *testing.T) {
		key, err := f.kv.CreatePermalink(ctx, keyvalue.PermalinkValue{ReportViewerID: 77})
		require.NoError(t, err)

		_, err = f.svc.Open(ctx, f.rv.ID, OpenOptions{PermalinkKey: key})
		require.ErrorIs(t, err, ErrPermalinkMismatch)
	})

	t.Run("unknown keys", func(t *testing.T) {
		_, err := f.svc.Open(ctx, f.rv.ID, OpenOptions{PermalinkKey: "nope"})
		require.ErrorIs(t, err, keyvalue.ErrNotFound)

		_, err = f.svc.Open(ctx, f.rv.ID, OpenOptions{FilterStateKey: "nope"})
		require.ErrorIs(t, err, keyvalue.ErrNotFound)
	})
}

func TestServiceSave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.svc.Open(ctx, f.rv.ID, OpenOptions{})
	require.NoError(t, err)

	_, err = f.svc.Dispatch(ctx, sess.ID, state.ChangeFilter{ChartID: 10, Values: map[string][]any{"region": {"b"}}})
	require.NoError(t, err)

	_, err = f.svc.Dispatch(ctx, sess.ID, state.SetUnsavedChanges{HasUnsavedChanges: true})
	require.NoError(t, err)

	t.Run("copy leaves the session as it is", func(t *testing.T) {
		result, err := f.svc.Save(ctx, sess.ID, reportviewer.SaveCopy)
		require.NoError(t, err)
		assert.NotEqual(t, f.rv.ID, result.ReportViewer.ID)
		assert.True(t, sess.Store().State().HasUnsavedChanges)
	})

	t.Run("overwrite marks the session saved", func(t *testing.T) {
		result, err := f.svc.Save(ctx, sess.ID, reportviewer.SaveOverwrite)
		require.NoError(t, err)

		st := sess.Store().State()
		assert.False(t, st.HasUnsavedChanges)
		assert.Equal(t, result.LastModifiedTime, st.LastModifiedTime)
		assert.Contains(t, result.ReportViewer.JSONMetadata, `\"b\"`)
	})

	t.Run("unknown save type", func(t *testing.T) {
		_, err := f.svc.Save(ctx, sess.ID, reportviewer.SaveType("merge"))
		require.ErrorIs(t, err, reportviewer.ErrInvalidSaveType)
	})

	t.Run("closed session", func(t *testing.T) {
		require.NoError(t, f.svc.Close(sess.ID))

		_, err := f.svc.Save(ctx, sess.ID, reportviewer.SaveOverwrite)
		require.ErrorIs(t, err, ErrNotFound)
	})
}
