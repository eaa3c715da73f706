package state

import (
	"context"
	"sync"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/observability"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/scope"
	"github.com/sirupsen/logrus"
)

// DispatchResult is the outcome of a dispatched action
type DispatchResult struct {
	State   State
	Refresh refresh.Result
}

// Store owns the state of one session. Dispatch calls are serialized and
// applied in submission order; the refresh coordinator runs after every
// reduce and its decision is forwarded to the Refresher before the next
// action is taken.
type Store struct {
	log         logrus.FieldLogger
	mu          sync.Mutex
	state       State
	coordinator *refresh.Coordinator
	refresher   refresh.Refresher
}

// NewStore creates a store starting at initial. The initial filters count
// as applied. A nil refresher drops refresh requests.
func NewStore(log logrus.FieldLogger, initial State, refresher refresh.Refresher) *Store {
	return &Store{
		log: log.WithFields(logrus.Fields{
			"component":        "store",
			"report_viewer_id": initial.ReportViewerID,
		}),
		state:       initial,
		coordinator: refresh.NewCoordinator(initial.Snapshot()),
		refresher:   refresher,
	}
}

// State returns the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Dispatch validates and applies a, then requests the refreshes it causes.
// Refresh failures are logged; the action stays applied.
func (s *Store) Dispatch(ctx context.Context, a Action) (DispatchResult, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	a = Normalize(a)
	actionType := "unknown"

	if a != nil {
		actionType = string(a.Type())
	}

	if err := Validate(s.state, a); err != nil {
		observability.RecordAction(actionType, "rejected", time.Since(start).Seconds())
		s.log.WithError(err).WithField("action", actionType).Debug("Rejected action")

		return DispatchResult{State: s.state}, err
	}

	s.state = Reduce(s.state, a)

	res := s.coordinator.Observe(s.state.Snapshot())
	if res.Suppressed {
		observability.RecordRefreshSuppressed()
	}

	s.forward(ctx, res.Refresh, refresh.ReasonFilters)
	s.forward(ctx, res.Added, refresh.ReasonAdded)

	observability.RecordAction(actionType, "applied", time.Since(start).Seconds())

	s.log.WithFields(logrus.Fields{
		"action":     actionType,
		"refresh":    len(res.Refresh),
		"added":      len(res.Added),
		"suppressed": res.Suppressed,
	}).Debug("Applied action")

	return DispatchResult{State: s.state, Refresh: res}, nil
}

// Refresh requests a refresh of the given charts, or of every chart when
// chartIDs is nil. Charts not in the layout are skipped.
func (s *Store) Refresh(ctx context.Context, chartIDs []int, reason refresh.Reason) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := append([]int{}, s.state.SliceIDs...)
	if chartIDs != nil {
		targets = scope.Intersect(chartIDs, s.state.SliceIDs)
	}

	s.forward(ctx, targets, reason)

	return targets
}

// AutoRefresh refreshes every chart not immune to periodic refreshes. It
// does nothing in edit mode.
func (s *Store) AutoRefresh(ctx context.Context) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.EditMode {
		return nil
	}

	targets := s.state.AutoRefreshCharts()
	s.forward(ctx, targets, refresh.ReasonScheduled)

	return targets
}

func (s *Store) forward(ctx context.Context, chartIDs []int, reason refresh.Reason) {
	if len(chartIDs) == 0 || s.refresher == nil {
		return
	}

	if err := s.refresher.Refresh(ctx, s.state.RefreshRequest(chartIDs, reason)); err != nil {
		observability.RecordError("store", "refresh")
		s.log.WithError(err).WithField("reason", reason).Error("Failed to request chart refresh")

		return
	}

	observability.RecordChartsRefreshed(string(reason), len(chartIDs))
}
