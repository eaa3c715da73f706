package refresh

import (
	"context"

	"github.com/ethpandaops/reportviewer/pkg/filters"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
	"github.com/ethpandaops/reportviewer/pkg/scope"
)

// Reason explains why charts were selected for refresh
type Reason string

const (
	// ReasonFilters marks refreshes caused by filter or data mask changes
	ReasonFilters Reason = "filters"
	// ReasonAdded marks charts newly placed in the layout
	ReasonAdded Reason = "added"
	// ReasonScheduled marks periodic auto refreshes
	ReasonScheduled Reason = "scheduled"
	// ReasonManual marks refreshes requested by a user
	ReasonManual Reason = "manual"
)

// Refresher is the chart data fetch layer
type Refresher interface {
	Refresh(ctx context.Context, req Request) error
}

// Snapshot is the part of the session state the coordinator compares
type Snapshot struct {
	ActiveFilters      map[string]filters.ActiveFilter
	DataMask           nativefilters.DataMaskState
	ChartIDs           []int
	NativeFilters      nativefilters.Configuration
	ChartConfiguration nativefilters.ChartConfiguration
	EditMode           bool
	RequiredPending    []string
}

// Result lists what Observe decided
type Result struct {
	// Refresh holds the charts whose data must be queried again
	Refresh []int
	// Added holds charts newly present in the layout
	Added []int
	// Removed holds charts no longer present in the layout
	Removed []int
	// Suppressed is set when a filter change was held back
	Suppressed bool
}

// IsEmpty reports whether nothing needs to happen
func (r Result) IsEmpty() bool {
	return len(r.Refresh) == 0 && len(r.Added) == 0 && len(r.Removed) == 0
}

// Coordinator remembers the last applied filter state and reports the
// charts to refresh for each new snapshot. It is not safe for concurrent
// use; callers serialize Observe.
type Coordinator struct {
	applied Snapshot
	charts  []int
}

// NewCoordinator starts from an already applied snapshot
func NewCoordinator(initial Snapshot) *Coordinator {
	return &Coordinator{
		applied: initial,
		charts:  append([]int{}, initial.ChartIDs...),
	}
}

// Observe compares s with the applied snapshot. While in edit mode, or while
// a required-first native filter has no value, filter changes are held back
// and the applied snapshot is kept so they are picked up later.
func (c *Coordinator) Observe(s Snapshot) Result {
	added, removed := ChartDiff(c.charts, s.ChartIDs)
	c.charts = append([]int{}, s.ChartIDs...)

	res := Result{
		Refresh: []int{},
		Added:   added,
		Removed: removed,
	}

	affected := scope.Union(
		AffectedOwnDataCharts(c.applied.DataMask, s.DataMask),
		AffectedCharts(c.applied.ActiveFilters, s.ActiveFilters),
		AffectedByDataMask(c.applied.DataMask, s.DataMask, s.NativeFilters, s.ChartConfiguration),
		AffectedByDataMask(c.applied.DataMask, s.DataMask, c.applied.NativeFilters, c.applied.ChartConfiguration),
	)

	if s.EditMode || len(s.RequiredPending) > 0 {
		res.Suppressed = len(affected) > 0

		return res
	}

	res.Refresh = scope.Intersect(affected, s.ChartIDs)
	c.applied = s

	return res
}

// Applied returns the last applied snapshot
func (c *Coordinator) Applied() Snapshot {
	return c.applied
}
