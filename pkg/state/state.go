// Package state holds the session state of an open report viewer and the
// pure reducer that applies actions to it.
package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/filters"
	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/scope"
)

// State is the complete session state of one report viewer. Values are
// treated as immutable: Reduce returns a new State and never mutates maps
// or slices it received.
type State struct {
	SessionID      string
	ReportViewerID int
	Slug           string
	CSS            string
	Published      bool

	Layout  layout.History
	Filters filters.Index

	NativeFilters            nativefilters.Configuration
	DataMask                 nativefilters.DataMaskState
	ChartConfiguration       nativefilters.ChartConfiguration
	GlobalChartConfiguration nativefilters.GlobalChartConfiguration
	CrossFiltersEnabled      bool

	Charts   map[int]reportviewer.Chart
	SliceIDs []int

	ActiveTabs        []string
	DirectPathToChild []string
	ExpandedSlices    map[int]bool

	EditMode                      bool
	HasUnsavedChanges             bool
	LastModifiedTime              time.Time
	RefreshFrequency              int
	ShouldPersistRefreshFrequency bool

	// Metadata is the json_metadata the session was hydrated from
	Metadata reportviewer.Metadata
}

// Present returns the current layout snapshot
func (s State) Present() layout.Layout {
	return s.Layout.Present()
}

// Title returns the report viewer title held by the header component
func (s State) Title() string {
	if n, ok := s.Present().Get(layout.HeaderID); ok {
		return n.Meta.Text
	}

	return ""
}

// MaxUndoHistoryExceeded reports whether undo steps were dropped
func (s State) MaxUndoHistoryExceeded() bool {
	return s.Layout.Exceeded()
}

// RequiredPending lists required-first native filters still without value
func (s State) RequiredPending() []string {
	return nativefilters.RequiredFirstPending(s.NativeFilters, s.DataMask)
}

// CrossFilterConfiguration returns the chart configuration in effect: empty
// when cross filtering is disabled.
func (s State) CrossFilterConfiguration() nativefilters.ChartConfiguration {
	if !s.CrossFiltersEnabled {
		return nativefilters.ChartConfiguration{}
	}

	return s.ChartConfiguration
}

// Snapshot extracts the part of the state the refresh coordinator compares
func (s State) Snapshot() refresh.Snapshot {
	return refresh.Snapshot{
		ActiveFilters:      s.Filters.Active(),
		DataMask:           s.DataMask,
		ChartIDs:           append([]int{}, s.SliceIDs...),
		NativeFilters:      s.NativeFilters,
		ChartConfiguration: s.CrossFilterConfiguration(),
		EditMode:           s.EditMode,
		RequiredPending:    s.RequiredPending(),
	}
}

// ExtraFormData returns the query overrides that apply to a chart
func (s State) ExtraFormData(chartID int) map[string]any {
	return nativefilters.ExtraFormDataForChart(chartID, s.DataMask, s.NativeFilters, s.CrossFilterConfiguration())
}

// ChartQuery returns the overrides a refresh of chartID is queried with
func (s State) ChartQuery(chartID int) refresh.ChartQuery {
	return refresh.ChartQuery{
		ChartID:       chartID,
		ExtraFormData: s.ExtraFormData(chartID),
		ExtraFilters:  refresh.ExtraFilters(s.Filters.Active(), chartID),
	}
}

// RefreshRequest builds the request for refreshing chartIDs
func (s State) RefreshRequest(chartIDs []int, reason refresh.Reason) refresh.Request {
	req := refresh.Request{
		SessionID:      s.SessionID,
		ReportViewerID: s.ReportViewerID,
		Reason:         reason,
		Charts:         make([]refresh.ChartQuery, 0, len(chartIDs)),
	}

	if reason == refresh.ReasonScheduled && s.Metadata.Stagger() {
		req.Stagger = s.Metadata.StaggerWindow()
	}

	for _, id := range chartIDs {
		req.Charts = append(req.Charts, s.ChartQuery(id))
	}

	return req
}

// TabsInScope lists the tabs holding the given charts, for highlighting
func (s State) TabsInScope(chartIDs []int) []string {
	return scope.TabsWithChartsInScope(s.Present(), chartIDs)
}

// FiltersInScope splits the native filter bar into entries that affect a
// visible chart and the rest.
func (s State) FiltersInScope() (in, out []nativefilters.Item) {
	return scope.FiltersInScope(s.Present(), s.NativeFilters.Items(), s.ActiveTabs)
}

// SaveRequest builds the payload written by reportviewer.Service.Save
func (s State) SaveRequest(t reportviewer.SaveType) (reportviewer.SaveRequest, error) {
	meta := s.Metadata

	defaults, err := json.Marshal(s.Filters.SerializeValues())
	if err != nil {
		return reportviewer.SaveRequest{}, fmt.Errorf("failed to encode default filters: %w", err)
	}

	nativeConfig, err := json.Marshal(s.NativeFilters)
	if err != nil {
		return reportviewer.SaveRequest{}, fmt.Errorf("failed to encode native filters: %w", err)
	}

	meta.DefaultFilters = string(defaults)
	meta.FilterScopes = s.Filters.SerializeScopes()
	meta.NativeFilterConfiguration = nativeConfig
	meta.ChartConfiguration = s.ChartConfiguration
	global := s.GlobalChartConfiguration
	meta.GlobalChartConfiguration = &global
	meta.Positions = nil

	enabled := s.CrossFiltersEnabled
	meta.CrossFiltersEnabled = &enabled

	if s.ShouldPersistRefreshFrequency {
		meta.RefreshFrequency = s.RefreshFrequency
	}

	meta.ExpandedSlices = make(map[string]bool, len(s.ExpandedSlices))
	for id, expanded := range s.ExpandedSlices {
		meta.ExpandedSlices[strconv.Itoa(id)] = expanded
	}

	return reportviewer.SaveRequest{
		Type:             t,
		Title:            s.Title(),
		Slug:             s.Slug,
		CSS:              s.CSS,
		Layout:           s.Present(),
		Metadata:         meta,
		LastModifiedTime: s.LastModifiedTime,
	}, nil
}

// resync recomputes everything derived from the layout: the active filter
// index, slice ids, native filter and cross filter scopes. Filter boxes
// placed for the first time are registered; filters of removed charts stay
// in the index, inactive. Masks of removed charts are dropped.
func (s State) resync() State {
	present := s.Present()

	s.SliceIDs = present.ChartIDs()
	s.Filters = s.registerFilterBoxes(present).Rebuild(present)
	s.NativeFilters = s.NativeFilters.WithScopes(present, s.SliceIDs)

	global := s.GlobalChartConfiguration
	s.ChartConfiguration, s.GlobalChartConfiguration = nativefilters.CrossFilterConfiguration(
		present, s.ChartConfiguration, &global, s.SliceIDs,
	)

	s.DataMask = pruneChartMasks(s.DataMask, s.SliceIDs)

	return s
}

func (s State) registerFilterBoxes(l layout.Layout) filters.Index {
	index := s.Filters

	for _, id := range s.SliceIDs {
		c, ok := s.Charts[id]
		if !ok || !c.IsFilterBox() {
			continue
		}

		if _, ok := index.Filter(id); ok {
			continue
		}

		index = index.Register(newFilterBox(l, c))
	}

	return index
}

// pruneChartMasks drops cross filter masks of charts that are gone
func pruneChartMasks(mask nativefilters.DataMaskState, chartIDs []int) nativefilters.DataMaskState {
	out := mask

	for _, id := range sortedMaskIDs(mask) {
		chartID, err := strconv.Atoi(id)
		if err != nil {
			continue
		}

		if !containsInt(chartIDs, chartID) {
			out = out.Without(id)
		}
	}

	return out
}

func sortedMaskIDs(mask nativefilters.DataMaskState) []string {
	ids := make([]string, 0, len(mask))
	for id := range mask {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}

	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}

	return false
}

// AutoRefreshCharts lists the charts refreshed periodically: every chart of
// the layout except timed_refresh_immune_slices.
func (s State) AutoRefreshCharts() []int {
	out := make([]int, 0, len(s.SliceIDs))

	for _, id := range s.SliceIDs {
		if !containsInt(s.Metadata.TimedRefreshImmuneSlices, id) {
			out = append(out, id)
		}
	}

	return out
}
