package handlers

import (
	"time"

	"github.com/ethpandaops/reportviewer/pkg/filters"
	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/sessions"
	"github.com/ethpandaops/reportviewer/pkg/state"
)

// SessionView is the client facing state of an open session
type SessionView struct {
	ID                     string                           `json:"id"`
	ReportViewerID         int                              `json:"reportViewerId"`
	Title                  string                           `json:"title"`
	Layout                 layout.Layout                    `json:"layout"`
	SliceIDs               []int                            `json:"sliceIds"`
	ActiveFilters          map[string]filters.ActiveFilter  `json:"activeFilters"`
	NativeFilters          nativefilters.Configuration      `json:"nativeFilterConfiguration"`
	DataMask               nativefilters.DataMaskState      `json:"dataMask"`
	ChartConfiguration     nativefilters.ChartConfiguration `json:"chartConfiguration"`
	CrossFiltersEnabled    bool                             `json:"crossFiltersEnabled"`
	FiltersInScope         []string                         `json:"filtersInScope"`
	FiltersOutOfScope      []string                         `json:"filtersOutOfScope"`
	RequiredPending        []string                         `json:"requiredFirstPending"`
	ActiveTabs             []string                         `json:"activeTabs"`
	DirectPathToChild      []string                         `json:"directPathToChild"`
	ExpandedSlices         map[int]bool                     `json:"expandedSlices"`
	EditMode               bool                             `json:"editMode"`
	HasUnsavedChanges      bool                             `json:"hasUnsavedChanges"`
	RefreshFrequency       int                              `json:"refreshFrequency"`
	CanUndo                bool                             `json:"canUndo"`
	CanRedo                bool                             `json:"canRedo"`
	MaxUndoHistoryExceeded bool                             `json:"maxUndoHistoryExceeded"`
	LastModifiedTime       time.Time                        `json:"lastModifiedTime"`
	Hydration              *HydrationView                   `json:"hydration,omitempty"`
}

// HydrationView lists what was repaired when the session was opened
type HydrationView struct {
	LayoutFallback bool     `json:"layoutFallback"`
	ParentsRebuilt bool     `json:"parentsRebuilt"`
	OrphanCharts   []int    `json:"orphanCharts"`
	Errors         []string `json:"errors"`
}

// RefreshView is the refresh decision of a dispatched action
type RefreshView struct {
	Refresh    []int `json:"refresh"`
	Added      []int `json:"added"`
	Removed    []int `json:"removed"`
	Suppressed bool  `json:"suppressed"`
}

func newSessionView(sess *sessions.Session, st state.State) SessionView {
	in, out := st.FiltersInScope()

	return SessionView{
		ID:                     sess.ID,
		ReportViewerID:         sess.ReportViewerID,
		Title:                  st.Title(),
		Layout:                 st.Present(),
		SliceIDs:               nonNilInts(st.SliceIDs),
		ActiveFilters:          st.Filters.Active(),
		NativeFilters:          st.NativeFilters,
		DataMask:               st.DataMask,
		ChartConfiguration:     st.CrossFilterConfiguration(),
		CrossFiltersEnabled:    st.CrossFiltersEnabled,
		FiltersInScope:         itemIDs(in),
		FiltersOutOfScope:      itemIDs(out),
		RequiredPending:        nonNilStrings(st.RequiredPending()),
		ActiveTabs:             nonNilStrings(st.ActiveTabs),
		DirectPathToChild:      nonNilStrings(st.DirectPathToChild),
		ExpandedSlices:         st.ExpandedSlices,
		EditMode:               st.EditMode,
		HasUnsavedChanges:      st.HasUnsavedChanges,
		RefreshFrequency:       st.RefreshFrequency,
		CanUndo:                st.Layout.CanUndo(),
		CanRedo:                st.Layout.CanRedo(),
		MaxUndoHistoryExceeded: st.MaxUndoHistoryExceeded(),
		LastModifiedTime:       st.LastModifiedTime,
	}
}

func newHydrationView(r state.Report) *HydrationView {
	errs := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		errs = append(errs, err.Error())
	}

	return &HydrationView{
		LayoutFallback: r.LayoutFallback,
		ParentsRebuilt: r.ParentsRebuilt,
		OrphanCharts:   nonNilInts(r.OrphanCharts),
		Errors:         errs,
	}
}

func newRefreshView(r refresh.Result) RefreshView {
	return RefreshView{
		Refresh:    nonNilInts(r.Refresh),
		Added:      nonNilInts(r.Added),
		Removed:    nonNilInts(r.Removed),
		Suppressed: r.Suppressed,
	}
}

func itemIDs(items []nativefilters.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ItemID())
	}

	return out
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}

	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}

	return v
}
