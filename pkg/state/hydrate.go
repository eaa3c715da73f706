package state

import (
	"fmt"
	"strconv"

	"github.com/ethpandaops/reportviewer/pkg/filters"
	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
)

// HydrateInput is everything needed to open a report viewer session
type HydrateInput struct {
	// SessionID names the session the state belongs to
	SessionID    string
	ReportViewer reportviewer.ReportViewer
	Charts       []reportviewer.Chart
	// DataMask holds masks restored from a permalink or filter state key.
	// They take precedence over native filter defaults.
	DataMask   nativefilters.DataMaskState
	ActiveTabs []string
	// Anchor is a layout component id to focus
	Anchor string
	// FocusedChartID focuses the component of a chart and wins over Anchor
	FocusedChartID int
	EditMode       bool
}

// Report lists what hydration had to repair or ignore
type Report struct {
	// LayoutFallback is set when position_json was missing or unreadable
	LayoutFallback bool
	// ParentsRebuilt is set when stored components lacked parents
	ParentsRebuilt bool
	// OrphanCharts lists charts placed because the layout did not hold them
	OrphanCharts []int
	// Errors holds decoding problems of optional metadata sections
	Errors []error
}

// Hydrate builds the initial session state of a stored report viewer.
// Unreadable optional sections are reported and replaced by empty values.
func Hydrate(in HydrateInput) (State, Report) {
	var report Report

	rv := in.ReportViewer

	meta, err := rv.Metadata()
	if err != nil {
		report.Errors = append(report.Errors, err)
	}

	positions := []byte(rv.PositionJSON)
	if len(positions) == 0 && len(meta.Positions) > 0 {
		positions = meta.Positions
	}

	l, fallback := layout.ParseOrEmpty(positions)
	report.LayoutFallback = fallback

	if missingParents(l) {
		l = layout.UpdateParentsList(l)
		report.ParentsRebuilt = true
	}

	l, report.OrphanCharts = placeOrphans(l, in.Charts)
	l = syncSliceNames(l, in.Charts)
	l = layout.WithHeader(l, rv.Title)

	sliceIDs := l.ChartIDs()

	charts := make(map[int]reportviewer.Chart, len(in.Charts))
	for _, c := range in.Charts {
		charts[c.ID] = c
	}

	index, errs := buildFilterIndex(l, meta, in.Charts, sliceIDs)
	report.Errors = append(report.Errors, errs...)

	config, err := nativefilters.ParseConfiguration(meta.NativeFilterConfiguration)
	if err == nil {
		_, err = nativefilters.NewCascade(config)
	}

	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("ignoring native filter configuration: %w", err))
		config, _ = nativefilters.NewConfiguration()
	}

	config = config.WithScopes(l, sliceIDs)

	mask := config.DefaultDataMask()
	for _, id := range sortedMaskIDs(in.DataMask) {
		mask = mask.With(id, in.DataMask[id])
	}

	chartConfig, globalConfig := nativefilters.CrossFilterConfiguration(
		l, meta.ChartConfiguration, meta.GlobalChartConfiguration, sliceIDs,
	)

	expanded := make(map[int]bool, len(meta.ExpandedSlices))
	for key, v := range meta.ExpandedSlices {
		if id, err := strconv.Atoi(key); err == nil && v {
			expanded[id] = true
		}
	}

	s := State{
		SessionID:                in.SessionID,
		ReportViewerID:           rv.ID,
		Slug:                     rv.Slug,
		CSS:                      rv.CSS,
		Published:                rv.Published,
		Layout:                   layout.NewHistory(l),
		Filters:                  index,
		NativeFilters:            config,
		DataMask:                 pruneChartMasks(mask, sliceIDs),
		ChartConfiguration:       chartConfig,
		GlobalChartConfiguration: globalConfig,
		CrossFiltersEnabled:      meta.CrossFilters(),
		Charts:                   charts,
		SliceIDs:                 sliceIDs,
		ActiveTabs:               append([]string{}, in.ActiveTabs...),
		DirectPathToChild:        directPath(l, in.Anchor, in.FocusedChartID),
		ExpandedSlices:           expanded,
		EditMode:                 in.EditMode,
		LastModifiedTime:         rv.ChangedOn,
		RefreshFrequency:         meta.RefreshFrequency,
		Metadata:                 meta,
	}

	return s, report
}

func missingParents(l layout.Layout) bool {
	for id, n := range l.Nodes() {
		if id == layout.RootID || n.Type == layout.TypeReportViewerHeader {
			continue
		}

		if len(n.Parents) == 0 {
			return true
		}
	}

	return false
}

// placeOrphans packs charts missing from the layout into new rows of the
// first container, GridDefaultChartWidth columns each.
func placeOrphans(l layout.Layout, charts []reportviewer.Chart) (layout.Layout, []int) {
	container := l.FirstParentContainerID()
	if !l.Has(container) {
		return l, nil
	}

	var (
		placed   []int
		rowID    string
		rowWidth int
		counts   = make(map[int]int)
	)

	for _, c := range charts {
		if _, ok := l.ChartComponent(c.ID); ok {
			continue
		}

		if rowID == "" || rowWidth+layout.GridDefaultChartWidth > layout.GridColumnCount {
			rowID = layout.NewComponentID(layout.TypeRow)
			l = layout.Apply(l, layout.CreateComponent{
				ID:       rowID,
				Type:     layout.TypeRow,
				ParentID: container,
				Index:    -1,
			})
			rowWidth = 0
		}

		counts[c.ID]++

		l = layout.Apply(l, layout.CreateComponent{
			ID:       fmt.Sprintf("%s-explore-%d-%d", layout.TypeChart, c.ID, counts[c.ID]),
			Type:     layout.TypeChart,
			ParentID: rowID,
			Index:    -1,
			Meta: &layout.Meta{
				ChartID: c.ID,
				Width:   layout.GridDefaultChartWidth,
				Height:  layout.GridDefaultChartHeight,
			},
		})

		rowWidth += layout.GridDefaultChartWidth
		placed = append(placed, c.ID)
	}

	return l, placed
}

// syncSliceNames copies current chart names into their layout components
func syncSliceNames(l layout.Layout, charts []reportviewer.Chart) layout.Layout {
	for _, c := range charts {
		n, ok := l.ChartComponent(c.ID)
		if !ok || n.Meta.SliceName == c.Name {
			continue
		}

		name := c.Name
		l = layout.Apply(l, layout.UpdateComponentMeta{
			ID:    n.ID,
			Patch: layout.MetaPatch{SliceName: &name},
		})
	}

	return l
}

// buildFilterIndex registers every filter box chart of the layout with its
// persisted default values and scopes.
func buildFilterIndex(
	l layout.Layout,
	meta reportviewer.Metadata,
	charts []reportviewer.Chart,
	sliceIDs []int,
) (filters.Index, []error) {
	var errs []error

	defaults, err := filters.ParseDefaultFilters([]byte(meta.DefaultFilters))
	if err != nil {
		errs = append(errs, err)
		defaults = map[int]map[string][]any{}
	}

	scopes := make(map[int]map[string]filters.ColumnScope, len(meta.FilterScopes))
	for key, columns := range meta.FilterScopes {
		if id, err := strconv.Atoi(key); err == nil {
			scopes[id] = columns
		}
	}

	registered := make(map[int]filters.Filter)

	for _, c := range charts {
		if !c.IsFilterBox() || !containsInt(sliceIDs, c.ID) {
			continue
		}

		f := newFilterBox(l, c)

		for column, values := range defaults[c.ID] {
			f.Columns[column] = values
		}

		for column, sc := range scopes[c.ID] {
			f.Scopes[column] = sc
		}

		registered[c.ID] = f
	}

	return filters.NewIndex(registered, l), errs
}

// newFilterBox builds the filter of a placed filter box chart with every
// column unselected and global scopes.
func newFilterBox(l layout.Layout, c reportviewer.Chart) filters.Filter {
	component, _ := l.ChartComponent(c.ID)

	columns := make(map[string][]any)
	for _, column := range c.FilterBoxColumns() {
		columns[column] = []any{}
	}

	return filters.Filter{
		ChartID:            c.ID,
		ComponentID:        component.ID,
		FilterName:         c.Name,
		DatasourceID:       strconv.Itoa(c.DatasourceID),
		DirectPathToFilter: l.DirectPathTo(component.ID),
		Columns:            columns,
		Labels:             c.FilterBoxLabels(),
		Scopes:             map[string]filters.ColumnScope{},
	}
}

func directPath(l layout.Layout, anchor string, focusedChartID int) []string {
	if focusedChartID != 0 {
		if n, ok := l.ChartComponent(focusedChartID); ok {
			return l.DirectPathTo(n.ID)
		}
	}

	if anchor != "" && l.Has(anchor) {
		return l.DirectPathTo(anchor)
	}

	return []string{}
}
