// Package refresh decides which charts must query again after a state
// change. It never fetches data itself.
package refresh

import (
	"strconv"

	"github.com/ethpandaops/reportviewer/pkg/filters"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
	"github.com/ethpandaops/reportviewer/pkg/scope"
)

// AffectedCharts compares two active filter maps. A removed key contributes
// its previous scope, an added key its current scope, changed values the
// current scope and a changed scope both scopes. The result is a sorted set.
func AffectedCharts(prev, curr map[string]filters.ActiveFilter) []int {
	affected := make([][]int, 0)

	for key, p := range prev {
		c, ok := curr[key]
		if !ok {
			affected = append(affected, p.Scope)
			continue
		}

		if !filters.Equal(filters.ActiveFilter{Values: p.Values}, filters.ActiveFilter{Values: c.Values}) {
			affected = append(affected, c.Scope)
		}

		if !filters.Equal(filters.ActiveFilter{Scope: p.Scope}, filters.ActiveFilter{Scope: c.Scope}) {
			affected = append(affected, c.Scope, p.Scope)
		}
	}

	for key, c := range curr {
		if _, ok := prev[key]; !ok {
			affected = append(affected, c.Scope)
		}
	}

	return scope.Union(affected...)
}

// AffectedOwnDataCharts returns the charts whose own state differs between
// the two masks. Only masks keyed by a chart id count.
func AffectedOwnDataCharts(prev, curr nativefilters.DataMaskState) []int {
	_, own := nativefilters.ChangedIDs(prev, curr)

	out := make([]int, 0, len(own))

	for _, id := range own {
		if chartID, err := strconv.Atoi(id); err == nil {
			out = append(out, chartID)
		}
	}

	return scope.Union(out)
}

// AffectedByDataMask returns the charts whose merged extra form data may
// differ: the scope of every native filter, and the cross filter scope of
// every chart, whose extra form data changed.
func AffectedByDataMask(
	prev, curr nativefilters.DataMaskState,
	config nativefilters.Configuration,
	cross nativefilters.ChartConfiguration,
) []int {
	extra, _ := nativefilters.ChangedIDs(prev, curr)

	affected := make([][]int, 0, len(extra))

	for _, id := range extra {
		if _, ok := config.Filter(id); ok {
			affected = append(affected, config.AffectedCharts(id))
			continue
		}

		chartID, err := strconv.Atoi(id)
		if err != nil {
			continue
		}

		if cfg, ok := cross[chartID]; ok {
			affected = append(affected, cfg.CrossFilters.ChartsInScope)
		}
	}

	return scope.Union(affected...)
}

// ChartDiff returns the chart ids present only in curr and only in prev
func ChartDiff(prev, curr []int) (added, removed []int) {
	before := make(map[int]bool, len(prev))
	for _, id := range prev {
		before[id] = true
	}

	after := make(map[int]bool, len(curr))
	for _, id := range curr {
		after[id] = true
	}

	added = make([]int, 0)
	removed = make([]int, 0)

	for _, id := range curr {
		if !before[id] {
			added = append(added, id)
		}
	}

	for _, id := range prev {
		if !after[id] {
			removed = append(removed, id)
		}
	}

	return scope.Union(added), scope.Union(removed)
}
