package scope

import (
	"sort"

	"github.com/ethpandaops/reportviewer/pkg/layout"
)

// TabsWithChartsInScope returns the TAB ids that contain at least one of the
// given charts. With top-level tabs only those tabs and the tabs nested in
// them are walked, otherwise every TAB in the layout is a starting point.
// The result is used for highlighting only.
func TabsWithChartsInScope(l layout.Layout, chartIDs []int) []string {
	inScope := make(map[int]bool, len(chartIDs))
	for _, id := range chartIDs {
		inScope[id] = true
	}

	highlight := make(map[string]bool)
	visited := make(map[string]bool)

	var walk func(id string, tabs []string)
	walk = func(id string, tabs []string) {
		if visited[id] {
			return
		}

		visited[id] = true

		n, ok := l.Get(id)
		if !ok {
			return
		}

		if n.Type == layout.TypeChart && inScope[n.Meta.ChartID] {
			for _, tab := range tabs {
				highlight[tab] = true
			}
		}

		if len(n.Children) == 0 || (n.Type == layout.TypeTab && highlight[id]) {
			return
		}

		for _, child := range n.Children {
			next := tabs
			if childNode, ok := l.Get(child); ok && childNode.Type == layout.TypeTab {
				next = append(append([]string(nil), tabs...), child)
			}

			walk(child, next)
		}
	}

	if tabsID, ok := l.TopLevelTabsID(); ok {
		for _, tab := range l.Children(tabsID) {
			walk(tab, []string{tab})
		}
	} else {
		for _, tab := range l.TabIDs() {
			walk(tab, []string{tab})
		}
	}

	out := make([]string, 0, len(highlight))
	for id := range highlight {
		out = append(out, id)
	}

	sort.Strings(out)

	return out
}

// ChartTabParents returns the TAB ancestors of the component holding chartID
func ChartTabParents(l layout.Layout, chartID int) []string {
	n, ok := l.ChartComponent(chartID)
	if !ok {
		return nil
	}

	out := make([]string, 0)

	for _, parent := range n.Parents {
		if p, ok := l.Get(parent); ok && p.Type == layout.TypeTab {
			out = append(out, parent)
		}
	}

	return out
}

// IsVisible reports whether a chart is rendered given the active tabs: it
// sits in no tab, or every tab above it is active. Charts missing from the
// layout are never visible.
func IsVisible(l layout.Layout, chartID int, activeTabs []string) bool {
	if _, ok := l.ChartComponent(chartID); !ok {
		return false
	}

	active := make(map[string]bool, len(activeTabs))
	for _, id := range activeTabs {
		active[id] = true
	}

	for _, tab := range ChartTabParents(l, chartID) {
		if !active[tab] {
			return false
		}
	}

	return true
}

// Target is anything whose visibility depends on the charts it affects.
// Dividers are always in scope.
type Target interface {
	TargetCharts() []int
	IsDivider() bool
}

// FiltersInScope splits targets into those with at least one visible chart
// and the rest. Layouts without tabs place everything in scope. Visibility
// never changes which charts a filter refreshes.
func FiltersInScope[T Target](l layout.Layout, targets []T, activeTabs []string) (in, out []T) {
	in = make([]T, 0, len(targets))
	out = make([]T, 0)

	if !l.HasTabs() {
		return append(in, targets...), out
	}

	for _, t := range targets {
		visible := t.IsDivider()

		for _, chartID := range t.TargetCharts() {
			if visible {
				break
			}

			visible = IsVisible(l, chartID, activeTabs)
		}

		if visible {
			in = append(in, t)
		} else {
			out = append(out, t)
		}
	}

	return in, out
}
