package layout

import (
	"sort"
)

// ChartIDs returns the distinct chart ids held by CHART components, sorted
func (l Layout) ChartIDs() []int {
	seen := make(map[int]bool)
	out := make([]int, 0)

	for _, n := range l.nodes {
		if n.Type != TypeChart || n.Meta.ChartID == 0 || seen[n.Meta.ChartID] {
			continue
		}

		seen[n.Meta.ChartID] = true
		out = append(out, n.Meta.ChartID)
	}

	sort.Ints(out)

	return out
}

// ChartComponent returns the CHART component holding chartID. When a chart
// is placed more than once the lowest component id wins.
func (l Layout) ChartComponent(chartID int) (Node, bool) {
	for _, id := range l.IDs() {
		n := l.nodes[id]
		if n.Type == TypeChart && n.Meta.ChartID == chartID {
			return *n.clone(), true
		}
	}

	return Node{}, false
}

// FirstParentContainerID follows first children from the root until it
// reaches a GRID or TAB, which is where new content is placed.
func (l Layout) FirstParentContainerID() string {
	current := l.node(RootID)
	if current == nil {
		return ""
	}

	seen := make(map[string]bool)

	for current.Type != TypeGrid && current.Type != TypeTab && len(current.Children) > 0 {
		if seen[current.ID] {
			break
		}

		seen[current.ID] = true

		next := l.node(current.Children[0])
		if next == nil {
			break
		}

		current = next
	}

	return current.ID
}

// DirectPathTo returns the parents path of id followed by id
func (l Layout) DirectPathTo(id string) []string {
	n := l.node(id)
	if n == nil {
		return nil
	}

	out := append([]string(nil), n.Parents...)

	return append(out, id)
}

// Descendants returns every id below id in depth-first pre-order, id excluded
func (l Layout) Descendants(id string) []string {
	out := make([]string, 0)
	seen := map[string]bool{id: true}

	var walk func(string)
	walk = func(current string) {
		n := l.node(current)
		if n == nil {
			return
		}

		for _, child := range n.Children {
			if seen[child] || l.node(child) == nil {
				continue
			}

			seen[child] = true
			out = append(out, child)
			walk(child)
		}
	}

	walk(id)

	return out
}

// HasTabs reports whether any TABS component exists
func (l Layout) HasTabs() bool {
	for _, n := range l.nodes {
		if n.Type == TypeTabs {
			return true
		}
	}

	return false
}

// TopLevelTabsID returns the id of the TABS component directly under the
// root, if any.
func (l Layout) TopLevelTabsID() (string, bool) {
	root := l.node(RootID)
	if root == nil {
		return "", false
	}

	for _, child := range root.Children {
		if l.typeOf(child) == TypeTabs {
			return child, true
		}
	}

	return "", false
}

// TabIDs returns every TAB component id, sorted
func (l Layout) TabIDs() []string {
	out := make([]string, 0)

	for _, id := range l.IDs() {
		if l.nodes[id].Type == TypeTab {
			out = append(out, id)
		}
	}

	return out
}

// ComponentsOfType returns the ids of every component of type t, sorted
func (l Layout) ComponentsOfType(t ComponentType) []string {
	out := make([]string, 0)

	for _, id := range l.IDs() {
		if l.nodes[id].Type == t {
			out = append(out, id)
		}
	}

	return out
}
