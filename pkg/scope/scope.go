// Package scope resolves filter scope declarations against a layout snapshot
// into concrete chart ids.
package scope

import (
	"sort"

	"github.com/ethpandaops/reportviewer/pkg/layout"
)

// Scope declares the charts a filter affects: every chart below one of the
// RootPath components, minus the Excluded chart ids.
type Scope struct {
	RootPath []string `json:"rootPath"`
	Excluded []int    `json:"excluded"`
}

// Global returns the scope covering every chart of the layout
func Global() Scope {
	return Scope{
		RootPath: []string{layout.RootID},
		Excluded: []int{},
	}
}

// IsGlobal reports whether s covers the whole layout with no exclusions
func (s Scope) IsGlobal() bool {
	return len(s.RootPath) == 1 && s.RootPath[0] == layout.RootID && len(s.Excluded) == 0
}

// Without returns a copy of s that also excludes the given chart ids
func (s Scope) Without(chartIDs ...int) Scope {
	out := Scope{
		RootPath: append([]string(nil), s.RootPath...),
		Excluded: append([]int(nil), s.Excluded...),
	}

	for _, id := range chartIDs {
		if !containsInt(out.Excluded, id) {
			out.Excluded = append(out.Excluded, id)
		}
	}

	return out
}

// Resolve walks the layout depth first from every root path component and
// collects the chart ids of CHART components that are not excluded. Each
// chart appears once and the result is sorted. Tab visibility is ignored.
func Resolve(s Scope, l layout.Layout) []int {
	excluded := make(map[int]bool, len(s.Excluded))
	for _, id := range s.Excluded {
		excluded[id] = true
	}

	found := make(map[int]bool)
	visited := make(map[string]bool)

	var walk func(string)
	walk = func(id string) {
		if visited[id] {
			return
		}

		visited[id] = true

		n, ok := l.Get(id)
		if !ok {
			return
		}

		if n.Type == layout.TypeChart && n.Meta.ChartID != 0 && !excluded[n.Meta.ChartID] {
			found[n.Meta.ChartID] = true
		}

		for _, child := range n.Children {
			walk(child)
		}
	}

	for _, root := range s.RootPath {
		walk(root)
	}

	return sortedKeys(found)
}

// ResolveAll unions the charts of several scopes
func ResolveAll(l layout.Layout, scopes ...Scope) []int {
	found := make(map[int]bool)

	for _, s := range scopes {
		for _, id := range Resolve(s, l) {
			found[id] = true
		}
	}

	return sortedKeys(found)
}

// Union merges sorted or unsorted chart id lists into one sorted set
func Union(lists ...[]int) []int {
	found := make(map[int]bool)

	for _, list := range lists {
		for _, id := range list {
			found[id] = true
		}
	}

	return sortedKeys(found)
}

// Intersect keeps the ids of a that also appear in b, sorted
func Intersect(a, b []int) []int {
	keep := make(map[int]bool, len(b))
	for _, id := range b {
		keep[id] = true
	}

	found := make(map[int]bool)

	for _, id := range a {
		if keep[id] {
			found[id] = true
		}
	}

	return sortedKeys(found)
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}

	sort.Ints(out)

	return out
}

func containsInt(list []int, v int) bool {
	for _, id := range list {
		if id == v {
			return true
		}
	}

	return false
}
