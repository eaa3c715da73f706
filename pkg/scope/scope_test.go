package scope

import (
	"testing"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tabbedLayout builds:
//
//	ROOT_ID
//	└── TABS-1
//	    ├── TAB-A
//	    │   └── ROW-A: CHART-1 (1), CHART-2 (2)
//	    └── TAB-B
//	        ├── ROW-B: CHART-5 (5)
//	        └── TABS-2
//	            └── TAB-C
//	                └── ROW-C: CHART-6 (6)
func tabbedLayout() layout.Layout {
	return layout.UpdateParentsList(layout.New(map[string]layout.Node{
		layout.RootID: {Type: layout.TypeRoot, Children: []string{"TABS-1"}},
		"TABS-1":      {Type: layout.TypeTabs, Children: []string{"TAB-A", "TAB-B"}},
		"TAB-A":       {Type: layout.TypeTab, Children: []string{"ROW-A"}},
		"TAB-B":       {Type: layout.TypeTab, Children: []string{"ROW-B", "TABS-2"}},
		"TABS-2":      {Type: layout.TypeTabs, Children: []string{"TAB-C"}},
		"TAB-C":       {Type: layout.TypeTab, Children: []string{"ROW-C"}},
		"ROW-A":       {Type: layout.TypeRow, Children: []string{"CHART-1", "CHART-2"}},
		"ROW-B":       {Type: layout.TypeRow, Children: []string{"CHART-5"}},
		"ROW-C":       {Type: layout.TypeRow, Children: []string{"CHART-6"}},
		"CHART-1":     {Type: layout.TypeChart, Meta: layout.Meta{ChartID: 1}},
		"CHART-2":     {Type: layout.TypeChart, Meta: layout.Meta{ChartID: 2}},
		"CHART-5":     {Type: layout.TypeChart, Meta: layout.Meta{ChartID: 5}},
		"CHART-6":     {Type: layout.TypeChart, Meta: layout.Meta{ChartID: 6}},
	}))
}

func TestResolve(t *testing.T) {
	l := tabbedLayout()
	require.NoError(t, layout.Validate(l))

	tests := []struct {
		name  string
		scope Scope
		want  []int
	}{
		{
			name:  "global covers every chart",
			scope: Global(),
			want:  []int{1, 2, 5, 6},
		},
		{
			name:  "explicit tab",
			scope: Scope{RootPath: []string{"TAB-B"}},
			want:  []int{5, 6},
		},
		{
			name:  "excluded charts are dropped",
			scope: Scope{RootPath: []string{layout.RootID}, Excluded: []int{2, 6}},
			want:  []int{1, 5},
		},
		{
			name:  "overlapping roots count once",
			scope: Scope{RootPath: []string{"TAB-B", "TABS-2", "CHART-6"}},
			want:  []int{5, 6},
		},
		{
			name:  "unknown root",
			scope: Scope{RootPath: []string{"nope"}},
			want:  []int{},
		},
		{
			name:  "inactive tabs still count",
			scope: Scope{RootPath: []string{"TAB-C"}},
			want:  []int{6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.scope, l)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Resolve(tt.scope, l))
		})
	}
}

func TestResolveGlobalMatchesChartIDs(t *testing.T) {
	layouts := []layout.Layout{
		layout.EmptyLayout(),
		tabbedLayout(),
		layout.Apply(tabbedLayout(), layout.DeleteComponent{ID: "TAB-B"}),
		layout.Apply(tabbedLayout(), layout.DeleteTopLevelTabs{}),
	}

	for _, l := range layouts {
		assert.Equal(t, l.ChartIDs(), Resolve(Global(), l))
	}
}

func TestResolveAllOverlappingScopes(t *testing.T) {
	l := tabbedLayout()

	a := Scope{RootPath: []string{"ROW-B"}}
	b := Scope{RootPath: []string{"TAB-B"}, Excluded: []int{6}}

	got := ResolveAll(l, a, b)
	assert.Equal(t, []int{5}, got)
}

func TestSetHelpers(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, Union([]int{3, 1}, []int{2, 3}))
	assert.Equal(t, []int{2}, Intersect([]int{1, 2, 2}, []int{2, 4}))
	assert.True(t, Global().IsGlobal())
	assert.False(t, Global().Without(3).IsGlobal())
	assert.Equal(t, []int{3}, Global().Without(3, 3).Excluded)
}

func TestTabsWithChartsInScope(t *testing.T) {
	l := tabbedLayout()

	assert.Equal(t, []string{"TAB-B", "TAB-C"}, TabsWithChartsInScope(l, []int{6}))
	assert.Equal(t, []string{"TAB-A", "TAB-B"}, TabsWithChartsInScope(l, []int{1, 5}))
	assert.Empty(t, TabsWithChartsInScope(l, []int{42}))
	assert.Empty(t, TabsWithChartsInScope(layout.EmptyLayout(), []int{1}))
}

type target struct {
	charts  []int
	divider bool
}

func (t target) TargetCharts() []int { return t.charts }
func (t target) IsDivider() bool     { return t.divider }

func TestVisibility(t *testing.T) {
	l := tabbedLayout()

	assert.Equal(t, []string{"TAB-B", "TAB-C"}, ChartTabParents(l, 6))
	assert.True(t, IsVisible(l, 6, []string{"TAB-B", "TAB-C"}))
	assert.False(t, IsVisible(l, 6, []string{"TAB-B"}))
	assert.False(t, IsVisible(l, 42, []string{"TAB-A"}))

	targets := []target{
		{charts: []int{1}},
		{charts: []int{6}},
		{divider: true},
		{charts: []int{42, 2}},
	}

	in, out := FiltersInScope(l, targets, []string{"TAB-A"})
	assert.Equal(t, []target{{charts: []int{1}}, {divider: true}, {charts: []int{42, 2}}}, in)
	assert.Equal(t, []target{{charts: []int{6}}}, out)

	in, out = FiltersInScope(layout.EmptyLayout(), targets, nil)
	assert.Len(t, in, 4)
	assert.Empty(t, out)
}
