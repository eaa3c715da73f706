package filters

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/scope"
)

// Index holds the filters of a report viewer, the layout snapshot their
// scopes were resolved against and the derived active filter map. All
// methods return new values.
type Index struct {
	filters map[int]Filter
	active  map[string]ActiveFilter
	layout  layout.Layout
}

// NewIndex builds an index and resolves every active filter against l
func NewIndex(filters map[int]Filter, l layout.Layout) Index {
	ix := Index{
		filters: make(map[int]Filter, len(filters)),
		layout:  l,
	}

	for id, f := range filters {
		f = f.clone()
		f.ChartID = id
		ix.filters[id] = f
	}

	ix.active = ix.build()

	return ix
}

// Rebuild resolves every active filter against a new layout snapshot.
// Filters of charts that left the layout keep their selection and scopes
// but stay inactive until the chart is placed again, so undoing a delete
// brings them back.
func (ix Index) Rebuild(l layout.Layout) Index {
	out := ix.copy()
	out.layout = l
	out.active = out.build()

	return out
}

// ApplyValueChange updates the selected values of a filter chart. With
// merge the values are appended to an existing column, duplicates
// included; otherwise, or for a new column, they replace it. Unknown charts
// leave the index unchanged.
func (ix Index) ApplyValueChange(chartID int, values map[string][]any, merge bool) Index {
	f, ok := ix.filters[chartID]
	if !ok {
		return ix
	}

	f = f.clone()

	for column, v := range values {
		existing, exists := f.Columns[column]
		if merge && exists {
			merged := make([]any, 0, len(existing)+len(v))
			merged = append(merged, existing...)
			f.Columns[column] = append(merged, v...)

			continue
		}

		f.Columns[column] = append([]any{}, v...)
	}

	out := ix.copy()
	out.filters[chartID] = f
	out.active = out.build()

	return out
}

// UpdateDirectPath records the ancestor chain of a filter component
func (ix Index) UpdateDirectPath(chartID int, path []string) Index {
	f, ok := ix.filters[chartID]
	if !ok {
		return ix
	}

	f = f.clone()
	f.DirectPathToFilter = append([]string{}, path...)

	out := ix.copy()
	out.filters[chartID] = f

	return out
}

// UpdateScopes sets column scopes keyed by filter key. Keys that do not
// parse or reference unknown charts are skipped.
func (ix Index) UpdateScopes(scopes map[string]ColumnScope) Index {
	out := ix.copy()
	changed := false

	for key, s := range scopes {
		chartID, column, err := ParseKey(key)
		if err != nil {
			continue
		}

		f, ok := out.filters[chartID]
		if !ok {
			continue
		}

		f = f.clone()
		f.Scopes[column] = s.clone()
		out.filters[chartID] = f
		changed = true
	}

	if !changed {
		return ix
	}

	out.active = out.build()

	return out
}

// Register adds or replaces a filter chart
func (ix Index) Register(f Filter) Index {
	out := ix.copy()
	out.filters[f.ChartID] = f.clone()
	out.active = out.build()

	return out
}

// Layout returns the snapshot the active filters were resolved against
func (ix Index) Layout() layout.Layout {
	return ix.layout
}

// Filter returns a copy of the filter of a chart
func (ix Index) Filter(chartID int) (Filter, bool) {
	f, ok := ix.filters[chartID]
	if !ok {
		return Filter{}, false
	}

	return f.clone(), true
}

// ChartIDs returns the ids of filter charts placed in the layout, sorted
func (ix Index) ChartIDs() []int {
	placed := placedCharts(ix.layout)

	out := make([]int, 0, len(ix.filters))
	for id := range ix.filters {
		if placed[id] {
			out = append(out, id)
		}
	}

	sort.Ints(out)

	return out
}

// Active returns a copy of the active filter map
func (ix Index) Active() map[string]ActiveFilter {
	out := make(map[string]ActiveFilter, len(ix.active))
	for k, v := range ix.active {
		out[k] = ActiveFilter{
			Scope:  append([]int{}, v.Scope...),
			Values: append([]any{}, v.Values...),
		}
	}

	return out
}

// SerializeValues returns the column values of placed filter charts keyed
// by chart id, the shape stored as default_filters.
func (ix Index) SerializeValues() map[string]map[string][]any {
	placed := placedCharts(ix.layout)
	out := make(map[string]map[string][]any, len(ix.filters))

	for id, f := range ix.filters {
		if !placed[id] {
			continue
		}

		columns := make(map[string][]any, len(f.Columns))
		for column, v := range f.Columns {
			columns[column] = append([]any{}, v...)
		}

		out[strconv.Itoa(id)] = columns
	}

	return out
}

// SerializeScopes returns every declared column scope of placed filter
// charts keyed by chart id, the shape stored as filter_scopes. Immune ids of
// charts that are not placed are left out.
func (ix Index) SerializeScopes() map[string]map[string]ColumnScope {
	placed := placedCharts(ix.layout)
	out := make(map[string]map[string]ColumnScope, len(ix.filters))

	for id, f := range ix.filters {
		if len(f.Scopes) == 0 || !placed[id] {
			continue
		}

		scopes := make(map[string]ColumnScope, len(f.Scopes))
		for column, s := range f.Scopes {
			immune := make([]int, 0, len(s.Immune))

			for _, chartID := range s.Immune {
				if placed[chartID] {
					immune = append(immune, chartID)
				}
			}

			scopes[column] = ColumnScope{
				Scope:  append([]string{}, s.Scope...),
				Immune: immune,
			}
		}

		out[strconv.Itoa(id)] = scopes
	}

	return out
}

// Equal reports whether two active filters hold the same values and scope
func Equal(a, b ActiveFilter) bool {
	return reflect.DeepEqual(normalize(a.Values), normalize(b.Values)) &&
		reflect.DeepEqual(normalizeInts(a.Scope), normalizeInts(b.Scope))
}

// build resolves every non-empty column of every placed filter
func (ix Index) build() map[string]ActiveFilter {
	placed := placedCharts(ix.layout)
	out := make(map[string]ActiveFilter)

	for chartID, f := range ix.filters {
		if !placed[chartID] {
			continue
		}

		for column, values := range f.Columns {
			if len(values) == 0 {
				continue
			}

			s := f.ScopeFor(column).ToScope().Without(chartID)

			out[Key(chartID, column)] = ActiveFilter{
				Scope:  scope.Resolve(s, ix.layout),
				Values: append([]any{}, values...),
			}
		}
	}

	return out
}

func (ix Index) copy() Index {
	out := Index{
		filters: make(map[int]Filter, len(ix.filters)),
		active:  ix.active,
		layout:  ix.layout,
	}

	for id, f := range ix.filters {
		out.filters[id] = f
	}

	return out
}

func placedCharts(l layout.Layout) map[int]bool {
	placed := make(map[int]bool)
	for _, id := range l.ChartIDs() {
		placed[id] = true
	}

	return placed
}

func normalize(v []any) []any {
	if len(v) == 0 {
		return nil
	}

	return v
}

func normalizeInts(v []int) []int {
	if len(v) == 0 {
		return nil
	}

	return v
}
