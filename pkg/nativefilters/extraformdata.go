package nativefilters

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Extra form data keys whose list values accumulate across filters
//
//nolint:gochecknoglobals // fixed key sets
var appendKeys = []string{
	"adhoc_filters",
	"filters",
	"interactive_groupby",
	"interactive_highlight",
	"interactive_drilldown",
	"custom_form_data",
}

// Extra form data keys where the last filter wins
//
//nolint:gochecknoglobals // fixed key sets
var overrideKeys = []string{
	"granularity",
	"granularity_sqla",
	"time_column",
	"time_grain",
	"time_range",
	"relative_start",
	"relative_end",
	"time_grain_sqla",
}

// MergeExtraFormData combines two extra form data payloads. Append keys are
// concatenated, original first, and dropped when empty. Override keys take
// the value of b when set there. Other keys are discarded.
func MergeExtraFormData(a, b map[string]any) map[string]any {
	out := make(map[string]any)

	for _, key := range appendKeys {
		merged := append(asList(a[key]), asList(b[key])...)
		if len(merged) > 0 {
			out[key] = merged
		}
	}

	for _, key := range overrideKeys {
		if v, ok := a[key]; ok && v != nil {
			out[key] = cloneValue(v)
		}

		if v, ok := b[key]; ok && v != nil {
			out[key] = cloneValue(v)
		}
	}

	return out
}

// ExtraFormData folds the extra form data of the given mask ids in order
func ExtraFormData(mask DataMaskState, ids []string) map[string]any {
	out := make(map[string]any)

	for _, id := range ids {
		out = MergeExtraFormData(out, mask[id].ExtraFormData)
	}

	return out
}

// FiltersAppliedOnChart returns the native filter ids in configuration
// order whose scope holds chartID, followed by the cross filtering chart
// ids whose cross filter scope holds it.
func FiltersAppliedOnChart(chartID int, config Configuration, cross ChartConfiguration) []string {
	out := make([]string, 0)

	for _, f := range config.Filters() {
		if containsInt(f.ChartsInScope, chartID) {
			out = append(out, f.ID)
		}
	}

	sources := make([]int, 0, len(cross))
	for source := range cross {
		sources = append(sources, source)
	}

	sort.Ints(sources)

	for _, source := range sources {
		if source == chartID {
			continue
		}

		if containsInt(cross[source].CrossFilters.ChartsInScope, chartID) {
			out = append(out, fmt.Sprintf("%d", source))
		}
	}

	return out
}

// ExtraFormDataForChart returns the merged extra form data every applicable
// native filter and cross filter contributes to a chart query.
func ExtraFormDataForChart(chartID int, mask DataMaskState, config Configuration, cross ChartConfiguration) map[string]any {
	return ExtraFormData(mask, FiltersAppliedOnChart(chartID, config, cross))
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}

		return out
	default:
		// typed slices from Go callers
		data, err := json.Marshal(t)
		if err != nil {
			return nil
		}

		var out []any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil
		}

		return out
	}
}

func containsInt(list []int, v int) bool {
	for _, id := range list {
		if id == v {
			return true
		}
	}

	return false
}
