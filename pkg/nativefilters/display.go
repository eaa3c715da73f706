package nativefilters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RequiredFirstPending returns the ids of required-first filters that hold
// no value yet, sorted. Charts must not be queried while any is pending.
func RequiredFirstPending(c Configuration, mask DataMaskState) []string {
	out := make([]string, 0)

	for _, f := range c.Filters() {
		if !f.RequiredFirst() {
			continue
		}

		if m, ok := mask[f.ID]; ok && m.HasValue() {
			continue
		}

		out = append(out, f.ID)
	}

	sort.Strings(out)

	return out
}

// ValueForDisplay renders a filter value for the filter bar
func ValueForDisplay(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int, int32, int64, float32, float64, json.Number:
		return fmt.Sprintf("%v", t)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = fmt.Sprintf("%v", item)
		}

		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return "Unknown value"
		}

		return string(data)
	}
}
