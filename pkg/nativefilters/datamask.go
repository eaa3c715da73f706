package nativefilters

import (
	"reflect"
	"sort"
)

// FilterState is the user facing selection of a filter
type FilterState struct {
	Value          any    `json:"value,omitempty"`
	Label          string `json:"label,omitempty"`
	ValidateStatus string `json:"validateStatus,omitempty"`
}

// DataMask is the transient state of a native filter or cross filtering
// chart: the selection, the query override payload and chart owned state.
type DataMask struct {
	ID            string         `json:"id,omitempty"`
	FilterState   FilterState    `json:"filterState"`
	ExtraFormData map[string]any `json:"extraFormData,omitempty"`
	OwnState      map[string]any `json:"ownState,omitempty"`
}

// HasValue reports whether the mask holds a selected value
func (m DataMask) HasValue() bool {
	switch v := m.FilterState.Value.(type) {
	case nil:
		return false
	case []any:
		return len(v) > 0
	case string:
		return v != ""
	default:
		return true
	}
}

// DataMaskState maps filter ids, or chart ids for cross filters, to masks
type DataMaskState map[string]DataMask

// Clone returns a deep enough copy to mutate masks independently
func (s DataMaskState) Clone() DataMaskState {
	out := make(DataMaskState, len(s))
	for id, m := range s {
		out[id] = cloneMask(m)
	}

	return out
}

// With returns a copy where the mask of id is updated: set sections of m
// replace the stored ones, unset sections are kept.
func (s DataMaskState) With(id string, m DataMask) DataMaskState {
	out := s.Clone()

	current := out[id]
	current.ID = id

	if m.FilterState.Value != nil || m.FilterState.Label != "" || m.FilterState.ValidateStatus != "" {
		current.FilterState = m.FilterState
	}

	if m.ExtraFormData != nil {
		current.ExtraFormData = cloneMap(m.ExtraFormData)
	}

	if m.OwnState != nil {
		current.OwnState = cloneMap(m.OwnState)
	}

	out[id] = current

	return out
}

// Without returns a copy with the mask of id removed
func (s DataMaskState) Without(id string) DataMaskState {
	out := s.Clone()
	delete(out, id)

	return out
}

// ChangedIDs returns the ids whose extra form data differs between prev and
// curr, and separately the ids whose own state differs.
func ChangedIDs(prev, curr DataMaskState) (extra, own []string) {
	ids := make(map[string]bool, len(prev)+len(curr))
	for id := range prev {
		ids[id] = true
	}

	for id := range curr {
		ids[id] = true
	}

	for id := range ids {
		p, c := prev[id], curr[id]

		if !equalJSON(p.ExtraFormData, c.ExtraFormData) {
			extra = append(extra, id)
		}

		if !equalJSON(p.OwnState, c.OwnState) {
			own = append(own, id)
		}
	}

	sort.Strings(extra)
	sort.Strings(own)

	return extra, own
}

func equalJSON(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}

	return reflect.DeepEqual(a, b)
}

func cloneMask(m DataMask) DataMask {
	out := m
	out.ExtraFormData = cloneMap(m.ExtraFormData)
	out.OwnState = cloneMap(m.OwnState)

	return out
}

// cloneMap deep copies nested maps and slices of JSON shaped values
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}

		return out
	default:
		return v
	}
}
