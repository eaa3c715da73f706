package refresh

import (
	"sort"
	"strings"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/filters"
)

// ExtraFilter is a filter box selection applied to a chart query
type ExtraFilter struct {
	Col string `json:"col"`
	Op  string `json:"op"`
	Val []any  `json:"val"`
}

// ChartQuery is what a single chart must be queried with
type ChartQuery struct {
	ChartID       int            `json:"chartId"`
	ExtraFormData map[string]any `json:"extraFormData,omitempty"`
	ExtraFilters  []ExtraFilter  `json:"extraFilters,omitempty"`
}

// Request asks the fetch layer to query charts of one report viewer again
type Request struct {
	// SessionID scopes the queries to one open session; empty for refreshes
	// that do not belong to a session
	SessionID      string       `json:"sessionId,omitempty"`
	ReportViewerID int          `json:"reportViewerId"`
	Reason         Reason       `json:"reason"`
	Charts         []ChartQuery `json:"charts"`
	// Stagger spreads the chart queries over this window
	Stagger time.Duration `json:"stagger,omitempty"`
}

// Delay returns how long the query of the i-th chart is held back so that
// the queries are spread evenly over the stagger window.
func (r Request) Delay(i int) time.Duration {
	if r.Stagger <= 0 || len(r.Charts) < 2 || i <= 0 {
		return 0
	}

	if i >= len(r.Charts) {
		i = len(r.Charts) - 1
	}

	return r.Stagger / time.Duration(len(r.Charts)-1) * time.Duration(i)
}

// ChartIDs lists the charts of the request in order
func (r Request) ChartIDs() []int {
	out := make([]int, 0, len(r.Charts))
	for _, c := range r.Charts {
		out = append(out, c.ChartID)
	}

	return out
}

// ExtraFilters returns the active filter box selections whose scope holds
// chartID, ordered by filter key.
func ExtraFilters(active map[string]filters.ActiveFilter, chartID int) []ExtraFilter {
	keys := make([]string, 0, len(active))
	for key := range active {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	out := make([]ExtraFilter, 0)

	for _, key := range keys {
		f := active[key]
		if !containsInt(f.Scope, chartID) {
			continue
		}

		_, column, err := filters.ParseKey(key)
		if err != nil {
			continue
		}

		op := "in"
		if strings.HasPrefix(column, "__") {
			// time columns such as __time_range
			op = "=="
		}

		out = append(out, ExtraFilter{
			Col: column,
			Op:  op,
			Val: append([]any{}, f.Values...),
		})
	}

	return out
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}

	return false
}
