// Package filters maintains the active filter index: per chart filter
// selections and the chart ids each selected column affects.
package filters

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/scope"
)

var (
	// ErrInvalidKey is returned when a filter key is not "<chartId>_<column>"
	ErrInvalidKey = errors.New("invalid filter key")
)

// ColumnScope is the persisted scope of a single filter column
type ColumnScope struct {
	Scope  []string `json:"scope"`
	Immune []int    `json:"immune"`
}

// GlobalColumnScope covers every chart of the layout
func GlobalColumnScope() ColumnScope {
	return ColumnScope{
		Scope:  []string{layout.RootID},
		Immune: []int{},
	}
}

// ToScope converts the persisted form into a resolvable scope
func (c ColumnScope) ToScope() scope.Scope {
	return scope.Scope{
		RootPath: append([]string(nil), c.Scope...),
		Excluded: append([]int(nil), c.Immune...),
	}
}

func (c ColumnScope) clone() ColumnScope {
	return ColumnScope{
		Scope:  append([]string{}, c.Scope...),
		Immune: append([]int{}, c.Immune...),
	}
}

// Filter is the selection state of one filter chart
type Filter struct {
	ChartID            int                    `json:"chartId"`
	ComponentID        string                 `json:"componentId"`
	FilterName         string                 `json:"filterName"`
	DatasourceID       string                 `json:"datasourceId"`
	DirectPathToFilter []string               `json:"directPathToFilter"`
	IsDateFilter       bool                   `json:"isDateFilter"`
	IsInstantFilter    bool                   `json:"isInstantFilter"`
	Columns            map[string][]any       `json:"columns"`
	Labels             map[string]string      `json:"labels"`
	Scopes             map[string]ColumnScope `json:"scopes"`
}

// ScopeFor returns the declared scope of column, global when undeclared
func (f Filter) ScopeFor(column string) ColumnScope {
	if s, ok := f.Scopes[column]; ok && len(s.Scope) > 0 {
		return s
	}

	return GlobalColumnScope()
}

func (f Filter) clone() Filter {
	out := f
	out.DirectPathToFilter = append([]string{}, f.DirectPathToFilter...)

	out.Columns = make(map[string][]any, len(f.Columns))
	for k, v := range f.Columns {
		out.Columns[k] = append([]any{}, v...)
	}

	out.Labels = make(map[string]string, len(f.Labels))
	for k, v := range f.Labels {
		out.Labels[k] = v
	}

	out.Scopes = make(map[string]ColumnScope, len(f.Scopes))
	for k, v := range f.Scopes {
		out.Scopes[k] = v.clone()
	}

	return out
}

// ActiveFilter is the applied value of one filter column with the charts
// it affects. The source chart is never part of its own scope.
type ActiveFilter struct {
	Scope  []int `json:"scope"`
	Values []any `json:"values"`
}

// Key builds the active filter key of a chart column
func Key(chartID int, column string) string {
	return fmt.Sprintf("%d_%s", chartID, column)
}

// ParseKey splits a filter key on its first underscore. Column names may
// contain underscores.
func ParseKey(key string) (chartID int, column string, err error) {
	idx := strings.Index(key, "_")
	if idx <= 0 || idx == len(key)-1 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	chartID, err = strconv.Atoi(key[:idx])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return chartID, key[idx+1:], nil
}
