// Package nativefilters models native filter and cross filter configuration:
// which charts each filter affects, the per filter data masks and the extra
// form data merged into chart queries.
package nativefilters

import (
	"errors"
	"strings"

	"github.com/ethpandaops/reportviewer/pkg/scope"
)

const (
	// ItemTypeFilter marks a native filter entry
	ItemTypeFilter = "NATIVE_FILTER"
	// ItemTypeDivider marks a divider entry
	ItemTypeDivider = "DIVIDER"
	// DividerPrefix starts the id of every divider
	DividerPrefix = "NATIVE_FILTER_DIVIDER-"
)

var (
	// ErrUnknownCascadeParent is returned when a filter cascades from a missing filter
	ErrUnknownCascadeParent = errors.New("filter cascades from unknown filter")
	// ErrCascadeCycle is returned when cascade parents form a cycle
	ErrCascadeCycle = errors.New("filter cascade forms a cycle")
	// ErrDuplicateFilter is returned when two entries share an id
	ErrDuplicateFilter = errors.New("duplicate filter id")
	// ErrMissingFilterID is returned when an entry has no id
	ErrMissingFilterID = errors.New("filter id is required")
)

// TargetColumn names the dataset column a filter targets
type TargetColumn struct {
	Name string `json:"name"`
}

// Target is a dataset/column pair a filter reads its values from
type Target struct {
	DatasetID int           `json:"datasetId,omitempty"`
	Column    *TargetColumn `json:"column,omitempty"`
}

// Filter is a native filter definition
type Filter struct {
	ID               string         `json:"id"`
	Type             string         `json:"type"`
	Name             string         `json:"name"`
	FilterType       string         `json:"filterType"`
	Description      string         `json:"description,omitempty"`
	Targets          []Target       `json:"targets"`
	Scope            scope.Scope    `json:"scope"`
	CascadeParentIDs []string       `json:"cascadeParentIds"`
	ControlValues    map[string]any `json:"controlValues,omitempty"`
	DefaultDataMask  DataMask       `json:"defaultDataMask"`
	ChartsInScope    []int          `json:"chartsInScope,omitempty"`
	TabsInScope      []string       `json:"tabsInScope,omitempty"`
}

// RequiredFirst reports whether the filter must hold a value before any
// chart it affects is queried.
func (f Filter) RequiredFirst() bool {
	v, ok := f.ControlValues["requiredFirst"].(bool)
	return ok && v
}

// TargetCharts implements scope.Target
func (f Filter) TargetCharts() []int { return f.ChartsInScope }

// IsDivider implements scope.Target
func (f Filter) IsDivider() bool { return false }

// Divider is a visual separator in the filter bar
type Divider struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// TargetCharts implements scope.Target
func (d Divider) TargetCharts() []int { return nil }

// IsDivider implements scope.Target
func (d Divider) IsDivider() bool { return true }

// IsDividerID reports whether id names a divider
func IsDividerID(id string) bool {
	return strings.HasPrefix(id, DividerPrefix)
}
