package reportviewer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/filters"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
)

// DefaultStaggerTime is the stagger window used when stagger_time is unset
const DefaultStaggerTime = 5 * time.Second

// Metadata is the decoded json_metadata blob of a report viewer
type Metadata struct {
	NativeFilterConfiguration json.RawMessage                           `json:"native_filter_configuration,omitempty"` //nolint:tagliatelle // wire name
	ChartConfiguration        nativefilters.ChartConfiguration          `json:"chart_configuration,omitempty"`         //nolint:tagliatelle // wire name
	GlobalChartConfiguration  *nativefilters.GlobalChartConfiguration   `json:"global_chart_configuration,omitempty"`  //nolint:tagliatelle // wire name
	DefaultFilters            string                                    `json:"default_filters,omitempty"`             //nolint:tagliatelle // wire name
	FilterScopes              map[string]map[string]filters.ColumnScope `json:"filter_scopes,omitempty"`               //nolint:tagliatelle // wire name
	RefreshFrequency          int                                       `json:"refresh_frequency"`                     //nolint:tagliatelle // wire name
	TimedRefreshImmuneSlices  []int                                     `json:"timed_refresh_immune_slices"`           //nolint:tagliatelle // wire name
	StaggerRefresh            *bool                                     `json:"stagger_refresh,omitempty"`             //nolint:tagliatelle // wire name
	StaggerTime               int                                       `json:"stagger_time,omitempty"`                //nolint:tagliatelle // wire name
	ExpandedSlices            map[string]bool                           `json:"expanded_slices"`                       //nolint:tagliatelle // wire name
	ColorScheme               string                                    `json:"color_scheme"`                          //nolint:tagliatelle // wire name
	ColorNamespace            string                                    `json:"color_namespace,omitempty"`             //nolint:tagliatelle // wire name
	LabelColors               map[string]string                         `json:"label_colors"`                          //nolint:tagliatelle // wire name
	SharedLabelColors         map[string]string                         `json:"shared_label_colors,omitempty"`         //nolint:tagliatelle // wire name
	CrossFiltersEnabled       *bool                                     `json:"cross_filters_enabled,omitempty"`       //nolint:tagliatelle // wire name
	FilterBarOrientation      string                                    `json:"filter_bar_orientation,omitempty"`      //nolint:tagliatelle // wire name
	Positions                 json.RawMessage                           `json:"positions,omitempty"`
}

// ParseMetadata decodes a json_metadata blob. An empty blob yields zero
// metadata.
func ParseMetadata(data []byte) (Metadata, error) {
	var m Metadata

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return m, nil
	}

	if err := json.Unmarshal(trimmed, &m); err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}

	return m, nil
}

// CrossFilters reports whether cross filtering is enabled. Unset means on.
func (m Metadata) CrossFilters() bool {
	return m.CrossFiltersEnabled == nil || *m.CrossFiltersEnabled
}

// Stagger reports whether periodic refreshes are spread over the interval
func (m Metadata) Stagger() bool {
	return m.StaggerRefresh == nil || *m.StaggerRefresh
}

// StaggerWindow returns the window periodic refreshes are spread over
func (m Metadata) StaggerWindow() time.Duration {
	if m.StaggerTime <= 0 {
		return DefaultStaggerTime
	}

	return time.Duration(m.StaggerTime) * time.Millisecond
}

// Cleaned returns a copy with every optional collection set, the shape
// written on save.
func (m Metadata) Cleaned() Metadata {
	if m.ExpandedSlices == nil {
		m.ExpandedSlices = map[string]bool{}
	}

	if m.LabelColors == nil {
		m.LabelColors = map[string]string{}
	}

	if m.TimedRefreshImmuneSlices == nil {
		m.TimedRefreshImmuneSlices = []int{}
	}

	if m.RefreshFrequency < 0 {
		m.RefreshFrequency = 0
	}

	if m.CrossFiltersEnabled == nil {
		enabled := true
		m.CrossFiltersEnabled = &enabled
	}

	return m
}

// Encode marshals metadata into a json_metadata blob
func (m Metadata) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode json metadata: %w", err)
	}

	return string(data), nil
}
