package reportviewer

import (
	"encoding/json"
	"errors"
	"time"
)

// DefaultTitle is used when a report viewer is saved without a title
const DefaultTitle = "[ untitled reportViewer ]"

// Static errors
var (
	ErrNotFound          = errors.New("report viewer not found")
	ErrChartNotFound     = errors.New("chart not found")
	ErrSlugTaken         = errors.New("slug already in use")
	ErrOverwriteConflict = errors.New("report viewer was changed since it was loaded")
	ErrInvalidSaveType   = errors.New("invalid save type")
	ErrInvalidPositions  = errors.New("invalid position_json")
	ErrInvalidMetadata   = errors.New("invalid json_metadata")
)

// ReportViewer is the persisted report viewer record
type ReportViewer struct {
	ID           int       `json:"id"`
	Title        string    `json:"reportViewer_title"` //nolint:tagliatelle // wire name
	Slug         string    `json:"slug,omitempty"`
	CSS          string    `json:"css"`
	PositionJSON string    `json:"position_json"` //nolint:tagliatelle // wire name
	JSONMetadata string    `json:"json_metadata"` //nolint:tagliatelle // wire name
	Published    bool      `json:"published"`
	CreatedOn    time.Time `json:"created_on"` //nolint:tagliatelle // wire name
	ChangedOn    time.Time `json:"changed_on"` //nolint:tagliatelle // wire name
}

// Metadata decodes the json_metadata blob
func (r ReportViewer) Metadata() (Metadata, error) {
	return ParseMetadata([]byte(r.JSONMetadata))
}

// Chart is a chart placed on a report viewer
type Chart struct {
	ID           int            `json:"id"`
	Name         string         `json:"slice_name"`    //nolint:tagliatelle // wire name
	VizType      string         `json:"viz_type"`      //nolint:tagliatelle // wire name
	DatasourceID int            `json:"datasource_id"` //nolint:tagliatelle // wire name
	FormData     map[string]any `json:"form_data"`     //nolint:tagliatelle // wire name
}

// IsFilterBox reports whether the chart is a legacy filter box
func (c Chart) IsFilterBox() bool {
	return c.VizType == "filter_box"
}

// FilterBoxColumns lists the columns a filter box chart filters on, read
// from form_data.filter_configs.
func (c Chart) FilterBoxColumns() []string {
	configs, ok := c.FormData["filter_configs"].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(configs))

	for _, raw := range configs {
		cfg, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		if column, ok := cfg["column"].(string); ok && column != "" {
			out = append(out, column)
		}
	}

	return out
}

// FilterBoxLabels maps filter box columns to their labels
func (c Chart) FilterBoxLabels() map[string]string {
	out := make(map[string]string)

	configs, _ := c.FormData["filter_configs"].([]any)
	for _, raw := range configs {
		cfg, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		column, _ := cfg["column"].(string)
		if column == "" {
			continue
		}

		label, _ := cfg["label"].(string)
		if label == "" {
			label = column
		}

		out[column] = label
	}

	return out
}

// OverwriteItem is one field that differs between the stored report viewer
// and the one being saved.
type OverwriteItem struct {
	Key    string `json:"key"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// OverwriteConflictError carries the differing fields of a rejected overwrite
type OverwriteConflictError struct {
	Items []OverwriteItem
}

func (e *OverwriteConflictError) Error() string {
	return ErrOverwriteConflict.Error()
}

// Unwrap allows errors.Is(err, ErrOverwriteConflict)
func (e *OverwriteConflictError) Unwrap() error {
	return ErrOverwriteConflict
}

// MarshalJSON writes the conflicting items
func (e *OverwriteConflictError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Items []OverwriteItem `json:"items"`
	}{Items: e.Items})
}
