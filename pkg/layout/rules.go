package layout

import (
	"fmt"

	"github.com/google/uuid"
)

//nolint:gochecknoglobals // static lookup table
var validChildren = map[ComponentType][]ComponentType{
	TypeRoot:   {TypeGrid, TypeTabs},
	TypeGrid:   {TypeRow, TypeTabs, TypeHeader, TypeDivider},
	TypeTabs:   {TypeTab},
	TypeTab:    {TypeRow, TypeTabs, TypeHeader, TypeDivider},
	TypeRow:    {TypeChart, TypeMarkdown, TypeColumn, TypeDynamic},
	TypeColumn: {TypeChart, TypeMarkdown, TypeRow, TypeHeader, TypeDivider, TypeDynamic},
}

// IsValidChild reports whether a component of type child may sit directly
// inside a component of type parent.
func IsValidChild(parent, child ComponentType) bool {
	for _, t := range validChildren[parent] {
		if t == child {
			return true
		}
	}

	return false
}

// needsRowWrapper reports whether child must be wrapped in a new ROW when it
// is dropped into parent.
func needsRowWrapper(parent, child ComponentType) bool {
	if parent != TypeGrid && parent != TypeTab {
		return false
	}

	switch child {
	case TypeChart, TypeMarkdown, TypeDynamic:
		return true
	default:
		return false
	}
}

// isResizable reports whether resize edits apply to a component type
func isResizable(t ComponentType) bool {
	switch t {
	case TypeChart, TypeMarkdown, TypeColumn, TypeDynamic:
		return true
	default:
		return false
	}
}

// isCreatable reports whether a component of type t can be created by an edit
func isCreatable(t ComponentType) bool {
	switch t {
	case TypeRoot, TypeGrid, TypeReportViewerHeader:
		return false
	default:
		return t.Valid()
	}
}

// NewComponentID returns a fresh id for a component of the given type
func NewComponentID(t ComponentType) string {
	return fmt.Sprintf("%s-%s", t, uuid.NewString())
}

// DefaultMeta returns the metadata a freshly created component starts with
func DefaultMeta(t ComponentType) Meta {
	switch t {
	case TypeChart, TypeDynamic:
		return Meta{Width: GridDefaultChartWidth, Height: GridDefaultChartHeight}
	case TypeMarkdown:
		return Meta{Width: GridDefaultChartWidth, Height: GridDefaultChartHeight}
	case TypeColumn:
		return Meta{Width: GridDefaultChartWidth, Background: "BACKGROUND_TRANSPARENT"}
	case TypeRow:
		return Meta{Background: "BACKGROUND_TRANSPARENT"}
	case TypeHeader:
		return Meta{Text: "New header", HeaderSize: "MEDIUM_HEADER", Background: "BACKGROUND_TRANSPARENT"}
	case TypeTab:
		return Meta{DefaultText: "Tab title", Placeholder: "Tab title"}
	default:
		return Meta{}
	}
}

// NewComponent builds a detached component. An empty id is replaced by a
// generated one.
func NewComponent(t ComponentType, id string, parents []string, meta *Meta) Node {
	if id == "" {
		id = NewComponentID(t)
	}

	m := DefaultMeta(t)
	if meta != nil {
		m = mergeMeta(m, *meta)
	}

	return Node{
		ID:       id,
		Type:     t,
		Children: []string{},
		Parents:  append([]string(nil), parents...),
		Meta:     m,
	}
}

// mergeMeta overlays the non-zero fields of patch onto base
func mergeMeta(base, patch Meta) Meta {
	if patch.ChartID != 0 {
		base.ChartID = patch.ChartID
	}

	if patch.Width != 0 {
		base.Width = patch.Width
	}

	if patch.Height != 0 {
		base.Height = patch.Height
	}

	if patch.Text != "" {
		base.Text = patch.Text
	}

	if patch.Code != "" {
		base.Code = patch.Code
	}

	if patch.SliceName != "" {
		base.SliceName = patch.SliceName
	}

	if patch.SliceNameOverride != "" {
		base.SliceNameOverride = patch.SliceNameOverride
	}

	if patch.UUID != "" {
		base.UUID = patch.UUID
	}

	if patch.Background != "" {
		base.Background = patch.Background
	}

	if patch.HeaderSize != "" {
		base.HeaderSize = patch.HeaderSize
	}

	if patch.DefaultText != "" {
		base.DefaultText = patch.DefaultText
	}

	if patch.Placeholder != "" {
		base.Placeholder = patch.Placeholder
	}

	return base
}
