// Package layout implements the report viewer layout tree: an arena of
// components keyed by id, edited through pure functions that return new
// snapshots.
package layout

import (
	"sort"
)

// ComponentType is the type tag of a layout component
type ComponentType string

const (
	// TypeRoot is the singleton root component
	TypeRoot ComponentType = "ROOT"
	// TypeGrid is the default top-level container
	TypeGrid ComponentType = "GRID"
	// TypeTabs groups TAB components
	TypeTabs ComponentType = "TABS"
	// TypeTab is a single tab
	TypeTab ComponentType = "TAB"
	// TypeRow lays children out horizontally
	TypeRow ComponentType = "ROW"
	// TypeColumn lays children out vertically inside a row
	TypeColumn ComponentType = "COLUMN"
	// TypeChart holds a chart
	TypeChart ComponentType = "CHART"
	// TypeHeader is a section header
	TypeHeader ComponentType = "HEADER"
	// TypeMarkdown holds free text
	TypeMarkdown ComponentType = "MARKDOWN"
	// TypeDivider is a horizontal divider
	TypeDivider ComponentType = "DIVIDER"
	// TypeDynamic holds a plugin-provided component
	TypeDynamic ComponentType = "DYNAMIC"
	// TypeReportViewerHeader holds the report viewer title. It lives outside
	// the tree and has no parents.
	TypeReportViewerHeader ComponentType = "REPORTVIEWER_HEADER"
)

const (
	// RootID is the id of the root component
	RootID = "ROOT_ID"
	// GridID is the id of the default grid
	GridID = "GRID_ID"
	// HeaderID is the id of the title component
	HeaderID = "HEADER_ID"
	// VersionKey is the persisted key carrying the layout version
	VersionKey = "REPORTVIEWER_VERSION_KEY"
	// CurrentVersion is the layout format version written on save
	CurrentVersion = "v2"
)

// Grid geometry. Widths are in columns, heights in row units.
const (
	GridColumnCount        = 12
	GridMinColumnCount     = 1
	GridDefaultChartWidth  = 4
	GridDefaultChartHeight = 50
	GridMinRowUnits        = 5
	GridMaxRowUnits        = 100
)

// Valid reports whether t is one of the known component types
func (t ComponentType) Valid() bool {
	switch t {
	case TypeRoot, TypeGrid, TypeTabs, TypeTab, TypeRow, TypeColumn, TypeChart,
		TypeHeader, TypeMarkdown, TypeDivider, TypeDynamic, TypeReportViewerHeader:
		return true
	default:
		return false
	}
}

// Meta holds positional and display metadata of a component
type Meta struct {
	ChartID           int    `json:"chartId,omitempty"`
	Width             int    `json:"width,omitempty"`
	Height            int    `json:"height,omitempty"`
	Text              string `json:"text,omitempty"`
	Code              string `json:"code,omitempty"`
	SliceName         string `json:"sliceName,omitempty"`
	SliceNameOverride string `json:"sliceNameOverride,omitempty"`
	UUID              string `json:"uuid,omitempty"`
	Background        string `json:"background,omitempty"`
	HeaderSize        string `json:"headerSize,omitempty"`
	DefaultText       string `json:"defaultText,omitempty"`
	Placeholder       string `json:"placeholder,omitempty"`
}

// Node is a single layout component
type Node struct {
	ID       string        `json:"id"`
	Type     ComponentType `json:"type"`
	Children []string      `json:"children"`
	Parents  []string      `json:"parents,omitempty"`
	Meta     Meta          `json:"meta"`
}

func (n *Node) clone() *Node {
	c := *n
	c.Children = append(make([]string, 0, len(n.Children)), n.Children...)
	c.Parents = append([]string(nil), n.Parents...)

	return &c
}

// Parent returns the id of the direct parent, or "" for root level nodes
func (n Node) Parent() string {
	if len(n.Parents) == 0 {
		return ""
	}

	return n.Parents[len(n.Parents)-1]
}

// Layout is an immutable snapshot of the layout tree. Edits return new
// snapshots and never modify the receiver.
type Layout struct {
	nodes   map[string]*Node
	version string
}

// New builds a layout from the given nodes. The nodes are copied.
func New(nodes map[string]Node) Layout {
	l := Layout{
		nodes:   make(map[string]*Node, len(nodes)),
		version: CurrentVersion,
	}

	for id := range nodes {
		n := nodes[id]
		if n.ID == "" {
			n.ID = id
		}

		l.nodes[id] = n.clone()
	}

	return l
}

// EmptyLayout returns the template used for new or unreadable layouts: a ROOT
// with a single empty GRID.
func EmptyLayout() Layout {
	return New(map[string]Node{
		RootID: {
			ID:       RootID,
			Type:     TypeRoot,
			Children: []string{GridID},
		},
		GridID: {
			ID:       GridID,
			Type:     TypeGrid,
			Children: []string{},
			Parents:  []string{RootID},
		},
	})
}

// Version returns the version marker of the snapshot
func (l Layout) Version() string {
	if l.version == "" {
		return CurrentVersion
	}

	return l.version
}

// IsZero reports whether the layout holds no components at all
func (l Layout) IsZero() bool {
	return len(l.nodes) == 0
}

// Len returns the number of components
func (l Layout) Len() int {
	return len(l.nodes)
}

// Has reports whether id exists in the snapshot
func (l Layout) Has(id string) bool {
	_, ok := l.nodes[id]
	return ok
}

// Get returns a copy of the component with the given id
func (l Layout) Get(id string) (Node, bool) {
	n, ok := l.nodes[id]
	if !ok {
		return Node{}, false
	}

	return *n.clone(), true
}

// IDs returns every component id in sorted order
func (l Layout) IDs() []string {
	ids := make([]string, 0, len(l.nodes))
	for id := range l.nodes {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Nodes returns a copy of every component keyed by id
func (l Layout) Nodes() map[string]Node {
	out := make(map[string]Node, len(l.nodes))
	for id, n := range l.nodes {
		out[id] = *n.clone()
	}

	return out
}

// Children returns a copy of the ordered child ids of a component
func (l Layout) Children(id string) []string {
	n, ok := l.nodes[id]
	if !ok {
		return nil
	}

	return append([]string(nil), n.Children...)
}

func (l Layout) node(id string) *Node {
	return l.nodes[id]
}

func (l Layout) typeOf(id string) ComponentType {
	if n, ok := l.nodes[id]; ok {
		return n.Type
	}

	return ""
}
