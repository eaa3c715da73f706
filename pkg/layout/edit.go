package layout

// EditKind names a layout edit
type EditKind string

const (
	// EditCreate adds a new component
	EditCreate EditKind = "CREATE_COMPONENT"
	// EditDelete removes a component and its subtree
	EditDelete EditKind = "DELETE_COMPONENT"
	// EditMove re-parents a component
	EditMove EditKind = "MOVE_COMPONENT"
	// EditResize changes width/height of a component
	EditResize EditKind = "RESIZE_COMPONENT"
	// EditUpdateMeta patches component metadata
	EditUpdateMeta EditKind = "UPDATE_COMPONENT_META"
	// EditCreateTopLevelTabs wraps the grid content into top-level tabs
	EditCreateTopLevelTabs EditKind = "CREATE_TOP_LEVEL_TABS"
	// EditDeleteTopLevelTabs flattens top-level tabs back into the grid
	EditDeleteTopLevelTabs EditKind = "DELETE_TOP_LEVEL_TABS"
)

// Edit is one of the structural or metadata edits accepted by Apply
type Edit interface {
	Kind() EditKind
}

// CreateComponent inserts a new component under ParentID at Index. A
// negative or out of range index appends. Empty ids are generated.
type CreateComponent struct {
	ID        string        `json:"id,omitempty"`
	Type      ComponentType `json:"type"`
	ParentID  string        `json:"parentId"`
	Index     int           `json:"index"`
	Meta      *Meta         `json:"meta,omitempty"`
	WrapperID string        `json:"wrapperId,omitempty"`
	TabID     string        `json:"tabId,omitempty"`
}

// DeleteComponent removes a component and all of its descendants
type DeleteComponent struct {
	ID string `json:"id"`
}

// MoveComponent moves a component, with its subtree, under DestinationID at
// Index (position in the destination after the component was removed).
type MoveComponent struct {
	ID            string `json:"id"`
	DestinationID string `json:"destinationId"`
	Index         int    `json:"index"`
	WrapperID     string `json:"wrapperId,omitempty"`
}

// ResizeComponent sets width and/or height. Zero leaves a dimension as is.
type ResizeComponent struct {
	ID     string `json:"id"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// MetaPatch lists the metadata fields an UpdateComponentMeta edit may change
type MetaPatch struct {
	Text              *string `json:"text,omitempty"`
	Code              *string `json:"code,omitempty"`
	SliceName         *string `json:"sliceName,omitempty"`
	SliceNameOverride *string `json:"sliceNameOverride,omitempty"`
	Background        *string `json:"background,omitempty"`
	HeaderSize        *string `json:"headerSize,omitempty"`
}

// UpdateComponentMeta patches metadata without structural change
type UpdateComponentMeta struct {
	ID    string    `json:"id"`
	Patch MetaPatch `json:"patch"`
}

// CreateTopLevelTabs moves the grid content into a new top-level TABS
// component with a single TAB.
type CreateTopLevelTabs struct {
	TabsID string `json:"tabsId,omitempty"`
	TabID  string `json:"tabId,omitempty"`
}

// DeleteTopLevelTabs moves the content of every top-level tab back into the
// grid and removes the tabs.
type DeleteTopLevelTabs struct{}

// Kind implements Edit
func (CreateComponent) Kind() EditKind { return EditCreate }

// Kind implements Edit
func (DeleteComponent) Kind() EditKind { return EditDelete }

// Kind implements Edit
func (MoveComponent) Kind() EditKind { return EditMove }

// Kind implements Edit
func (ResizeComponent) Kind() EditKind { return EditResize }

// Kind implements Edit
func (UpdateComponentMeta) Kind() EditKind { return EditUpdateMeta }

// Kind implements Edit
func (CreateTopLevelTabs) Kind() EditKind { return EditCreateTopLevelTabs }

// Kind implements Edit
func (DeleteTopLevelTabs) Kind() EditKind { return EditDeleteTopLevelTabs }

// IsStructural reports whether an edit can change the shape of the tree
func IsStructural(e Edit) bool {
	switch e.(type) {
	case ResizeComponent, UpdateComponentMeta:
		return false
	default:
		return true
	}
}

// Apply returns the snapshot produced by applying e to l. Edits that
// reference unknown ids, or that would break the tree rules, return l
// unchanged.
func Apply(l Layout, e Edit) Layout {
	next, _ := ApplyEdit(l, e)
	return next
}

// ApplyEdit is Apply that also reports whether the edit changed anything.
// Unchanged results share the receiver snapshot.
func ApplyEdit(l Layout, e Edit) (Layout, bool) {
	m := newMutation(l)

	var changed bool

	switch edit := e.(type) {
	case CreateComponent:
		changed = m.create(edit)
	case DeleteComponent:
		changed = m.delete(edit)
	case MoveComponent:
		changed = m.move(edit)
	case ResizeComponent:
		changed = m.resize(edit)
	case UpdateComponentMeta:
		changed = m.updateMeta(edit)
	case CreateTopLevelTabs:
		changed = m.createTopLevelTabs(edit)
	case DeleteTopLevelTabs:
		changed = m.deleteTopLevelTabs()
	default:
		return l, false
	}

	if !changed {
		return l, false
	}

	return m.layout(), true
}

// WithHeader returns a snapshot holding the title component under HEADER_ID.
// The title component sits outside the tree.
func WithHeader(l Layout, title string) Layout {
	m := newMutation(l)

	if n := m.get(HeaderID); n != nil {
		if n.Type == TypeReportViewerHeader && n.Meta.Text == title {
			return l
		}

		n = m.edit(HeaderID)
		n.Type = TypeReportViewerHeader
		n.Meta.Text = title

		return m.layout()
	}

	header := Node{
		ID:       HeaderID,
		Type:     TypeReportViewerHeader,
		Children: []string{},
		Meta:     Meta{Text: title},
	}
	m.put(&header)

	return m.layout()
}

func (m *mutation) create(e CreateComponent) bool {
	if !isCreatable(e.Type) {
		return false
	}

	parent := m.get(e.ParentID)
	if parent == nil {
		return false
	}

	id := e.ID
	if id == "" {
		id = NewComponentID(e.Type)
	}

	if m.get(id) != nil {
		return false
	}

	target, index := parent.ID, e.Index

	if needsRowWrapper(parent.Type, e.Type) {
		rowID, ok := m.wrap(parent.ID, e.WrapperID, id, index)
		if !ok {
			return false
		}

		target, index = rowID, 0
	} else if !IsValidChild(parent.Type, e.Type) {
		return false
	}

	node := NewComponent(e.Type, id, m.path(target), e.Meta)
	m.put(&node)
	m.insertChild(target, id, index)

	if e.Type == TypeTabs {
		tabID := e.TabID
		if tabID == "" || tabID == id || m.get(tabID) != nil {
			tabID = NewComponentID(TypeTab)
		}

		tab := NewComponent(TypeTab, tabID, m.path(id), nil)
		m.put(&tab)
		m.insertChild(id, tabID, -1)
	}

	return true
}

func (m *mutation) delete(e DeleteComponent) bool {
	node := m.get(e.ID)
	if node == nil {
		return false
	}

	switch node.Type {
	case TypeRoot, TypeReportViewerHeader:
		return false
	}

	if node.ID == GridID {
		return false
	}

	if parentID := m.parentOf(e.ID); parentID != "" {
		p := m.edit(parentID)
		p.Children = without(p.Children, e.ID)
	}

	for _, id := range m.subtree(e.ID) {
		m.remove(id)
	}

	return true
}

func (m *mutation) move(e MoveComponent) bool {
	node := m.get(e.ID)
	dest := m.get(e.DestinationID)

	if node == nil || dest == nil {
		return false
	}

	switch node.Type {
	case TypeRoot, TypeGrid, TypeReportViewerHeader:
		return false
	}

	for _, id := range m.subtree(e.ID) {
		if id == e.DestinationID {
			return false
		}
	}

	sourceID := m.parentOf(e.ID)
	if sourceID == "" {
		return false
	}

	wrap := needsRowWrapper(dest.Type, node.Type)
	if !wrap && !IsValidChild(dest.Type, node.Type) {
		return false
	}

	if wrap && e.WrapperID != "" && m.get(e.WrapperID) != nil {
		return false
	}

	src := m.edit(sourceID)
	src.Children = without(src.Children, e.ID)

	target, index := dest.ID, e.Index

	if wrap {
		rowID, _ := m.wrap(dest.ID, e.WrapperID, e.ID, index)
		target, index = rowID, 0
	}

	m.insertChild(target, e.ID, index)
	m.setParents(e.ID, m.path(target))

	return true
}

func (m *mutation) resize(e ResizeComponent) bool {
	node := m.get(e.ID)
	if node == nil || !isResizable(node.Type) {
		return false
	}

	width, height := node.Meta.Width, node.Meta.Height

	if e.Width != 0 {
		width = clamp(e.Width, GridMinColumnCount, m.maxWidth(node))
	}

	if e.Height != 0 && node.Type != TypeColumn {
		height = clamp(e.Height, GridMinRowUnits, GridMaxRowUnits)
	}

	if width == node.Meta.Width && height == node.Meta.Height {
		return false
	}

	n := m.edit(e.ID)
	n.Meta.Width = width
	n.Meta.Height = height

	return true
}

// maxWidth returns the widest a component may grow inside its parent
func (m *mutation) maxWidth(node *Node) int {
	parent := m.get(m.parentOf(node.ID))
	if parent == nil {
		return GridColumnCount
	}

	limit := GridColumnCount

	switch parent.Type {
	case TypeRow:
		occupied := 0

		for _, sibling := range parent.Children {
			if sibling == node.ID {
				continue
			}

			if s := m.get(sibling); s != nil {
				occupied += s.Meta.Width
			}
		}

		limit = GridColumnCount - occupied
	case TypeColumn:
		if parent.Meta.Width > 0 {
			limit = parent.Meta.Width
		}
	}

	if limit < GridMinColumnCount {
		return GridMinColumnCount
	}

	return limit
}

func (m *mutation) updateMeta(e UpdateComponentMeta) bool {
	if m.get(e.ID) == nil {
		return false
	}

	p := e.Patch
	if p.Text == nil && p.Code == nil && p.SliceName == nil && p.SliceNameOverride == nil &&
		p.Background == nil && p.HeaderSize == nil {
		return false
	}

	n := m.edit(e.ID)

	if p.Text != nil {
		n.Meta.Text = *p.Text
	}

	if p.Code != nil {
		n.Meta.Code = *p.Code
	}

	if p.SliceName != nil {
		n.Meta.SliceName = *p.SliceName
	}

	if p.SliceNameOverride != nil {
		n.Meta.SliceNameOverride = *p.SliceNameOverride
	}

	if p.Background != nil {
		n.Meta.Background = *p.Background
	}

	if p.HeaderSize != nil {
		n.Meta.HeaderSize = *p.HeaderSize
	}

	return true
}

func (m *mutation) createTopLevelTabs(e CreateTopLevelTabs) bool {
	root := m.get(RootID)
	grid := m.get(GridID)

	if root == nil || grid == nil || len(root.Children) != 1 || root.Children[0] != GridID {
		return false
	}

	tabsID := e.TabsID
	if tabsID == "" {
		tabsID = NewComponentID(TypeTabs)
	}

	tabID := e.TabID
	if tabID == "" {
		tabID = NewComponentID(TypeTab)
	}

	if tabsID == tabID || m.get(tabsID) != nil || m.get(tabID) != nil {
		return false
	}

	content := append([]string(nil), grid.Children...)

	tabs := NewComponent(TypeTabs, tabsID, []string{RootID}, nil)
	tabs.Children = []string{tabID}

	tab := NewComponent(TypeTab, tabID, []string{RootID, tabsID}, nil)
	tab.Children = content

	m.put(&tabs)
	m.put(&tab)
	m.remove(GridID)

	r := m.edit(RootID)
	r.Children = []string{tabsID}

	for _, child := range content {
		m.setParents(child, []string{RootID, tabsID, tabID})
	}

	return true
}

func (m *mutation) deleteTopLevelTabs() bool {
	root := m.get(RootID)
	if root == nil || len(root.Children) == 0 {
		return false
	}

	tabs := m.get(root.Children[0])
	if tabs == nil || tabs.Type != TypeTabs {
		return false
	}

	content := make([]string, 0)

	for _, tabID := range tabs.Children {
		if tab := m.get(tabID); tab != nil {
			content = append(content, tab.Children...)
		}

		m.remove(tabID)
	}

	m.remove(tabs.ID)

	grid := NewComponent(TypeGrid, GridID, []string{RootID}, nil)
	grid.Children = content
	m.put(&grid)

	r := m.edit(RootID)
	r.Children = append([]string{GridID}, without(r.Children, tabs.ID)...)

	for _, child := range content {
		m.setParents(child, []string{RootID, GridID})
	}

	return true
}

// wrap creates a ROW inside parentID at index that will hold childID. It
// returns the id of the row.
func (m *mutation) wrap(parentID, rowID, childID string, index int) (string, bool) {
	if rowID == "" || rowID == childID {
		rowID = NewComponentID(TypeRow)
	}

	if m.get(rowID) != nil {
		return "", false
	}

	row := NewComponent(TypeRow, rowID, m.path(parentID), nil)
	m.put(&row)
	m.insertChild(parentID, rowID, index)

	return rowID, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
