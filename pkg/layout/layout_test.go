package layout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleLayout builds:
//
//	ROOT_ID
//	└── GRID_ID
//	    ├── ROW-1: CHART-1 (chart 1), CHART-2 (chart 2)
//	    └── ROW-2
//	        └── COLUMN-1
//	            └── CHART-3 (chart 3)
func sampleLayout() Layout {
	return UpdateParentsList(New(map[string]Node{
		RootID:     {Type: TypeRoot, Children: []string{GridID}},
		GridID:     {Type: TypeGrid, Children: []string{"ROW-1", "ROW-2"}},
		"ROW-1":    {Type: TypeRow, Children: []string{"CHART-1", "CHART-2"}},
		"ROW-2":    {Type: TypeRow, Children: []string{"COLUMN-1"}},
		"COLUMN-1": {Type: TypeColumn, Children: []string{"CHART-3"}, Meta: Meta{Width: 6}},
		"CHART-1":  {Type: TypeChart, Children: []string{}, Meta: Meta{ChartID: 1, Width: 4, Height: 50}},
		"CHART-2":  {Type: TypeChart, Children: []string{}, Meta: Meta{ChartID: 2, Width: 4, Height: 50}},
		"CHART-3":  {Type: TypeChart, Children: []string{}, Meta: Meta{ChartID: 3, Width: 4, Height: 50}},
	}))
}

func TestEmptyLayout(t *testing.T) {
	l := EmptyLayout()

	require.NoError(t, Validate(l))
	assert.Equal(t, []string{GridID}, l.Children(RootID))
	assert.Empty(t, l.Children(GridID))
	assert.Equal(t, CurrentVersion, l.Version())
	assert.Empty(t, l.ChartIDs())
}

func TestUpdateParentsList(t *testing.T) {
	l := sampleLayout()

	require.NoError(t, Validate(l))

	n, ok := l.Get("CHART-3")
	require.True(t, ok)
	assert.Equal(t, []string{RootID, GridID, "ROW-2", "COLUMN-1"}, n.Parents)
	assert.Equal(t, []string{RootID, GridID, "ROW-2", "COLUMN-1", "CHART-3"}, l.DirectPathTo("CHART-3"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  Layout
		wantErr bool
	}{
		{
			name:   "valid sample",
			layout: sampleLayout(),
		},
		{
			name:    "missing root",
			layout:  New(map[string]Node{GridID: {Type: TypeGrid}}),
			wantErr: true,
		},
		{
			name: "dangling child",
			layout: UpdateParentsList(New(map[string]Node{
				RootID: {Type: TypeRoot, Children: []string{GridID}},
				GridID: {Type: TypeGrid, Children: []string{"ROW-X"}},
			})),
			wantErr: true,
		},
		{
			name: "stale parents",
			layout: New(map[string]Node{
				RootID: {Type: TypeRoot, Children: []string{GridID}},
				GridID: {Type: TypeGrid, Children: []string{}, Parents: []string{"OTHER"}},
			}),
			wantErr: true,
		},
		{
			name: "unreachable component",
			layout: UpdateParentsList(New(map[string]Node{
				RootID:  {Type: TypeRoot, Children: []string{GridID}},
				GridID:  {Type: TypeGrid, Children: []string{}},
				"ROW-9": {Type: TypeRow, Children: []string{}},
			})),
			wantErr: true,
		},
		{
			name: "header outside tree is allowed",
			layout: UpdateParentsList(New(map[string]Node{
				RootID:   {Type: TypeRoot, Children: []string{GridID}},
				GridID:   {Type: TypeGrid, Children: []string{}},
				HeaderID: {Type: TypeReportViewerHeader, Meta: Meta{Text: "Sales"}},
			})),
		},
		{
			name: "chart directly in grid",
			layout: UpdateParentsList(New(map[string]Node{
				RootID:    {Type: TypeRoot, Children: []string{GridID}},
				GridID:    {Type: TypeGrid, Children: []string{"CHART-1"}},
				"CHART-1": {Type: TypeChart, Meta: Meta{ChartID: 1}},
			})),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.layout)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidLayout)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestDeleteComponent(t *testing.T) {
	t.Run("cascades to the subtree and cleans the parent", func(t *testing.T) {
		before := sampleLayout()
		after := Apply(before, DeleteComponent{ID: "ROW-2"})

		assert.False(t, after.Has("ROW-2"))
		assert.False(t, after.Has("COLUMN-1"))
		assert.False(t, after.Has("CHART-3"))
		assert.Equal(t, []string{"ROW-1"}, after.Children(GridID))
		require.NoError(t, Validate(after))

		// the input snapshot is untouched
		assert.True(t, before.Has("CHART-3"))
		assert.Equal(t, []string{"ROW-1", "ROW-2"}, before.Children(GridID))
	})

	t.Run("single row with a chart leaves an empty grid", func(t *testing.T) {
		l := UpdateParentsList(New(map[string]Node{
			RootID:    {Type: TypeRoot, Children: []string{GridID}},
			GridID:    {Type: TypeGrid, Children: []string{"ROW-1"}},
			"ROW-1":   {Type: TypeRow, Children: []string{"CHART-1"}},
			"CHART-1": {Type: TypeChart, Meta: Meta{ChartID: 1}},
		}))

		after := Apply(l, DeleteComponent{ID: "ROW-1"})

		assert.Equal(t, []string{GridID, RootID}, after.IDs())
		assert.Empty(t, after.Children(GridID))
		assert.Empty(t, after.ChartIDs())
	})

	t.Run("emptied row is kept", func(t *testing.T) {
		after := Apply(sampleLayout(), DeleteComponent{ID: "CHART-3"})

		assert.True(t, after.Has("COLUMN-1"))
		assert.Empty(t, after.Children("COLUMN-1"))
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		l := sampleLayout()
		assert.Equal(t, l.Nodes(), Apply(l, DeleteComponent{ID: "nope"}).Nodes())
	})

	t.Run("root and grid are protected", func(t *testing.T) {
		l := sampleLayout()
		assert.True(t, Apply(l, DeleteComponent{ID: RootID}).Has(RootID))
		assert.True(t, Apply(l, DeleteComponent{ID: GridID}).Has(GridID))
	})
}

func TestCreateComponent(t *testing.T) {
	tests := []struct {
		name         string
		edit         CreateComponent
		wantCreated  bool
		wantParent   string
		wantWrapped  bool
		wantChildren []string
	}{
		{
			name:        "chart into row",
			edit:        CreateComponent{ID: "CHART-9", Type: TypeChart, ParentID: "ROW-1", Index: 1, Meta: &Meta{ChartID: 9}},
			wantCreated: true,
			wantParent:  "ROW-1",
			wantChildren: []string{
				"CHART-1", "CHART-9", "CHART-2",
			},
		},
		{
			name:        "chart into grid is wrapped in a row",
			edit:        CreateComponent{ID: "CHART-9", WrapperID: "ROW-9", Type: TypeChart, ParentID: GridID, Index: -1, Meta: &Meta{ChartID: 9}},
			wantCreated: true,
			wantParent:  "ROW-9",
			wantWrapped: true,
		},
		{
			name: "header into row is rejected",
			edit: CreateComponent{ID: "HEADER-9", Type: TypeHeader, ParentID: "ROW-1"},
		},
		{
			name: "unknown parent",
			edit: CreateComponent{ID: "CHART-9", Type: TypeChart, ParentID: "ROW-404"},
		},
		{
			name: "duplicate id",
			edit: CreateComponent{ID: "CHART-1", Type: TypeChart, ParentID: "ROW-1"},
		},
		{
			name: "grid cannot be created",
			edit: CreateComponent{ID: "GRID-2", Type: TypeGrid, ParentID: RootID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := sampleLayout()
			after := Apply(before, tt.edit)

			if !tt.wantCreated {
				assert.Equal(t, before.Nodes(), after.Nodes())
				return
			}

			require.NoError(t, Validate(after))

			n, ok := after.Get(tt.edit.ID)
			require.True(t, ok)
			assert.Equal(t, tt.wantParent, n.Parent())

			if tt.wantWrapped {
				row, ok := after.Get(tt.wantParent)
				require.True(t, ok)
				assert.Equal(t, TypeRow, row.Type)
				assert.Equal(t, GridID, row.Parent())
			}

			if tt.wantChildren != nil {
				assert.Equal(t, tt.wantChildren, after.Children(tt.wantParent))
			}
		})
	}

	t.Run("tabs get a first tab", func(t *testing.T) {
		after := Apply(EmptyLayout(), CreateComponent{ID: "TABS-1", TabID: "TAB-1", Type: TypeTabs, ParentID: GridID})

		require.NoError(t, Validate(after))
		assert.Equal(t, []string{"TAB-1"}, after.Children("TABS-1"))
		assert.True(t, after.HasTabs())
	})

	t.Run("generated ids carry the type", func(t *testing.T) {
		after := Apply(EmptyLayout(), CreateComponent{Type: TypeDivider, ParentID: GridID})

		children := after.Children(GridID)
		require.Len(t, children, 1)
		assert.Contains(t, children[0], "DIVIDER-")
	})
}

func TestMoveComponent(t *testing.T) {
	t.Run("moves a subtree and rewrites parents", func(t *testing.T) {
		l := Apply(sampleLayout(), CreateComponent{ID: "TABS-1", TabID: "TAB-1", Type: TypeTabs, ParentID: GridID, Index: -1})
		after := Apply(l, MoveComponent{ID: "ROW-2", DestinationID: "TAB-1", Index: 0})

		require.NoError(t, Validate(after))
		assert.Equal(t, []string{"ROW-1", "TABS-1"}, after.Children(GridID))
		assert.Equal(t, []string{"ROW-2"}, after.Children("TAB-1"))

		chart, _ := after.Get("CHART-3")
		assert.Equal(t, []string{RootID, GridID, "TABS-1", "TAB-1", "ROW-2", "COLUMN-1"}, chart.Parents)
	})

	t.Run("reorders inside the same parent", func(t *testing.T) {
		after := Apply(sampleLayout(), MoveComponent{ID: "CHART-1", DestinationID: "ROW-1", Index: 1})

		assert.Equal(t, []string{"CHART-2", "CHART-1"}, after.Children("ROW-1"))
	})

	t.Run("chart dropped into grid is wrapped", func(t *testing.T) {
		after := Apply(sampleLayout(), MoveComponent{ID: "CHART-3", DestinationID: GridID, Index: 0, WrapperID: "ROW-9"})

		require.NoError(t, Validate(after))
		assert.Equal(t, []string{"ROW-9", "ROW-1", "ROW-2"}, after.Children(GridID))
		assert.Equal(t, []string{"CHART-3"}, after.Children("ROW-9"))
		assert.Empty(t, after.Children("COLUMN-1"))
	})

	tests := []struct {
		name string
		edit MoveComponent
	}{
		{name: "into own subtree", edit: MoveComponent{ID: "ROW-2", DestinationID: "COLUMN-1"}},
		{name: "onto itself", edit: MoveComponent{ID: "ROW-2", DestinationID: "ROW-2"}},
		{name: "invalid parent type", edit: MoveComponent{ID: "ROW-1", DestinationID: "ROW-2"}},
		{name: "unknown destination", edit: MoveComponent{ID: "ROW-1", DestinationID: "nope"}},
		{name: "root", edit: MoveComponent{ID: RootID, DestinationID: GridID}},
	}

	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			before := sampleLayout()
			assert.Equal(t, before.Nodes(), Apply(before, tt.edit).Nodes())
		})
	}
}

func TestResizeComponent(t *testing.T) {
	tests := []struct {
		name       string
		edit       ResizeComponent
		wantWidth  int
		wantHeight int
	}{
		{name: "width within free space", edit: ResizeComponent{ID: "CHART-1", Width: 6}, wantWidth: 6, wantHeight: 50},
		{name: "width clamped to free row space", edit: ResizeComponent{ID: "CHART-1", Width: 12}, wantWidth: 8, wantHeight: 50},
		{name: "width clamped to minimum", edit: ResizeComponent{ID: "CHART-1", Width: -3}, wantWidth: 1, wantHeight: 50},
		{name: "width clamped to column width", edit: ResizeComponent{ID: "CHART-3", Width: 10}, wantWidth: 6, wantHeight: 50},
		{name: "height clamped to maximum", edit: ResizeComponent{ID: "CHART-2", Height: 500}, wantWidth: 4, wantHeight: 100},
		{name: "height clamped to minimum", edit: ResizeComponent{ID: "CHART-2", Height: 1}, wantWidth: 4, wantHeight: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after := Apply(sampleLayout(), tt.edit)

			n, ok := after.Get(tt.edit.ID)
			require.True(t, ok)
			assert.Equal(t, tt.wantWidth, n.Meta.Width)
			assert.Equal(t, tt.wantHeight, n.Meta.Height)
		})
	}

	t.Run("non resizable type is a no-op", func(t *testing.T) {
		before := sampleLayout()
		assert.Equal(t, before.Nodes(), Apply(before, ResizeComponent{ID: "ROW-1", Width: 3}).Nodes())
	})
}

func TestUpdateComponentMeta(t *testing.T) {
	name := "Revenue"
	after := Apply(sampleLayout(), UpdateComponentMeta{ID: "CHART-1", Patch: MetaPatch{SliceNameOverride: &name}})

	n, _ := after.Get("CHART-1")
	assert.Equal(t, "Revenue", n.Meta.SliceNameOverride)
	assert.Equal(t, 1, n.Meta.ChartID)
	assert.False(t, IsStructural(UpdateComponentMeta{}))
	assert.True(t, IsStructural(MoveComponent{}))
}

func TestTopLevelTabs(t *testing.T) {
	l := sampleLayout()

	tabbed := Apply(l, CreateTopLevelTabs{TabsID: "TABS-1", TabID: "TAB-1"})
	require.NoError(t, Validate(tabbed))

	assert.False(t, tabbed.Has(GridID))
	assert.Equal(t, []string{"TABS-1"}, tabbed.Children(RootID))
	assert.Equal(t, []string{"ROW-1", "ROW-2"}, tabbed.Children("TAB-1"))

	id, ok := tabbed.TopLevelTabsID()
	require.True(t, ok)
	assert.Equal(t, "TABS-1", id)
	assert.Equal(t, "TAB-1", tabbed.FirstParentContainerID())

	// a second wrap is rejected
	assert.Equal(t, tabbed.Nodes(), Apply(tabbed, CreateTopLevelTabs{}).Nodes())

	flat := Apply(tabbed, DeleteTopLevelTabs{})
	require.NoError(t, Validate(flat))
	assert.Equal(t, l.Nodes(), flat.Nodes())
}

func TestQueries(t *testing.T) {
	l := sampleLayout()

	assert.Equal(t, []int{1, 2, 3}, l.ChartIDs())
	assert.Equal(t, GridID, l.FirstParentContainerID())
	assert.Equal(t, []string{"COLUMN-1", "CHART-3"}, l.Descendants("ROW-2"))

	n, ok := l.ChartComponent(2)
	require.True(t, ok)
	assert.Equal(t, "CHART-2", n.ID)

	_, ok = l.ChartComponent(42)
	assert.False(t, ok)
	assert.False(t, l.HasTabs())
}

func TestParseAndMarshal(t *testing.T) {
	l := sampleLayout()

	data, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"REPORTVIEWER_VERSION_KEY":"v2"`)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, l.Nodes(), parsed.Nodes())

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrEmptyLayout},
		{name: "null", input: "null", wantErr: ErrEmptyLayout},
		{name: "empty object", input: "{}", wantErr: ErrEmptyLayout},
		{name: "no root", input: `{"GRID_ID":{"type":"GRID","children":[]}}`, wantErr: ErrMissingRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.ErrorIs(t, err, tt.wantErr)

			fallback, used := ParseOrEmpty([]byte(tt.input))
			assert.True(t, used)
			assert.Equal(t, EmptyLayout().Nodes(), fallback.Nodes())
		})
	}

	_, used := ParseOrEmpty([]byte("{not json"))
	assert.True(t, used)
}

func TestHistory(t *testing.T) {
	h := NewHistory(EmptyLayout())
	assert.False(t, h.CanUndo())

	step1 := Apply(h.Present(), CreateComponent{ID: "DIVIDER-1", Type: TypeDivider, ParentID: GridID})
	h = h.Push(step1)

	assert.True(t, h.CanUndo())
	assert.True(t, h.Present().Has("DIVIDER-1"))

	h = h.Undo()
	assert.False(t, h.Present().Has("DIVIDER-1"))
	assert.True(t, h.CanRedo())

	h = h.Redo()
	assert.True(t, h.Present().Has("DIVIDER-1"))
	assert.False(t, h.CanRedo())

	for i := 0; i < HistoryLimit+5; i++ {
		h = h.Push(EmptyLayout())
	}

	assert.True(t, h.Exceeded())

	undone := 0
	for h.CanUndo() {
		h = h.Undo()
		undone++
	}

	assert.Equal(t, HistoryLimit, undone)
}

func TestApplyEditReportsChange(t *testing.T) {
	l := sampleLayout()

	next, changed := ApplyEdit(l, DeleteComponent{ID: "missing"})
	assert.False(t, changed)
	assert.Equal(t, l.IDs(), next.IDs())

	next, changed = ApplyEdit(l, DeleteComponent{ID: "CHART-2"})
	assert.True(t, changed)
	assert.False(t, next.Has("CHART-2"))
	assert.True(t, l.Has("CHART-2"))
}

func TestWithHeader(t *testing.T) {
	l := WithHeader(sampleLayout(), "Sales")

	header, ok := l.Get(HeaderID)
	require.True(t, ok)
	assert.Equal(t, TypeReportViewerHeader, header.Type)
	assert.Equal(t, "Sales", header.Meta.Text)
	assert.Empty(t, header.Parents)
	require.NoError(t, Validate(l))

	renamed := WithHeader(l, "Revenue")
	h, _ := renamed.Get(HeaderID)
	assert.Equal(t, "Revenue", h.Meta.Text)

	same := WithHeader(renamed, "Revenue")
	assert.Equal(t, renamed.Nodes(), same.Nodes())
}
