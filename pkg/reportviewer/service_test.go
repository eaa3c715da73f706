package reportviewer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	m, err := ParseMetadata(nil)
	require.NoError(t, err)
	assert.True(t, m.CrossFilters())
	assert.True(t, m.Stagger())

	m, err = ParseMetadata([]byte(`{
		"refresh_frequency": 60,
		"timed_refresh_immune_slices": [3],
		"cross_filters_enabled": false,
		"default_filters": "{\"10\": {\"region\": [\"a\"]}}",
		"chart_configuration": {"4": {"id": 4, "crossFilters": {"scope": "global", "chartsInScope": [1]}}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 60, m.RefreshFrequency)
	assert.Equal(t, []int{3}, m.TimedRefreshImmuneSlices)
	assert.False(t, m.CrossFilters())
	assert.True(t, m.ChartConfiguration[4].CrossFilters.Scope.Global)

	_, err = ParseMetadata([]byte(`{"refresh_frequency": "often"}`))
	require.Error(t, err)
}

func TestMetadataCleaned(t *testing.T) {
	encoded, err := Metadata{RefreshFrequency: -5}.Cleaned().Encode()
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"refresh_frequency": 0,
		"timed_refresh_immune_slices": [],
		"expanded_slices": {},
		"color_scheme": "",
		"label_colors": {},
		"cross_filters_enabled": true
	}`, encoded)
}

func TestChartFilterBox(t *testing.T) {
	c := Chart{VizType: "filter_box", FormData: map[string]any{
		"filter_configs": []any{
			map[string]any{"column": "region", "label": "Region"},
			map[string]any{"column": "gender"},
			map[string]any{"label": "no column"},
		},
	}}

	assert.True(t, c.IsFilterBox())
	assert.Equal(t, []string{"region", "gender"}, c.FilterBoxColumns())
	assert.Equal(t, map[string]string{"region": "Region", "gender": "gender"}, c.FilterBoxLabels())
	assert.Empty(t, Chart{}.FilterBoxColumns())
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), newTestRepository(t))

	rv := &ReportViewer{Title: "Fresh"}
	require.NoError(t, svc.Create(ctx, rv))

	l, fallback := layout.ParseOrEmpty([]byte(rv.PositionJSON))
	assert.False(t, fallback)
	assert.Equal(t, layout.EmptyLayout().IDs(), l.IDs())

	m, err := rv.Metadata()
	require.NoError(t, err)
	assert.NotNil(t, m.LabelColors)
}

func TestServiceSave(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	svc := NewService(testLogger(), repo)

	rv := &ReportViewer{Title: "Sales", Slug: "sales"}
	require.NoError(t, svc.Create(ctx, rv))

	chart := &Chart{Name: "Revenue"}
	require.NoError(t, repo.CreateChart(ctx, chart))
	require.NoError(t, repo.AddChart(ctx, rv.ID, chart.ID))

	edited := layout.Apply(layout.EmptyLayout(), layout.CreateComponent{
		Type:     layout.TypeChart,
		ParentID: layout.GridID,
		Meta:     &layout.Meta{ChartID: chart.ID},
	})

	req := SaveRequest{
		Title:            "Sales v2",
		Slug:             "sales",
		Layout:           edited,
		Metadata:         Metadata{RefreshFrequency: 30},
		LastModifiedTime: rv.ChangedOn,
	}

	t.Run("invalid type", func(t *testing.T) {
		_, err := svc.Save(ctx, rv.ID, req)
		require.ErrorIs(t, err, ErrInvalidSaveType)
	})

	t.Run("stale overwrite needs confirmation", func(t *testing.T) {
		stale := req
		stale.Type = SaveOverwrite
		stale.LastModifiedTime = rv.ChangedOn.Add(-time.Hour)

		_, err := svc.Save(ctx, rv.ID, stale)
		require.ErrorIs(t, err, ErrOverwriteConflict)

		var conflict *OverwriteConflictError
		require.ErrorAs(t, err, &conflict)

		keys := make([]string, 0, len(conflict.Items))
		for _, item := range conflict.Items {
			keys = append(keys, item.Key)
		}

		assert.Contains(t, keys, "reportViewer_title")
		assert.Contains(t, keys, "position_json")
		assert.NotContains(t, keys, "slug")

		stored, err := repo.Get(ctx, rv.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sales", stored.Title, "failed save leaves the store untouched")
	})

	t.Run("confirmed overwrite", func(t *testing.T) {
		confirmed := req
		confirmed.Type = SaveOverwriteConfirmed
		confirmed.LastModifiedTime = time.Time{}

		res, err := svc.Save(ctx, rv.ID, confirmed)
		require.NoError(t, err)
		assert.Equal(t, "Sales v2", res.ReportViewer.Title)
		assert.False(t, res.LastModifiedTime.IsZero())

		stored, err := repo.Get(ctx, rv.ID)
		require.NoError(t, err)

		l, err := layout.Parse([]byte(stored.PositionJSON))
		require.NoError(t, err)
		assert.Equal(t, []int{chart.ID}, l.ChartIDs())

		m, err := stored.Metadata()
		require.NoError(t, err)
		assert.Equal(t, 30, m.RefreshFrequency)
		assert.Nil(t, m.Positions)
	})

	t.Run("up to date overwrite", func(t *testing.T) {
		stored, err := repo.Get(ctx, rv.ID)
		require.NoError(t, err)

		fresh := req
		fresh.Type = SaveOverwrite
		fresh.Title = "Sales v3"
		fresh.LastModifiedTime = stored.ChangedOn

		res, err := svc.Save(ctx, rv.ID, fresh)
		require.NoError(t, err)
		assert.Equal(t, "Sales v3", res.ReportViewer.Title)
	})

	t.Run("copy", func(t *testing.T) {
		cp := req
		cp.Type = SaveCopy
		cp.Title = "Sales copy"

		res, err := svc.Save(ctx, rv.ID, cp)
		require.NoError(t, err)
		assert.NotEqual(t, rv.ID, res.ReportViewer.ID)
		assert.Empty(t, res.ReportViewer.Slug)

		m, err := res.ReportViewer.Metadata()
		require.NoError(t, err)

		var positions map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(m.Positions, &positions))
		assert.Contains(t, positions, layout.RootID)

		charts, err := svc.Charts(ctx, res.ReportViewer.ID)
		require.NoError(t, err)
		require.Len(t, charts, 1)
	})

	t.Run("missing report viewer", func(t *testing.T) {
		cp := req
		cp.Type = SaveOverwriteConfirmed

		_, err := svc.Save(ctx, 999, cp)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestOverwriteItems(t *testing.T) {
	stored := &ReportViewer{Title: "A", JSONMetadata: `{"a": 1, "b": 2}`}
	updated := &ReportViewer{Title: "A", JSONMetadata: `{"b": 2, "a": 1}`}

	assert.Empty(t, OverwriteItems(stored, updated), "key order does not matter")

	updated.CSS = "body {}"
	items := OverwriteItems(stored, updated)
	require.Len(t, items, 1)
	assert.Equal(t, OverwriteItem{Key: "css", Before: "", After: "body {}"}, items[0])
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), newTestRepository(t))

	rv := &ReportViewer{Title: "Sales"}
	require.NoError(t, svc.Create(ctx, rv))

	title := "Revenue"
	published := true
	metadata := `{"refresh_frequency": -5, "color_scheme": "bnbColors"}`

	updated, err := svc.Update(ctx, rv.ID, Patch{Title: &title, Published: &published, JSONMetadata: &metadata})
	require.NoError(t, err)
	assert.Equal(t, "Revenue", updated.Title)
	assert.True(t, updated.Published)

	m, err := updated.Metadata()
	require.NoError(t, err)
	assert.Zero(t, m.RefreshFrequency, "metadata is cleaned")
	assert.Equal(t, "bnbColors", m.ColorScheme)

	broken := `{"ROOT_ID": `
	_, err = svc.Update(ctx, rv.ID, Patch{PositionJSON: &broken})
	require.ErrorIs(t, err, ErrInvalidPositions)

	_, err = svc.Update(ctx, 999, Patch{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceAddChart(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), newTestRepository(t))

	rv := &ReportViewer{Title: "Sales"}
	require.NoError(t, svc.Create(ctx, rv))

	chart := &Chart{ID: 7, Name: "Orders", VizType: "bar"}
	require.NoError(t, svc.AddChart(ctx, rv.ID, chart))

	charts, err := svc.Charts(ctx, rv.ID)
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.Equal(t, 7, charts[0].ID)

	require.ErrorIs(t, svc.AddChart(ctx, 999, &Chart{Name: "x"}), ErrNotFound)
}

func TestServiceCopy(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testLogger(), newTestRepository(t))

	rv := &ReportViewer{Title: "Sales", CSS: ".a {}", Slug: "sales"}
	require.NoError(t, svc.Create(ctx, rv))
	require.NoError(t, svc.AddChart(ctx, rv.ID, &Chart{ID: 7, Name: "Orders", VizType: "bar"}))

	copied, err := svc.Copy(ctx, rv.ID, CopyRequest{Title: "Sales copy"})
	require.NoError(t, err)
	assert.NotEqual(t, rv.ID, copied.ID)
	assert.Equal(t, "Sales copy", copied.Title)
	assert.Equal(t, ".a {}", copied.CSS)
	assert.Empty(t, copied.Slug)

	charts, err := svc.Charts(ctx, copied.ID)
	require.NoError(t, err)
	require.Len(t, charts, 1)

	again, err := svc.Copy(ctx, rv.ID, CopyRequest{JSONMetadata: `{"refresh_frequency": 30}`})
	require.NoError(t, err)
	assert.Equal(t, "Sales", again.Title)

	m, err := again.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 30, m.RefreshFrequency)

	_, err = svc.Copy(ctx, rv.ID, CopyRequest{JSONMetadata: `[`})
	require.Error(t, err)

	_, err = svc.Copy(ctx, 999, CopyRequest{})
	require.ErrorIs(t, err, ErrNotFound)
}
