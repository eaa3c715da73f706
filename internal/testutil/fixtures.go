package testutil

import (
	"context"
	"testing"

	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/stretchr/testify/require"
)

// PositionJSON lays out filter box chart 10 next to chart 1 in ROW-1 and
// chart 2 alone in ROW-2.
const PositionJSON = `{
	"REPORTVIEWER_VERSION_KEY": "v2",
	"ROOT_ID": {"id": "ROOT_ID", "type": "ROOT", "children": ["GRID_ID"]},
	"GRID_ID": {"id": "GRID_ID", "type": "GRID", "children": ["ROW-1", "ROW-2"], "parents": ["ROOT_ID"]},
	"ROW-1": {"id": "ROW-1", "type": "ROW", "children": ["CHART-10", "CHART-1"], "parents": ["ROOT_ID", "GRID_ID"]},
	"ROW-2": {"id": "ROW-2", "type": "ROW", "children": ["CHART-2"], "parents": ["ROOT_ID", "GRID_ID"]},
	"CHART-10": {"id": "CHART-10", "type": "CHART", "children": [], "parents": ["ROOT_ID", "GRID_ID", "ROW-1"], "meta": {"chartId": 10, "width": 4, "height": 50}},
	"CHART-1": {"id": "CHART-1", "type": "CHART", "children": [], "parents": ["ROOT_ID", "GRID_ID", "ROW-1"], "meta": {"chartId": 1, "width": 4, "height": 50}},
	"CHART-2": {"id": "CHART-2", "type": "CHART", "children": [], "parents": ["ROOT_ID", "GRID_ID", "ROW-2"], "meta": {"chartId": 2, "width": 4, "height": 50}}
}`

// MetadataJSON holds a region filter value for chart 10 and a global
// native filter.
const MetadataJSON = `{
	"default_filters": "{\"10\": {\"region\": [\"a\"]}}",
	"native_filter_configuration": [
		{"id": "NATIVE_FILTER-a", "type": "NATIVE_FILTER", "name": "Country", "filterType": "filter_select",
		 "targets": [{"datasetId": 7, "column": {"name": "country"}}],
		 "scope": {"rootPath": ["ROOT_ID"], "excluded": []}, "cascadeParentIds": []}
	]
}`

// Charts returns the charts referenced by PositionJSON
func Charts() []reportviewer.Chart {
	return []reportviewer.Chart{
		{ID: 1, Name: "Revenue", VizType: "line", DatasourceID: 7},
		{ID: 2, Name: "Orders", VizType: "bar", DatasourceID: 7},
		{ID: 10, Name: "Filters", VizType: "filter_box", DatasourceID: 7, FormData: map[string]any{
			"filter_configs": []any{map[string]any{"column": "region", "label": "Region"}},
		}},
	}
}

// SeedReportViewer stores a report viewer laid out as PositionJSON together
// with its charts.
func SeedReportViewer(t *testing.T, repo reportviewer.Repository) reportviewer.ReportViewer {
	t.Helper()

	ctx := context.Background()

	rv := &reportviewer.ReportViewer{
		Title:        "Sales",
		PositionJSON: PositionJSON,
		JSONMetadata: MetadataJSON,
	}
	require.NoError(t, repo.Create(ctx, rv))

	for _, chart := range Charts() {
		require.NoError(t, repo.UpsertChart(ctx, &chart))
		require.NoError(t, repo.AddChart(ctx, rv.ID, chart.ID))
	}

	stored, err := repo.Get(ctx, rv.ID)
	require.NoError(t, err)

	return *stored
}

// NewRepository opens a migrated in-memory SQLite repository
func NewRepository(t *testing.T) reportviewer.Repository {
	t.Helper()

	repo, err := reportviewer.NewRepository(context.Background(), NewLogger(t), &reportviewer.Config{
		Driver:       reportviewer.DriverSQLite,
		DSN:          "file::memory:?_pragma=foreign_keys(1)",
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = repo.Close()
	})

	return repo
}
