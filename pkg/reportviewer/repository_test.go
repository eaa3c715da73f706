package reportviewer

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func newTestRepository(t *testing.T) Repository {
	t.Helper()

	repo, err := NewRepository(context.Background(), testLogger(), &Config{
		Driver:       DriverSQLite,
		DSN:          "file::memory:?_pragma=foreign_keys(1)",
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "sqlite", cfg: Config{Driver: DriverSQLite, DSN: "file:x.db"}},
		{name: "postgres", cfg: Config{Driver: DriverPostgres, DSN: "postgres://localhost/rv"}},
		{name: "unknown driver", cfg: Config{Driver: "mysql", DSN: "x"}, wantErr: ErrUnsupportedDriver},
		{name: "missing dsn", cfg: Config{Driver: DriverSQLite}, wantErr: ErrDSNRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	rv := &ReportViewer{Slug: "sales", PositionJSON: `{}`, JSONMetadata: `{}`}
	require.NoError(t, repo.Create(ctx, rv))
	assert.NotZero(t, rv.ID)
	assert.Equal(t, DefaultTitle, rv.Title)
	assert.False(t, rv.ChangedOn.IsZero())

	loaded, err := repo.Get(ctx, rv.ID)
	require.NoError(t, err)
	assert.Equal(t, rv.Slug, loaded.Slug)
	assert.Equal(t, rv.ChangedOn, loaded.ChangedOn)

	loaded.Title = "Sales"
	require.NoError(t, repo.Update(ctx, loaded))

	again, err := repo.Get(ctx, rv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sales", again.Title)

	err = repo.Create(ctx, &ReportViewer{Slug: "sales"})
	require.ErrorIs(t, err, ErrSlugTaken)

	require.NoError(t, repo.Create(ctx, &ReportViewer{Title: "No slug"}))
	require.NoError(t, repo.Create(ctx, &ReportViewer{Title: "Also no slug"}))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, repo.Delete(ctx, rv.ID))

	_, err = repo.Get(ctx, rv.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, rv.ID), ErrNotFound)
	require.ErrorIs(t, repo.Update(ctx, rv), ErrNotFound)
}

func TestRepositoryCharts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	rv := &ReportViewer{Title: "Sales"}
	require.NoError(t, repo.Create(ctx, rv))

	chart := &Chart{Name: "Revenue", VizType: "line", DatasourceID: 3, FormData: map[string]any{"metric": "sum"}}
	require.NoError(t, repo.CreateChart(ctx, chart))
	require.NoError(t, repo.AddChart(ctx, rv.ID, chart.ID))
	require.NoError(t, repo.AddChart(ctx, rv.ID, chart.ID), "adding twice is a no-op")

	require.ErrorIs(t, repo.AddChart(ctx, rv.ID, 999), ErrChartNotFound)
	require.ErrorIs(t, repo.AddChart(ctx, 999, chart.ID), ErrNotFound)

	charts, err := repo.Charts(ctx, rv.ID)
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.Equal(t, "Revenue", charts[0].Name)
	assert.Equal(t, "sum", charts[0].FormData["metric"])

	copied := &ReportViewer{Title: "Sales copy"}
	require.NoError(t, repo.Copy(ctx, rv.ID, copied))
	assert.NotEqual(t, rv.ID, copied.ID)

	copiedCharts, err := repo.Charts(ctx, copied.ID)
	require.NoError(t, err)
	assert.Equal(t, charts, copiedCharts)

	require.ErrorIs(t, repo.Copy(ctx, 999, &ReportViewer{}), ErrNotFound)
}

func TestRepositoryUpsertChart(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	rv := &ReportViewer{Title: "Sales"}
	require.NoError(t, repo.Create(ctx, rv))

	chart := &Chart{ID: 42, Name: "Revenue", VizType: "line"}
	require.NoError(t, repo.UpsertChart(ctx, chart))
	require.NoError(t, repo.AddChart(ctx, rv.ID, 42))

	chart.Name = "Revenue by region"
	chart.FormData = map[string]any{"groupby": []any{"region"}}
	require.NoError(t, repo.UpsertChart(ctx, chart))

	charts, err := repo.Charts(ctx, rv.ID)
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.Equal(t, 42, charts[0].ID)
	assert.Equal(t, "Revenue by region", charts[0].Name)
	assert.Equal(t, []any{"region"}, charts[0].FormData["groupby"])

	created := &Chart{Name: "Orders", VizType: "bar"}
	require.NoError(t, repo.UpsertChart(ctx, created))
	assert.NotZero(t, created.ID)
}

func TestRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	repo := NewRepositoryFromDB(testLogger(), db, DriverPostgres)

	t.Run("get uses postgres placeholders", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(selectReportViewer + ` WHERE id = $1`)).
			WithArgs(7).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.Get(ctx, 7)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("get missing row", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(selectReportViewer)).
			WithArgs(8).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(ctx, 8)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get scans row", func(t *testing.T) {
		changed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta(selectReportViewer)).
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "slug", "css", "position_json", "json_metadata", "published", "created_on", "changed_on"}).
				AddRow(9, "Ops", nil, "", "{}", "{}", true, changed.UnixMilli(), changed.UnixMilli()))

		rv, err := repo.Get(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, "Ops", rv.Title)
		assert.Empty(t, rv.Slug)
		assert.True(t, rv.Published)
		assert.Equal(t, changed, rv.ChangedOn)
	})

	t.Run("update failure", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE report_viewers SET`)).
			WillReturnError(errors.New("read only"))

		require.Error(t, repo.Update(ctx, &ReportViewer{ID: 1}))
	})

	t.Run("delete rolls back on failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM report_viewer_charts WHERE report_viewer_id = $1`)).
			WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM report_viewers WHERE id = $1`)).
			WithArgs(3).
			WillReturnError(errors.New("locked"))
		mock.ExpectRollback()

		require.Error(t, repo.Delete(ctx, 3))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
