package reportviewer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Repository stores report viewers and their charts
type Repository interface {
	// Get loads a single report viewer
	Get(ctx context.Context, id int) (*ReportViewer, error)
	// List returns every report viewer ordered by id
	List(ctx context.Context) ([]ReportViewer, error)
	// Create inserts rv and sets its id and timestamps
	Create(ctx context.Context, rv *ReportViewer) error
	// Update writes rv and bumps its changed_on
	Update(ctx context.Context, rv *ReportViewer) error
	// Delete removes a report viewer and its chart links
	Delete(ctx context.Context, id int) error
	// Copy creates rv as a new report viewer holding the charts of sourceID
	Copy(ctx context.Context, sourceID int, rv *ReportViewer) error
	// Charts returns the charts placed on a report viewer ordered by id
	Charts(ctx context.Context, id int) ([]Chart, error)
	// CreateChart inserts a chart and sets its id
	CreateChart(ctx context.Context, chart *Chart) error
	// UpsertChart inserts or replaces a chart keyed by its id. Charts
	// without id are created.
	UpsertChart(ctx context.Context, chart *Chart) error
	// AddChart links an existing chart to a report viewer
	AddChart(ctx context.Context, reportViewerID, chartID int) error
	// Close releases the database handle
	Close() error
}

type repository struct {
	log    logrus.FieldLogger
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewRepository opens the configured database and applies pending
// migrations when AutoMigrate is set.
func NewRepository(ctx context.Context, log logrus.FieldLogger, cfg *Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, log, db, cfg.Driver); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewRepositoryFromDB(log, db, cfg.Driver), nil
}

// Open connects to the configured database
func Open(cfg *Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	return db, nil
}

// NewRepositoryFromDB wraps an already opened database
func NewRepositoryFromDB(log logrus.FieldLogger, db *sql.DB, driver string) Repository {
	return &repository{
		log:    log.WithField("component", "reportviewer_repository"),
		db:     db,
		driver: driver,
		now:    time.Now,
	}
}

const selectReportViewer = `SELECT id, title, slug, css, position_json, json_metadata, published, created_on, changed_on FROM report_viewers`

func (r *repository) Get(ctx context.Context, id int) (*ReportViewer, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(selectReportViewer+` WHERE id = ?`), id)

	rv, err := scanReportViewer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load report viewer %d: %w", id, err)
	}

	return rv, nil
}

func (r *repository) List(ctx context.Context) ([]ReportViewer, error) {
	rows, err := r.db.QueryContext(ctx, selectReportViewer+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list report viewers: %w", err)
	}
	defer rows.Close()

	var out []ReportViewer

	for rows.Next() {
		rv, err := scanReportViewer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report viewer: %w", err)
		}

		out = append(out, *rv)
	}

	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, rv *ReportViewer) error {
	return r.insert(ctx, r.db, rv)
}

func (r *repository) Update(ctx context.Context, rv *ReportViewer) error {
	changed := r.now().UTC()

	res, err := r.db.ExecContext(ctx, r.rebind(
		`UPDATE report_viewers SET title = ?, slug = ?, css = ?, position_json = ?, json_metadata = ?, published = ?, changed_on = ? WHERE id = ?`),
		rv.Title, nullString(rv.Slug), rv.CSS, rv.PositionJSON, rv.JSONMetadata, rv.Published, changed.UnixMilli(), rv.ID,
	)
	if err != nil {
		return r.wrapWriteError("update", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, rv.ID)
	}

	rv.ChangedOn = time.UnixMilli(changed.UnixMilli()).UTC()

	return nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM report_viewer_charts WHERE report_viewer_id = ?`), id); err != nil {
		return fmt.Errorf("failed to unlink charts of report viewer %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM report_viewers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete report viewer %d: %w", id, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	return tx.Commit()
}

func (r *repository) Copy(ctx context.Context, sourceID int, rv *ReportViewer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, r.rebind(`SELECT 1 FROM report_viewers WHERE id = ?`), sourceID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrNotFound, sourceID)
		}

		return fmt.Errorf("failed to load report viewer %d: %w", sourceID, err)
	}

	if err := r.insert(ctx, tx, rv); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, r.rebind(
		`INSERT INTO report_viewer_charts (report_viewer_id, chart_id) SELECT ?, chart_id FROM report_viewer_charts WHERE report_viewer_id = ?`),
		rv.ID, sourceID,
	); err != nil {
		return fmt.Errorf("failed to copy charts of report viewer %d: %w", sourceID, err)
	}

	return tx.Commit()
}

func (r *repository) Charts(ctx context.Context, id int) ([]Chart, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		`SELECT c.id, c.slice_name, c.viz_type, c.datasource_id, c.form_data
		 FROM charts c JOIN report_viewer_charts rc ON rc.chart_id = c.id
		 WHERE rc.report_viewer_id = ? ORDER BY c.id`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to list charts of report viewer %d: %w", id, err)
	}
	defer rows.Close()

	out := []Chart{}

	for rows.Next() {
		var (
			c        Chart
			formData string
		)

		if err := rows.Scan(&c.ID, &c.Name, &c.VizType, &c.DatasourceID, &formData); err != nil {
			return nil, fmt.Errorf("failed to scan chart: %w", err)
		}

		if formData != "" {
			if err := json.Unmarshal([]byte(formData), &c.FormData); err != nil {
				r.log.WithError(err).WithField("chart_id", c.ID).Warn("Ignoring malformed form data")
			}
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *repository) CreateChart(ctx context.Context, chart *Chart) error {
	formData, err := encodeFormData(chart)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx, r.rebind(
		`INSERT INTO charts (slice_name, viz_type, datasource_id, form_data) VALUES (?, ?, ?, ?) RETURNING id`),
		chart.Name, chart.VizType, chart.DatasourceID, formData,
	).Scan(&chart.ID)
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}

	return nil
}

func (r *repository) UpsertChart(ctx context.Context, chart *Chart) error {
	if chart.ID == 0 {
		return r.CreateChart(ctx, chart)
	}

	formData, err := encodeFormData(chart)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO charts (id, slice_name, viz_type, datasource_id, form_data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET slice_name = excluded.slice_name, viz_type = excluded.viz_type,
		datasource_id = excluded.datasource_id, form_data = excluded.form_data`),
		chart.ID, chart.Name, chart.VizType, chart.DatasourceID, formData,
	); err != nil {
		return fmt.Errorf("failed to upsert chart %d: %w", chart.ID, err)
	}

	return nil
}

func encodeFormData(chart *Chart) (string, error) {
	if chart.FormData == nil {
		return "{}", nil
	}

	data, err := json.Marshal(chart.FormData)
	if err != nil {
		return "", fmt.Errorf("failed to encode form data: %w", err)
	}

	return string(data), nil
}

func (r *repository) AddChart(ctx context.Context, reportViewerID, chartID int) error {
	if _, err := r.Get(ctx, reportViewerID); err != nil {
		return err
	}

	var exists int
	if err := r.db.QueryRowContext(ctx, r.rebind(`SELECT 1 FROM charts WHERE id = ?`), chartID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrChartNotFound, chartID)
		}

		return fmt.Errorf("failed to load chart %d: %w", chartID, err)
	}

	if _, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO report_viewer_charts (report_viewer_id, chart_id) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		reportViewerID, chartID,
	); err != nil {
		return fmt.Errorf("failed to add chart %d to report viewer %d: %w", chartID, reportViewerID, err)
	}

	return nil
}

func (r *repository) Close() error {
	return r.db.Close()
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) insert(ctx context.Context, q execQuerier, rv *ReportViewer) error {
	now := time.UnixMilli(r.now().UTC().UnixMilli()).UTC()

	if rv.Title == "" {
		rv.Title = DefaultTitle
	}

	err := q.QueryRowContext(ctx, r.rebind(
		`INSERT INTO report_viewers (title, slug, css, position_json, json_metadata, published, created_on, changed_on)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		rv.Title, nullString(rv.Slug), rv.CSS, rv.PositionJSON, rv.JSONMetadata, rv.Published, now.UnixMilli(), now.UnixMilli(),
	).Scan(&rv.ID)
	if err != nil {
		return r.wrapWriteError("create", err)
	}

	rv.CreatedOn = now
	rv.ChangedOn = now

	return nil
}

// rebind rewrites ? placeholders into $n for postgres
func (r *repository) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))

			continue
		}

		b.WriteRune(ch)
	}

	return b.String()
}

func (r *repository) wrapWriteError(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to %s report viewer: %w", op, ErrSlugTaken)
	}

	return fmt.Errorf("failed to %s report viewer: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}

	return false
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReportViewer(s scanner) (*ReportViewer, error) {
	var (
		rv                 ReportViewer
		slug               sql.NullString
		created, changedOn int64
	)

	if err := s.Scan(&rv.ID, &rv.Title, &slug, &rv.CSS, &rv.PositionJSON, &rv.JSONMetadata, &rv.Published, &created, &changedOn); err != nil {
		return nil, err
	}

	rv.Slug = slug.String
	rv.CreatedOn = time.UnixMilli(created).UTC()
	rv.ChangedOn = time.UnixMilli(changedOn).UTC()

	return &rv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
