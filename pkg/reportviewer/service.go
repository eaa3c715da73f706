package reportviewer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/sirupsen/logrus"
)

// SaveType selects how a report viewer is saved
type SaveType string

const (
	// SaveOverwrite updates the stored report viewer after checking for
	// concurrent changes
	SaveOverwrite SaveType = "overwrite"
	// SaveOverwriteConfirmed updates the stored report viewer unconditionally
	SaveOverwriteConfirmed SaveType = "overwrite_confirmed"
	// SaveCopy stores the state as a new report viewer
	SaveCopy SaveType = "copy"
)

// SaveRequest is the state written by Save
type SaveRequest struct {
	Type     SaveType
	Title    string
	Slug     string
	CSS      string
	Layout   layout.Layout
	Metadata Metadata
	// LastModifiedTime is the changed_on the caller last saw
	LastModifiedTime time.Time
}

// SaveResult describes a stored report viewer
type SaveResult struct {
	ReportViewer     ReportViewer
	LastModifiedTime time.Time
}

// Service manages stored report viewers
type Service struct {
	log  logrus.FieldLogger
	repo Repository
}

// NewService creates a report viewer service
func NewService(log logrus.FieldLogger, repo Repository) *Service {
	return &Service{
		log:  log.WithField("service", "reportviewer"),
		repo: repo,
	}
}

// Get loads a report viewer
func (s *Service) Get(ctx context.Context, id int) (*ReportViewer, error) {
	return s.repo.Get(ctx, id)
}

// List returns every stored report viewer
func (s *Service) List(ctx context.Context) ([]ReportViewer, error) {
	return s.repo.List(ctx)
}

// Charts returns the charts placed on a report viewer
func (s *Service) Charts(ctx context.Context, id int) ([]Chart, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	return s.repo.Charts(ctx, id)
}

// Create stores a new report viewer with an empty layout when none is given
func (s *Service) Create(ctx context.Context, rv *ReportViewer) error {
	if rv.PositionJSON == "" {
		data, err := json.Marshal(layout.EmptyLayout())
		if err != nil {
			return fmt.Errorf("failed to encode layout: %w", err)
		}

		rv.PositionJSON = string(data)
	}

	if rv.JSONMetadata == "" {
		meta, err := Metadata{}.Cleaned().Encode()
		if err != nil {
			return err
		}

		rv.JSONMetadata = meta
	}

	if err := s.repo.Create(ctx, rv); err != nil {
		return err
	}

	s.log.WithField("report_viewer_id", rv.ID).Info("Created report viewer")

	return nil
}

// Patch lists the properties Update may change. Nil fields are kept.
type Patch struct {
	Title        *string `json:"reportViewer_title,omitempty"` //nolint:tagliatelle // wire name
	Slug         *string `json:"slug,omitempty"`
	CSS          *string `json:"css,omitempty"`
	Published    *bool   `json:"published,omitempty"`
	PositionJSON *string `json:"position_json,omitempty"` //nolint:tagliatelle // wire name
	JSONMetadata *string `json:"json_metadata,omitempty"` //nolint:tagliatelle // wire name
}

// Update changes properties of a stored report viewer without the overwrite
// check Save performs.
func (s *Service) Update(ctx context.Context, id int, p Patch) (*ReportViewer, error) {
	rv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		rv.Title = *p.Title
	}

	if p.Slug != nil {
		rv.Slug = *p.Slug
	}

	if p.CSS != nil {
		rv.CSS = *p.CSS
	}

	if p.Published != nil {
		rv.Published = *p.Published
	}

	if p.PositionJSON != nil {
		if _, err := layout.Parse([]byte(*p.PositionJSON)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPositions, err)
		}

		rv.PositionJSON = *p.PositionJSON
	}

	if p.JSONMetadata != nil {
		meta, err := ParseMetadata([]byte(*p.JSONMetadata))
		if err != nil {
			return nil, err
		}

		encoded, err := meta.Cleaned().Encode()
		if err != nil {
			return nil, err
		}

		rv.JSONMetadata = encoded
	}

	if err := s.repo.Update(ctx, rv); err != nil {
		return nil, err
	}

	s.log.WithField("report_viewer_id", id).Info("Updated report viewer")

	return rv, nil
}

// AddChart stores chart and places it on report viewer id. The layout is
// not touched: hydration packs charts missing from it into new rows.
func (s *Service) AddChart(ctx context.Context, id int, chart *Chart) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	if err := s.repo.UpsertChart(ctx, chart); err != nil {
		return err
	}

	return s.repo.AddChart(ctx, id, chart.ID)
}

// Delete removes a report viewer
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.WithField("report_viewer_id", id).Info("Deleted report viewer")

	return nil
}

// Save writes req over report viewer id or into a copy of it. A failed save
// leaves the store untouched. An overwrite of a report viewer changed since
// req.LastModifiedTime fails with an *OverwriteConflictError listing the
// differing fields, unless the type is SaveOverwriteConfirmed.
func (s *Service) Save(ctx context.Context, id int, req SaveRequest) (*SaveResult, error) {
	switch req.Type {
	case SaveOverwrite, SaveOverwriteConfirmed:
		return s.overwrite(ctx, id, req)
	case SaveCopy:
		return s.copy(ctx, id, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSaveType, req.Type)
	}
}

func (s *Service) overwrite(ctx context.Context, id int, req SaveRequest) (*SaveResult, error) {
	stored, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.build(req, false)
	if err != nil {
		return nil, err
	}

	updated.ID = id
	updated.Published = stored.Published
	updated.CreatedOn = stored.CreatedOn

	if req.Type == SaveOverwrite && stored.ChangedOn.After(req.LastModifiedTime) {
		if items := OverwriteItems(stored, updated); len(items) > 0 {
			s.log.WithFields(logrus.Fields{
				"report_viewer_id": id,
				"items":            len(items),
			}).Warn("Overwrite needs confirmation")

			return nil, &OverwriteConflictError{Items: items}
		}
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"report_viewer_id": id,
		"type":             req.Type,
	}).Info("Saved report viewer")

	return &SaveResult{ReportViewer: *updated, LastModifiedTime: updated.ChangedOn}, nil
}

func (s *Service) copy(ctx context.Context, id int, req SaveRequest) (*SaveResult, error) {
	copied, err := s.build(req, true)
	if err != nil {
		return nil, err
	}

	copied.Slug = ""

	if err := s.repo.Copy(ctx, id, copied); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"report_viewer_id": id,
		"copy_id":          copied.ID,
	}).Info("Copied report viewer")

	return &SaveResult{ReportViewer: *copied, LastModifiedTime: copied.ChangedOn}, nil
}

// CopyRequest overrides properties of a copied report viewer. Empty fields
// keep the source value.
type CopyRequest struct {
	Title        string `json:"reportViewer_title"` //nolint:tagliatelle // wire name
	CSS          string `json:"css,omitempty"`
	JSONMetadata string `json:"json_metadata,omitempty"` //nolint:tagliatelle // wire name
}

// Copy stores report viewer id as a new report viewer holding the same charts
func (s *Service) Copy(ctx context.Context, id int, req CopyRequest) (*ReportViewer, error) {
	source, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	l, err := layout.Parse([]byte(source.PositionJSON))
	if err != nil {
		l = layout.EmptyLayout()
	}

	rawMeta := source.JSONMetadata
	if req.JSONMetadata != "" {
		rawMeta = req.JSONMetadata
	}

	meta, err := ParseMetadata([]byte(rawMeta))
	if err != nil {
		return nil, err
	}

	css := source.CSS
	if req.CSS != "" {
		css = req.CSS
	}

	title := req.Title
	if title == "" {
		title = source.Title
	}

	res, err := s.copy(ctx, id, SaveRequest{
		Type:     SaveCopy,
		Title:    title,
		CSS:      css,
		Layout:   l,
		Metadata: meta,
	})
	if err != nil {
		return nil, err
	}

	return &res.ReportViewer, nil
}

// build turns a save request into the record to store. Copies carry the
// layout inside json_metadata.positions.
func (s *Service) build(req SaveRequest, positionsInMetadata bool) (*ReportViewer, error) {
	l := req.Layout
	if l.IsZero() {
		l = layout.EmptyLayout()
	}

	positions, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to encode layout: %w", err)
	}

	meta := req.Metadata.Cleaned()
	if positionsInMetadata {
		meta.Positions = positions
	} else {
		meta.Positions = nil
	}

	encoded, err := meta.Encode()
	if err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = DefaultTitle
	}

	return &ReportViewer{
		Title:        title,
		Slug:         req.Slug,
		CSS:          req.CSS,
		PositionJSON: string(positions),
		JSONMetadata: encoded,
	}, nil
}

// OverwriteItems lists the fields of updated that would replace different
// stored values.
func OverwriteItems(stored, updated *ReportViewer) []OverwriteItem {
	fields := []struct {
		key           string
		before, after string
	}{
		{"reportViewer_title", stored.Title, updated.Title},
		{"slug", stored.Slug, updated.Slug},
		{"css", stored.CSS, updated.CSS},
		{"position_json", stored.PositionJSON, updated.PositionJSON},
		{"json_metadata", stored.JSONMetadata, updated.JSONMetadata},
	}

	var items []OverwriteItem

	for _, f := range fields {
		if f.before != f.after && !jsonEqual(f.before, f.after) {
			items = append(items, OverwriteItem{Key: f.key, Before: f.before, After: f.after})
		}
	}

	return items
}

func jsonEqual(a, b string) bool {
	var va, vb any

	if json.Unmarshal([]byte(a), &va) != nil || json.Unmarshal([]byte(b), &vb) != nil {
		return false
	}

	da, _ := json.Marshal(va)
	db, _ := json.Marshal(vb)

	return string(da) == string(db)
}
