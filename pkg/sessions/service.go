package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethpandaops/reportviewer/pkg/keyvalue"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
	"github.com/ethpandaops/reportviewer/pkg/observability"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/state"
	"github.com/sirupsen/logrus"
)

// OpenOptions restore a view when a session is opened
type OpenOptions struct {
	// PermalinkKey restores the data mask, active tabs and anchor of a permalink
	PermalinkKey string `json:"permalinkKey,omitempty"`
	// FilterStateKey restores a stored native filter data mask
	FilterStateKey string `json:"nativeFiltersKey,omitempty"`
	Anchor         string `json:"anchor,omitempty"`
	FocusedChartID int    `json:"focusedChartId,omitempty"`
	EditMode       bool   `json:"editMode,omitempty"`
}

// Viewers is the report viewer store sessions are opened from and saved to
type Viewers interface {
	Get(ctx context.Context, id int) (*reportviewer.ReportViewer, error)
	Charts(ctx context.Context, id int) ([]reportviewer.Chart, error)
	Save(ctx context.Context, id int, req reportviewer.SaveRequest) (*reportviewer.SaveResult, error)
}

// Service opens, saves and shares report viewer sessions
type Service struct {
	log       logrus.FieldLogger
	registry  *Registry
	viewers   Viewers
	kv        keyvalue.Store
	refresher refresh.Refresher
}

// NewService creates a session service. A nil refresher drops refreshes.
func NewService(log logrus.FieldLogger, registry *Registry, viewers Viewers, kv keyvalue.Store, refresher refresh.Refresher) *Service {
	return &Service{
		log:       log.WithField("component", "session-service"),
		registry:  registry,
		viewers:   viewers,
		kv:        kv,
		refresher: refresher,
	}
}

// Registry returns the registry sessions are kept in
func (s *Service) Registry() *Registry {
	return s.registry
}

// Open hydrates a stored report viewer into a new session
func (s *Service) Open(ctx context.Context, reportViewerID int, opts OpenOptions) (*Session, error) {
	rv, err := s.viewers.Get(ctx, reportViewerID)
	if err != nil {
		return nil, err
	}

	charts, err := s.viewers.Charts(ctx, reportViewerID)
	if err != nil {
		return nil, err
	}

	sessionID := s.registry.NewID()

	in := state.HydrateInput{
		SessionID:      sessionID,
		ReportViewer:   *rv,
		Charts:         charts,
		Anchor:         opts.Anchor,
		FocusedChartID: opts.FocusedChartID,
		EditMode:       opts.EditMode,
	}

	if opts.FilterStateKey != "" {
		mask, err := s.filterStateMask(ctx, reportViewerID, opts.FilterStateKey)
		if err != nil {
			return nil, err
		}

		in.DataMask = mask
	}

	if opts.PermalinkKey != "" {
		link, err := s.kv.GetPermalink(ctx, opts.PermalinkKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load permalink: %w", err)
		}

		if link.ReportViewerID != reportViewerID {
			return nil, ErrPermalinkMismatch
		}

		in.DataMask = link.State.DataMask
		in.ActiveTabs = link.State.ActiveTabs

		if in.Anchor == "" {
			in.Anchor = link.State.Anchor
		}
	}

	initial, report := state.Hydrate(in)

	for _, herr := range report.Errors {
		s.log.WithError(herr).WithField("report_viewer_id", reportViewerID).Warn("Ignored unreadable metadata")
	}

	store := state.NewStore(s.log, initial, s.refresher)

	sess, err := s.registry.Open(sessionID, reportViewerID, store, report)
	if err != nil {
		return nil, err
	}

	// charts are queried once when the session opens
	store.Refresh(ctx, nil, refresh.ReasonAdded)

	return sess, nil
}

func (s *Service) filterStateMask(ctx context.Context, reportViewerID int, key string) (nativefilters.DataMaskState, error) {
	entry, err := s.kv.GetFilterState(ctx, reportViewerID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load filter state: %w", err)
	}

	var mask nativefilters.DataMaskState
	if err := json.Unmarshal([]byte(entry.Value), &mask); err != nil {
		return nil, fmt.Errorf("%w: %w", keyvalue.ErrInvalidValue, err)
	}

	return mask, nil
}

// Get returns an open session
func (s *Service) Get(id string) (*Session, error) {
	return s.registry.Get(id)
}

// Close closes a session
func (s *Service) Close(id string) error {
	return s.registry.Close(id)
}

// Dispatch applies an action to a session
func (s *Service) Dispatch(ctx context.Context, id string, a state.Action) (state.DispatchResult, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return state.DispatchResult{}, err
	}

	return sess.Store().Dispatch(ctx, a)
}

// Save writes the session to its report viewer, or to a copy of it. On
// success an overwrite marks the session saved; a failed save leaves the
// session untouched.
func (s *Service) Save(ctx context.Context, id string, t reportviewer.SaveType) (*reportviewer.SaveResult, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	req, err := sess.Store().State().SaveRequest(t)
	if err != nil {
		return nil, err
	}

	result, err := s.viewers.Save(ctx, sess.ReportViewerID, req)
	if err != nil {
		status := "error"

		var conflict *reportviewer.OverwriteConflictError
		if errors.As(err, &conflict) {
			status = "conflict"
		}

		observability.RecordSave(string(t), status)

		return nil, err
	}

	observability.RecordSave(string(t), "success")

	if t == reportviewer.SaveCopy {
		return result, nil
	}

	if _, err := sess.Store().Dispatch(ctx, state.Saved{LastModifiedTime: result.LastModifiedTime}); err != nil {
		return nil, fmt.Errorf("failed to mark session saved: %w", err)
	}

	return result, nil
}

// Permalink stores the current view of a session and returns its key
func (s *Service) Permalink(ctx context.Context, id, anchor string) (string, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return "", err
	}

	current := sess.Store().State()

	return s.kv.CreatePermalink(ctx, keyvalue.PermalinkValue{
		ReportViewerID: sess.ReportViewerID,
		State: keyvalue.PermalinkState{
			DataMask:   current.DataMask,
			ActiveTabs: current.ActiveTabs,
			Anchor:     anchor,
		},
	})
}

// SaveFilterState stores the native filter data mask of a session under the
// filter state key of tabID and returns the key.
func (s *Service) SaveFilterState(ctx context.Context, id, tabID string) (string, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return "", err
	}

	value, err := json.Marshal(sess.Store().State().DataMask)
	if err != nil {
		return "", fmt.Errorf("failed to encode data mask: %w", err)
	}

	return s.kv.CreateFilterState(ctx, sess.ReportViewerID, string(value), tabID)
}
