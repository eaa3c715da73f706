package keyvalue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethpandaops/reportviewer/pkg/observability"
	r "github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	resourceFilterState = "filter_state"
	resourcePermalink   = "permalink"
)

// Store is the filter state and permalink store
type Store interface {
	// CreateFilterState stores value and returns its key. With a tab id the
	// key previously issued to that tab is reused.
	CreateFilterState(ctx context.Context, reportViewerID int, value, tabID string) (string, error)
	// UpdateFilterState replaces the value of an existing key and returns
	// the key the value now lives under: the key issued to tabID when there
	// is one, key itself otherwise.
	UpdateFilterState(ctx context.Context, reportViewerID int, key, value, tabID string) (string, error)
	GetFilterState(ctx context.Context, reportViewerID int, key string) (*FilterState, error)
	DeleteFilterState(ctx context.Context, reportViewerID int, key string) error

	CreatePermalink(ctx context.Context, value PermalinkValue) (string, error)
	GetPermalink(ctx context.Context, key string) (*PermalinkValue, error)
}

type store struct {
	log    logrus.FieldLogger
	client *redis.Client
	keys   *r.Config
	cfg    Config
	newKey func() string
}

// NewStore creates a Store backed by client. Keys carry the prefix of keys.
func NewStore(log logrus.FieldLogger, client *redis.Client, keys *r.Config, cfg Config) Store {
	return &store{
		log:    log.WithField("component", "keyvalue"),
		client: client,
		keys:   keys,
		cfg:    cfg,
		newKey: uuid.NewString,
	}
}

func (s *store) CreateFilterState(ctx context.Context, reportViewerID int, value, tabID string) (string, error) {
	key, err := s.writeFilterState(ctx, reportViewerID, value, tabID, "")
	s.record(resourceFilterState, "create", err)

	return key, err
}

func (s *store) UpdateFilterState(ctx context.Context, reportViewerID int, key, value, tabID string) (string, error) {
	exists, err := s.client.Exists(ctx, s.filterStateKey(reportViewerID, key)).Result()
	if err != nil {
		s.record(resourceFilterState, "update", err)
		return "", fmt.Errorf("failed to look up filter state: %w", err)
	}

	if exists == 0 {
		s.record(resourceFilterState, "update", ErrNotFound)
		return "", ErrNotFound
	}

	next, err := s.writeFilterState(ctx, reportViewerID, value, tabID, key)
	s.record(resourceFilterState, "update", err)

	return next, err
}

// writeFilterState stores the value under the key issued to tabID, then
// under current, then under a fresh key, whichever is found first.
func (s *store) writeFilterState(ctx context.Context, reportViewerID int, value, tabID, current string) (string, error) {
	if !json.Valid([]byte(value)) {
		return "", ErrInvalidValue
	}

	key := ""

	if tabID != "" {
		existing, err := s.client.Get(ctx, s.tabKey(reportViewerID, tabID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("failed to look up tab key: %w", err)
		}

		key = existing
	}

	if key == "" {
		key = current
	}

	if key == "" {
		key = s.newKey()
	}

	data, err := json.Marshal(FilterState{ReportViewerID: reportViewerID, TabID: tabID, Value: value})
	if err != nil {
		return "", err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.filterStateKey(reportViewerID, key), data, s.cfg.FilterStateTTL)

	if tabID != "" {
		pipe.Set(ctx, s.tabKey(reportViewerID, tabID), key, s.cfg.FilterStateTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store filter state: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"report_viewer_id": reportViewerID,
		"tab_id":           tabID,
		"key":              key,
	}).Debug("Stored filter state")

	return key, nil
}

func (s *store) GetFilterState(ctx context.Context, reportViewerID int, key string) (*FilterState, error) {
	var entry FilterState

	err := s.read(ctx, s.filterStateKey(reportViewerID, key), &entry)
	s.record(resourceFilterState, "get", err)

	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func (s *store) DeleteFilterState(ctx context.Context, reportViewerID int, key string) error {
	deleted, err := s.client.Del(ctx, s.filterStateKey(reportViewerID, key)).Result()
	if err == nil && deleted == 0 {
		err = ErrNotFound
	}

	s.record(resourceFilterState, "delete", err)

	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete filter state: %w", err)
	}

	return err
}

func (s *store) CreatePermalink(ctx context.Context, value PermalinkValue) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}

	key := s.newKey()

	err = s.client.Set(ctx, s.permalinkKey(key), data, s.cfg.PermalinkTTL).Err()
	s.record(resourcePermalink, "create", err)

	if err != nil {
		return "", fmt.Errorf("failed to store permalink: %w", err)
	}

	return key, nil
}

func (s *store) GetPermalink(ctx context.Context, key string) (*PermalinkValue, error) {
	var value PermalinkValue

	err := s.read(ctx, s.permalinkKey(key), &value)
	s.record(resourcePermalink, "get", err)

	if err != nil {
		return nil, err
	}

	return &value, nil
}

func (s *store) read(ctx context.Context, key string, dest any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}

		return fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return nil
}

func (s *store) record(resource, operation string, err error) {
	status := "success"

	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}

	observability.RecordKeyValue(resource, operation, status)
}

func (s *store) filterStateKey(reportViewerID int, key string) string {
	return s.keys.PrefixKey(fmt.Sprintf("%s:%d:%s", resourceFilterState, reportViewerID, key))
}

func (s *store) tabKey(reportViewerID int, tabID string) string {
	return s.keys.PrefixKey(fmt.Sprintf("%s:%d:tab:%s", resourceFilterState, reportViewerID, tabID))
}

func (s *store) permalinkKey(key string) string {
	return s.keys.PrefixKey(fmt.Sprintf("%s:%s", resourcePermalink, key))
}
