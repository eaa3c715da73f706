package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	r "github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/redis/go-redis/v9"
)

// ErrResultNotFound is returned when a chart has no stored result
var ErrResultNotFound = errors.New("chart result not found")

// ResultStore keeps the latest refresh result of every chart of a session.
// Results of refreshes outside a session are kept under an empty session id.
type ResultStore interface {
	Put(ctx context.Context, result *ChartResult) error
	Get(ctx context.Context, sessionID string, reportViewerID, chartID int) (*ChartResult, error)
}

type resultStore struct {
	client *redis.Client
	keys   *r.Config
	ttl    time.Duration
}

// NewResultStore creates a Redis backed result store. Results expire after
// ttl; zero keeps them.
func NewResultStore(client *redis.Client, keys *r.Config, ttl time.Duration) ResultStore {
	return &resultStore{
		client: client,
		keys:   keys,
		ttl:    ttl,
	}
}

func (s *resultStore) Put(ctx context.Context, result *ChartResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal chart result: %w", err)
	}

	if err := s.client.Set(ctx, s.key(result.SessionID, result.ReportViewerID, result.ChartID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store chart result: %w", err)
	}

	return nil
}

func (s *resultStore) Get(ctx context.Context, sessionID string, reportViewerID, chartID int) (*ChartResult, error) {
	data, err := s.client.Get(ctx, s.key(sessionID, reportViewerID, chartID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResultNotFound
		}

		return nil, fmt.Errorf("failed to read chart result: %w", err)
	}

	var result ChartResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chart result: %w", err)
	}

	return &result, nil
}

func (s *resultStore) key(sessionID string, reportViewerID, chartID int) string {
	return s.keys.PrefixKey("chart_result:" + chartScope(sessionID, reportViewerID, chartID))
}
