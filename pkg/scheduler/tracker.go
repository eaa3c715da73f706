package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	r "github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// scheduleKeyPrefix prefixes last run keys: scheduler:session:{sessionID}
const scheduleKeyPrefix = "scheduler:session:"

// scheduleTracker manages auto refresh timestamps of sessions in Redis
type scheduleTracker interface {
	// GetLastRun returns the last auto refresh of a session, or zero time
	GetLastRun(ctx context.Context, sessionID string) (time.Time, error)

	// SetLastRun records an auto refresh of a session
	SetLastRun(ctx context.Context, sessionID string, timestamp time.Time) error

	// DeleteLastRun forgets a session
	DeleteLastRun(ctx context.Context, sessionID string) error
}

type redisScheduleTracker struct {
	log   logrus.FieldLogger
	redis *redis.Client
	keys  *r.Config
	ttl   time.Duration
}

// newScheduleTracker creates a Redis-backed schedule tracker
func newScheduleTracker(log logrus.FieldLogger, redisClient *redis.Client, keys *r.Config, ttl time.Duration) scheduleTracker {
	return &redisScheduleTracker{
		log:   log.WithField("component", "schedule_tracker"),
		redis: redisClient,
		keys:  keys,
		ttl:   ttl,
	}
}

func (t *redisScheduleTracker) key(sessionID string) string {
	return t.keys.PrefixKey(scheduleKeyPrefix + sessionID)
}

func (t *redisScheduleTracker) GetLastRun(ctx context.Context, sessionID string) (time.Time, error) {
	val, err := t.redis.Get(ctx, t.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}

		return time.Time{}, fmt.Errorf("failed to get last run for session %s: %w", sessionID, err)
	}

	timestamp, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		t.log.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"raw_value":  val,
		}).Error("Failed to parse timestamp")

		return time.Time{}, fmt.Errorf("failed to parse timestamp for session %s: %w", sessionID, err)
	}

	return timestamp, nil
}

func (t *redisScheduleTracker) SetLastRun(ctx context.Context, sessionID string, timestamp time.Time) error {
	if err := t.redis.Set(ctx, t.key(sessionID), timestamp.UTC().Format(time.RFC3339Nano), t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set last run for session %s: %w", sessionID, err)
	}

	return nil
}

func (t *redisScheduleTracker) DeleteLastRun(ctx context.Context, sessionID string) error {
	if err := t.redis.Del(ctx, t.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete last run for session %s: %w", sessionID, err)
	}

	return nil
}

var _ scheduleTracker = (*redisScheduleTracker)(nil)
