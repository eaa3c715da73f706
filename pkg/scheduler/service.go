package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/observability"
	r "github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/ethpandaops/reportviewer/pkg/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service defines the public interface for the scheduler
type Service interface {
	// Start begins checking sessions for due auto refreshes
	Start(ctx context.Context) error

	// Stop gracefully shuts down the scheduler
	Stop() error
}

// SessionSource lists the open sessions
type SessionSource interface {
	List() []*sessions.Session
}

// entry is the auto refresh schedule of one session
type entry struct {
	frequency int
	schedule  cron.Schedule
	nextRun   time.Time
}

type service struct {
	log     logrus.FieldLogger
	cfg     *Config
	source  SessionSource
	tracker scheduleTracker

	mu      sync.Mutex
	entries map[string]*entry

	now  func() time.Time
	done chan struct{}
	wg   sync.WaitGroup
}

// NewService creates a new scheduler service
func NewService(log logrus.FieldLogger, cfg *Config, redisClient *redis.Client, keys *r.Config, source SessionSource) Service {
	return &service{
		log:     log.WithField("service", "scheduler"),
		cfg:     cfg,
		source:  source,
		tracker: newScheduleTracker(log, redisClient, keys, cfg.TrackerTTL),
		entries: make(map[string]*entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Start runs the ticker loop until Stop is called or ctx is done
func (s *service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("Scheduler disabled")

		return nil
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.checkSchedules(ctx)
			}
		}
	}()

	s.log.WithField("tick_interval", s.cfg.TickInterval).Info("Scheduler started")

	return nil
}

// Stop waits for the ticker loop to exit
func (s *service) Stop() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}

	s.wg.Wait()

	s.log.Info("Scheduler stopped")

	return nil
}

// checkSchedules refreshes every session whose schedule is due and forgets
// sessions that were closed or turned auto refresh off.
func (s *service) checkSchedules(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	seen := make(map[string]struct{})

	for _, sess := range s.source.List() {
		seen[sess.ID] = struct{}{}

		if err := s.checkSession(ctx, sess, now); err != nil {
			observability.RecordError("scheduler", "check")
			s.log.WithError(err).WithField("session_id", sess.ID).Error("Failed to check auto refresh schedule")
		}
	}

	for id := range s.entries {
		if _, ok := seen[id]; ok {
			continue
		}

		s.forget(ctx, id)
	}
}

func (s *service) checkSession(ctx context.Context, sess *sessions.Session, now time.Time) error {
	freq := sess.Store().State().RefreshFrequency
	if freq <= 0 {
		if _, ok := s.entries[sess.ID]; ok {
			s.forget(ctx, sess.ID)
		}

		return nil
	}

	e, ok := s.entries[sess.ID]
	if !ok || e.frequency != freq {
		schedule, err := cron.ParseStandard(fmt.Sprintf("@every %s", s.interval(freq)))
		if err != nil {
			return fmt.Errorf("invalid refresh frequency %d: %w", freq, err)
		}

		lastRun, err := s.tracker.GetLastRun(ctx, sess.ID)
		if err != nil {
			return err
		}

		if lastRun.IsZero() {
			lastRun = sess.OpenedAt
		}

		e = &entry{frequency: freq, schedule: schedule, nextRun: schedule.Next(lastRun)}
		s.entries[sess.ID] = e

		observability.SchedulerActive.WithLabelValues(sess.ID).Set(1)
		s.log.WithFields(logrus.Fields{
			"session_id": sess.ID,
			"frequency":  freq,
			"next_run":   e.nextRun,
		}).Debug("Scheduled auto refresh")
	}

	if now.Before(e.nextRun) {
		return nil
	}

	charts := sess.Store().AutoRefresh(ctx)
	e.nextRun = e.schedule.Next(now)

	if err := s.tracker.SetLastRun(ctx, sess.ID, now); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"charts":     len(charts),
	}).Debug("Auto refreshed session")

	return nil
}

// interval converts a refresh frequency in seconds to a duration, bounded
// below by MinRefreshFrequency.
func (s *service) interval(freq int) time.Duration {
	d := time.Duration(freq) * time.Second
	if d < s.cfg.MinRefreshFrequency {
		return s.cfg.MinRefreshFrequency
	}

	return d
}

func (s *service) forget(ctx context.Context, sessionID string) {
	delete(s.entries, sessionID)
	observability.SchedulerActive.DeleteLabelValues(sessionID)

	if err := s.tracker.DeleteLastRun(ctx, sessionID); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("Failed to delete last run")
	}
}
