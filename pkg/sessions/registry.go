package sessions

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/observability"
	"github.com/ethpandaops/reportviewer/pkg/state"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is an open report viewer
type Session struct {
	ID             string
	ReportViewerID int
	OpenedAt       time.Time
	// Report lists what hydration repaired
	Report state.Report

	store    *state.Store
	lastSeen atomic.Int64
}

// Store returns the state store of the session
func (s *Session) Store() *state.Store {
	return s.store
}

// LastSeen returns when the session was last used
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Registry holds the open sessions and closes idle ones
type Registry struct {
	log logrus.FieldLogger
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session

	now   func() time.Time
	newID func() string

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRegistry creates an empty registry
func NewRegistry(log logrus.FieldLogger, cfg Config) *Registry {
	return &Registry{
		log:      log.WithField("component", "sessions"),
		cfg:      cfg,
		sessions: make(map[string]*Session),
		now:      time.Now,
		newID:    uuid.NewString,
		done:     make(chan struct{}),
	}
}

// NewID returns an id for a session about to be opened
func (r *Registry) NewID() string {
	return r.newID()
}

// Open registers a store as the session id
func (r *Registry) Open(id string, reportViewerID int, store *state.Store, report state.Report) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return nil, ErrSessionExists
	}

	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	now := r.now()
	sess := &Session{
		ID:             id,
		ReportViewerID: reportViewerID,
		OpenedAt:       now,
		Report:         report,
		store:          store,
	}
	sess.touch(now)

	r.sessions[sess.ID] = sess
	observability.SessionsOpen.Set(float64(len(r.sessions)))

	r.log.WithFields(logrus.Fields{
		"session_id":       sess.ID,
		"report_viewer_id": reportViewerID,
	}).Debug("Opened session")

	return sess, nil
}

// Get returns a session and marks it as used
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	sess.touch(r.now())

	return sess, nil
}

// Close removes a session
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}

	delete(r.sessions, id)
	observability.SessionsOpen.Set(float64(len(r.sessions)))

	return nil
}

// List returns the open sessions ordered by id
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// Evict closes every session idle for longer than the idle timeout and
// returns their ids.
func (r *Registry) Evict() []string {
	cutoff := r.now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string

	for id, sess := range r.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}

	sort.Strings(evicted)
	observability.SessionsOpen.Set(float64(len(r.sessions)))

	return evicted
}

// Start runs the eviction loop until ctx ends or Stop is called
func (r *Registry) Start(ctx context.Context) {
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.cfg.EvictionInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.done:
				return
			case <-ticker.C:
				if evicted := r.Evict(); len(evicted) > 0 {
					r.log.WithField("sessions", len(evicted)).Info("Closed idle sessions")
				}
			}
		}
	}()
}

// Stop ends the eviction loop
func (r *Registry) Stop() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}

	r.wg.Wait()
}
