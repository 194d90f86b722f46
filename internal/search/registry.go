package search

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/evyataryagoni/geoflipper/internal/metrics"
)

// DefaultIdleTimeout is how long an untouched session keeps its orchestrator.
const DefaultIdleTimeout = 30 * time.Minute

// Factory builds the orchestrator for a new session.
type Factory func() *Orchestrator

// session pairs an orchestrator with the last time it was used.
type session struct {
	orchestrator *Orchestrator
	lastSeen     atomic.Int64 // unix nanos
}

// Registry holds one Orchestrator per browser session.
// Sessions idle for longer than the timeout are dropped on a later access.
type Registry struct {
	sessions    sync.Map // map[string]*session - keyed by session ID
	factory     Factory
	idleTimeout time.Duration
	metrics     *metrics.Metrics
	now         func() time.Time

	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

// NewRegistry creates a Registry. m may be nil.
func NewRegistry(factory Factory, idleTimeout time.Duration, m *metrics.Metrics) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		factory:     factory,
		idleTimeout: idleTimeout,
		metrics:     m,
		now:         time.Now,
		lastCleanup: time.Now(),
	}
}

// Get returns the orchestrator for sessionID, creating it on first use.
func (r *Registry) Get(sessionID string) *Orchestrator {
	now := r.now()

	s, ok := r.load(sessionID)
	if !ok {
		s = &session{orchestrator: r.factory()}
	}
	s.lastSeen.Store(now.UnixNano())
	s = r.attach(sessionID, s)

	r.maybeCleanup(now)
	return s.orchestrator
}

// attach makes sure s is the registered session for sessionID. s must be
// touched before attach so that a concurrent Cleanup either sees the new
// lastSeen or has its eviction undone here.
func (r *Registry) attach(sessionID string, s *session) *session {
	// LoadOrStore handles two requests racing to create the same session
	actual, loaded := r.sessions.LoadOrStore(sessionID, s)
	if !loaded {
		if r.metrics != nil {
			r.metrics.ActiveSessions.Inc()
		}
		return s
	}

	cur := actual.(*session)
	if cur != s {
		cur.lastSeen.Store(s.lastSeen.Load())
	}
	return cur
}

// Peek returns the orchestrator for sessionID without creating one.
func (r *Registry) Peek(sessionID string) (*Orchestrator, bool) {
	s, ok := r.load(sessionID)
	if !ok {
		return nil, false
	}
	return s.orchestrator, true
}

// Remove drops the session's orchestrator.
func (r *Registry) Remove(sessionID string) {
	if _, loaded := r.sessions.LoadAndDelete(sessionID); loaded && r.metrics != nil {
		r.metrics.ActiveSessions.Dec()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Cleanup drops every session idle for longer than the timeout.
func (r *Registry) Cleanup() {
	threshold := r.now().Add(-r.idleTimeout).UnixNano()

	r.sessions.Range(func(key, value any) bool {
		s := value.(*session)
		if s.lastSeen.Load() >= threshold {
			return true
		}
		// Only delete the exact session that was found idle
		if !r.sessions.CompareAndDelete(key, s) {
			return true
		}
		if s.lastSeen.Load() >= threshold {
			// Touched by Get while being evicted: put it back
			if _, loaded := r.sessions.LoadOrStore(key, s); !loaded {
				return true
			}
		}
		if r.metrics != nil {
			r.metrics.ActiveSessions.Dec()
		}
		return true
	})
}

func (r *Registry) load(sessionID string) (*session, bool) {
	v, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*session), true
}

// maybeCleanup runs Cleanup at most once per idle timeout.
func (r *Registry) maybeCleanup(now time.Time) {
	r.cleanupMu.Lock()
	if now.Sub(r.lastCleanup) < r.idleTimeout {
		r.cleanupMu.Unlock()
		return
	}
	r.lastCleanup = now
	r.cleanupMu.Unlock()

	r.Cleanup()
}
