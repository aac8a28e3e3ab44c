package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yukikurage/kanban-sync/internal/logging"
)

var (
	ErrRegistryClosed   = errors.New("session registry is closed")
	ErrDuplicateSession = errors.New("session already registered")
)

// Session is one live connection. Events are queued on a bounded channel
// that the transport drains; Done is closed once the session leaves the
// registry, whether through Unregister, a dropped delivery or Close.
type Session struct {
	ID          string
	UserID      *uint64
	ConnectedAt time.Time

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Authenticated() bool {
	return s.UserID != nil
}

// deliver enqueues without blocking and reports whether the event was accepted.
func (s *Session) deliver(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Registry tracks connected sessions. It is created at service start and
// cleared by Close on shutdown.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	buffer   int
	closed   bool
	logger   logging.Logger
}

func NewRegistry(buffer int, logger logging.Logger) *Registry {
	if buffer <= 0 {
		buffer = 1
	}
	return &Registry{
		sessions: make(map[string]*Session),
		buffer:   buffer,
		logger:   logger,
	}
}

// Register adds a session. userID is nil for anonymous connections.
func (r *Registry) Register(id string, userID *uint64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if _, exists := r.sessions[id]; exists {
		return nil, ErrDuplicateSession
	}

	s := &Session{
		ID:          id,
		UserID:      userID,
		ConnectedAt: time.Now(),
		events:      make(chan Event, r.buffer),
		done:        make(chan struct{}),
	}
	r.sessions[id] = s

	r.logger.Debug(context.Background(), "session registered", "session_id", id, "authenticated", userID != nil)
	return s, nil
}

// Unregister removes a session and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		s.close()
		r.logger.Debug(context.Background(), "session unregistered", "session_id", id)
	}
	return ok
}

// ForEachLive calls fn for every session registered at the time of the call.
// fn runs on a snapshot, so it may Register or Unregister freely.
func (r *Registry) ForEachLive(fn func(*Session)) {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		fn(s)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close drops every session and rejects further registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.closed = true
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
