package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tracelay/tracelay/backend-go/internal/engine"
	"github.com/tracelay/tracelay/backend-go/internal/typeid"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

const sweepInterval = time.Minute

// Hub is the registry of live sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	newEngine func() *engine.Engine
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewHub creates a hub. newEngine builds the engine of each new session;
// ttl is how long an idle session is kept.
func NewHub(newEngine func() *engine.Engine, ttl time.Duration, logger *slog.Logger) *Hub {
	return &Hub{
		sessions:  make(map[string]*Session),
		newEngine: newEngine,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps expired sessions until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := h.Sweep(h.now()); n > 0 {
				h.logger.Info("sessions expired", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Create starts a new session with an empty scene.
func (h *Hub) Create() *Session {
	s := newSession(typeid.NewSessionID(), h.newEngine(), h.now().Add(h.ttl), h.logger)

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	go s.run()

	h.logger.Info("session created", "session", s.ID)
	return s
}

// Get returns the session with the given id.
func (h *Hub) Get(id string) (*Session, error) {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove closes and forgets a session.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if ok {
		s.Close()
		h.logger.Info("session removed", "session", id)
	}
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sweep removes sessions that expired with nobody connected and returns how many went.
func (h *Hub) Sweep(now time.Time) int {
	h.mu.Lock()
	var expired []*Session
	for id, s := range h.sessions {
		if s.Expired(now) {
			expired = append(expired, s)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Stop closes every session.
func (h *Hub) Stop() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
