package orchestrator

import (
	"sync"
	"time"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/couchcryptid/biodiversity-map/internal/observability"
	"github.com/google/uuid"
)

// Store keeps session states in memory, keyed by an opaque session id.
// Nothing is persisted; a restart forgets every session.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
	metrics  *observability.Metrics
}

// NewStore creates an empty session store.
func NewStore(metrics *observability.Metrics) *Store {
	return &Store{
		sessions: make(map[string]*State),
		metrics:  metrics,
	}
}

// Get returns the state for id, creating it (and a new id) when id is
// empty or unknown. The returned id is the one to hand back to the client.
func (s *Store) Get(id string) (string, *State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.sessions[id]; ok && id != "" {
		st.touch(domain.Now())
		return id, st
	}

	id = uuid.NewString()
	st := NewState()
	s.sessions[id] = st
	s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return id, st
}

// Delete drops a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := domain.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, st := range s.sessions {
		if st.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	s.metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
