package orchestrator

import (
	"sync"
	"time"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/couchcryptid/biodiversity-map/internal/render"
)

// State is the per-session application state: the last successfully loaded
// city and its observation list. Load and filter operations take it as an
// explicit parameter.
type State struct {
	mu           sync.Mutex
	generation   uint64
	loaded       bool
	city         domain.CityLocation
	observations []domain.Observation
	summary      render.Summary
	lastSeen     time.Time
}

// NewState returns an empty session state.
func NewState() *State {
	return &State{lastSeen: domain.Now()}
}

// begin starts a new load and returns its generation.
func (s *State) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// commit replaces the observation list wholesale if gen is still the latest
// load and returns the observations passing fs. It reports false when a
// newer load has started since. The state keeps its own copy of
// observations; the caller's slice is never touched under or after commit.
func (s *State) commit(gen uint64, city domain.CityLocation, observations []domain.Observation, summary render.Summary, fs domain.FilterState) ([]domain.Observation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, false
	}
	s.loaded = true
	s.city = city
	s.observations = append([]domain.Observation(nil), observations...)
	s.summary = summary
	return domain.ApplyFilters(s.observations, fs), true
}

// filter runs the filter engine over the in-memory list.
func (s *State) filter(fs domain.FilterState) []domain.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ApplyFilters(s.observations, fs)
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *State) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Loaded reports whether a city has been loaded into this state.
func (s *State) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// City returns the currently loaded city.
func (s *State) City() domain.CityLocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.city
}

// Summary returns the city summary of the current load.
func (s *State) Summary() render.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// ObservationCount returns the size of the raw fetched list.
func (s *State) ObservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observations)
}
