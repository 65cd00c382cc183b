// Package store holds normalized readings in memory for the lifetime of the process.
package store

import (
	"sync"

	"github.com/couchcryptid/pm-density-service/internal/domain"
)

// Store is an append-only, date-indexed collection of readings.
// Mutations are serialized; queries block behind in-flight mutations.
type Store struct {
	mu       sync.RWMutex
	readings []domain.Reading
	byDate   map[domain.DateKey][]int
	version  uint64
}

// New creates an empty Store.
func New() *Store {
	return &Store{byDate: make(map[domain.DateKey][]int)}
}

// BulkLoad replaces the store content with readings.
func (s *Store) BulkLoad(readings []domain.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = make([]domain.Reading, 0, len(readings))
	s.byDate = make(map[domain.DateKey][]int)
	s.appendLocked(readings)
	s.version++
}

// Append adds readings after the existing ones. Duplicates are kept and the
// stored order is never changed.
func (s *Store) Append(readings []domain.Reading) {
	if len(readings) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLocked(readings)
	s.version++
}

func (s *Store) appendLocked(readings []domain.Reading) {
	for _, r := range readings {
		key := r.Date()
		s.byDate[key] = append(s.byDate[key], len(s.readings))
		s.readings = append(s.readings, r)
	}
}

// Query returns the readings for one date in stored order. It returns an
// empty slice when nothing matches.
func (s *Store) Query(year, month, day int) []domain.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.byDate[domain.DateKey{Year: year, Month: month, Day: day}]
	out := make([]domain.Reading, len(idx))
	for i, j := range idx {
		out[i] = s.readings[j]
	}
	return out
}

// Len returns the number of stored readings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}

// Dates returns the number of distinct dates with at least one reading.
func (s *Store) Dates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byDate)
}

// Version changes on every mutation. Callers use it to invalidate derived data.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a copy of all readings in stored order.
func (s *Store) Snapshot() []domain.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}
