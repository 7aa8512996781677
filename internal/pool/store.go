// Package pool holds the current donor snapshot. Matching passes read a
// copy; upstream loaders replace the whole snapshot atomically.
package pool

import (
	"sync"

	"github.com/thalanet/bloodmatch/internal/model"
)

// Store is a swap-on-write holder for the donor pool
type Store struct {
	mu     sync.RWMutex
	donors []model.Donor
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a new donor snapshot
func (s *Store) Replace(donors []model.Donor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donors = donors
}

// Snapshot returns a copy of the current pool. Matching passes own the copy
// for their duration; later Replace calls do not affect it.
func (s *Store) Snapshot() []model.Donor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Donor, len(s.donors))
	copy(out, s.donors)
	return out
}

// Size returns the number of donors currently held
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.donors)
}
