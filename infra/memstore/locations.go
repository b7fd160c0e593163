package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/store"
)

// Invalidator receives subjects whose cached distances must be dropped.
// *travelcache.Cache satisfies it.
type Invalidator interface {
	Invalidate(subject model.SubjectRef)
}

// LocationStore keeps geocoded positions in memory. Every Put invalidates
// the travel cache synchronously before returning: a stale cache entry
// surviving a location change is a correctness bug, not a staleness window.
type LocationStore struct {
	mu          sync.RWMutex
	locs        map[model.SubjectRef]model.Location
	invalidator Invalidator
}

// NewLocationStore returns an empty store wired to the given cache
// invalidator. A nil invalidator is allowed for tests that do not care.
func NewLocationStore(inv Invalidator) *LocationStore {
	return &LocationStore{locs: map[model.SubjectRef]model.Location{}, invalidator: inv}
}

// Get returns the location for the subject.
func (s *LocationStore) Get(_ context.Context, ref model.SubjectRef) (model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locs[ref]
	if !ok {
		return model.Location{}, fmt.Errorf("memstore: location for %s: %w", ref, store.ErrNotFound)
	}
	return loc, nil
}

// Put stores the location and synchronously invalidates cached distances
// referencing the subject.
func (s *LocationStore) Put(_ context.Context, loc model.Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.locs[loc.Subject] = loc
	s.mu.Unlock()
	if s.invalidator != nil {
		s.invalidator.Invalidate(loc.Subject)
	}
	return nil
}
