// Package memstore provides in-memory implementations of the engine's
// store contracts. They back the service in demo mode and give tests a
// faithful stand-in for the external schedule, roster and location
// subsystems, including the store-side conditional claim guard.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/serenity-care/dispatch/core/model"
)

// ScheduleStore keeps visits in memory. ClaimVisit performs its
// compare-and-set under the store lock, mirroring a conditional UPDATE in
// the real schedule database.
type ScheduleStore struct {
	mu     sync.RWMutex
	visits map[string]model.Visit
}

// NewScheduleStore returns an empty schedule.
func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{visits: map[string]model.Visit{}}
}

// SeedVisit inserts or replaces a visit.
func (s *ScheduleStore) SeedVisit(v model.Visit) {
	s.mu.Lock()
	s.visits[v.ID] = v
	s.mu.Unlock()
}

// VisitsInRange lists visits for the organization starting within [from, to).
func (s *ScheduleStore) VisitsInRange(_ context.Context, orgID string, from, to time.Time) ([]model.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Visit
	for _, v := range s.visits {
		if v.OrgID != orgID {
			continue
		}
		if v.Start.Before(from) || !v.Start.Before(to) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Visit fetches a single visit.
func (s *ScheduleStore) Visit(_ context.Context, visitID string) (model.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visits[visitID]
	if !ok {
		return model.Visit{}, fmt.Errorf("memstore: unknown visit %s", visitID)
	}
	return v, nil
}

// ClaimVisit assigns the worker if and only if the visit is still open,
// has no recorded check-in, and its current assignee equals prevWorkerID
// (empty for an unassigned visit, the absent worker's id when replacing a
// no-show). The check and the write happen atomically under the store
// lock, so exactly one concurrent claim succeeds: once a replacement takes
// over, the assignee no longer matches and later claims fail.
func (s *ScheduleStore) ClaimVisit(_ context.Context, visitID, workerID, prevWorkerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[visitID]
	if !ok {
		return false, fmt.Errorf("memstore: unknown visit %s", visitID)
	}
	if v.WorkerID != prevWorkerID || v.CheckedIn() || !v.Open() {
		return false, nil
	}
	v.WorkerID = workerID
	v.Status = model.VisitScheduled
	s.visits[visitID] = v
	return true, nil
}

// RecordCheckIn stamps the worker's arrival on the visit.
func (s *ScheduleStore) RecordCheckIn(visitID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[visitID]
	if !ok {
		return fmt.Errorf("memstore: unknown visit %s", visitID)
	}
	v.CheckIn = at
	v.Status = model.VisitInProgress
	s.visits[visitID] = v
	return nil
}
