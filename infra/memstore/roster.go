package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/serenity-care/dispatch/core/model"
)

// Shift is a past or committed work period used for weekly hours, recency
// and overlap checks.
type Shift struct {
	WorkerID string
	Start    time.Time
	End      time.Time
}

// RosterStore keeps workers and their shift history in memory.
type RosterStore struct {
	mu      sync.RWMutex
	workers map[string]model.Worker
	shifts  []Shift
}

// NewRosterStore returns an empty roster.
func NewRosterStore() *RosterStore {
	return &RosterStore{workers: map[string]model.Worker{}}
}

// SeedWorker inserts or replaces a worker.
func (s *RosterStore) SeedWorker(w model.Worker) {
	s.mu.Lock()
	s.workers[w.ID] = w
	s.mu.Unlock()
}

// SeedShift appends a shift to the history.
func (s *RosterStore) SeedShift(sh Shift) {
	s.mu.Lock()
	s.shifts = append(s.shifts, sh)
	s.mu.Unlock()
}

// ActiveWorkers lists workers currently marked active.
func (s *RosterStore) ActiveWorkers(context.Context, string) ([]model.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Worker
	for _, w := range s.workers {
		if w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

// WeeklyHours sums shift durations within the week containing weekOf.
// Weeks start Monday 00:00 UTC.
func (s *RosterStore) WeeklyHours(_ context.Context, workerID string, weekOf time.Time) (float64, error) {
	start := weekStart(weekOf)
	end := start.AddDate(0, 0, 7)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hours float64
	for _, sh := range s.shifts {
		if sh.WorkerID != workerID {
			continue
		}
		if sh.Start.Before(end) && start.Before(sh.End) {
			hours += sh.End.Sub(sh.Start).Hours()
		}
	}
	return hours, nil
}

// LastShiftEnd returns the most recent shift end strictly before the given
// time.
func (s *RosterStore) LastShiftEnd(_ context.Context, workerID string, before time.Time) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best time.Time
	found := false
	for _, sh := range s.shifts {
		if sh.WorkerID != workerID || !sh.End.Before(before) {
			continue
		}
		if !found || sh.End.After(best) {
			best = sh.End
			found = true
		}
	}
	return best, found, nil
}

// OverlappingCommitment reports whether any shift intersects [start, end).
func (s *RosterStore) OverlappingCommitment(_ context.Context, workerID string, start, end time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sh := range s.shifts {
		if sh.WorkerID != workerID {
			continue
		}
		if sh.Start.Before(end) && start.Before(sh.End) {
			return true, nil
		}
	}
	return false, nil
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}
