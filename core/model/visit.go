package model

import (
	"fmt"
	"time"
)

// VisitStatus describes the lifecycle state of a scheduled visit.
type VisitStatus string

const (
	VisitScheduled  VisitStatus = "scheduled"
	VisitInProgress VisitStatus = "in_progress"
	VisitCompleted  VisitStatus = "completed"
	VisitCancelled  VisitStatus = "cancelled"
)

// Visit is a caregiving appointment owned by the external schedule store.
// The dispatch engine reads visits and performs exactly one kind of write:
// a conditional claim of WorkerID.
type Visit struct {
	ID       string      `json:"id"`
	OrgID    string      `json:"org_id"`
	ClientID string      `json:"client_id"`
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
	Status   VisitStatus `json:"status"`
	WorkerID string      `json:"worker_id,omitempty"` // empty until a worker is assigned
	CheckIn  time.Time   `json:"check_in,omitempty"`  // zero until the worker checks in
}

// Assigned reports whether a worker currently holds the visit.
func (v Visit) Assigned() bool { return v.WorkerID != "" }

// CheckedIn reports whether a check-in has been recorded.
func (v Visit) CheckedIn() bool { return !v.CheckIn.IsZero() }

// Open reports whether the visit still requires coverage handling.
func (v Visit) Open() bool {
	return v.Status != VisitCancelled && v.Status != VisitCompleted
}

// Validate rejects visits the detector cannot reason about. Such visits are
// skipped and logged rather than aborting a detection pass.
func (v Visit) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("visit id is required")
	}
	if v.ClientID == "" {
		return fmt.Errorf("visit %s has no client", v.ID)
	}
	if v.Start.IsZero() || v.End.IsZero() || !v.End.After(v.Start) {
		return fmt.Errorf("visit %s has an invalid time window", v.ID)
	}
	return nil
}

// Overlaps reports whether the visit window intersects [start, end).
func (v Visit) Overlaps(start, end time.Time) bool {
	return v.Start.Before(end) && start.Before(v.End)
}
