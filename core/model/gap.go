package model

import (
	"fmt"
	"time"
)

// GapReason explains why a visit lacks coverage.
type GapReason string

const (
	ReasonNoShow     GapReason = "no_show"
	ReasonUnassigned GapReason = "unassigned"
	ReasonCallout    GapReason = "callout"
	ReasonLate       GapReason = "late"
)

// Urgency ranks how quickly a gap must be addressed.
type Urgency int

const (
	UrgencyMedium Urgency = iota
	UrgencyHigh
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyCritical:
		return "critical"
	case UrgencyHigh:
		return "high"
	default:
		return "medium"
	}
}

// CoverageGap is a derived entity: one visit requiring a worker. Gaps are
// recomputed on every detection pass and never persisted, so the ID must be
// a deterministic function of the underlying condition.
type CoverageGap struct {
	ID       string    `json:"id"`
	VisitID  string    `json:"visit_id"`
	OrgID    string    `json:"org_id"`
	ClientID string    `json:"client_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Urgency  Urgency   `json:"urgency"`
	Reason   GapReason `json:"reason"`
	Notified int       `json:"notified"` // notification attempts recorded so far

	// AbsentWorkerID is the assignee being replaced for no-show gaps; a
	// claim must still find this worker on the visit to succeed. Empty for
	// unassigned gaps.
	AbsentWorkerID string `json:"absent_worker_id,omitempty"`
}

// GapID derives the stable identifier for a gap. Re-detection of the same
// condition yields the same ID, letting callers suppress duplicate waves.
func GapID(reason GapReason, visitID string) string {
	return fmt.Sprintf("%s:%s", reason, visitID)
}
