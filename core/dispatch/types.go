package dispatch

import (
	"context"
	"time"

	"github.com/serenity-care/dispatch/core/match"
	"github.com/serenity-care/dispatch/core/model"
)

// GapDetector finds visits requiring coverage.
type GapDetector interface {
	Detect(ctx context.Context, orgID string, now time.Time) ([]model.CoverageGap, error)
}

// CandidateMatcher ranks eligible workers for a gap.
type CandidateMatcher interface {
	Candidates(ctx context.Context, gap model.CoverageGap, opts match.Options) ([]model.Candidate, error)
}

// Message is the channel-agnostic payload of one dispatch alert. Channel
// implementations format it appropriately for their medium.
type Message struct {
	NotificationID string
	GapID          string
	WorkerID       string
	Urgency        string
	ClientName     string
	ClientAddress  string
	Start          time.Time
	End            time.Time
	Miles          float64
	TravelMinutes  int
}

// Notifier delivers a message over a single channel. Implementations are
// best-effort and independent: a failure affects only the one attempt.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// BatchResult collects the outcome of one notification wave for one gap.
type BatchResult struct {
	GapID         string
	Notifications []model.Notification
	Errors        map[string]error // notification ID -> send error
}

// Sent counts notifications that reached the sent state.
func (b BatchResult) Sent() int {
	n := 0
	for _, nt := range b.Notifications {
		if nt.State == model.NotifSent {
			n++
		}
	}
	return n
}

// PassResult summarizes one detection-and-dispatch pass.
type PassResult struct {
	Gaps    []model.CoverageGap
	Batches map[string]BatchResult // keyed by gap ID
	Skipped int                    // gaps already being handled
}

// Response is a worker's reply to a dispatch notification.
type Response struct {
	NotificationID string
	WorkerID       string
	Accept         bool
	At             time.Time
}

// Outcome is the result of resolving a worker response.
type Outcome int

const (
	// OutcomeAssigned means the acceptance won the claim.
	OutcomeAssigned Outcome = iota
	// OutcomeAlreadyFilled means another worker claimed the visit first.
	OutcomeAlreadyFilled
	// OutcomeDeclined means the worker turned the gap down.
	OutcomeDeclined
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAssigned:
		return "assigned"
	case OutcomeAlreadyFilled:
		return "no longer available"
	default:
		return "declined"
	}
}
