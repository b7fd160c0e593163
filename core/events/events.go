// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - GapEvent: a coverage gap detected during a pass
//   - NotificationEvent: the result of one outbound send attempt
//   - ClaimEvent: the outcome of a worker response
package events

import (
	"time"

	"github.com/serenity-care/dispatch/core/model"
)

// GapEvent is published for each gap found by a detection pass.
type GapEvent struct {
	Gap model.CoverageGap
}

// NotificationEvent is published for each send attempt.
type NotificationEvent struct {
	Notification model.Notification
	Err          error
}

// ClaimEvent is emitted when a worker response is resolved. Won is true for
// the single acceptance that claimed the visit.
type ClaimEvent struct {
	GapID    string
	VisitID  string
	WorkerID string
	Accepted bool
	Won      bool
	Latency  time.Duration
}
