// Package metrics declares the sink interfaces used to record dispatch
// activity for observability. Implementations live under infra/metrics.
package metrics

import (
	"time"

	"github.com/serenity-care/dispatch/core/model"
)

// NotificationRecord represents one outbound attempt to be recorded.
type NotificationRecord struct {
	NotificationID string
	GapID          string
	WorkerID       string
	Channel        model.Channel
	State          model.NotificationState
	Urgency        model.Urgency
	Score          float64
	Miles          float64
	Time           time.Time
}

// Sink records notification batches for observability purposes.
type Sink interface {
	RecordNotifications(records []NotificationRecord) error
}

// GapRecorder records the outcome of a detection pass.
type GapRecorder interface {
	RecordGapCount(active int) error
}

// ClaimRecord captures the resolution of one worker response.
type ClaimRecord struct {
	GapID    string
	VisitID  string
	WorkerID string
	Accepted bool
	Won      bool
	Latency  time.Duration
	Time     time.Time
}

// ClaimRecorder records claim resolutions.
type ClaimRecorder interface {
	RecordClaim(rec ClaimRecord) error
}

// PendingRecorder tracks the count of in-flight notifications.
type PendingRecorder interface {
	RecordPending(count int) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordNotifications([]NotificationRecord) error { return nil }
func (NopSink) RecordGapCount(int) error                       { return nil }
func (NopSink) RecordClaim(ClaimRecord) error                  { return nil }
func (NopSink) RecordPending(int) error                        { return nil }
