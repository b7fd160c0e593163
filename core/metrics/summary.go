package metrics

import (
	"context"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/store"
)

// Summary is the operator dashboard snapshot: counts and same-day response
// statistics derived entirely from the notification log and the detector.
type Summary struct {
	ActiveGaps           int     `json:"active_gaps"`
	PendingNotifications int     `json:"pending_notifications"`
	AcceptedToday        int     `json:"accepted_today"`
	DeclinedToday        int     `json:"declined_today"`
	AvgResponseSeconds   float64 `json:"avg_response_seconds"`
}

// BuildSummary assembles the dashboard summary. activeGaps comes from the
// caller's latest detection pass; the rest is read from the log.
func BuildSummary(ctx context.Context, log store.NotificationLog, activeGaps int, now time.Time) (Summary, error) {
	pending, err := log.PendingCount(ctx)
	if err != nil {
		return Summary{}, err
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	responded, err := log.RespondedSince(ctx, dayStart)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{ActiveGaps: activeGaps, PendingNotifications: pending}
	var latencies []float64
	for _, n := range responded {
		switch n.State {
		case model.NotifAccepted:
			s.AcceptedToday++
		case model.NotifDeclined:
			s.DeclinedToday++
		default:
			continue
		}
		if l := n.ResponseLatency(); l > 0 {
			latencies = append(latencies, l.Seconds())
		}
	}
	if len(latencies) > 0 {
		s.AvgResponseSeconds = stat.Mean(latencies, nil)
	}
	return s, nil
}
