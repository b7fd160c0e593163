package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/infra/memstore"
)

func seedNotification(t *testing.T, log *memstore.NotificationLog, id string, final model.NotificationState, created time.Time, latency time.Duration) {
	t.Helper()
	n := model.Notification{
		ID: id, GapID: "unassigned:v1", VisitID: "v1", WorkerID: "w-" + id,
		Channel: model.ChannelSMS, State: model.NotifPending, CreatedAt: created,
	}
	if err := n.Transition(model.NotifSent, created.Add(time.Second)); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	if final != model.NotifSent {
		if err := n.Transition(final, created.Add(latency)); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	if err := log.Append(context.Background(), n); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestBuildSummary(t *testing.T) {
	log := memstore.NewNotificationLog()
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	dayStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	seedNotification(t, log, "a", model.NotifAccepted, dayStart.Add(2*time.Hour), 2*time.Minute)
	seedNotification(t, log, "b", model.NotifAccepted, dayStart.Add(3*time.Hour), 4*time.Minute)
	seedNotification(t, log, "c", model.NotifDeclined, dayStart.Add(4*time.Hour), 6*time.Minute)
	seedNotification(t, log, "d", model.NotifSent, dayStart.Add(5*time.Hour), 0)
	// Yesterday's response must not count toward today's numbers.
	seedNotification(t, log, "e", model.NotifAccepted, dayStart.Add(-20*time.Hour), time.Minute)

	s, err := BuildSummary(context.Background(), log, 3, now)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.ActiveGaps != 3 {
		t.Fatalf("active gaps = %d, want 3", s.ActiveGaps)
	}
	if s.AcceptedToday != 2 {
		t.Fatalf("accepted = %d, want 2", s.AcceptedToday)
	}
	if s.DeclinedToday != 1 {
		t.Fatalf("declined = %d, want 1", s.DeclinedToday)
	}
	if s.PendingNotifications != 1 {
		t.Fatalf("pending = %d, want 1", s.PendingNotifications)
	}
	// Mean of 2, 4 and 6 minutes.
	if s.AvgResponseSeconds != 240 {
		t.Fatalf("avg latency = %v, want 240s", s.AvgResponseSeconds)
	}
}

func TestBuildSummaryEmptyLog(t *testing.T) {
	log := memstore.NewNotificationLog()
	s, err := BuildSummary(context.Background(), log, 0, time.Now())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.AvgResponseSeconds != 0 || s.AcceptedToday != 0 || s.PendingNotifications != 0 {
		t.Fatalf("empty log summary = %+v", s)
	}
}
