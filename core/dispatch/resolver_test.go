package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/infra/memstore"
)

func seedResolver(t *testing.T, workers ...string) (*Resolver, *memstore.ScheduleStore, *memstore.NotificationLog) {
	t.Helper()
	schedule := memstore.NewScheduleStore()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	schedule.SeedVisit(model.Visit{
		ID: "v1", OrgID: "org1", ClientID: "c1",
		Start: start, End: start.Add(time.Hour), Status: model.VisitScheduled,
	})
	nlog := memstore.NewNotificationLog()
	created := start.Add(-30 * time.Minute)
	for _, w := range workers {
		n := model.Notification{
			ID: "n-" + w, GapID: "unassigned:v1", VisitID: "v1", WorkerID: w,
			Channel: model.ChannelSMS, State: model.NotifPending, CreatedAt: created,
		}
		if err := n.Transition(model.NotifSent, created.Add(time.Second)); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := nlog.Append(context.Background(), n); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	r, err := NewResolver(schedule, nlog, nil, nil, nopLogger{})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	return r, schedule, nlog
}

func TestResolveAccept(t *testing.T) {
	r, schedule, nlog := seedResolver(t, "w1")
	out, err := r.Resolve(context.Background(), Response{NotificationID: "n-w1", WorkerID: "w1", Accept: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out != OutcomeAssigned {
		t.Fatalf("outcome = %s, want assigned", out)
	}
	v, _ := schedule.Visit(context.Background(), "v1")
	if v.WorkerID != "w1" {
		t.Fatalf("visit assigned to %q", v.WorkerID)
	}
	n, _ := nlog.Get(context.Background(), "n-w1")
	if n.State != model.NotifAccepted {
		t.Fatalf("state = %s, want accepted", n.State)
	}
}

func TestResolveDecline(t *testing.T) {
	r, schedule, nlog := seedResolver(t, "w1")
	out, err := r.Resolve(context.Background(), Response{NotificationID: "n-w1", WorkerID: "w1", Accept: false})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out != OutcomeDeclined {
		t.Fatalf("outcome = %s, want declined", out)
	}
	v, _ := schedule.Visit(context.Background(), "v1")
	if v.WorkerID != "" {
		t.Fatalf("decline must not assign the visit")
	}
	n, _ := nlog.Get(context.Background(), "n-w1")
	if n.State != model.NotifDeclined {
		t.Fatalf("state = %s, want declined", n.State)
	}
}

func TestResolveSecondAcceptLoses(t *testing.T) {
	r, _, nlog := seedResolver(t, "w1", "w2")
	if out, err := r.Resolve(context.Background(), Response{NotificationID: "n-w1", WorkerID: "w1", Accept: true}); err != nil || out != OutcomeAssigned {
		t.Fatalf("first accept: out=%s err=%v", out, err)
	}
	out, err := r.Resolve(context.Background(), Response{NotificationID: "n-w2", WorkerID: "w2", Accept: true})
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if out != OutcomeAlreadyFilled {
		t.Fatalf("outcome = %s, want no longer available", out)
	}
	n, _ := nlog.Get(context.Background(), "n-w2")
	if n.State != model.NotifExpired {
		t.Fatalf("late notification state = %s, want expired", n.State)
	}
}

func TestResolveConcurrentAccepts(t *testing.T) {
	r, schedule, _ := seedResolver(t, "w1", "w2")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		assigned int
	)
	for _, w := range []string{"w1", "w2"} {
		wg.Add(1)
		go func(w string) {
			defer wg.Done()
			out, err := r.Resolve(context.Background(), Response{NotificationID: "n-" + w, WorkerID: w, Accept: true})
			if err != nil {
				t.Errorf("resolve %s: %v", w, err)
				return
			}
			if out == OutcomeAssigned {
				mu.Lock()
				assigned++
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	if assigned != 1 {
		t.Fatalf("exactly one acceptance must win, got %d", assigned)
	}
	v, _ := schedule.Visit(context.Background(), "v1")
	if v.WorkerID != "w1" && v.WorkerID != "w2" {
		t.Fatalf("visit unassigned after race")
	}
}

// seedNoShowResolver seeds a visit 45 minutes past its start, still held by
// the absent worker with no check-in, plus replacement offers for it.
func seedNoShowResolver(t *testing.T, workers ...string) (*Resolver, *memstore.ScheduleStore, *memstore.NotificationLog) {
	t.Helper()
	schedule := memstore.NewScheduleStore()
	now := time.Date(2026, 3, 2, 9, 45, 0, 0, time.UTC)
	schedule.SeedVisit(model.Visit{
		ID: "v1", OrgID: "org1", ClientID: "c1", WorkerID: "w-absent",
		Start: now.Add(-45 * time.Minute), End: now.Add(time.Hour), Status: model.VisitScheduled,
	})
	nlog := memstore.NewNotificationLog()
	for _, w := range workers {
		n := model.Notification{
			ID: "n-" + w, GapID: "no_show:v1", VisitID: "v1", WorkerID: w,
			ReplacesWorkerID: "w-absent",
			Channel:          model.ChannelPush, State: model.NotifPending, CreatedAt: now,
		}
		if err := n.Transition(model.NotifSent, now.Add(time.Second)); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := nlog.Append(context.Background(), n); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	r, err := NewResolver(schedule, nlog, nil, nil, nopLogger{})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	return r, schedule, nlog
}

func TestResolveNoShowAccept(t *testing.T) {
	r, schedule, nlog := seedNoShowResolver(t, "w1")
	out, err := r.Resolve(context.Background(), Response{NotificationID: "n-w1", WorkerID: "w1", Accept: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out != OutcomeAssigned {
		t.Fatalf("no-show replacement acceptance: outcome = %s, want assigned", out)
	}
	v, _ := schedule.Visit(context.Background(), "v1")
	if v.WorkerID != "w1" {
		t.Fatalf("visit still assigned to %q, want w1", v.WorkerID)
	}
	n, _ := nlog.Get(context.Background(), "n-w1")
	if n.State != model.NotifAccepted {
		t.Fatalf("state = %s, want accepted", n.State)
	}
}

func TestResolveNoShowSecondAcceptLoses(t *testing.T) {
	r, schedule, nlog := seedNoShowResolver(t, "w1", "w2")
	if out, err := r.Resolve(context.Background(), Response{NotificationID: "n-w1", WorkerID: "w1", Accept: true}); err != nil || out != OutcomeAssigned {
		t.Fatalf("first accept: out=%s err=%v", out, err)
	}
	out, err := r.Resolve(context.Background(), Response{NotificationID: "n-w2", WorkerID: "w2", Accept: true})
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if out != OutcomeAlreadyFilled {
		t.Fatalf("outcome = %s, want no longer available", out)
	}
	v, _ := schedule.Visit(context.Background(), "v1")
	if v.WorkerID != "w1" {
		t.Fatalf("second acceptance must not displace w1, visit held by %q", v.WorkerID)
	}
	n, _ := nlog.Get(context.Background(), "n-w2")
	if n.State != model.NotifExpired {
		t.Fatalf("late notification state = %s, want expired", n.State)
	}
}

func TestResolveWorkerMismatch(t *testing.T) {
	r, _, _ := seedResolver(t, "w1")
	if _, err := r.Resolve(context.Background(), Response{NotificationID: "n-w1", WorkerID: "w9", Accept: true}); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestResolveUnknownNotification(t *testing.T) {
	r, _, _ := seedResolver(t, "w1")
	if _, err := r.Resolve(context.Background(), Response{NotificationID: "nope", WorkerID: "w1", Accept: true}); err == nil {
		t.Fatalf("expected unknown notification error")
	}
}

func TestResolveResponseLatency(t *testing.T) {
	r, _, nlog := seedResolver(t, "w1")
	n, _ := nlog.Get(context.Background(), "n-w1")
	at := n.CreatedAt.Add(4 * time.Minute)
	if _, err := r.Resolve(context.Background(), Response{NotificationID: "n-w1", WorkerID: "w1", Accept: true, At: at}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	n, _ = nlog.Get(context.Background(), "n-w1")
	if lat := n.ResponseLatency(); lat != 4*time.Minute {
		t.Fatalf("latency = %v, want 4m", lat)
	}
}
