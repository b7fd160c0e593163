package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/serenity-care/dispatch/core/metrics"
	"github.com/serenity-care/dispatch/core/model"
)

type recordSink struct {
	notifications int
	claims        int
	gaps          int
}

func (r *recordSink) RecordNotifications([]coremetrics.NotificationRecord) error {
	r.notifications++
	return nil
}

func (r *recordSink) RecordClaim(coremetrics.ClaimRecord) error {
	r.claims++
	return nil
}

func (r *recordSink) RecordGapCount(int) error {
	r.gaps++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordNotifications(nil); err != nil {
		t.Fatalf("record notifications: %v", err)
	}
	if err := m.RecordClaim(coremetrics.ClaimRecord{}); err != nil {
		t.Fatalf("record claim: %v", err)
	}
	if err := m.RecordGapCount(3); err != nil {
		t.Fatalf("record gaps: %v", err)
	}
	if s1.notifications != 1 || s2.notifications != 1 {
		t.Fatalf("notifications not forwarded")
	}
	if s1.claims != 1 || s2.claims != 1 {
		t.Fatalf("claims not forwarded")
	}
	if s1.gaps != 1 || s2.gaps != 1 {
		t.Fatalf("gap counts not forwarded")
	}
}

type notifOnlySink struct{}

func (notifOnlySink) RecordNotifications([]coremetrics.NotificationRecord) error { return nil }

func TestMultiSinkSkipsUnsupported(t *testing.T) {
	m := NewMultiSink(notifOnlySink{})
	if err := m.RecordClaim(coremetrics.ClaimRecord{}); err != nil {
		t.Fatalf("record claim: %v", err)
	}
	if err := m.RecordGapCount(1); err != nil {
		t.Fatalf("record gaps: %v", err)
	}
}

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	ps := sink.(*PromSink)

	err = sink.RecordNotifications([]coremetrics.NotificationRecord{
		{Channel: model.ChannelSMS, State: model.NotifSent, Urgency: model.UrgencyCritical},
		{Channel: model.ChannelSMS, State: model.NotifSent, Urgency: model.UrgencyCritical},
		{Channel: model.ChannelPush, State: model.NotifFailed, Urgency: model.UrgencyCritical},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	expected := `
# HELP dispatch_notifications_total Total number of coverage notifications attempted
# TYPE dispatch_notifications_total counter
dispatch_notifications_total{channel="push",state="failed",urgency="critical"} 1
dispatch_notifications_total{channel="sms",state="sent",urgency="critical"} 2
`
	if err := testutil.CollectAndCompare(ps.notifications, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected counter state: %v", err)
	}

	if err := ps.RecordClaim(coremetrics.ClaimRecord{Accepted: true, Won: true, Latency: 3 * time.Second}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if c := testutil.CollectAndCount(ps.latency); c == 0 {
		t.Fatalf("latency not observed")
	}

	if err := ps.RecordGapCount(4); err != nil {
		t.Fatalf("gaps: %v", err)
	}
	if v := testutil.ToFloat64(ps.activeGaps); v != 4 {
		t.Fatalf("active gaps = %v, want 4", v)
	}
	if err := ps.RecordPending(7); err != nil {
		t.Fatalf("pending: %v", err)
	}
	if v := testutil.ToFloat64(ps.pending); v != 7 {
		t.Fatalf("pending = %v, want 7", v)
	}
}

func TestPromSinkDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("second registration must reuse collectors: %v", err)
	}
}
