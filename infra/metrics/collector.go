package metrics

import (
	"context"
	"time"

	"github.com/serenity-care/dispatch/core/events"
	coremetrics "github.com/serenity-care/dispatch/core/metrics"
	"github.com/serenity-care/dispatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records claim
// resolutions. The resolver publishes claims to the bus rather than writing
// the sink directly, so the wiring passes it a nil sink and this collector
// is the single recording path. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.ClaimEvent:
					if r, ok := sink.(coremetrics.ClaimRecorder); ok {
						_ = r.RecordClaim(coremetrics.ClaimRecord{
							GapID:    e.GapID,
							VisitID:  e.VisitID,
							WorkerID: e.WorkerID,
							Accepted: e.Accepted,
							Won:      e.Won,
							Latency:  e.Latency,
							Time:     time.Now(),
						})
					}
				}
			}
		}
	}()
}
