package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/serenity-care/dispatch/core/events"
	"github.com/serenity-care/dispatch/core/logger"
	"github.com/serenity-care/dispatch/core/metrics"
	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/store"
	"github.com/serenity-care/dispatch/internal/eventbus"
)

// Resolver processes worker responses to dispatch notifications. The gap
// state machine is open -> claimed, and the transition is enforced solely
// by the schedule store's conditional write, so exactly one acceptance wins
// even across engine instances.
type Resolver struct {
	schedule store.ScheduleStore
	nlog     store.NotificationLog
	sink     metrics.Sink
	bus      eventbus.EventBus
	logger   logger.Logger
	now      func() time.Time
}

// NewResolver creates a Resolver. The sink and bus may be nil.
func NewResolver(schedule store.ScheduleStore, nlog store.NotificationLog, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger) (*Resolver, error) {
	if schedule == nil || nlog == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewResolver")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Resolver{
		schedule: schedule,
		nlog:     nlog,
		sink:     sink,
		bus:      bus,
		logger:   log,
		now:      time.Now,
	}, nil
}

// Resolve commits the response. An acceptance attempts the conditional
// claim; losing the race is an expected outcome, not an error. A decline is
// terminal for that single notification only.
func (r *Resolver) Resolve(ctx context.Context, resp Response) (Outcome, error) {
	n, err := r.nlog.Get(ctx, resp.NotificationID)
	if err != nil {
		return OutcomeAlreadyFilled, fmt.Errorf("dispatch: unknown notification %s: %w", resp.NotificationID, err)
	}
	if n.WorkerID != resp.WorkerID {
		return OutcomeAlreadyFilled, fmt.Errorf("dispatch: notification %s does not belong to worker %s", resp.NotificationID, resp.WorkerID)
	}
	at := resp.At
	if at.IsZero() {
		at = r.now()
	}

	if !resp.Accept {
		if err := n.Transition(model.NotifDeclined, at); err != nil {
			return OutcomeDeclined, err
		}
		if err := r.nlog.Update(ctx, n); err != nil {
			return OutcomeDeclined, err
		}
		r.publish(n, false, false, at)
		return OutcomeDeclined, nil
	}

	claimed, err := r.schedule.ClaimVisit(ctx, n.VisitID, resp.WorkerID, n.ReplacesWorkerID)
	if err != nil {
		return OutcomeAlreadyFilled, fmt.Errorf("dispatch: claim visit %s: %w", n.VisitID, err)
	}
	if !claimed {
		// Race loss: someone else holds the visit. Expire this notification
		// and tell the late responder; no side effects on the schedule.
		if terr := n.Transition(model.NotifExpired, at); terr == nil {
			if uerr := r.nlog.Update(ctx, n); uerr != nil {
				r.logger.Errorf("notification %s: update after race loss: %v", n.ID, uerr)
			}
		}
		r.publish(n, true, false, at)
		return OutcomeAlreadyFilled, nil
	}

	if err := n.Transition(model.NotifAccepted, at); err != nil {
		// The claim already succeeded; log and carry on.
		r.logger.Errorf("notification %s: %v", n.ID, err)
	} else if err := r.nlog.Update(ctx, n); err != nil {
		r.logger.Errorf("notification %s: update: %v", n.ID, err)
	}
	r.logger.Infof("gap %s claimed by worker %s", n.GapID, resp.WorkerID)
	r.publish(n, true, true, at)
	return OutcomeAssigned, nil
}

func (r *Resolver) publish(n model.Notification, accepted, won bool, at time.Time) {
	latency := at.Sub(n.CreatedAt)
	if r.bus != nil {
		r.bus.Publish(events.ClaimEvent{
			GapID:    n.GapID,
			VisitID:  n.VisitID,
			WorkerID: n.WorkerID,
			Accepted: accepted,
			Won:      won,
			Latency:  latency,
		})
	}
	if cr, ok := r.sink.(metrics.ClaimRecorder); ok {
		if err := cr.RecordClaim(metrics.ClaimRecord{
			GapID:    n.GapID,
			VisitID:  n.VisitID,
			WorkerID: n.WorkerID,
			Accepted: accepted,
			Won:      won,
			Latency:  latency,
			Time:     at,
		}); err != nil {
			r.logger.Errorf("claim metrics: %v", err)
		}
	}
}
