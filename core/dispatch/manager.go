package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/serenity-care/dispatch/core/events"
	"github.com/serenity-care/dispatch/core/logger"
	"github.com/serenity-care/dispatch/core/match"
	"github.com/serenity-care/dispatch/core/metrics"
	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/store"
	"github.com/serenity-care/dispatch/internal/eventbus"
)

// Manager orchestrates detection, matching and notification fan-out.
type Manager struct {
	detector  GapDetector
	matcher   CandidateMatcher
	channels  map[model.Channel]Notifier
	locations store.LocationStore
	nlog      store.NotificationLog
	sink      metrics.Sink
	bus       eventbus.EventBus
	logger    logger.Logger
	cfg       Config
	now       func() time.Time
}

// NewManager creates a manager. The sink and bus may be nil.
func NewManager(detector GapDetector, matcher CandidateMatcher, channels map[model.Channel]Notifier, locations store.LocationStore, nlog store.NotificationLog, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger, cfg Config) (*Manager, error) {
	if detector == nil || matcher == nil || locations == nil || nlog == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewManager")
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("dispatch: at least one notification channel is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Manager{
		detector:  detector,
		matcher:   matcher,
		channels:  channels,
		locations: locations,
		nlog:      nlog,
		sink:      sink,
		bus:       bus,
		logger:    log,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// Run executes detection passes at the configured interval until the
// context is canceled.
func (m *Manager) Run(ctx context.Context, orgID string) {
	interval := time.Duration(m.cfg.PollIntervalSeconds) * time.Second
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := m.RunPass(ctx, orgID, m.now()); err != nil {
				m.logger.Errorf("dispatch pass: %v", err)
			}
		}
	}
}

// RunPass runs one detect-match-notify cycle. Gaps already carrying an
// in-flight notification wave are skipped: re-detection yields the same gap
// identifier, so the notification log doubles as the suppression record.
func (m *Manager) RunPass(ctx context.Context, orgID string, now time.Time) (PassResult, error) {
	gaps, err := m.detector.Detect(ctx, orgID, now)
	if err != nil {
		return PassResult{}, err
	}
	res := PassResult{Gaps: gaps, Batches: make(map[string]BatchResult)}

	if gr, ok := m.sink.(metrics.GapRecorder); ok {
		if err := gr.RecordGapCount(len(gaps)); err != nil {
			m.logger.Errorf("gap count metrics: %v", err)
		}
	}

	for _, gap := range gaps {
		if m.bus != nil {
			m.bus.Publish(events.GapEvent{Gap: gap})
		}
		prior, err := m.nlog.ByGap(ctx, gap.ID)
		if err != nil {
			m.logger.Errorf("gap %s: notification history: %v", gap.ID, err)
			continue
		}
		gap.Notified = len(prior)
		if inFlight(prior) {
			res.Skipped++
			m.logger.Debugf("gap %s already has an active wave", gap.ID)
			continue
		}
		cands, err := m.matcher.Candidates(ctx, gap, match.Options{})
		if err != nil {
			m.logger.Errorf("gap %s: matching: %v", gap.ID, err)
			continue
		}
		if len(cands) == 0 {
			m.logger.Warnf("gap %s (%s): no eligible candidates", gap.ID, gap.Urgency)
			continue
		}
		res.Batches[gap.ID] = m.Notify(ctx, gap, cands)
	}

	if pr, ok := m.sink.(metrics.PendingRecorder); ok {
		if pending, err := m.nlog.PendingCount(ctx); err == nil {
			if err := pr.RecordPending(pending); err != nil {
				m.logger.Errorf("pending metrics: %v", err)
			}
		}
	}
	return res, nil
}

// Notify sends one wave to the top-ranked candidates on every configured
// channel. Sends run concurrently; a failure on one candidate or channel
// never aborts the others.
func (m *Manager) Notify(ctx context.Context, gap model.CoverageGap, candidates []model.Candidate) BatchResult {
	if len(candidates) > m.cfg.BatchSize {
		candidates = candidates[:m.cfg.BatchSize]
	}
	clientName, clientAddr := m.clientInfo(ctx, gap.ClientID)

	batch := BatchResult{GapID: gap.ID, Errors: make(map[string]error)}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	sendTimeout := time.Duration(m.cfg.SendTimeoutSeconds) * time.Second

	for _, cand := range candidates {
		for _, ch := range m.cfg.Channels {
			notifier, ok := m.channels[ch]
			if !ok {
				continue
			}
			n := model.Notification{
				ID:               uuid.NewString(),
				GapID:            gap.ID,
				VisitID:          gap.VisitID,
				WorkerID:         cand.Worker.ID,
				ReplacesWorkerID: gap.AbsentWorkerID,
				Channel:          ch,
				State:            model.NotifPending,
				CreatedAt:        m.now(),
			}
			if err := m.nlog.Append(ctx, n); err != nil {
				m.logger.Errorf("notification %s: append: %v", n.ID, err)
				continue
			}
			msg := Message{
				NotificationID: n.ID,
				GapID:          gap.ID,
				WorkerID:       cand.Worker.ID,
				Urgency:        gap.Urgency.String(),
				ClientName:     clientName,
				ClientAddress:  clientAddr,
				Start:          gap.Start,
				End:            gap.End,
				Miles:          cand.Miles,
				TravelMinutes:  cand.TravelMinutes,
			}
			wg.Add(1)
			go func(n model.Notification, notifier Notifier, msg Message) {
				defer wg.Done()
				sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
				defer cancel()
				err := notifier.Send(sendCtx, msg)
				next := model.NotifSent
				if err != nil {
					next = model.NotifFailed
					n.LastError = err.Error()
				}
				if terr := n.Transition(next, m.now()); terr != nil {
					m.logger.Errorf("notification %s: %v", n.ID, terr)
				}
				if uerr := m.nlog.Update(ctx, n); uerr != nil {
					m.logger.Errorf("notification %s: update: %v", n.ID, uerr)
				}
				mu.Lock()
				batch.Notifications = append(batch.Notifications, n)
				if err != nil {
					batch.Errors[n.ID] = err
				}
				mu.Unlock()
				if m.bus != nil {
					m.bus.Publish(events.NotificationEvent{Notification: n, Err: err})
				}
			}(n, notifier, msg)
		}
	}
	wg.Wait()

	m.recordBatch(gap, candidates, batch)
	return batch
}

// clientInfo resolves the display name and address for the alert payload.
// Missing data degrades to the bare client id; it never blocks a wave.
func (m *Manager) clientInfo(ctx context.Context, clientID string) (string, string) {
	loc, err := m.locations.Get(ctx, model.SubjectRef{Kind: model.KindClient, ID: clientID})
	if err != nil || loc.Label == "" {
		return clientID, loc.Address
	}
	return loc.Label, loc.Address
}

// recordBatch persists the wave to the metrics sink and logs the audit line.
func (m *Manager) recordBatch(gap model.CoverageGap, candidates []model.Candidate, batch BatchResult) {
	scores := make(map[string]float64, len(candidates))
	miles := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		scores[c.Worker.ID] = c.Score
		miles[c.Worker.ID] = c.Miles
	}
	recs := make([]metrics.NotificationRecord, 0, len(batch.Notifications))
	for _, n := range batch.Notifications {
		recs = append(recs, metrics.NotificationRecord{
			NotificationID: n.ID,
			GapID:          n.GapID,
			WorkerID:       n.WorkerID,
			Channel:        n.Channel,
			State:          n.State,
			Urgency:        gap.Urgency,
			Score:          scores[n.WorkerID],
			Miles:          miles[n.WorkerID],
			Time:           n.CreatedAt,
		})
	}
	if err := m.sink.RecordNotifications(recs); err != nil {
		m.logger.Errorf("metrics error: %v", err)
	}
	m.logger.Infof("gap %s: notified %d/%d attempts (%d candidates)",
		gap.ID, batch.Sent(), len(batch.Notifications), len(candidates))
	m.logger.Debugw("notification wave", map[string]any{
		"gap_id":   gap.ID,
		"urgency":  gap.Urgency.String(),
		"attempts": len(batch.Notifications),
		"failed":   len(batch.Errors),
	})
}

// inFlight reports whether any prior notification is still awaiting a
// response.
func inFlight(prior []model.Notification) bool {
	for _, n := range prior {
		if !n.State.Terminal() {
			return true
		}
	}
	return false
}
