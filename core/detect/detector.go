// Package detect scans the live schedule for visits lacking confirmed
// coverage and classifies each by urgency.
package detect

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/serenity-care/dispatch/core/logger"
	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/store"
)

// Detector runs on-demand detection passes over a bounded lookahead window.
type Detector struct {
	schedule store.ScheduleStore
	cfg      Config
	log      logger.Logger
}

// New creates a Detector. The config is defaulted and validated.
func New(schedule store.ScheduleStore, cfg Config, log logger.Logger) (*Detector, error) {
	if schedule == nil {
		return nil, fmt.Errorf("detect: schedule store is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{schedule: schedule, cfg: cfg, log: log}, nil
}

// Detect returns the coverage gaps for the organization at the given
// instant, sorted by urgency (critical first) then scheduled start. The
// ordering is a contract: callers must address the most time-critical gap
// first. A malformed visit is skipped and logged, never aborting the pass.
func (d *Detector) Detect(ctx context.Context, orgID string, now time.Time) ([]model.CoverageGap, error) {
	grace := time.Duration(d.cfg.GraceMinutes) * time.Minute
	lookahead := time.Duration(d.cfg.LookaheadHours) * time.Hour

	// The scan window reaches back far enough to catch stale no-shows and
	// forward over the unassigned lookahead horizon.
	visits, err := d.schedule.VisitsInRange(ctx, orgID, now.Add(-24*time.Hour), now.Add(lookahead))
	if err != nil {
		return nil, fmt.Errorf("detect: list visits: %w", err)
	}

	var gaps []model.CoverageGap
	for _, v := range visits {
		if err := v.Validate(); err != nil {
			d.log.Warnf("skipping malformed visit: %v", err)
			continue
		}
		if !v.Open() {
			continue
		}
		if g, ok := d.noShow(v, now, grace); ok {
			gaps = append(gaps, g)
		}
		if g, ok := d.unassigned(v, now, lookahead); ok {
			gaps = append(gaps, g)
		}
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Urgency != gaps[j].Urgency {
			return gaps[i].Urgency > gaps[j].Urgency
		}
		return gaps[i].Start.Before(gaps[j].Start)
	})
	return gaps, nil
}

// noShow flags assigned visits whose start is more than the grace period in
// the past with no recorded check-in.
func (d *Detector) noShow(v model.Visit, now time.Time, grace time.Duration) (model.CoverageGap, bool) {
	if !v.Assigned() || v.CheckedIn() {
		return model.CoverageGap{}, false
	}
	late := now.Sub(v.Start)
	if late <= grace {
		return model.CoverageGap{}, false
	}
	urgency := model.UrgencyMedium
	switch {
	case late > time.Hour:
		urgency = model.UrgencyCritical
	case late > 30*time.Minute:
		urgency = model.UrgencyHigh
	}
	return model.CoverageGap{
		ID:             model.GapID(model.ReasonNoShow, v.ID),
		VisitID:        v.ID,
		OrgID:          v.OrgID,
		ClientID:       v.ClientID,
		Start:          v.Start,
		End:            v.End,
		Urgency:        urgency,
		Reason:         model.ReasonNoShow,
		AbsentWorkerID: v.WorkerID,
	}, true
}

// unassigned flags visits with no worker starting within the lookahead
// horizon.
func (d *Detector) unassigned(v model.Visit, now time.Time, lookahead time.Duration) (model.CoverageGap, bool) {
	if v.Assigned() {
		return model.CoverageGap{}, false
	}
	until := v.Start.Sub(now)
	if until > lookahead {
		return model.CoverageGap{}, false
	}
	urgency := model.UrgencyMedium
	switch {
	case until < time.Hour:
		urgency = model.UrgencyCritical
	case until < 2*time.Hour:
		urgency = model.UrgencyHigh
	}
	return model.CoverageGap{
		ID:       model.GapID(model.ReasonUnassigned, v.ID),
		VisitID:  v.ID,
		OrgID:    v.OrgID,
		ClientID: v.ClientID,
		Start:    v.Start,
		End:      v.End,
		Urgency:  urgency,
		Reason:   model.ReasonUnassigned,
	}, true
}
