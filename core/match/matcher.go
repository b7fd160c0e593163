// Package match finds eligible workers for a coverage gap and ranks them by
// a composite suitability score balancing distance, availability, overtime
// risk and locality.
package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/serenity-care/dispatch/core/geo"
	"github.com/serenity-care/dispatch/core/logger"
	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/store"
	"github.com/serenity-care/dispatch/core/travelcache"
)

// Options tune a single matching call.
type Options struct {
	// MaxRadiusMiles overrides each worker's configured travel radius when
	// positive.
	MaxRadiusMiles float64
	// Limit caps the number of candidates returned; 0 uses the config default.
	Limit int
	// Mode selects the travel-time speed model; empty means driving.
	Mode model.Mode
}

// Matcher ranks workers against gaps. The travel cache is an explicit
// collaborator, never ambient state.
type Matcher struct {
	locations store.LocationStore
	roster    store.RosterStore
	cache     *travelcache.Cache
	cacheTTL  time.Duration
	cfg       Config
	log       logger.Logger
}

// New creates a Matcher.
func New(locations store.LocationStore, roster store.RosterStore, cache *travelcache.Cache, cfg Config, log logger.Logger) (*Matcher, error) {
	if locations == nil || roster == nil || cache == nil {
		return nil, fmt.Errorf("match: nil collaborator provided to New")
	}
	cfg.SetDefaults()
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{
		locations: locations,
		roster:    roster,
		cache:     cache,
		cacheTTL:  travelcache.DefaultTTL,
		cfg:       cfg,
		log:       log,
	}, nil
}

// SetCacheTTL overrides the lifetime of cache entries the matcher writes.
func (m *Matcher) SetCacheTTL(d time.Duration) {
	if d > 0 {
		m.cacheTTL = d
	}
}

// Candidates returns eligible workers for the gap sorted by score
// descending with distance ascending as tie-break, capped at the limit.
// A client with no geocoded location yields an empty list: the matcher
// never guesses a default position.
func (m *Matcher) Candidates(ctx context.Context, gap model.CoverageGap, opts Options) ([]model.Candidate, error) {
	clientRef := model.SubjectRef{Kind: model.KindClient, ID: gap.ClientID}
	clientLoc, err := m.locations.Get(ctx, clientRef)
	switch {
	case errors.Is(err, store.ErrNotFound), err == nil && !clientLoc.Coords.Valid:
		m.log.Warnf("gap %s: client %s has no geocoded location", gap.ID, gap.ClientID)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("match: client location: %w", err)
	}

	workers, err := m.roster.ActiveWorkers(ctx, gap.OrgID)
	if err != nil {
		return nil, fmt.Errorf("match: roster: %w", err)
	}

	mode := opts.Mode
	if mode == "" {
		mode = model.ModeDriving
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = m.cfg.DefaultLimit
	}

	var out []model.Candidate
	for _, w := range workers {
		if !w.Active {
			continue
		}
		busy, err := m.roster.OverlappingCommitment(ctx, w.ID, gap.Start, gap.End)
		if err != nil {
			m.log.Warnf("gap %s: worker %s commitment check: %v", gap.ID, w.ID, err)
			continue
		}
		if busy {
			continue
		}
		miles, minutes, err := m.travel(ctx, w, clientRef, clientLoc.Coords, mode)
		if err != nil {
			// Missing geodata excludes the worker; anything else is logged
			// and the worker skipped so one bad record cannot sink the call.
			if err != geo.ErrNoCoordinates {
				m.log.Warnf("gap %s: worker %s travel: %v", gap.ID, w.ID, err)
			}
			continue
		}
		radius := w.MaxTravelMiles
		if opts.MaxRadiusMiles > 0 {
			radius = opts.MaxRadiusMiles
		}
		if radius > 0 && miles > radius {
			continue
		}

		weekly, err := m.roster.WeeklyHours(ctx, w.ID, gap.Start)
		if err != nil {
			m.log.Warnf("gap %s: worker %s weekly hours: %v", gap.ID, w.ID, err)
			continue
		}
		var hoursSince float64 = -1
		if end, ok, err := m.roster.LastShiftEnd(ctx, w.ID, gap.Start); err == nil && ok {
			hoursSince = gap.Start.Sub(end).Hours()
		}

		c := model.Candidate{
			Worker:        w,
			Miles:         miles,
			TravelMinutes: minutes,
			WeeklyHours:   weekly,
			HoursSince:    hoursSince,
		}
		c.Score = m.score(c, gap)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Miles < out[j].Miles
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// travel resolves the worker-to-client distance from the cache, computing
// and populating it on a miss.
func (m *Matcher) travel(ctx context.Context, w model.Worker, clientRef model.SubjectRef, clientCoords model.Coordinates, mode model.Mode) (float64, int, error) {
	workerRef := model.SubjectRef{Kind: model.KindWorker, ID: w.ID}
	if e, ok := m.cache.Lookup(workerRef, clientRef); ok {
		return e.Miles, e.Minutes, nil
	}
	loc, err := m.locations.Get(ctx, workerRef)
	if errors.Is(err, store.ErrNotFound) {
		return 0, 0, geo.ErrNoCoordinates
	}
	if err != nil {
		return 0, 0, err
	}
	if !loc.Coords.Valid {
		return 0, 0, geo.ErrNoCoordinates
	}
	miles, err := geo.Distance(loc.Coords, clientCoords)
	if err != nil {
		return 0, 0, err
	}
	minutes := geo.TravelMinutes(miles, mode)
	m.cache.Put(workerRef, clientRef, miles, minutes, m.cacheTTL)
	return miles, minutes, nil
}

// score computes the composite suitability score, clamped to [0, 100].
func (m *Matcher) score(c model.Candidate, gap model.CoverageGap) float64 {
	w := m.cfg.Weights
	score := w.Base

	if bonus := w.DistanceCapMiles - c.Miles; bonus > 0 {
		score += bonus
	}

	switch {
	case c.WeeklyHours < 30:
		score += w.HoursBonusLow
	case c.WeeklyHours < 35:
		score += w.HoursBonusMid
	case c.WeeklyHours < w.OvertimeHours:
		score += w.HoursBonusHigh
	}

	gapHours := gap.End.Sub(gap.Start).Hours()
	if c.WeeklyHours+gapHours > w.OvertimeHours {
		score -= w.OvertimePenalty
	}

	if c.HoursSince >= 0 && c.HoursSince <= w.LocalityWindowHr {
		score += w.LocalityBonus
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
