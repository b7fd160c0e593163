// Package route plans multi-stop days for a worker using a greedy
// nearest-neighbor tour over cached travel times. It is a heuristic, not an
// optimal TSP solver: O(n²) is fine because daily stop counts are small.
package route

import (
	"context"
	"errors"
	"fmt"

	"github.com/serenity-care/dispatch/core/geo"
	"github.com/serenity-care/dispatch/core/logger"
	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/store"
	"github.com/serenity-care/dispatch/core/travelcache"
)

// Leg is one hop of a tour.
type Leg struct {
	From    model.SubjectRef `json:"from"`
	To      model.SubjectRef `json:"to"`
	Miles   float64          `json:"miles"`
	Minutes int              `json:"minutes"`
}

// Plan compares the original visiting order with the optimized one. Both
// tours start and end at the worker's home location.
type Plan struct {
	WorkerID         string   `json:"worker_id"`
	Original         []string `json:"original"`
	Optimized        []string `json:"optimized"`
	Legs             []Leg    `json:"legs"`
	OriginalMiles    float64  `json:"original_miles"`
	OriginalMinutes  int      `json:"original_minutes"`
	OptimizedMiles   float64  `json:"optimized_miles"`
	OptimizedMinutes int      `json:"optimized_minutes"`
	SavedMiles       float64  `json:"saved_miles"`
	SavedMinutes     int      `json:"saved_minutes"`
}

// Optimizer is a secondary consumer of the distance/travel-time layer, used
// for planning rather than real-time dispatch.
type Optimizer struct {
	locations store.LocationStore
	cache     *travelcache.Cache
	log       logger.Logger
}

// New creates an Optimizer.
func New(locations store.LocationStore, cache *travelcache.Cache, log logger.Logger) (*Optimizer, error) {
	if locations == nil || cache == nil {
		return nil, fmt.Errorf("route: nil collaborator provided to New")
	}
	return &Optimizer{locations: locations, cache: cache, log: log}, nil
}

// Plan computes the nearest-neighbor tour for the worker's day. Any stop
// without geocoded coordinates fails the plan; positions are never guessed.
func (o *Optimizer) Plan(ctx context.Context, workerID string, clientIDs []string, mode model.Mode) (Plan, error) {
	if mode == "" {
		mode = model.ModeDriving
	}
	home := model.SubjectRef{Kind: model.KindWorker, ID: workerID}
	coords := map[model.SubjectRef]model.Coordinates{}

	homeLoc, err := o.locations.Get(ctx, home)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Plan{}, fmt.Errorf("route: worker %s: %w", workerID, err)
	}
	if err != nil || !homeLoc.Coords.Valid {
		return Plan{}, fmt.Errorf("route: worker %s: %w", workerID, geo.ErrNoCoordinates)
	}
	coords[home] = homeLoc.Coords

	refs := make([]model.SubjectRef, 0, len(clientIDs))
	for _, id := range clientIDs {
		ref := model.SubjectRef{Kind: model.KindClient, ID: id}
		loc, err := o.locations.Get(ctx, ref)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Plan{}, fmt.Errorf("route: client %s: %w", id, err)
		}
		if err != nil || !loc.Coords.Valid {
			return Plan{}, fmt.Errorf("route: client %s: %w", id, geo.ErrNoCoordinates)
		}
		coords[ref] = loc.Coords
		refs = append(refs, ref)
	}

	plan := Plan{WorkerID: workerID, Original: append([]string(nil), clientIDs...)}

	origMiles, origMin, origLegs := o.tour(home, refs, coords, mode)
	plan.OriginalMiles = origMiles
	plan.OriginalMinutes = origMin

	// Two or fewer stops admit no reordering gain.
	if len(refs) <= 2 {
		plan.Optimized = plan.Original
		plan.OptimizedMiles = origMiles
		plan.OptimizedMinutes = origMin
		plan.Legs = origLegs
		return plan, nil
	}

	ordered := o.nearestNeighbor(home, refs, coords, mode)
	optMiles, optMin, legs := o.tour(home, ordered, coords, mode)
	plan.Optimized = make([]string, len(ordered))
	for i, r := range ordered {
		plan.Optimized[i] = r.ID
	}
	plan.Legs = legs
	plan.OptimizedMiles = optMiles
	plan.OptimizedMinutes = optMin
	plan.SavedMiles = origMiles - optMiles
	plan.SavedMinutes = origMin - optMin
	return plan, nil
}

// nearestNeighbor greedily picks the closest unvisited stop by travel time.
func (o *Optimizer) nearestNeighbor(home model.SubjectRef, refs []model.SubjectRef, coords map[model.SubjectRef]model.Coordinates, mode model.Mode) []model.SubjectRef {
	remaining := append([]model.SubjectRef(nil), refs...)
	ordered := make([]model.SubjectRef, 0, len(refs))
	cur := home
	for len(remaining) > 0 {
		best := 0
		bestMin := -1
		for i, ref := range remaining {
			_, minutes := o.leg(cur, ref, coords, mode)
			if bestMin < 0 || minutes < bestMin {
				best, bestMin = i, minutes
			}
		}
		cur = remaining[best]
		ordered = append(ordered, cur)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}

// tour totals the home -> stops -> home circuit in the given order.
func (o *Optimizer) tour(home model.SubjectRef, stops []model.SubjectRef, coords map[model.SubjectRef]model.Coordinates, mode model.Mode) (float64, int, []Leg) {
	var (
		miles   float64
		minutes int
		legs    []Leg
	)
	cur := home
	path := append(append([]model.SubjectRef(nil), stops...), home)
	for _, next := range path {
		m, mn := o.leg(cur, next, coords, mode)
		legs = append(legs, Leg{From: cur, To: next, Miles: m, Minutes: mn})
		miles += m
		minutes += mn
		cur = next
	}
	return miles, minutes, legs
}

// leg resolves one hop through the travel cache.
func (o *Optimizer) leg(from, to model.SubjectRef, coords map[model.SubjectRef]model.Coordinates, mode model.Mode) (float64, int) {
	if e, ok := o.cache.Lookup(from, to); ok {
		return e.Miles, e.Minutes
	}
	m, err := geo.Distance(coords[from], coords[to])
	if err != nil {
		// Coordinates were validated up front; this is unreachable in a
		// well-formed plan but degrade to zero rather than panic.
		return 0, 0
	}
	mn := geo.TravelMinutes(m, mode)
	o.cache.Put(from, to, m, mn, travelcache.DefaultTTL)
	return m, mn
}
