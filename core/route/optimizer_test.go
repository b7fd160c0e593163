package route

import (
	"context"
	"testing"

	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/travelcache"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

type fakeLocations struct {
	locs map[model.SubjectRef]model.Location
}

func (f *fakeLocations) Get(_ context.Context, ref model.SubjectRef) (model.Location, error) {
	return f.locs[ref], nil
}

func (f *fakeLocations) Put(_ context.Context, loc model.Location) error {
	f.locs[loc.Subject] = loc
	return nil
}

func addLoc(f *fakeLocations, kind model.SubjectKind, id string, lat, lon float64) {
	ref := model.SubjectRef{Kind: kind, ID: id}
	f.locs[ref] = model.Location{Subject: ref, Coords: model.NewCoordinates(lat, lon), Active: true}
}

func newOptimizer(t *testing.T, locs *fakeLocations) *Optimizer {
	t.Helper()
	o, err := New(locs, travelcache.New(), nopLogger{})
	if err != nil {
		t.Fatalf("optimizer: %v", err)
	}
	return o
}

func TestPlanTwoStopsUnchanged(t *testing.T) {
	locs := &fakeLocations{locs: map[model.SubjectRef]model.Location{}}
	addLoc(locs, model.KindWorker, "w1", 39.75, -84.19)
	addLoc(locs, model.KindClient, "c1", 39.80, -84.10)
	addLoc(locs, model.KindClient, "c2", 39.70, -84.25)

	plan, err := newOptimizer(t, locs).Plan(context.Background(), "w1", []string{"c1", "c2"}, model.ModeDriving)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Optimized) != 2 || plan.Optimized[0] != "c1" || plan.Optimized[1] != "c2" {
		t.Fatalf("two stops must keep input order, got %v", plan.Optimized)
	}
	if plan.SavedMiles != 0 || plan.SavedMinutes != 0 {
		t.Fatalf("no savings possible for two stops: %v mi %d min", plan.SavedMiles, plan.SavedMinutes)
	}
}

func TestPlanFourStopsNeverWorse(t *testing.T) {
	locs := &fakeLocations{locs: map[model.SubjectRef]model.Location{}}
	addLoc(locs, model.KindWorker, "w1", 39.7589, -84.1916)
	// Deliberately bad input order: far, near, far, near.
	addLoc(locs, model.KindClient, "far1", 39.95, -84.00)
	addLoc(locs, model.KindClient, "near1", 39.76, -84.19)
	addLoc(locs, model.KindClient, "far2", 39.96, -83.99)
	addLoc(locs, model.KindClient, "near2", 39.77, -84.20)

	plan, err := newOptimizer(t, locs).Plan(context.Background(), "w1",
		[]string{"far1", "near1", "far2", "near2"}, model.ModeDriving)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.OptimizedMiles > plan.OriginalMiles {
		t.Fatalf("optimized %v mi worse than original %v mi", plan.OptimizedMiles, plan.OriginalMiles)
	}
	if plan.SavedMiles != plan.OriginalMiles-plan.OptimizedMiles {
		t.Fatalf("savings accounting off: %v", plan.SavedMiles)
	}
	if len(plan.Legs) != 5 { // home -> 4 stops -> home
		t.Fatalf("got %d legs, want 5", len(plan.Legs))
	}
	// Greedy from home must visit one of the near stops first.
	if plan.Optimized[0] != "near1" && plan.Optimized[0] != "near2" {
		t.Fatalf("nearest stop not visited first: %v", plan.Optimized)
	}
}

func TestPlanMissingCoordinates(t *testing.T) {
	locs := &fakeLocations{locs: map[model.SubjectRef]model.Location{}}
	addLoc(locs, model.KindWorker, "w1", 39.75, -84.19)
	addLoc(locs, model.KindClient, "c1", 39.80, -84.10)
	// c2 never geocoded

	if _, err := newOptimizer(t, locs).Plan(context.Background(), "w1", []string{"c1", "c2"}, model.ModeDriving); err == nil {
		t.Fatalf("ungeocoded stop must fail the plan")
	}
}

func TestPlanEmptyDay(t *testing.T) {
	locs := &fakeLocations{locs: map[model.SubjectRef]model.Location{}}
	addLoc(locs, model.KindWorker, "w1", 39.75, -84.19)
	plan, err := newOptimizer(t, locs).Plan(context.Background(), "w1", nil, model.ModeDriving)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.OriginalMiles != 0 || len(plan.Optimized) != 0 {
		t.Fatalf("empty day should be a zero plan: %#v", plan)
	}
}
