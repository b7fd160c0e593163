package travelcache

import (
	"testing"
	"time"

	"github.com/serenity-care/dispatch/core/model"
)

func clientRef(id string) model.SubjectRef { return model.SubjectRef{Kind: model.KindClient, ID: id} }
func workerRef(id string) model.SubjectRef { return model.SubjectRef{Kind: model.KindWorker, ID: id} }

func TestPutLookup(t *testing.T) {
	c := New()
	c.Put(workerRef("w1"), clientRef("c1"), 3.2, 8, time.Hour)
	e, ok := c.Lookup(workerRef("w1"), clientRef("c1"))
	if !ok {
		t.Fatalf("expected hit")
	}
	if e.Miles != 3.2 || e.Minutes != 8 {
		t.Fatalf("wrong entry %#v", e)
	}
}

func TestLookupMiss(t *testing.T) {
	c := New()
	if _, ok := c.Lookup(workerRef("w1"), clientRef("c1")); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestLazyExpiry(t *testing.T) {
	c := New()
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put(workerRef("w1"), clientRef("c1"), 1, 3, time.Minute)
	now = now.Add(2 * time.Minute)
	if _, ok := c.Lookup(workerRef("w1"), clientRef("c1")); ok {
		t.Fatalf("expired entry must be a miss")
	}
}

func TestInvalidateEitherEndpoint(t *testing.T) {
	c := New()
	c.Put(workerRef("w1"), clientRef("c1"), 1, 3, time.Hour)
	c.Put(clientRef("c1"), workerRef("w2"), 2, 5, time.Hour)
	c.Put(workerRef("w2"), clientRef("c2"), 4, 10, time.Hour)

	c.Invalidate(clientRef("c1"))

	if _, ok := c.Lookup(workerRef("w1"), clientRef("c1")); ok {
		t.Fatalf("entry with subject as destination must be gone")
	}
	if _, ok := c.Lookup(clientRef("c1"), workerRef("w2")); ok {
		t.Fatalf("entry with subject as origin must be gone")
	}
	if _, ok := c.Lookup(workerRef("w2"), clientRef("c2")); !ok {
		t.Fatalf("unrelated entry must survive")
	}
}

func TestPutReplaces(t *testing.T) {
	c := New()
	c.Put(workerRef("w1"), clientRef("c1"), 1, 3, time.Hour)
	c.Put(workerRef("w1"), clientRef("c1"), 9, 22, time.Hour)
	e, ok := c.Lookup(workerRef("w1"), clientRef("c1"))
	if !ok || e.Miles != 9 || e.Minutes != 22 {
		t.Fatalf("replace failed: %#v ok=%v", e, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
}

func TestSweep(t *testing.T) {
	c := New()
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put(workerRef("w1"), clientRef("c1"), 1, 3, time.Minute)
	c.Put(workerRef("w2"), clientRef("c2"), 1, 3, time.Hour)
	now = now.Add(10 * time.Minute)
	c.sweep()
	if c.Len() != 1 {
		t.Fatalf("sweep kept %d entries, want 1", c.Len())
	}
}

func TestStats(t *testing.T) {
	c := New()
	c.Lookup(workerRef("w1"), clientRef("c1"))
	c.Put(workerRef("w1"), clientRef("c1"), 1, 3, time.Hour)
	c.Lookup(workerRef("w1"), clientRef("c1"))
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats hits=%d misses=%d", hits, misses)
	}
}
