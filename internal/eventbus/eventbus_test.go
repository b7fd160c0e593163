package eventbus

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish("gap detected")
	v := <-ch
	if v != "gap detected" {
		t.Fatalf("expected event, got %v", v)
	}
	bus.Unsubscribe(ch)
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
}

func TestBusSubscribeAfterClose(t *testing.T) {
	bus := New()
	bus.Close()
	ch := bus.Subscribe()
	if _, ok := <-ch; ok {
		t.Fatalf("subscribe after close must return a closed channel")
	}
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := New()
	bus.Subscribe() // never drained
	for i := 0; i < subBuffer*2; i++ {
		bus.Publish(i)
	}
}
