package main

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestDebouncerFiresOncePerBurst(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	d := newDebouncer(50 * time.Millisecond)
	defer d.stop()

	// Several events for the same path coalesce into one delivery.
	d.bump("intake/a.yaml")
	d.bump("intake/a.yaml")
	d.bump("intake/a.yaml")

	select {
	case path := <-d.fired:
		if path != "intake/a.yaml" {
			t.Fatalf("fired path = %s", path)
		}
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}

	select {
	case path := <-d.fired:
		t.Fatalf("unexpected second delivery for %s", path)
	case <-time.After(100 * time.Millisecond):
	}
}

// A timer still pending when the watch loop exits must not leave its
// goroutine blocked on delivery.
func TestDebouncerStopReleasesPendingTimers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	d := newDebouncer(time.Millisecond)
	d.bump("intake/a.yaml")
	d.bump("intake/b.yaml")
	d.stop()
}
