package topic

import (
	"testing"
)

func TestPairFor(t *testing.T) {
	pair := PairFor("ABC123")

	if pair.Request != "c2d/ABC123" {
		t.Errorf("request topic = %q, want %q", pair.Request, "c2d/ABC123")
	}
	if pair.Response != "c2d/ABC123/rsvp" {
		t.Errorf("response topic = %q, want %q", pair.Response, "c2d/ABC123/rsvp")
	}
}

func TestDistinctVehiclesGetDistinctTopics(t *testing.T) {
	a := PairFor("VIN-A")
	b := PairFor("VIN-B")

	if a.Request == b.Request || a.Response == b.Response {
		t.Errorf("distinct vehicles share a topic: %+v vs %+v", a, b)
	}
}

func TestResponseWildcard(t *testing.T) {
	if got := ResponseWildcard(); got != "c2d/+/rsvp" {
		t.Errorf("ResponseWildcard() = %q, want %q", got, "c2d/+/rsvp")
	}
}

func TestEventChannel(t *testing.T) {
	got := EventChannel("host1", "fleet-console", 4242)
	want := "host1/fleet-console/4242/events"
	if got != want {
		t.Errorf("EventChannel() = %q, want %q", got, want)
	}
}

func TestLogFileName(t *testing.T) {
	got := LogFileName("host1/fleet-console/4242/events")
	want := "host1=fleet-console=4242=events"
	if got != want {
		t.Errorf("LogFileName() = %q, want %q", got, want)
	}
}
