package orchestrator

import (
	"testing"
)

func TestEmitterDeliversEvents(t *testing.T) {
	e := NewEventEmitter(10)
	defer e.Close()

	e.Emit(Event{Type: EventRequestSubmitted, RequestID: "r1"})

	ev := <-e.Events()
	if ev.Type != EventRequestSubmitted || ev.RequestID != "r1" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Error("Emit should stamp events")
	}
}

func TestEmitterDropsWhenFull(t *testing.T) {
	e := NewEventEmitter(1)
	defer e.Close()

	e.Emit(Event{Type: EventAgentProgress})
	// Second emit cannot be delivered; it should drop after the timeout
	// rather than blocking forever.
	e.Emit(Event{Type: EventAgentProgress})

	if e.DroppedCount() != 1 {
		t.Errorf("expected 1 dropped event, got %d", e.DroppedCount())
	}
}
