package jobs

import (
	"testing"

	"pdf-to-word/internal/domain"
)

// TestEventBusSince verifies incremental event reads by sequence.
func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(10)
	bus.Publish(Event{JobID: "job-1", Type: EventTypeStatus, Status: domain.JobStatusSubmitting})
	bus.Publish(Event{JobID: "job-1", Type: EventTypeStatus, Status: domain.JobStatusAwaitingResult})
	bus.Publish(Event{JobID: "job-1", Type: EventTypeProgress, Progress: 12})

	events := bus.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
	if events := bus.Since(3); events != nil {
		t.Fatalf("events after latest = %+v", events)
	}
	if bus.Latest() != 3 {
		t.Fatalf("latest = %d, want 3", bus.Latest())
	}
}

// TestEventBusCoalescesProgress verifies consecutive estimates of one job keep only the newest.
func TestEventBusCoalescesProgress(t *testing.T) {
	bus := NewEventBus(10)
	bus.Publish(Event{JobID: "job-1", Type: EventTypeStatus, Status: domain.JobStatusAwaitingResult})
	bus.Publish(Event{JobID: "job-1", Type: EventTypeProgress, Progress: 12})
	seen := bus.Latest()
	bus.Publish(Event{JobID: "job-1", Type: EventTypeProgress, Progress: 20})
	bus.Publish(Event{JobID: "job-1", Type: EventTypeProgress, Progress: 35})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(events), events)
	}
	if events[1].Progress != 35 || events[1].Seq != 4 {
		t.Fatalf("latest progress = %+v", events[1])
	}

	fresh := bus.Since(seen)
	if len(fresh) != 1 || fresh[0].Progress != 35 {
		t.Fatalf("poller after seq %d got %+v", seen, fresh)
	}

	bus.Publish(Event{JobID: "job-2", Type: EventTypeProgress, Progress: 5})
	if got := len(bus.Since(0)); got != 3 {
		t.Fatalf("progress of another job was merged: len = %d", got)
	}
}

// TestEventBusCapsHistory verifies the oldest events are dropped at capacity.
func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2)
	bus.Publish(Event{Type: EventTypeStatus, Message: "1"})
	bus.Publish(Event{Type: EventTypeStatus, Message: "2"})
	bus.Publish(Event{Type: EventTypeStatus, Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// TestEventBusEmpty verifies reads on an empty bus.
func TestEventBusEmpty(t *testing.T) {
	bus := NewEventBus(0)
	if events := bus.Since(0); events != nil {
		t.Fatalf("events = %+v, want nil", events)
	}
	if bus.Latest() != 0 {
		t.Fatalf("latest = %d", bus.Latest())
	}
}
