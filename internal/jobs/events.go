package jobs

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"pdf-to-word/internal/domain"
)

// EventType classifies messages emitted while a conversion job runs.
type EventType string

const (
	EventTypeStatus   EventType = "status"
	EventTypeProgress EventType = "progress"
	EventTypeResult   EventType = "result"
	EventTypeError    EventType = "error"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq         int64              `json:"seq"`
	Timestamp   time.Time          `json:"timestamp"`
	JobID       string             `json:"jobId"`
	Type        EventType          `json:"type"`
	Status      domain.JobStatus   `json:"status,omitempty"`
	Message     string             `json:"message,omitempty"`
	Progress    float64            `json:"progress,omitempty"`
	Kind        domain.FailureKind `json:"kind,omitempty"`
	DownloadURL string             `json:"downloadUrl,omitempty"`
	Filename    string             `json:"filename,omitempty"`
}

// EventBus keeps a bounded, sequenced feed of job events for pollers.
// A progress event replaces an immediately preceding progress event of the
// same job, so slow pollers see the latest estimate instead of every tick.
type EventBus struct {
	mu       sync.RWMutex
	seq      int64
	capacity int
	feed     []Event
}

// NewEventBus creates a feed holding at most capacity events (500 when <= 0).
func NewEventBus(capacity int) *EventBus {
	if capacity <= 0 {
		capacity = 500
	}
	return &EventBus{capacity: capacity, feed: make([]Event, 0, capacity)}
}

// Publish stamps event with the next sequence number and appends it.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	event.Seq = b.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if n := len(b.feed); n > 0 && supersedes(event, b.feed[n-1]) {
		b.feed[n-1] = event
		return event
	}
	if len(b.feed) == b.capacity {
		copy(b.feed, b.feed[1:])
		b.feed = b.feed[:len(b.feed)-1]
	}
	b.feed = append(b.feed, event)
	return event
}

func supersedes(next, last Event) bool {
	return next.Type == EventTypeProgress && last.Type == EventTypeProgress && next.JobID == last.JobID
}

// Latest returns the newest sequence number handed out, or 0 before any publish.
func (b *EventBus) Latest() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Since returns retained events with a sequence number above seq, oldest first.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i, _ := slices.BinarySearchFunc(b.feed, seq, func(e Event, target int64) int {
		return cmp.Compare(e.Seq, target+1)
	})
	if i == len(b.feed) {
		return nil
	}
	return slices.Clone(b.feed[i:])
}
