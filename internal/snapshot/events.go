package snapshot

import "time"

type EventKind string

const (
	EventSize     EventKind = "size"
	EventChunk    EventKind = "chunk"
	EventRetry    EventKind = "retry"
	EventBulk     EventKind = "bulk"
	EventFallback EventKind = "fallback"
	EventDone     EventKind = "done"
	EventFailed   EventKind = "failed"
)

// Event is a progress notification emitted while a fetch runs.
type Event struct {
	Kind     EventKind
	Strategy string
	Size     int
	Chunk    Chunk
	Attempt  int
	Elapsed  time.Duration
	Err      error
}

type Observer interface {
	Observe(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Observers fans one event out to several observers.
type Observers []Observer

func (o Observers) Observe(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
