package vehicle

import (
	"sync"

	"bustrack/internal/model"
)

// Event types published on the vehicle change feed
const (
	EventUpdate = "update"
	EventRemove = "remove"
	EventStatus = "status"
)

// Event is one change notification delivered to observers. Update carries
// the full vehicle; Remove means the position is gone and any visual
// representation must be torn down; Status reports a liveness flip that
// happened purely from wall-clock passage, with no new write.
type Event struct {
	Type      string         `json:"type"`
	VehicleID string         `json:"vehicle_id"`
	Vehicle   *model.Vehicle `json:"vehicle,omitempty"`
	Active    bool           `json:"active"`
}

// Feed fans out vehicle events to subscribers. Subscriptions are
// individually cancellable; after the cancel func returns no further
// events are delivered on that channel.
type Feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Event)}
}

// Subscribe registers a new observer. The returned cancel func is
// idempotent and closes the channel.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan Event, 64)
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber. Slow subscribers with a
// full buffer miss the event rather than blocking the publisher; they
// converge on the next one.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Count returns the number of active subscriptions
func (f *Feed) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
