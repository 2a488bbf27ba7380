package watcher

import (
	"errors"
	"sync"
)

// Event is the name of a normalized event published by a Watcher.
type Event string

// Events published by a Watcher.
const (
	Added   Event = "added"
	Deleted Event = "deleted"
	Changed Event = "changed"
)

// ErrUnknownEvent is returned when subscribing to an event a Watcher never publishes.
var ErrUnknownEvent = errors.New("unknown event")

// Handler receives the affected file names of an event.
type Handler func(files []string)

// Subscription identifies a registered Handler.
type Subscription uint64

type subscriber struct {
	id Subscription
	fn Handler
}

// emitter maps event names to subscribers, in registration order.
type emitter struct {
	mu     sync.Mutex
	nextID Subscription
	subs   map[Event][]subscriber
}

func validEvent(ev Event) bool {
	switch ev {
	case Added, Deleted, Changed:
		return true
	}

	return false
}

func (e *emitter) subscribe(ev Event, fn Handler) (Subscription, error) {
	if !validEvent(ev) {
		return 0, ErrUnknownEvent
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs == nil {
		e.subs = make(map[Event][]subscriber)
	}

	e.nextID++
	e.subs[ev] = append(e.subs[ev], subscriber{id: e.nextID, fn: fn})

	return e.nextID, nil
}

func (e *emitter) unsubscribe(ev Event, id Subscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.subs[ev]
	for i, s := range list {
		if s.id != id {
			continue
		}

		e.subs[ev] = append(list[:i:i], list[i+1:]...)

		return true
	}

	return false
}

// publish calls all handlers for ev. The list of handlers is copied first, so
// handlers may subscribe or unsubscribe while being called.
func (e *emitter) publish(ev Event, files []string) {
	e.mu.Lock()
	list := make([]subscriber, len(e.subs[ev]))
	copy(list, e.subs[ev])
	e.mu.Unlock()

	for _, s := range list {
		buf := make([]string, len(files))
		copy(buf, files)
		s.fn(buf)
	}
}
