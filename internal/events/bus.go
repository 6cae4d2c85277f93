// Package events is the in-process notification bus for assistant events.
package events

import (
	"slices"
	"sync"
	"time"
)

// EventType names a notification. The values are the event types fired on
// the Home Assistant event bus.
type EventType string

const (
	ResponseProduced   EventType = "openai_assistant_response"
	ErrorOccurred      EventType = "openai_assistant_error"
	SuggestionExecuted EventType = "openai_assistant_suggestion_executed"
)

// Event is one notification.
type Event struct {
	Type    EventType
	EntryID string
	Data    map[string]any
	Time    time.Time
}

// Listener handles events. Listeners run on the publisher's goroutine and
// must not block.
type Listener func(Event)

// Bus delivers events to subscribed listeners in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id       int
	types    map[EventType]bool // nil matches every type
	listener Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers listener for the given types, or for every type when
// none are given. The returned func removes the subscription.
func (b *Bus) Subscribe(listener Listener, types ...EventType) (unsubscribe func()) {
	var filter map[EventType]bool
	if len(types) > 0 {
		filter = make(map[EventType]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, types: filter, listener: listener})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
		})
	}
}

// Publish delivers e to every matching listener before returning. A panicking
// listener does not stop delivery to the others.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.types != nil && !s.types[e.Type] {
			continue
		}
		safeInvoke(s.listener, e)
	}
}

func safeInvoke(l Listener, e Event) {
	defer func() { _ = recover() }()
	l(e)
}
