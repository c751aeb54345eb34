package eventbus

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies bus events.
type EventType string

const (
	EventConnected       EventType = "connected"
	EventReconnected     EventType = "reconnected"
	EventDisconnected    EventType = "disconnected"
	EventResourceAdded   EventType = "add"
	EventResourceUpdated EventType = "update"
)

// ResourceType classifies the resource an event is about. The relay does
// not tag resources yet, so only the unknown type exists.
type ResourceType string

// ResourceUnknown is the only resource type currently observed.
const ResourceUnknown ResourceType = "unknown"

// Event is the record delivered to subscribers.
type Event struct {
	ID           string // UUID
	CreationTime time.Time
	Type         EventType
	Data         any // nil for pure lifecycle events
}

// Callback receives events for a subscription. Synchronous callbacks run
// inline on the emitter's goroutine and must not block.
type Callback func(Event)

type subscription struct {
	callback  Callback
	events    []EventType    // nil matches every event type
	resources []ResourceType // nil means no resource filter
	async     bool
}

// Bus is an in-process publish/subscribe fan-out for connection
// lifecycle and device events.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int

	// deliverFiltered controls the resource-filter clause of
	// shouldDeliver. See SetDeliverFiltered.
	deliverFiltered bool
}

// New creates an empty bus with the legacy filter behavior.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// SetDeliverFiltered switches the resource-filter semantics. The default
// (false) keeps the legacy behavior where any event carrying data is
// suppressed for subscriptions that declare a resource filter, which
// makes resource-filtered status delivery unreachable. Enabling it
// delivers those events instead.
func (b *Bus) SetDeliverFiltered(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliverFiltered = on
}

// Subscribe registers a synchronous callback. A nil eventFilter matches
// all event types; a nil resourceFilter declares no resource filter.
// The returned function removes the subscription.
func (b *Bus) Subscribe(cb Callback, eventFilter []EventType, resourceFilter []ResourceType) func() {
	return b.add(&subscription{callback: cb, events: eventFilter, resources: resourceFilter})
}

// SubscribeAsync registers a callback that is scheduled on its own
// goroutine per event, so emission never blocks on subscriber work.
// Ordering across async subscribers is not guaranteed.
func (b *Bus) SubscribeAsync(cb Callback, eventFilter []EventType, resourceFilter []ResourceType) func() {
	return b.add(&subscription{callback: cb, events: eventFilter, resources: resourceFilter, async: true})
}

func (b *Bus) add(sub *subscription) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Emit delivers an event to every matching subscription. The event gets
// a fresh UUID and creation time.
func (b *Bus) Emit(etype EventType, data any) {
	event := Event{
		ID:           uuid.NewString(),
		CreationTime: time.Now(),
		Type:         etype,
		Data:         data,
	}

	b.mu.RLock()
	matched := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if shouldDeliver(sub, etype, data, b.deliverFiltered) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		if sub.async {
			go sub.callback(event)
		} else {
			sub.callback(event)
		}
	}
}

// shouldDeliver decides whether a subscription receives an event.
//
// The event-type clause is straightforward: a subscription with an event
// filter only sees listed types. The resource clause depends on
// deliverFiltered; when false, an event that carries data is skipped
// entirely for any subscription declaring a resource filter.
func shouldDeliver(sub *subscription, etype EventType, data any, deliverFiltered bool) bool {
	if sub.events != nil && !containsEvent(sub.events, etype) {
		return false
	}
	if !deliverFiltered && data != nil && sub.resources != nil {
		return false
	}
	return true
}

func containsEvent(filter []EventType, etype EventType) bool {
	for _, e := range filter {
		if e == etype {
			return true
		}
	}
	return false
}
