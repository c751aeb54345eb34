// Package eventbus provides in-process publish/subscribe fan-out for
// connection lifecycle and device status events.
//
// The connection session emits connected/reconnected/disconnected events
// as its state machine moves, and resource-update events carrying decoded
// device status. Integration code subscribes with optional event-type and
// resource-type filters.
//
// # Delivery
//
// Synchronous subscribers are invoked inline during Emit and must not
// block. Async subscribers (SubscribeAsync) get one goroutine per event;
// emission never waits on them and ordering across async subscribers is
// not guaranteed.
//
// # Resource filter semantics
//
// Historically this bus skipped any subscription with a resource filter
// whenever an event carried data, which makes resource-filtered status
// delivery unreachable. That behavior is kept as the default for
// compatibility and is isolated in the shouldDeliver predicate;
// Bus.SetDeliverFiltered(true) switches to delivering those events.
//
// # Usage
//
//	bus := eventbus.New()
//	unsubscribe := bus.Subscribe(func(ev eventbus.Event) {
//	    fmt.Println(ev.Type)
//	}, []eventbus.EventType{eventbus.EventConnected, eventbus.EventDisconnected}, nil)
//	defer unsubscribe()
package eventbus
