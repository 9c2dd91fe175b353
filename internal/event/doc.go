// Package event provides a pub-sub event bus that lets the tracker announce
// graph changes without knowing who listens.
//
// # Main Types
//
//   - [Event]: Interface that all events implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub dispatcher, safe for concurrent use
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Request lifecycle:
//   - [RequestCreatedEvent]
//   - [RequestMovedEvent]
//   - [RequestEditedEvent]
//   - [RequestResolvedEvent]
//
// Administrative:
//   - [GraphClearedEvent]
//   - [PersistenceFailedEvent]
//
// # Usage
//
//	bus := event.NewBus(logger)
//	bus.Subscribe(event.TypeRequestResolved, func(e event.Event) {
//		resolved := e.(event.RequestResolvedEvent)
//		...
//	})
//	bus.Publish(event.NewGraphClearedEvent("archive"))
//
// Handlers run synchronously on the publishing goroutine. A handler that
// panics is recovered and logged so the remaining handlers still run.
package event
