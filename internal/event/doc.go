// Package event provides the synchronous event bus that connects the model,
// the transaction coordinator and the undo manager.
//
// A Bus is an explicitly constructed instance owned by the application
// context; nothing in this package is global. Components receive the bus by
// reference and subscribe to hierarchical topics:
//
//	model.element.created      - an element entered a registry
//	model.association.set      - a single-valued relation changed
//	transaction.commit         - the outermost transaction committed
//	undo.state.changed         - undo/redo availability may have changed
//
// # Wildcard Patterns
//
//	model.*      - matches model.flushed (single segment)
//	model.**     - matches model.element.created, model.a.b.c (multi-segment)
//
// # Delivery
//
// Publish delivers synchronously in the publisher's goroutine and returns
// after every matching handler has run. Delivery is reentrant: handlers may
// publish further events, subscribe or unsubscribe while a publish is in
// progress. Handlers run in priority order; handlers with equal priority
// have no ordering guarantee.
//
// Handler errors are collected and returned from Publish. Handler panics are
// recovered and reported to the panic handler; with WithPanicPropagation the
// panic is re-raised to the publisher after it has been reported.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//
//	sub, err := bus.SubscribeFunc(topic.Topic("model.**"), func(ctx context.Context, evt any) error {
//	    return nil
//	}, event.WithPriority(event.PriorityHigh))
//
//	evt := event.NewEvent(topic.Topic("model.flushed"), payload, "model")
//	if err := bus.Publish(ctx, evt); err != nil {
//	    logger.Error("publish failed: %v", err)
//	}
//
//	bus.Unsubscribe(sub)
package event
