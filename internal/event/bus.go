package event

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dshills/modelundo/internal/event/dispatch"
	"github.com/dshills/modelundo/internal/event/topic"
)

// Bus is the event bus interface.
type Bus interface {
	// Publish delivers an event synchronously to every matching handler.
	Publish(ctx context.Context, event any) error

	// Subscribe creates a subscription for a topic pattern.
	Subscribe(topicPattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error)

	// SubscribeFunc is Subscribe for a plain function.
	SubscribeFunc(topicPattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(sub Subscription) error

	// Stats returns delivery statistics.
	Stats() Stats
}

type bus struct {
	registry   *Registry
	dispatcher *dispatch.SyncDispatcher
	config     busConfig

	eventsPublished  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	b := &bus{
		registry: NewRegistry(),
		config:   config,
	}

	// dispatch.PanicHandler has the same shape as ours; log first, then
	// forward to the configured handler.
	panicHandler := func(evt any, recovered any, stack []byte) {
		b.handlerPanics.Add(1)
		b.config.logger.WithComponent("event").Error("handler panic on %s: %v", topicOf(evt), recovered)
		if b.config.panicHandler != nil {
			b.config.panicHandler(evt, recovered, stack)
		}
	}

	b.dispatcher = dispatch.NewSyncDispatcher(
		dispatch.WithPanicHandler(panicHandler),
		dispatch.WithPanicPropagation(config.propagatePanics),
	)
	return b
}

// Publish sends an event synchronously.
// It returns the joined errors of all handlers that failed.
func (b *bus) Publish(ctx context.Context, event any) error {
	eventTopic := topicOf(event)
	if eventTopic == "" {
		return ErrInvalidEvent
	}

	subs := b.registry.Match(eventTopic)
	if len(subs) == 0 {
		return nil
	}
	b.eventsPublished.Add(1)

	var errs []error
	for _, sub := range subs {
		// An earlier handler may have unsubscribed this one.
		if !sub.IsActive() {
			continue
		}

		result := b.dispatcher.Dispatch(ctx, event, sub.Handler())
		b.handlersExecuted.Add(1)

		switch {
		case result.Panicked:
			errs = append(errs, &HandlerError{SubscriptionID: sub.ID(), Topic: string(sub.Topic()), Err: ErrHandlerPanic})
		case result.Error != nil:
			b.handlerErrors.Add(1)
			errs = append(errs, &HandlerError{SubscriptionID: sub.ID(), Topic: string(sub.Topic()), Err: result.Error})
		}
	}

	return errors.Join(errs...)
}

// Subscribe creates a new subscription for the given topic pattern.
func (b *bus) Subscribe(topicPattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !topicPattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := newSubscription(generateID(), topicPattern, handler, opts...)
	b.registry.Add(sub)
	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function handler.
func (b *bus) SubscribeFunc(topicPattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(topicPattern, fn, opts...)
}

// Unsubscribe removes a subscription.
func (b *bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}

	sub.Cancel()
	if !b.registry.Remove(sub.ID()) {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Stats returns current bus statistics.
func (b *bus) Stats() Stats {
	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		HandlersExecuted:  b.handlersExecuted.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: b.registry.CountActive(),
		HandlerTime:       b.dispatcher.Stats().TotalDuration,
	}
}

func topicOf(event any) topic.Topic {
	if tp, ok := event.(TopicProvider); ok {
		return tp.EventTopic()
	}
	return ""
}
