package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/modelundo/internal/config"
	"github.com/dshills/modelundo/internal/event"
	"github.com/dshills/modelundo/internal/event/topic"
	"github.com/dshills/modelundo/internal/logging"
	"github.com/dshills/modelundo/internal/model"
	"github.com/dshills/modelundo/internal/transaction"
	"github.com/dshills/modelundo/internal/undo"
)

// TopicConfigChanged is published when a new configuration takes effect.
const TopicConfigChanged topic.Topic = "config.changed"

// ConfigChanged is the payload of TopicConfigChanged.
type ConfigChanged struct {
	Previous config.Config
	Config   config.Config
}

// subscriptionManager owns the application's bus subscriptions.
type subscriptionManager struct {
	mu   sync.Mutex
	app  *Application
	subs []event.Subscription
}

func newSubscriptionManager(app *Application) *subscriptionManager {
	return &subscriptionManager{app: app}
}

// setupSubscriptions wires metrics and config changes to the bus.
func (sm *subscriptionManager) setupSubscriptions() error {
	bus := sm.app.eventBus
	metrics := sm.app.metrics

	handlers := []struct {
		topic topic.Topic
		fn    event.HandlerFunc
	}{
		{transaction.TopicBegin, func(context.Context, any) error { metrics.RecordBegin(); return nil }},
		{transaction.TopicCommit, func(context.Context, any) error { metrics.RecordCommit(); return nil }},
		{transaction.TopicRollback, func(context.Context, any) error { metrics.RecordRollback(); return nil }},
		{model.TopicAll, sm.handleMutation},
		{undo.TopicStateChanged, func(context.Context, any) error { metrics.RecordStateChange(); return nil }},
		{TopicConfigChanged, sm.handleConfigChange},
	}

	for _, h := range handlers {
		sub, err := bus.SubscribeFunc(h.topic, h.fn, event.WithPriority(event.PriorityLow))
		if err != nil {
			return err
		}
		sm.addSubscription(sub)
	}
	return nil
}

func (sm *subscriptionManager) addSubscription(sub event.Subscription) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.subs = append(sm.subs, sub)
}

// cleanup unsubscribes everything.
func (sm *subscriptionManager) cleanup() {
	sm.mu.Lock()
	subs := sm.subs
	sm.subs = nil
	sm.mu.Unlock()

	for _, sub := range subs {
		if err := sm.app.eventBus.Unsubscribe(sub); err != nil {
			sm.app.logger.Debug("unsubscribe: %v", err)
		}
	}
}

func (sm *subscriptionManager) handleMutation(_ context.Context, ev any) error {
	if m, ok := event.PayloadAs[model.Mutation](ev); ok {
		sm.app.metrics.RecordMutation(m.Kind())
	}
	return nil
}

// handleConfigChange applies the reloadable settings. Called with the
// application lock held.
func (sm *subscriptionManager) handleConfigChange(ctx context.Context, ev any) error {
	change, ok := event.PayloadAs[ConfigChanged](ev)
	if !ok {
		return nil
	}
	cfg := change.Config
	if sm.app.opts.LogLevel != "" {
		cfg.Log.Level = sm.app.opts.LogLevel
	}
	level, ok := logging.LookupLogLevel(cfg.Log.Level)
	if !ok {
		return fmt.Errorf("%w: unknown log level %q", config.ErrInvalid, cfg.Log.Level)
	}

	if err := sm.app.undo.SetDepth(ctx, cfg.Undo.Depth); err != nil {
		return err
	}
	sm.app.logger.SetLevel(level)
	if cfg.Model.Metamodel != sm.app.config.Model.Metamodel {
		sm.app.logger.Warn("metamodel change to %q takes effect on restart", cfg.Model.Metamodel)
		cfg.Model.Metamodel = sm.app.config.Model.Metamodel
	}
	sm.app.config = cfg
	return nil
}
