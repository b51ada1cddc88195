package app

import (
	"context"
	"os"

	"github.com/dshills/modelundo/internal/command"
	"github.com/dshills/modelundo/internal/config"
	"github.com/dshills/modelundo/internal/config/watcher"
	"github.com/dshills/modelundo/internal/event"
	"github.com/dshills/modelundo/internal/logging"
	"github.com/dshills/modelundo/internal/model"
	"github.com/dshills/modelundo/internal/script"
	"github.com/dshills/modelundo/internal/transaction"
	"github.com/dshills/modelundo/internal/undo"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 8),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initConfig,
		b.initLogger,
		b.initEventBus,
		b.initTransactions,
		b.initUndo,
		b.initModel,
		b.initCommands,
		b.initScript,
		b.initSubscriptions,
		b.initWatcher,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	b.app.logger.Debug("session ready: depth=%d metamodel=%q", b.app.config.Undo.Depth, b.app.config.Model.Metamodel)
	return nil
}

// initConfig loads defaults, the config file and the environment.
func (b *bootstrapper) initConfig() error {
	cfg, err := config.Load(b.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	if b.opts.LogLevel != "" {
		cfg.Log.Level = b.opts.LogLevel
		if err := cfg.Validate(); err != nil {
			return &InitError{Component: "config", Err: err}
		}
	}
	b.app.config = cfg
	return nil
}

// initLogger creates the root logger every component derives from.
func (b *bootstrapper) initLogger() error {
	lc := logging.DefaultLoggerConfig()
	lc.Level = b.app.config.LogLevel()
	lc.Output = b.opts.LogOutput
	if lc.Output == nil {
		lc.Output = os.Stderr
	}
	b.app.logger = logging.NewLogger(lc)
	return nil
}

// initEventBus creates the bus. Handler panics propagate so protocol
// violations in the undo manager reach the caller.
func (b *bootstrapper) initEventBus() error {
	b.app.eventBus = event.NewBus(
		event.WithPanicPropagation(true),
		event.WithLogger(b.app.logger),
	)
	b.app.metrics.ObserveBus(b.app.eventBus)
	b.initOrder = append(b.initOrder, "eventBus")
	return nil
}

func (b *bootstrapper) initTransactions() error {
	b.app.tx = transaction.New(b.app.eventBus, transaction.WithLogger(b.app.logger))
	return nil
}

// initUndo subscribes the undo manager before the model exists, so it
// observes every mutation from the first one.
func (b *bootstrapper) initUndo() error {
	mgr, err := undo.NewManager(b.app.eventBus, b.app.tx,
		undo.WithLogger(b.app.logger),
		undo.WithDepth(b.app.config.Undo.Depth),
	)
	if err != nil {
		return &InitError{Component: "undo", Err: err}
	}
	b.app.undo = mgr
	b.initOrder = append(b.initOrder, "undo")
	return nil
}

func (b *bootstrapper) initModel() error {
	var meta *model.Metamodel
	if path := b.app.config.Model.Metamodel; path != "" {
		var err error
		meta, err = model.LoadMetamodelFile(path)
		if err != nil {
			return &InitError{Component: "model", Err: err}
		}
	}
	b.app.model = model.New(b.app.eventBus, meta, model.WithLogger(b.app.logger))
	return nil
}

func (b *bootstrapper) initCommands() error {
	b.app.commands = command.NewRegistry()
	sub, err := command.RegisterHistory(b.app.commands, b.app.eventBus, b.app.undo)
	if err != nil {
		return &InitError{Component: "commands", Err: err}
	}
	b.app.subs = newSubscriptionManager(b.app)
	b.app.subs.addSubscription(sub)
	b.initOrder = append(b.initOrder, "subscriptions")
	return nil
}

func (b *bootstrapper) initScript() error {
	opts := []script.Option{
		script.WithLogger(b.app.logger.WithComponent("script")),
		script.WithTimeout(b.opts.ScriptTimeout),
	}
	if b.opts.Output != nil {
		opts = append(opts, script.WithOutput(b.opts.Output))
	}
	engine, err := script.New(script.Session{
		Model: b.app.model,
		Tx:    b.app.tx,
		Undo:  b.app.undo,
	}, opts...)
	if err != nil {
		return &InitError{Component: "script", Err: err}
	}
	b.app.script = engine
	b.initOrder = append(b.initOrder, "script")
	return nil
}

func (b *bootstrapper) initSubscriptions() error {
	if err := b.app.subs.setupSubscriptions(); err != nil {
		return &InitError{Component: "subscriptions", Err: err}
	}
	return nil
}

// initWatcher starts live reload when requested.
func (b *bootstrapper) initWatcher() error {
	if !b.opts.Watch {
		return nil
	}
	if b.opts.ConfigPath == "" {
		return &InitError{Component: "watcher", Err: ErrNoConfigFile}
	}

	w, err := watcher.New(b.opts.ConfigPath, watcher.WithLogger(b.app.logger.WithComponent("config")))
	if err != nil {
		return &InitError{Component: "watcher", Err: err}
	}
	w.OnChange(func(cfg config.Config) {
		if err := b.app.ApplyConfig(context.Background(), cfg); err != nil {
			b.app.logger.Warn("applying reloaded config: %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		_ = w.Close()
		return &InitError{Component: "watcher", Err: err}
	}
	b.app.watcher = w
	b.app.watcherCancel = cancel
	b.initOrder = append(b.initOrder, "watcher")
	return nil
}

// cleanup performs cleanup in reverse initialization order.
// Called when bootstrap fails partway through.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

// cleanupComponent cleans up a single component.
func (b *bootstrapper) cleanupComponent(component string) {
	switch component {
	case "watcher":
		b.app.watcherCancel()
		_ = b.app.watcher.Close()
		b.app.watcher = nil
	case "script":
		_ = b.app.script.Close()
		b.app.script = nil
	case "subscriptions":
		b.app.subs.cleanup()
		b.app.subs = nil
	case "undo":
		b.app.undo.Close()
		b.app.undo = nil
	case "eventBus":
		b.app.eventBus = nil
	}
}
