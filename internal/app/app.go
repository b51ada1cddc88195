// Package app wires the modelundo components into a session: the event
// bus, transaction coordinator, element model, undo manager, command
// table and script engine, configured from file and environment.
package app

import (
	"context"
	"io"
	"sync"
	"time"

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

// Application owns one session and serializes access to it. The undo
// manager and model are single-threaded, so scripts, commands and config
// reloads all run under mu.
type Application struct {
	mu sync.Mutex

	// Core infrastructure
	logger   *logging.Logger
	config   config.Config
	eventBus event.Bus
	metrics  *Metrics

	// Session components
	tx       *transaction.Coordinator
	model    *model.Model
	undo     *undo.Manager
	commands *command.Registry
	script   *script.Engine

	// Live reload
	watcher       *watcher.Watcher
	watcherCancel context.CancelFunc

	subs   *subscriptionManager
	closed bool
	opts   Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty uses
	// defaults and the environment only.
	ConfigPath string

	// LogLevel overrides the configured log level when set.
	LogLevel string

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer

	// Output receives script print output. Defaults to stdout.
	Output io.Writer

	// Watch reloads ConfigPath when it changes.
	Watch bool

	// ScriptTimeout bounds each script run. Zero means no limit.
	ScriptTimeout time.Duration
}

// New creates a new Application with the given options.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:    opts,
		metrics: NewMetrics(),
	}

	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Config returns the configuration currently in effect.
func (app *Application) Config() config.Config {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.config
}

// Logger returns the root logger.
func (app *Application) Logger() *logging.Logger { return app.logger }

// EventBus returns the session bus.
func (app *Application) EventBus() event.Bus { return app.eventBus }

// Model returns the element model.
func (app *Application) Model() *model.Model { return app.model }

// Transactions returns the transaction coordinator.
func (app *Application) Transactions() *transaction.Coordinator { return app.tx }

// UndoManager returns the undo manager.
func (app *Application) UndoManager() *undo.Manager { return app.undo }

// Commands returns the command table.
func (app *Application) Commands() *command.Registry { return app.commands }

// Metrics returns the session metrics.
func (app *Application) Metrics() *Metrics { return app.metrics }

// RunScript runs the Lua script at path against the session.
func (app *Application) RunScript(ctx context.Context, path string) error {
	return app.withSession("run", path, func() error {
		timer := StartTimer()
		defer func() { app.metrics.RecordScript(timer.Elapsed()) }()
		return app.script.DoFile(ctx, path)
	})
}

// RunString runs Lua code against the session.
func (app *Application) RunString(ctx context.Context, code string) error {
	return app.withSession("run", "", func() error {
		timer := StartTimer()
		defer func() { app.metrics.RecordScript(timer.Elapsed()) }()
		return app.script.DoString(ctx, code)
	})
}

// ExecuteCommand runs a named command such as command.EditUndo.
func (app *Application) ExecuteCommand(ctx context.Context, name string) error {
	return app.withSession("command", name, func() error {
		timer := StartTimer()
		defer func() { app.metrics.RecordCommand(timer.Elapsed()) }()
		return app.commands.Execute(ctx, name)
	})
}

// ApplyConfig makes cfg the configuration in effect: the history depth
// and log level are updated in place. The metamodel is fixed for the
// life of the session.
func (app *Application) ApplyConfig(ctx context.Context, cfg config.Config) error {
	return app.withSession("apply config", "", func() error {
		return app.eventBus.Publish(ctx, event.NewEvent(TopicConfigChanged, ConfigChanged{
			Previous: app.config,
			Config:   cfg,
		}, "app"))
	})
}

// Snapshot returns the JSON snapshot of the model.
func (app *Application) Snapshot() ([]byte, error) {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.closed {
		return nil, ErrClosed
	}
	return app.model.Snapshot()
}

func (app *Application) withSession(op, target string, fn func() error) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.closed {
		return NewOperationError(op, target, ErrClosed)
	}
	if err := fn(); err != nil {
		return NewOperationError(op, target, err)
	}
	return nil
}

// Shutdown stops live reload, detaches every subscription and releases
// the script engine. It is safe to call more than once.
func (app *Application) Shutdown() {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return
	}
	app.closed = true
	app.mu.Unlock()

	if app.watcherCancel != nil {
		app.watcherCancel()
	}
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.logger.Warn("closing config watcher: %v", err)
		}
	}
	if app.subs != nil {
		app.subs.cleanup()
	}
	if app.undo != nil {
		app.undo.Close()
	}
	if app.script != nil {
		_ = app.script.Close()
	}

	s := app.metrics.Snapshot()
	app.logger.Debug("shutdown complete: %d transactions, %d mutations, %d events, %d handler errors",
		s.Committed+s.RolledBack, s.TotalMutations(), s.Bus.EventsPublished, s.Bus.HandlerErrors)
}
