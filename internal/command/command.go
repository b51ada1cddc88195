// Package command provides the table of named user commands, each with a
// handler and an enabled flag that is refreshed when the state it depends
// on changes.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Command errors.
var (
	// ErrUnknownCommand indicates no command is registered under the name.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrDisabled indicates the command exists but is currently disabled.
	ErrDisabled = errors.New("command: command is disabled")

	// ErrInvalidCommand indicates a command without a name or handler.
	ErrInvalidCommand = errors.New("command: invalid command")

	// ErrDuplicate indicates a command name is already registered.
	ErrDuplicate = errors.New("command: duplicate command")
)

// Command is one entry of the table.
type Command struct {
	// Name identifies the command, e.g. "edit-undo".
	Name string

	// Label is the human-readable title.
	Label string

	// Accel is the keyboard accelerator, e.g. "<Primary>z".
	Accel string

	// Handler runs the command.
	Handler func(ctx context.Context) error

	// Sensitive reports whether the command may run. A nil Sensitive means
	// always enabled.
	Sensitive func() bool
}

type entry struct {
	cmd     Command
	enabled bool
}

// Registry holds commands by name.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*entry
}

// NewRegistry creates an empty command table.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*entry)}
}

// Register adds a command and evaluates its enabled state.
func (r *Registry) Register(cmd Command) error {
	if cmd.Name == "" || cmd.Handler == nil {
		return ErrInvalidCommand
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, cmd.Name)
	}
	r.commands[cmd.Name] = &entry{cmd: cmd, enabled: sensitive(cmd)}
	return nil
}

// Get returns the command registered under name.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.commands[name]
	if !ok {
		return Command{}, false
	}
	return e.cmd, true
}

// lookup finds a command by name, then by accelerator. Callers hold mu.
func (r *Registry) lookup(key string) (*entry, bool) {
	if e, ok := r.commands[key]; ok {
		return e, true
	}
	if key == "" {
		return nil, false
	}
	for _, e := range r.commands {
		if e.cmd.Accel == key {
			return e, true
		}
	}
	return nil, false
}

// Enabled returns the last evaluated enabled state of a command.
func (r *Registry) Enabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.commands[name]
	return ok && e.enabled
}

// Refresh re-evaluates every command's enabled state.
func (r *Registry) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.commands {
		e.enabled = sensitive(e.cmd)
	}
}

// Execute runs a command if it is enabled. name may also be the
// command's accelerator, e.g. "<Primary>z".
func (r *Registry) Execute(ctx context.Context, name string) error {
	r.mu.RLock()
	e, ok := r.lookup(name)
	var (
		enabled bool
		handler func(context.Context) error
	)
	if ok {
		enabled, handler = e.enabled, e.cmd.Handler
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if !enabled {
		return fmt.Errorf("%w: %s", ErrDisabled, name)
	}
	return handler(ctx)
}

// List returns all command names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sensitive(cmd Command) bool {
	return cmd.Sensitive == nil || cmd.Sensitive()
}
