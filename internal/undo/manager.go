package undo

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/modelundo/internal/event"
	"github.com/dshills/modelundo/internal/event/topic"
	"github.com/dshills/modelundo/internal/logging"
	"github.com/dshills/modelundo/internal/model"
	"github.com/dshills/modelundo/internal/transaction"
)

// DefaultDepth is the default capacity of each history.
const DefaultDepth = 20

// Manager keeps the undo and redo histories and the open transaction.
type Manager struct {
	bus         event.Bus
	scope       Scope
	logger      *logging.Logger
	depth       int
	undo        []*ActionStack
	redo        []*ActionStack
	current     *ActionStack
	subs        []event.Subscription
	translators map[model.MutationKind]translator
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDepth sets the capacity of each history. Values below one are
// ignored.
func WithDepth(n int) Option {
	return func(m *Manager) {
		if n >= 1 {
			m.depth = n
		}
	}
}

// NewManager creates a manager and subscribes it to transaction
// boundaries and model mutations on bus. Undo and redo replays run inside
// scope, which must publish its boundaries on the same bus.
func NewManager(bus event.Bus, scope Scope, opts ...Option) (*Manager, error) {
	if bus == nil {
		return nil, errors.New("undo: nil bus")
	}
	if scope == nil {
		return nil, errors.New("undo: nil scope")
	}

	m := &Manager{
		bus:         bus,
		scope:       scope,
		logger:      logging.NullLogger,
		depth:       DefaultDepth,
		translators: defaultTranslators(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("undo")

	handlers := []struct {
		topic   topic.Topic
		handler event.HandlerFunc
	}{
		{transaction.TopicBegin, func(ctx context.Context, _ any) error {
			m.BeginTransaction(ctx)
			return nil
		}},
		{transaction.TopicCommit, func(ctx context.Context, _ any) error {
			m.CommitTransaction(ctx)
			return nil
		}},
		{transaction.TopicRollback, func(ctx context.Context, _ any) error {
			m.RollbackTransaction(ctx)
			return nil
		}},
		{model.TopicFlushed, func(ctx context.Context, _ any) error {
			m.Reset(ctx)
			return nil
		}},
		{model.TopicAll, m.handleMutation},
	}

	for _, h := range handlers {
		sub, err := bus.SubscribeFunc(h.topic, h.handler, event.WithPriority(event.PriorityHigh))
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("subscribe %s: %w", h.topic, err)
		}
		m.subs = append(m.subs, sub)
	}

	m.logger.Info("started with depth %d", m.depth)
	return m, nil
}

// Close unsubscribes the manager from the bus.
func (m *Manager) Close() {
	for _, sub := range m.subs {
		_ = m.bus.Unsubscribe(sub)
	}
	m.subs = nil
}

// BeginTransaction opens a new action stack.
func (m *Manager) BeginTransaction(ctx context.Context) {
	m.begin()
	m.publishState(ctx)
}

// CommitTransaction closes the open stack. A non-empty stack is pushed
// onto the undo history and clears the redo history; an empty one is
// dropped.
func (m *Manager) CommitTransaction(ctx context.Context) {
	m.commit()
	m.publishState(ctx)
}

// RollbackTransaction reverts the open stack. The reverting mutations are
// not recorded in either history.
func (m *Manager) RollbackTransaction(ctx context.Context) {
	if m.current == nil {
		protocolViolation("rollback", "no transaction in progress")
	}
	stack := m.current
	m.current = nil

	if stack.CanExecute() {
		undoStash, redoStash := slices.Clone(m.undo), slices.Clone(m.redo)
		func() {
			defer func() {
				m.undo, m.redo = undoStash, redoStash
			}()
			if err := stack.Execute(ctx, m.scope, m.recorder(ctx)); err != nil {
				m.logger.Error("could not roll back transaction: %v", err)
			}
		}()
	}

	m.publishState(ctx)
}

// DiscardTransaction drops the actions recorded so far without executing
// them. The transaction stays open, so changes made after the discard are
// still recorded and its commit or rollback is answered normally.
func (m *Manager) DiscardTransaction(ctx context.Context) {
	m.clearCurrent()
	m.publishState(ctx)
}

// AddUndoAction records an action into the open transaction. It is
// ignored when no transaction is open.
func (m *Manager) AddUndoAction(ctx context.Context, a Action) {
	if m.current == nil || a == nil {
		return
	}
	m.current.Add(a)
	m.publishState(ctx)
}

// Reset clears both histories and the actions of the open transaction.
func (m *Manager) Reset(ctx context.Context) {
	m.undo = nil
	m.redo = nil
	m.clearCurrent()
	m.publishState(ctx)
}

// clearCurrent empties the open stack. The manager keeps recording so the
// coordinator's closing boundary still finds a transaction.
func (m *Manager) clearCurrent() {
	if m.current != nil {
		m.current = NewActionStack(m.logger)
	}
}

// Undo reverts the most recent transaction. It does nothing when the undo
// history is empty.
func (m *Manager) Undo(ctx context.Context) error {
	if len(m.undo) == 0 {
		return nil
	}
	m.settle("undo")

	last := len(m.undo) - 1
	stack := m.undo[last]
	undoStash := slices.Clone(m.undo[:last])
	redoStash := slices.Clone(m.redo)
	m.undo = nil

	var err error
	func() {
		defer func() {
			redone := m.undo
			m.undo = undoStash
			m.redo = trim(append(redoStash, redone...), m.depth)
		}()
		err = m.execute(ctx, stack)
	}()

	m.publishState(ctx)
	return err
}

// Redo reapplies the most recently undone transaction. It does nothing
// when the redo history is empty.
func (m *Manager) Redo(ctx context.Context) error {
	if len(m.redo) == 0 {
		return nil
	}
	m.settle("redo")
	if len(m.redo) == 0 {
		m.publishState(ctx)
		return nil
	}

	last := len(m.redo) - 1
	stack := m.redo[last]
	m.redo = m.redo[:last]
	redoStash := slices.Clone(m.redo)

	var err error
	func() {
		defer func() { m.redo = redoStash }()
		err = m.execute(ctx, stack)
	}()

	m.publishState(ctx)
	return err
}

// SetDepth changes the capacity of both histories, evicting the oldest
// entries if they no longer fit.
func (m *Manager) SetDepth(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, n)
	}
	if n == m.depth {
		return nil
	}
	m.depth = n
	m.undo = trim(m.undo, n)
	m.redo = trim(m.redo, n)
	m.logger.Info("history depth set to %d", n)
	m.publishState(ctx)
	return nil
}

// Depth returns the capacity of each history.
func (m *Manager) Depth() int { return m.depth }

// CanUndo reports whether a transaction is open or the undo history is
// non-empty.
func (m *Manager) CanUndo() bool {
	return m.current != nil || len(m.undo) > 0
}

// CanRedo reports whether the redo history is non-empty.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// InTransaction reports whether a transaction is open.
func (m *Manager) InTransaction() bool { return m.current != nil }

// UndoCount returns the number of undoable transactions.
func (m *Manager) UndoCount() int { return len(m.undo) }

// RedoCount returns the number of redoable transactions.
func (m *Manager) RedoCount() int { return len(m.redo) }

// PeekUndo returns the action descriptions of the next undo entry.
func (m *Manager) PeekUndo() []string {
	if len(m.undo) == 0 {
		return nil
	}
	return m.undo[len(m.undo)-1].Descriptions()
}

// PeekRedo returns the action descriptions of the next redo entry.
func (m *Manager) PeekRedo() []string {
	if len(m.redo) == 0 {
		return nil
	}
	return m.redo[len(m.redo)-1].Descriptions()
}

func (m *Manager) begin() {
	if m.current != nil {
		protocolViolation("begin", "transaction already in progress")
	}
	m.current = NewActionStack(m.logger)
}

func (m *Manager) commit() {
	if m.current == nil {
		protocolViolation("commit", "no transaction in progress")
	}
	if m.current.CanExecute() {
		m.redo = nil
		m.undo = trim(append(m.undo, m.current), m.depth)
	}
	m.current = nil
}

// settle commits a transaction left open by the caller before a replay.
func (m *Manager) settle(op string) {
	if m.current == nil {
		return
	}
	m.logger.Warn("%s requested while in a transaction, committing it first", op)
	m.commit()
}

// execute replays stack. When the scope already has a transaction open it
// will not publish boundaries for the nested replay, so the manager opens
// and commits the recording stack itself and then reopens an empty one for
// the enclosing transaction.
func (m *Manager) execute(ctx context.Context, stack *ActionStack) error {
	nested := m.scopeOpen()
	if nested {
		m.begin()
	}
	err := stack.Execute(ctx, m.scope, m.recorder(ctx))
	if nested {
		m.commit()
		m.begin()
	}
	return err
}

func (m *Manager) scopeOpen() bool {
	if s, ok := m.scope.(interface{ InTransaction() bool }); ok {
		return s.InTransaction()
	}
	return false
}

func (m *Manager) recorder(ctx context.Context) func(Action) {
	return func(a Action) { m.AddUndoAction(ctx, a) }
}

func trim(stacks []*ActionStack, depth int) []*ActionStack {
	if len(stacks) <= depth {
		return stacks
	}
	return slices.Clone(stacks[len(stacks)-depth:])
}
