// Package transaction implements the transaction-boundary protocol.
//
// A Coordinator counts nested Begin calls and publishes
// transaction.begin, transaction.commit and transaction.rollback only at
// the outermost level. Rolling back a nested level marks the whole
// transaction rollback-only; the outermost Commit then publishes a
// rollback instead.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/modelundo/internal/event"
	"github.com/dshills/modelundo/internal/event/topic"
	"github.com/dshills/modelundo/internal/logging"
)

// Topics published by the coordinator.
const (
	TopicAll      topic.Topic = "transaction.*"
	TopicBegin    topic.Topic = "transaction.begin"
	TopicCommit   topic.Topic = "transaction.commit"
	TopicRollback topic.Topic = "transaction.rollback"
)

// Begin is published when the outermost transaction opens.
type Begin struct{}

// Commit is published when the outermost transaction commits.
type Commit struct{}

// Rollback is published when the outermost transaction rolls back.
type Rollback struct{}

var (
	// ErrNoTransaction is returned by Commit and Rollback when no
	// transaction is open.
	ErrNoTransaction = errors.New("no transaction in progress")

	// ErrRolledBack is returned by the outermost Commit when a nested
	// level rolled back.
	ErrRolledBack = errors.New("transaction was rolled back")
)

// Error reports a failed coordinator operation.
type Error struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("transaction %s: %s", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Coordinator manages nested transactions on one bus.
type Coordinator struct {
	mu           sync.Mutex
	bus          event.Bus
	logger       *logging.Logger
	depth        int
	rollbackOnly bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a coordinator that publishes on bus.
func New(bus event.Bus, opts ...Option) *Coordinator {
	c := &Coordinator{bus: bus, logger: logging.NullLogger}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("transaction")
	return c
}

// Begin opens a transaction, or a nested level of the open one. If the
// outermost begin cannot be published the level is closed again and a
// rollback is published.
func (c *Coordinator) Begin(ctx context.Context) error {
	c.mu.Lock()
	c.depth++
	outermost := c.depth == 1
	if outermost {
		c.rollbackOnly = false
	}
	c.mu.Unlock()

	if !outermost {
		return nil
	}
	c.logger.Debug("begin")
	if err := c.publish(ctx, "begin", TopicBegin, Begin{}); err != nil {
		c.mu.Lock()
		c.depth--
		c.mu.Unlock()

		// Subscribers that did open on the begin are closed again.
		if rbErr := c.publish(ctx, "begin", TopicRollback, Rollback{}); rbErr != nil {
			c.logger.Warn("rolling back failed begin: %v", rbErr)
		}
		return err
	}
	return nil
}

// Commit closes one level. At the outermost level it publishes commit, or
// rollback if a nested level rolled back, in which case ErrRolledBack is
// returned.
func (c *Coordinator) Commit(ctx context.Context) error {
	c.mu.Lock()
	if c.depth == 0 {
		c.mu.Unlock()
		return &Error{Op: "commit", Err: ErrNoTransaction}
	}
	c.depth--
	outermost := c.depth == 0
	rollback := c.rollbackOnly
	c.mu.Unlock()

	if !outermost {
		return nil
	}
	if rollback {
		c.logger.Debug("commit of rollback-only transaction, rolling back")
		if err := c.publish(ctx, "commit", TopicRollback, Rollback{}); err != nil {
			return err
		}
		return &Error{Op: "commit", Err: ErrRolledBack}
	}
	c.logger.Debug("commit")
	return c.publish(ctx, "commit", TopicCommit, Commit{})
}

// Rollback closes one level. A nested rollback marks the transaction
// rollback-only; the outermost one publishes rollback.
func (c *Coordinator) Rollback(ctx context.Context) error {
	c.mu.Lock()
	if c.depth == 0 {
		c.mu.Unlock()
		return &Error{Op: "rollback", Err: ErrNoTransaction}
	}
	c.depth--
	c.rollbackOnly = true
	outermost := c.depth == 0
	c.mu.Unlock()

	if !outermost {
		return nil
	}
	c.logger.Debug("rollback")
	return c.publish(ctx, "rollback", TopicRollback, Rollback{})
}

// Run executes fn inside a transaction level. It commits when fn returns
// nil and rolls back when fn fails or panics; panics are re-raised after
// the rollback.
func (c *Coordinator) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = c.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := c.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return c.Commit(ctx)
}

// InTransaction reports whether a transaction is open.
func (c *Coordinator) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth > 0
}

// Depth returns the current nesting depth.
func (c *Coordinator) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth
}

func (c *Coordinator) publish(ctx context.Context, op string, t topic.Topic, payload any) error {
	if c.bus == nil {
		return nil
	}
	if err := c.bus.Publish(ctx, event.NewEvent(t, payload, "transaction")); err != nil {
		return &Error{Op: op, Err: err}
	}
	return nil
}
