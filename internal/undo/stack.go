package undo

import (
	"context"
	"slices"

	"github.com/dshills/modelundo/internal/logging"
)

// Scope runs a function inside a transaction.
type Scope interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// ActionStack is the recorded form of one transaction. It is append-only
// until it is executed, and it can be executed once.
type ActionStack struct {
	actions  []Action
	executed bool
	logger   *logging.Logger
}

// NewActionStack creates an empty stack.
func NewActionStack(logger *logging.Logger) *ActionStack {
	if logger == nil {
		logger = logging.NullLogger
	}
	return &ActionStack{logger: logger}
}

// Add appends an action.
func (s *ActionStack) Add(a Action) {
	if s.executed {
		protocolViolation("add", "action stack already executed")
	}
	s.actions = append(s.actions, a)
}

// CanExecute reports whether the stack holds actions and has not run.
func (s *ActionStack) CanExecute() bool {
	return len(s.actions) > 0 && !s.executed
}

// Len returns the number of recorded actions.
func (s *ActionStack) Len() int { return len(s.actions) }

// Descriptions returns the action descriptions in recording order.
func (s *ActionStack) Descriptions() []string {
	out := make([]string, len(s.actions))
	for i, a := range s.actions {
		out[i] = a.String()
	}
	return out
}

// Execute runs the actions newest first inside a new scope transaction.
// A failing or panicking action is logged and skipped. Replacement
// actions are passed to record.
func (s *ActionStack) Execute(ctx context.Context, scope Scope, record func(Action)) error {
	if s.executed {
		protocolViolation("execute", "action stack already executed")
	}
	s.executed = true

	actions := slices.Clone(s.actions)
	slices.Reverse(actions)

	return scope.Run(ctx, func(ctx context.Context) error {
		for _, a := range actions {
			s.apply(ctx, a, record)
		}
		return nil
	})
}

func (s *ActionStack) apply(ctx context.Context, a Action, record func(Action)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("error while undoing action %s: panic: %v", a, r)
		}
	}()

	replacement, err := a.Apply(ctx)
	if err != nil {
		s.logger.Error("error while undoing action %s: %v", a, err)
		return
	}
	if replacement != nil && record != nil {
		record(replacement)
	}
}
