package undo

import "context"

// Action is one reversible unit of work.
//
// Apply performs the work. It may return a replacement Action that reverses
// it again; the replacement is recorded into the transaction that is open
// while Apply runs. A nil replacement means the mutations Apply raises are
// recorded instead.
type Action interface {
	Apply(ctx context.Context) (Action, error)
	String() string
}

type funcAction struct {
	desc string
	fn   func(context.Context) error
}

// Func wraps fn as an Action with no replacement.
func Func(desc string, fn func(context.Context) error) Action {
	return &funcAction{desc: desc, fn: fn}
}

func (a *funcAction) Apply(ctx context.Context) (Action, error) {
	return nil, a.fn(ctx)
}

func (a *funcAction) String() string { return a.desc }

type reversible struct {
	desc    string
	do      func(context.Context) error
	inverse func(context.Context) error
}

// Reversible builds an Action for state the model does not observe. Apply
// runs do and returns an Action that runs inverse, whose own replacement
// runs do again.
func Reversible(desc string, do, inverse func(context.Context) error) Action {
	return &reversible{desc: desc, do: do, inverse: inverse}
}

func (a *reversible) Apply(ctx context.Context) (Action, error) {
	if err := a.do(ctx); err != nil {
		return nil, err
	}
	return &reversible{desc: a.desc, do: a.inverse, inverse: a.do}, nil
}

func (a *reversible) String() string { return a.desc }
