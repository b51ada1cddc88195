package command

import (
	"context"

	"github.com/dshills/modelundo/internal/event"
	"github.com/dshills/modelundo/internal/undo"
)

// Names of the history commands.
const (
	EditUndo = "edit-undo"
	EditRedo = "edit-redo"
)

// History is the part of the undo manager the history commands drive.
type History interface {
	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
	CanUndo() bool
	CanRedo() bool
}

// RegisterHistory adds edit-undo and edit-redo for h and keeps their
// enabled state in step with undo.state.changed on bus. The returned
// subscription stops the refresh when cancelled.
func RegisterHistory(r *Registry, bus event.Bus, h History) (event.Subscription, error) {
	cmds := []Command{
		{Name: EditUndo, Label: "Undo", Accel: "<Primary>z", Handler: h.Undo, Sensitive: h.CanUndo},
		{Name: EditRedo, Label: "Redo", Accel: "<Primary>y", Handler: h.Redo, Sensitive: h.CanRedo},
	}
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			return nil, err
		}
	}

	return bus.SubscribeFunc(undo.TopicStateChanged, func(context.Context, any) error {
		r.Refresh()
		return nil
	}, event.WithPriority(event.PriorityLow))
}
