package undo

import (
	"context"
	"fmt"

	"github.com/dshills/modelundo/internal/event"
	"github.com/dshills/modelundo/internal/model"
)

// translator builds the inverse of one mutation.
type translator func(mut model.Mutation) Action

func defaultTranslators() map[model.MutationKind]translator {
	return map[model.MutationKind]translator{
		model.KindElementCreated:     undoCreate,
		model.KindElementDeleted:     undoDelete,
		model.KindAttributeChanged:   undoAttribute,
		model.KindAssociationSet:     undoAssociationSet,
		model.KindAssociationAdded:   undoAssociationAdd,
		model.KindAssociationDeleted: undoAssociationDelete,
	}
}

func (m *Manager) handleMutation(ctx context.Context, evt any) error {
	if m.current == nil {
		return nil
	}
	mut, ok := event.Payload(evt).(model.Mutation)
	if !ok || mut.Source() == nil {
		return nil
	}
	tr, ok := m.translators[mut.Kind()]
	if !ok {
		return nil
	}
	m.AddUndoAction(ctx, tr(mut))
	return nil
}

func undoCreate(mut model.Mutation) Action {
	ev := mut.(model.ElementCreated)
	reg, id := ev.Registry, ev.Element.ID()
	return Func(fmt.Sprintf("discard %s", ev.Element), func(ctx context.Context) error {
		return reg.Discard(ctx, id)
	})
}

func undoDelete(mut model.Mutation) Action {
	ev := mut.(model.ElementDeleted)
	reg, elem := ev.Registry, ev.Element
	return Func(fmt.Sprintf("restore %s", elem), func(ctx context.Context) error {
		return reg.Restore(ctx, elem)
	})
}

func undoAttribute(mut model.Mutation) Action {
	ev := mut.(model.AttributeChanged)
	return Func(fmt.Sprintf("set %s.%s = %v", ev.Element, ev.Property, ev.Old), func(ctx context.Context) error {
		return ev.Registry.SetAttribute(ctx, ev.Element, ev.Property, ev.Old)
	})
}

func undoAssociationSet(mut model.Mutation) Action {
	ev := mut.(model.AssociationSet)
	return Func(fmt.Sprintf("set %s.%s -> %q", ev.Element, ev.Property, ev.Old), func(ctx context.Context) error {
		return ev.Registry.SetRelation(ctx, ev.Element, ev.Property, ev.Old, model.SuppressOpposite)
	})
}

func undoAssociationAdd(mut model.Mutation) Action {
	ev := mut.(model.AssociationAdded)
	return Func(fmt.Sprintf("remove %s from %s.%s", ev.New, ev.Element, ev.Property), func(ctx context.Context) error {
		return ev.Registry.RemoveRelation(ctx, ev.Element, ev.Property, ev.New, model.SuppressOpposite)
	})
}

func undoAssociationDelete(mut model.Mutation) Action {
	ev := mut.(model.AssociationDeleted)
	return Func(fmt.Sprintf("add %s to %s.%s", ev.Old, ev.Element, ev.Property), func(ctx context.Context) error {
		return ev.Registry.AddRelation(ctx, ev.Element, ev.Property, ev.Old, model.SuppressOpposite)
	})
}
