package model

import (
	"context"
	"fmt"
	"slices"
)

// Reciprocity selects whether a relation primitive also updates the
// opposite association end.
type Reciprocity int

const (
	// UpdateOpposite keeps both ends of the association consistent.
	UpdateOpposite Reciprocity = iota

	// SuppressOpposite changes only the named end.
	SuppressOpposite
)

// String returns "update" or "suppress".
func (r Reciprocity) String() string {
	if r == SuppressOpposite {
		return "suppress"
	}
	return "update"
}

// SetRelation points a single-valued end at target, or clears it when
// target is "". Setting the current target is a no-op.
func (m *Model) SetRelation(ctx context.Context, id ID, name string, target ID, r Reciprocity) error {
	e, assoc, err := m.association(id, name, One)
	if err != nil {
		return err
	}
	if target != "" {
		if err := m.checkTarget(assoc, target); err != nil {
			return err
		}
	}

	m.mu.Lock()
	old := e.refs[name]
	if old == target {
		m.mu.Unlock()
		return nil
	}
	if target == "" {
		delete(e.refs, name)
	} else {
		e.refs[name] = target
	}
	m.mu.Unlock()

	m.publish(ctx, AssociationSet{Registry: m, Element: id, Property: name, Old: old, New: target})

	if r == SuppressOpposite || assoc.Opposite == "" {
		return nil
	}
	if old != "" {
		if err := m.detachOpposite(ctx, old, assoc, id); err != nil {
			return err
		}
	}
	if target != "" {
		return m.attachOpposite(ctx, target, assoc, id)
	}
	return nil
}

// AddRelation appends target to a collection end. Adding a target that is
// already present is a no-op.
func (m *Model) AddRelation(ctx context.Context, id ID, name string, target ID, r Reciprocity) error {
	e, assoc, err := m.association(id, name, Many)
	if err != nil {
		return err
	}
	if err := m.checkTarget(assoc, target); err != nil {
		return err
	}

	m.mu.Lock()
	if slices.Contains(e.sets[name], target) {
		m.mu.Unlock()
		return nil
	}
	e.sets[name] = append(e.sets[name], target)
	m.mu.Unlock()

	m.publish(ctx, AssociationAdded{Registry: m, Element: id, Property: name, New: target})

	if r == SuppressOpposite || assoc.Opposite == "" {
		return nil
	}
	return m.attachOpposite(ctx, target, assoc, id)
}

// RemoveRelation removes target from a collection end. Removing an absent
// target is a no-op.
func (m *Model) RemoveRelation(ctx context.Context, id ID, name string, target ID, r Reciprocity) error {
	e, assoc, err := m.association(id, name, Many)
	if err != nil {
		return err
	}

	m.mu.Lock()
	i := slices.Index(e.sets[name], target)
	if i < 0 {
		m.mu.Unlock()
		return nil
	}
	e.sets[name] = slices.Delete(e.sets[name], i, i+1)
	if len(e.sets[name]) == 0 {
		delete(e.sets, name)
	}
	m.mu.Unlock()

	m.publish(ctx, AssociationDeleted{Registry: m, Element: id, Property: name, Old: target})

	if r == SuppressOpposite || assoc.Opposite == "" {
		return nil
	}
	return m.detachOpposite(ctx, target, assoc, id)
}

// Link connects id to target through the named end, whatever its
// multiplicity, updating the opposite end.
func (m *Model) Link(ctx context.Context, id ID, name string, target ID) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	assoc, ok := e.class.Association(name)
	if !ok {
		return &UnknownPropertyError{Class: e.class.Name, Property: name}
	}
	return m.attach(ctx, id, assoc, target)
}

// Unlink disconnects target from the named end, updating the opposite end.
func (m *Model) Unlink(ctx context.Context, id ID, name string, target ID) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	assoc, ok := e.class.Association(name)
	if !ok {
		return &UnknownPropertyError{Class: e.class.Name, Property: name}
	}
	return m.detach(ctx, id, assoc, target)
}

func (m *Model) attach(ctx context.Context, id ID, assoc *Association, target ID) error {
	if assoc.Upper == One {
		return m.SetRelation(ctx, id, assoc.Name, target, UpdateOpposite)
	}
	return m.AddRelation(ctx, id, assoc.Name, target, UpdateOpposite)
}

// detach is idempotent: a single-valued end is only cleared while it still
// points at target, and missing elements are ignored.
func (m *Model) detach(ctx context.Context, id ID, assoc *Association, target ID) error {
	e, ok := m.Get(id)
	if !ok {
		return nil
	}
	if assoc.Upper == One {
		if e.Ref(assoc.Name) != target {
			return nil
		}
		return m.SetRelation(ctx, id, assoc.Name, "", UpdateOpposite)
	}
	return m.RemoveRelation(ctx, id, assoc.Name, target, UpdateOpposite)
}

func (m *Model) attachOpposite(ctx context.Context, other ID, assoc *Association, id ID) error {
	o, err := m.lookup(other)
	if err != nil {
		return err
	}
	opp, ok := o.class.Association(assoc.Opposite)
	if !ok {
		return &UnknownPropertyError{Class: o.class.Name, Property: assoc.Opposite}
	}
	if err := m.attach(ctx, other, opp, id); err != nil {
		return fmt.Errorf("opposite %s.%s: %w", o.class.Name, opp.Name, err)
	}
	return nil
}

func (m *Model) detachOpposite(ctx context.Context, other ID, assoc *Association, id ID) error {
	o, ok := m.Get(other)
	if !ok {
		return nil
	}
	opp, ok := o.class.Association(assoc.Opposite)
	if !ok {
		return nil
	}
	return m.detach(ctx, other, opp, id)
}

func (m *Model) association(id ID, name string, upper Multiplicity) (*Element, *Association, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	assoc, ok := e.class.Association(name)
	if !ok {
		return nil, nil, &UnknownPropertyError{Class: e.class.Name, Property: name}
	}
	if assoc.Upper != upper {
		return nil, nil, fmt.Errorf("%s.%s is %s-valued: %w", e.class.Name, name, assoc.Upper, ErrMultiplicity)
	}
	return e, assoc, nil
}

func (m *Model) checkTarget(assoc *Association, target ID) error {
	t, err := m.lookup(target)
	if err != nil {
		return err
	}
	if !t.class.IsA(assoc.Target) {
		return &TargetError{Property: assoc.Name, Want: assoc.Target, Got: t.class.Name}
	}
	return nil
}
