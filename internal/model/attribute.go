package model

import "context"

// SetAttribute assigns an attribute. A nil value restores the default.
// Assigning the current value is a no-op and publishes nothing.
func (m *Model) SetAttribute(ctx context.Context, id ID, name string, value any) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	a, ok := e.class.Attribute(name)
	if !ok {
		return &UnknownPropertyError{Class: e.class.Name, Property: name}
	}

	if value == nil {
		value = a.Default
	} else {
		v, ok := coerce(a.Type, value)
		if !ok {
			return &TypeError{Class: e.class.Name, Property: name, Want: a.Type, Got: value}
		}
		value = v
	}

	m.mu.Lock()
	old := e.Attr(name)
	if old == value {
		m.mu.Unlock()
		return nil
	}
	e.attrs[name] = value
	m.mu.Unlock()

	m.publish(ctx, AttributeChanged{Registry: m, Element: id, Property: name, Old: old, New: value})
	return nil
}

// Attribute reads an attribute, returning its default when unset.
func (m *Model) Attribute(id ID, name string) (any, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if _, ok := e.class.Attribute(name); !ok {
		return nil, &UnknownPropertyError{Class: e.class.Name, Property: name}
	}
	return e.Attr(name), nil
}
