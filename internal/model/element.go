package model

import "slices"

// ID identifies an element within a model.
type ID string

// Element is one node of the object graph. Its state is owned by the Model
// and only read through the accessors below.
type Element struct {
	id    ID
	class *Class
	seq   uint64
	attrs map[string]any
	refs  map[string]ID
	sets  map[string][]ID
}

func newElement(id ID, class *Class, seq uint64) *Element {
	return &Element{
		id:    id,
		class: class,
		seq:   seq,
		attrs: make(map[string]any),
		refs:  make(map[string]ID),
		sets:  make(map[string][]ID),
	}
}

// ID returns the element ID.
func (e *Element) ID() ID { return e.id }

// Class returns the element's metamodel class.
func (e *Element) Class() *Class { return e.class }

// String returns "Class(id)".
func (e *Element) String() string {
	return e.class.Name + "(" + string(e.id) + ")"
}

// Attr returns the attribute value, or its default when unset.
// It returns nil for names the class does not declare.
func (e *Element) Attr(name string) any {
	if v, ok := e.attrs[name]; ok {
		return v
	}
	if a, ok := e.class.Attribute(name); ok {
		return a.Default
	}
	return nil
}

// Ref returns the target of a single-valued association, or "".
func (e *Element) Ref(name string) ID {
	return e.refs[name]
}

// Refs returns a copy of the targets of a collection association.
func (e *Element) Refs(name string) []ID {
	return slices.Clone(e.sets[name])
}

// Linked reports whether target is referenced through the named end.
func (e *Element) Linked(name string, target ID) bool {
	if e.refs[name] == target && target != "" {
		return true
	}
	return slices.Contains(e.sets[name], target)
}
