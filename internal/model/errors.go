package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an element ID is not in the registry.
	ErrNotFound = errors.New("element not found")

	// ErrExists is returned when restoring an element whose ID is taken.
	ErrExists = errors.New("element already exists")

	// ErrMultiplicity is returned when a single-valued operation is used on a
	// collection end, or the reverse.
	ErrMultiplicity = errors.New("wrong association multiplicity")

	// ErrInvalidMetamodel is returned for metamodel definitions that cannot
	// be resolved.
	ErrInvalidMetamodel = errors.New("invalid metamodel")
)

// UnknownClassError is returned when a class name is not in the metamodel.
type UnknownClassError struct {
	Class string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("unknown class %q", e.Class)
}

// UnknownPropertyError is returned when a class has no property of the
// requested name and kind.
type UnknownPropertyError struct {
	Class    string
	Property string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("class %s has no property %q", e.Class, e.Property)
}

// TypeError is returned when an attribute value has the wrong type.
type TypeError struct {
	Class    string
	Property string
	Want     AttrType
	Got      any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s.%s expects %s, got %T", e.Class, e.Property, e.Want, e.Got)
}

// TargetError is returned when an association target is not an instance of
// the declared target class.
type TargetError struct {
	Property string
	Want     string
	Got      string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("association %s expects %s, got %s", e.Property, e.Want, e.Got)
}

func notFound(id ID) error {
	return fmt.Errorf("%s: %w", id, ErrNotFound)
}
