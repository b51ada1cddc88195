package model

import "github.com/dshills/modelundo/internal/event/topic"

// Topics published by the model.
const (
	TopicAll                topic.Topic = "model.**"
	TopicElementCreated     topic.Topic = "model.element.created"
	TopicElementDeleted     topic.Topic = "model.element.deleted"
	TopicAttributeChanged   topic.Topic = "model.attribute.changed"
	TopicAssociationSet     topic.Topic = "model.association.set"
	TopicAssociationAdded   topic.Topic = "model.association.added"
	TopicAssociationDeleted topic.Topic = "model.association.deleted"
	TopicFlushed            topic.Topic = "model.flushed"
)

// MutationKind tags a Mutation variant.
type MutationKind int

const (
	KindElementCreated MutationKind = iota + 1
	KindElementDeleted
	KindAttributeChanged
	KindAssociationSet
	KindAssociationAdded
	KindAssociationDeleted
)

var kindTopics = map[MutationKind]topic.Topic{
	KindElementCreated:     TopicElementCreated,
	KindElementDeleted:     TopicElementDeleted,
	KindAttributeChanged:   TopicAttributeChanged,
	KindAssociationSet:     TopicAssociationSet,
	KindAssociationAdded:   TopicAssociationAdded,
	KindAssociationDeleted: TopicAssociationDeleted,
}

// Topic returns the bus topic for the kind.
func (k MutationKind) Topic() topic.Topic {
	return kindTopics[k]
}

// String returns the topic without its "model." prefix.
func (k MutationKind) String() string {
	t, ok := kindTopics[k]
	if !ok {
		return "unknown"
	}
	return string(t)[len("model."):]
}

// Kinds returns every mutation kind in declaration order.
func Kinds() []MutationKind {
	return []MutationKind{
		KindElementCreated,
		KindElementDeleted,
		KindAttributeChanged,
		KindAssociationSet,
		KindAssociationAdded,
		KindAssociationDeleted,
	}
}

// Mutation is one recorded change to a model.
type Mutation interface {
	Kind() MutationKind

	// Source returns the model that produced the change. It is nil for
	// elements that are not owned by a registry.
	Source() *Model
}

// ElementCreated reports that an element entered the registry.
type ElementCreated struct {
	Registry *Model
	Element  *Element
}

// ElementDeleted reports that an element left the registry.
type ElementDeleted struct {
	Registry *Model
	Element  *Element
}

// AttributeChanged reports an attribute assignment.
type AttributeChanged struct {
	Registry *Model
	Element  ID
	Property string
	Old, New any
}

// AssociationSet reports a change to a single-valued association end.
// An empty ID means no target.
type AssociationSet struct {
	Registry *Model
	Element  ID
	Property string
	Old, New ID
}

// AssociationAdded reports a target appended to a collection end.
type AssociationAdded struct {
	Registry *Model
	Element  ID
	Property string
	New      ID
}

// AssociationDeleted reports a target removed from a collection end.
type AssociationDeleted struct {
	Registry *Model
	Element  ID
	Property string
	Old      ID
}

// Flushed is published when a model drops all of its elements at once.
// It is not a Mutation and is never undoable.
type Flushed struct {
	Registry *Model
}

func (ElementCreated) Kind() MutationKind     { return KindElementCreated }
func (ElementDeleted) Kind() MutationKind     { return KindElementDeleted }
func (AttributeChanged) Kind() MutationKind   { return KindAttributeChanged }
func (AssociationSet) Kind() MutationKind     { return KindAssociationSet }
func (AssociationAdded) Kind() MutationKind   { return KindAssociationAdded }
func (AssociationDeleted) Kind() MutationKind { return KindAssociationDeleted }

func (m ElementCreated) Source() *Model     { return m.Registry }
func (m ElementDeleted) Source() *Model     { return m.Registry }
func (m AttributeChanged) Source() *Model   { return m.Registry }
func (m AssociationSet) Source() *Model     { return m.Registry }
func (m AssociationAdded) Source() *Model   { return m.Registry }
func (m AssociationDeleted) Source() *Model { return m.Registry }
