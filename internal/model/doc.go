// Package model implements the observed object graph that the undo engine
// records against.
//
// A Model is an arena of Elements keyed by ID. Each element belongs to a
// Class from a Metamodel, which declares typed attributes and associations.
// Associations are stored as IDs on both ends; an association may name an
// opposite end, in which case updating one end updates the other.
//
// Every change is published on the event bus as one Mutation:
//
//	model.element.created      ElementCreated
//	model.element.deleted      ElementDeleted
//	model.attribute.changed    AttributeChanged
//	model.association.set      AssociationSet
//	model.association.added    AssociationAdded
//	model.association.deleted  AssociationDeleted
//
// Relation primitives take a Reciprocity argument. UpdateOpposite keeps
// both ends consistent; SuppressOpposite touches only the named end and is
// what undo replays use, since the opposite end has its own recorded event.
//
// Events are published after the model lock is released, so handlers may
// read or mutate the model.
package model
