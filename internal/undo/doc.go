// Package undo records model mutations as reversible action stacks and
// replays them for undo and redo.
//
// A Manager listens on the event bus. Between transaction.begin and
// transaction.commit it translates each model mutation into its inverse
// Action and appends it to the open ActionStack. On commit the stack is
// pushed onto the undo history and the redo history is cleared.
//
// Undo pops the newest stack and executes it in reverse inside a new
// transaction. The mutations raised while undoing are recorded by the same
// machinery, and the stack they form becomes the redo entry. Redo works
// the same way in the other direction.
//
// Protocol violations, such as beginning a transaction while one is open,
// panic with a *ProtocolError.
//
// A Manager is not safe for concurrent use. It expects the single logical
// thread the bus delivers on.
package undo
