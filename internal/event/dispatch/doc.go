// Package dispatch executes event handlers on behalf of the event bus.
//
// Handlers run synchronously in the publisher's goroutine. The Executor
// recovers handler panics, captures the stack and timing, and reports the
// outcome as a Result. The SyncDispatcher adds statistics and an optional
// policy to re-raise panics after they have been reported, which is how
// fatal protocol assertions in handlers reach the caller that published
// the event.
package dispatch
