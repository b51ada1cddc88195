package script

import "errors"

var (
	// ErrEngineClosed is returned when running a script on a closed engine.
	ErrEngineClosed = errors.New("script engine is closed")

	// ErrIncompleteSession is returned by New when a session part is missing.
	ErrIncompleteSession = errors.New("script session is incomplete")
)
