package undo

import (
	"errors"
	"fmt"
)

// ErrInvalidDepth is returned for history depths below one.
var ErrInvalidDepth = errors.New("history depth must be at least 1")

// ProtocolError is the panic value for transaction protocol violations.
type ProtocolError struct {
	Op     string
	Reason string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("undo %s: %s", e.Op, e.Reason)
}

func protocolViolation(op, reason string) {
	panic(&ProtocolError{Op: op, Reason: reason})
}
