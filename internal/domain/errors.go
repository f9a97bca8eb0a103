// Package domain contains domain errors used throughout the broker.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrConnClosed is reported when a read returns zero bytes: the peer
	// closed its side, so the connection is treated as a broken pipe.
	ErrConnClosed = errors.New("broken pipe: 0 bytes read")

	ErrRegistryClosed = errors.New("subscription registry channel closed")
	ErrPollerClosed   = errors.New("poller closed")
	ErrUnknownOp      = errors.New("unknown operator")
	ErrMissingKey     = errors.New("message has no topic key")
)

// ConnError represents a connection-fatal I/O error.
type ConnError struct {
	Op  string // "read", "write" or "accept"
	ID  uint64 // Connection id, 0 if not yet assigned
	Err error  // Underlying error
}

func (e *ConnError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("connection #%d %s: %v", e.ID, e.Op, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// NewConnError creates a new ConnError.
func NewConnError(op string, id uint64, err error) *ConnError {
	return &ConnError{
		Op:  op,
		ID:  id,
		Err: err,
	}
}

// IsConnClosed reports whether err means the peer went away.
func IsConnClosed(err error) bool {
	return errors.Is(err, ErrConnClosed)
}
