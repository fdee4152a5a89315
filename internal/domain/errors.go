package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport-level error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "dial", "subscribe", "fetch")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// DecodeSizeError reports a raw account buffer whose length does not match
// the fixed slab layout. Never retriable: the account is the wrong kind.
type DecodeSizeError struct {
	Actual   int
	Expected int
}

func (e *DecodeSizeError) Error() string {
	return fmt.Sprintf("book side data length (%d) does not match expected size (%d)", e.Actual, e.Expected)
}

func (e *DecodeSizeError) IsRetriable() bool {
	return false
}

// CorruptTreeError reports a slab whose tree structure is unusable: a child
// index out of range, a node kind that must not be reachable from the root,
// or more visits than allocated slots (a cycle).
type CorruptTreeError struct {
	Index  uint32 // Node index at which corruption was detected
	Reason string
}

func (e *CorruptTreeError) Error() string {
	return fmt.Sprintf("corrupt book tree at node %d: %s", e.Index, e.Reason)
}

func (e *CorruptTreeError) IsRetriable() bool {
	return false
}

var (
	// ErrAccountNotFound is returned when the ledger has no account at the
	// requested address. Fatal at watcher construction time.
	ErrAccountNotFound = errors.New("account not found")

	// ErrConnectionFailed is returned when the websocket connection fails. It's usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
