// Package errors defines the error types used across the corvus-go driver.
// Errors are grouped by the layer they originate from so callers can match
// them with errors.Is without parsing messages.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for connection operations
var (
	// ErrConnClosed indicates an operation was attempted on a closed connection
	ErrConnClosed = errors.New("conn: connection is closed")
)

// Sentinel errors for the per-node server facade
var (
	// ErrServerClosed indicates the server facade has been shut down
	ErrServerClosed = errors.New("server: server is closed")

	// ErrAsyncUnsupported indicates an async connection was requested from a
	// server that was configured without an async connection factory
	ErrAsyncUnsupported = errors.New("server: asynchronous connections not supported")
)

// Sentinel errors for connection pool operations
var (
	// ErrPoolClosed indicates the pool has been closed
	ErrPoolClosed = errors.New("pool: pool is closed")

	// ErrPoolTimeout indicates a pool get operation timed out
	ErrPoolTimeout = errors.New("pool: get timed out")

	// ErrPoolExhausted indicates the pool has no available connections
	ErrPoolExhausted = errors.New("pool: no connections available")
)

// Sentinel errors for the wire protocol
var (
	// ErrInvalidMessage indicates a wire message is malformed
	ErrInvalidMessage = errors.New("wire: invalid message")

	// ErrMessageTooLarge indicates a message exceeds the maximum size
	ErrMessageTooLarge = errors.New("wire: message too large")

	// ErrUnsupportedVersion indicates an unsupported wire protocol version
	ErrUnsupportedVersion = errors.New("wire: unsupported protocol version")

	// ErrCommandFailed indicates the server reported a command failure
	ErrCommandFailed = errors.New("wire: command failed")
)

// Sentinel errors for authentication
var (
	// ErrAuthFailed indicates the SCRAM conversation was rejected by the server
	ErrAuthFailed = errors.New("auth: authentication failed")

	// ErrInvalidCredential indicates a credential is missing or malformed
	ErrInvalidCredential = errors.New("auth: invalid credential")

	// ErrServerSignature indicates the server's final signature did not verify
	ErrServerSignature = errors.New("auth: server signature mismatch")
)

// ConnError wraps a transport-level failure with the operation that failed.
type ConnError struct {
	Op  string // Operation that failed (e.g. "send", "receive")
	Err error  // Underlying error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("conn %s: %v", e.Op, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// NewConnError creates a new ConnError.
func NewConnError(op string, err error) *ConnError {
	return &ConnError{Op: op, Err: err}
}

// ProbeError wraps a heartbeat probe failure with the probed address.
type ProbeError struct {
	Address string // Address of the node being probed
	Err     error  // Underlying error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Address, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// NewProbeError creates a new ProbeError.
func NewProbeError(address string, err error) *ProbeError {
	return &ProbeError{Address: address, Err: err}
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
