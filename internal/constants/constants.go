// Package constants defines wire protocol parameters and driver defaults for
// the corvus-go client driver.
package constants

import "time"

// Protocol version and identification
const (
	// ProtocolVersion is the current version of the Corvus wire protocol
	ProtocolVersion uint16 = 0x0001

	// DefaultPort is the port a CorvusDB node listens on by default
	DefaultPort = 27717
)

// Wire Message Parameters
const (
	// HeaderSize is the size of the fixed wire message header in bytes:
	// 4 (length) + 4 (request ID) + 4 (response-to) + 2 (version) + 2 (opcode)
	HeaderSize = 16

	// MaxMessageSize is the maximum size of a single wire message in bytes
	MaxMessageSize = 16 << 20

	// MinMessageSize is the minimum size of a valid wire message
	MinMessageSize = HeaderSize + 2
)

// Heartbeat Parameters
const (
	// HeartbeatInterval is the default period between server probes
	HeartbeatInterval = 5 * time.Second

	// ProbeTimeout is the default deadline applied to a single probe round trip
	ProbeTimeout = 10 * time.Second

	// ProbeCommand is the command name used to learn a node's role and state
	ProbeCommand = "hello"
)

// Pool Defaults
const (
	// DefaultMaxPoolSize is the default maximum number of pooled connections
	DefaultMaxPoolSize = 100

	// DefaultPoolWaitTimeout is how long a lease waits when the pool is exhausted
	DefaultPoolWaitTimeout = 30 * time.Second
)

// Transport Defaults
const (
	// DefaultDialTimeout is the default timeout for establishing connections
	DefaultDialTimeout = 10 * time.Second

	// DefaultReadTimeout is the default read deadline per message
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout is the default write deadline per message
	DefaultWriteTimeout = 30 * time.Second
)

// SCRAM Authentication Parameters (RFC 5802 / RFC 7677)
const (
	// ScramNonceSize is the size of the generated client nonce in bytes
	ScramNonceSize = 18

	// ScramMinIterations is the minimum accepted PBKDF2 iteration count.
	// Servers advertising fewer iterations are rejected as downgrade attempts.
	ScramMinIterations = 4096

	// ScramMechanism is the SASL mechanism name sent during the handshake
	ScramMechanism = "SCRAM-SHA-256"
)
