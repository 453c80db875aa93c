// Package driver implements the per-node connection and health-management
// core of the corvus-go client: leasable sync/async connection pools, a
// periodic heartbeat that learns the node's role, a cached server
// description, and connection wrappers that invalidate that cache on
// operational failure.
package driver

import (
	"net"
	"strconv"
	"time"

	"github.com/corvusdb/corvus-go/internal/constants"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

// Address identifies a single CorvusDB node.
type Address struct {
	Host string
	Port int
}

// NewAddress parses a "host:port" string, defaulting the port when absent.
func NewAddress(s string) Address {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{Host: s, Port: constants.DefaultPort}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = constants.DefaultPort
	}
	return Address{Host: host, Port: port}
}

// String returns the address in "host:port" form.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Role is a node's reported role within its replica group.
type Role string

// Node roles as reported by the hello probe.
const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
	RoleArbiter   Role = "arbiter"
	RoleUnknown   Role = "unknown"
)

// Description is an immutable snapshot of a node's state from its most
// recent successful probe. An absent description (nil pointer) means the
// node's state is unknown.
type Description struct {
	Address        Address
	Role           Role
	Hosts          []string
	Tags           map[string]string
	MaxMessageSize int
	At             time.Time
}

// newDescription builds a description from a hello reply.
func newDescription(address Address, result *wire.HelloResult) *Description {
	role := Role(result.Role)
	switch role {
	case RolePrimary, RoleSecondary, RoleArbiter:
	default:
		role = RoleUnknown
	}

	maxSize := result.MaxMessageSize
	if maxSize == 0 {
		maxSize = constants.MaxMessageSize
	}

	return &Description{
		Address:        address,
		Role:           role,
		Hosts:          result.Hosts,
		Tags:           result.Tags,
		MaxMessageSize: maxSize,
		At:             time.Now(),
	}
}

// Primary reports whether the node identified itself as the primary.
func (d *Description) Primary() bool {
	return d != nil && d.Role == RolePrimary
}
