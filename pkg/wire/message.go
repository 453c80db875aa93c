// Package wire defines the framed message format spoken between the driver
// and a CorvusDB node.
//
// This file (message.go) implements the message flow:
//
//	Driver                                 Node
//	    |                                    |
//	    | -------- Command ----------------> |
//	    |                                    |
//	    | <------- Reply ------------------- |
//
// Every message is a fixed binary header followed by a JSON command document.
package wire

import (
	"encoding/json"
	"sync/atomic"

	"github.com/corvusdb/corvus-go/internal/constants"
	cerrors "github.com/corvusdb/corvus-go/internal/errors"
)

// OpCode identifies the kind of wire message.
type OpCode uint16

// Wire operation codes.
const (
	// OpCommand carries a command document from driver to node.
	OpCommand OpCode = 0x01
	// OpReply carries a node's response to a command.
	OpReply OpCode = 0x02
)

// String returns a human-readable name for the opcode.
func (op OpCode) String() string {
	switch op {
	case OpCommand:
		return "Command"
	case OpReply:
		return "Reply"
	default:
		return "Unknown"
	}
}

// requestCounter issues monotonically increasing request IDs across all
// connections in the process.
var requestCounter atomic.Int32

// NextRequestID returns a fresh request ID.
func NextRequestID() int32 {
	return requestCounter.Add(1)
}

// Message is a command sent from the driver to a node.
type Message struct {
	RequestID int32
	OpCode    OpCode
	Body      json.RawMessage
}

// NewCommand builds a command message from a document. The document must be
// JSON-marshalable; command construction failures surface as ErrInvalidMessage.
func NewCommand(doc any) (*Message, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, cerrors.ErrInvalidMessage
	}
	return &Message{
		RequestID: NextRequestID(),
		OpCode:    OpCommand,
		Body:      body,
	}, nil
}

// Reply is a node's response to a command.
type Reply struct {
	RequestID  int32
	ResponseTo int32
	OpCode     OpCode
	Body       json.RawMessage
}

// Decode unmarshals the reply body into out.
func (r *Reply) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return cerrors.ErrInvalidMessage
	}
	return nil
}

// CommandStatus is the portion of a reply body shared by every command.
type CommandStatus struct {
	OK     int    `json:"ok"`
	ErrMsg string `json:"errmsg,omitempty"`
}

// HelloResult is the reply document of the hello probe command. It is the
// source of a node's cached description.
type HelloResult struct {
	CommandStatus
	Role            string            `json:"role"`
	Hosts           []string          `json:"hosts,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
	MaxMessageSize  int               `json:"maxMessageSizeBytes,omitempty"`
	HeartbeatPeriod int               `json:"heartbeatPeriodMillis,omitempty"`
}

// HelloCommand returns the probe command document.
func HelloCommand() map[string]any {
	return map[string]any{constants.ProbeCommand: 1}
}
