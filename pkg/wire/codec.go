// codec.go implements serialization and deserialization of wire messages.
//
// Wire Format:
//
//	+--------+-----------+------------+---------+--------+----------+
//	| Length | RequestID | ResponseTo | Version | OpCode | Body     |
//	| 4B BE  | 4B BE     | 4B BE      | 2B BE   | 2B BE  | Variable |
//	+--------+-----------+------------+---------+--------+----------+
//
// Length is the total message size in bytes, header included.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/corvusdb/corvus-go/internal/constants"
	cerrors "github.com/corvusdb/corvus-go/internal/errors"
)

// Codec reads and writes framed wire messages.
type Codec struct{}

// NewCodec creates a new wire codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode writes a message to w.
func (c *Codec) Encode(w io.Writer, m *Message) error {
	total := constants.HeaderSize + len(m.Body)
	if total > constants.MaxMessageSize {
		return cerrors.ErrMessageTooLarge
	}
	if len(m.Body) == 0 {
		return cerrors.ErrInvalidMessage
	}

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:], uint32(total))
	binary.BigEndian.PutUint32(buf[4:], uint32(m.RequestID))
	binary.BigEndian.PutUint32(buf[8:], 0) // commands respond to nothing
	binary.BigEndian.PutUint16(buf[12:], constants.ProtocolVersion)
	binary.BigEndian.PutUint16(buf[14:], uint16(m.OpCode))
	copy(buf[constants.HeaderSize:], m.Body)

	_, err := w.Write(buf)
	return err
}

// EncodeReply writes a reply to w. Nodes and test fakes use this side of the
// codec; the driver itself only decodes replies.
func (c *Codec) EncodeReply(w io.Writer, r *Reply) error {
	total := constants.HeaderSize + len(r.Body)
	if total > constants.MaxMessageSize {
		return cerrors.ErrMessageTooLarge
	}

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:], uint32(total))
	binary.BigEndian.PutUint32(buf[4:], uint32(r.RequestID))
	binary.BigEndian.PutUint32(buf[8:], uint32(r.ResponseTo))
	binary.BigEndian.PutUint16(buf[12:], constants.ProtocolVersion)
	binary.BigEndian.PutUint16(buf[14:], uint16(OpReply))
	copy(buf[constants.HeaderSize:], r.Body)

	_, err := w.Write(buf)
	return err
}

// Decode reads one reply from r.
func (c *Codec) Decode(r io.Reader) (*Reply, error) {
	header := make([]byte, constants.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	total := binary.BigEndian.Uint32(header[0:4])
	if total > constants.MaxMessageSize {
		return nil, cerrors.ErrMessageTooLarge
	}
	if total < constants.MinMessageSize {
		return nil, cerrors.ErrInvalidMessage
	}

	if version := binary.BigEndian.Uint16(header[12:14]); version != constants.ProtocolVersion {
		return nil, cerrors.ErrUnsupportedVersion
	}

	body := make([]byte, total-constants.HeaderSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	return &Reply{
		RequestID:  int32(binary.BigEndian.Uint32(header[4:8])),
		ResponseTo: int32(binary.BigEndian.Uint32(header[8:12])),
		OpCode:     OpCode(binary.BigEndian.Uint16(header[14:16])),
		Body:       body,
	}, nil
}

// DecodeMessage reads one command message from r. This is the node side of
// the codec, used by test fakes that stand in for a CorvusDB node.
func (c *Codec) DecodeMessage(r io.Reader) (*Message, error) {
	header := make([]byte, constants.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	total := binary.BigEndian.Uint32(header[0:4])
	if total > constants.MaxMessageSize {
		return nil, cerrors.ErrMessageTooLarge
	}
	if total < constants.MinMessageSize {
		return nil, cerrors.ErrInvalidMessage
	}

	if version := binary.BigEndian.Uint16(header[12:14]); version != constants.ProtocolVersion {
		return nil, cerrors.ErrUnsupportedVersion
	}

	body := make([]byte, total-constants.HeaderSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	return &Message{
		RequestID: int32(binary.BigEndian.Uint32(header[4:8])),
		OpCode:    OpCode(binary.BigEndian.Uint16(header[14:16])),
		Body:      body,
	}, nil
}
