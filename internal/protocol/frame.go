package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Packet type constants (observed on the wire, both directions)
const (
	TypePing         = 0x18 // keepalive ping from the relay
	TypeStatusUpdate = 0x43 // device status telemetry
	TypeAck          = 0x7B // command acknowledgement
	TypeCommandEcho  = 0x83 // command echoed back by the relay
	TypeBulkStatus   = 0xAB // bulk status, fixed 19-byte records
	TypeKeepalive    = 0xD3 // client keepalive
	TypeKeepaliveAck = 0xD8 // relay acknowledgement of a keepalive
	TypeError        = 0xE0 // relay error, 1-byte code
)

// HeaderSize is the fixed wire header: type byte plus 4-byte big-endian length.
const HeaderSize = 5

// Frame represents one complete unit of the relay wire protocol.
// The payload length always equals the declared Length; a stream that
// delivers fewer bytes than declared is unsynchronized and unusable.
type Frame struct {
	Type    byte
	Length  uint32
	Payload []byte
}

// ReadFrame reads a single frame from the reader.
//
// io.EOF is returned unwrapped when the stream ends cleanly before the
// header, so callers can distinguish end-of-stream from a torn frame.
// A payload shorter than the declared length is a stream error.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	frame := &Frame{
		Type:   header[0],
		Length: binary.BigEndian.Uint32(header[1:5]),
	}

	if frame.Length > 0 {
		payload := make([]byte, frame.Length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("short payload read (declared %d bytes): %w", frame.Length, err)
		}
		frame.Payload = payload
	}

	return frame, nil
}

// Encode serializes the frame for transmission. The length field is
// derived from the payload, never from f.Length.
func (f *Frame) Encode() []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0] = f.Type
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(f.Payload)))
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// KeepaliveFrame returns the fixed 5-byte keepalive frame (type 0xD3,
// zero length) sent every keepalive interval while connected.
func KeepaliveFrame() []byte {
	return []byte{TypeKeepalive, 0x00, 0x00, 0x00, 0x00}
}

// TypeString returns a human-readable name for a packet type
func TypeString(packetType byte) string {
	switch packetType {
	case TypePing:
		return "ping"
	case TypeStatusUpdate:
		return "status"
	case TypeAck:
		return "ack"
	case TypeCommandEcho:
		return "command-echo"
	case TypeBulkStatus:
		return "bulk-status"
	case TypeKeepalive:
		return "keepalive"
	case TypeKeepaliveAck:
		return "keepalive-ack"
	case TypeError:
		return "error"
	default:
		return fmt.Sprintf("unknown(0x%02x)", packetType)
	}
}

// String returns a debug representation of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{type=%s (0x%02x), len=%d}", TypeString(f.Type), f.Type, len(f.Payload))
}
