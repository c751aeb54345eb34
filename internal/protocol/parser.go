package protocol

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// Minimum payload sizes enforced by the decoders
const (
	minStatusUpdateSize = 17 // device id + 7 reserved + 6 status bytes
	minAckSize          = 6  // device id + ack code
	minCommandEchoSize  = 4  // device id
	errorPayloadSize    = 1  // exactly one error code byte
	bulkRecordSize      = 19 // fixed record width in bulk status payloads
)

// Message is one decoded inbound packet.
type Message interface {
	Type() byte
	String() string
}

// Ping (0x18) is a keepalive ping from the relay. The payload carries no
// known structure and is only logged.
type Ping struct {
	Data []byte
}

func (m *Ping) Type() byte { return TypePing }

func (m *Ping) String() string {
	return fmt.Sprintf("Ping{len=%d}", len(m.Data))
}

// StatusUpdate (0x43) is decoded device telemetry.
// Bytes [17:] of the payload are an opaque trailer the relay appends;
// it is preserved for logging but not interpreted.
type StatusUpdate struct {
	DeviceID   uint32
	IsOn       bool
	Brightness byte
	WhiteTemp  byte
	RGB        [3]byte
	Trailer    []byte
}

func (m *StatusUpdate) Type() byte { return TypeStatusUpdate }

// DeviceIDString returns the device id in the decimal string form used
// throughout discovery records and callbacks.
func (m *StatusUpdate) DeviceIDString() string {
	return strconv.FormatUint(uint64(m.DeviceID), 10)
}

func (m *StatusUpdate) String() string {
	return fmt.Sprintf("StatusUpdate{device=%d, on=%v, bri=0x%02x, temp=0x%02x, rgb=%02x%02x%02x}",
		m.DeviceID, m.IsOn, m.Brightness, m.WhiteTemp, m.RGB[0], m.RGB[1], m.RGB[2])
}

// Ack (0x7B) acknowledges an outbound command.
type Ack struct {
	DeviceID uint32
	Code     uint16
}

func (m *Ack) Type() byte { return TypeAck }

func (m *Ack) String() string {
	return fmt.Sprintf("Ack{device=%d, code=%d}", m.DeviceID, m.Code)
}

// CommandEcho (0x83) is a command the relay echoes back about a device.
type CommandEcho struct {
	DeviceID uint32
	Raw      []byte
}

func (m *CommandEcho) Type() byte { return TypeCommandEcho }

func (m *CommandEcho) String() string {
	return fmt.Sprintf("CommandEcho{device=%d, len=%d}", m.DeviceID, len(m.Raw))
}

// BulkStatus (0xAB) carries fixed-width 19-byte records. The record
// layout has not been mapped, so only the raw payload is retained.
type BulkStatus struct {
	Raw []byte
}

func (m *BulkStatus) Type() byte { return TypeBulkStatus }

// Remainder returns the payload length modulo the record width. A
// non-zero remainder indicates a payload that is not a whole number of
// records.
func (m *BulkStatus) Remainder() int {
	return len(m.Raw) % bulkRecordSize
}

func (m *BulkStatus) String() string {
	return fmt.Sprintf("BulkStatus{len=%d, remainder=%d}", len(m.Raw), m.Remainder())
}

// ErrorCode (0xE0) is a relay error report.
type ErrorCode struct {
	Code byte
}

func (m *ErrorCode) Type() byte { return TypeError }

func (m *ErrorCode) String() string {
	return fmt.Sprintf("ErrorCode{code=0x%02x (%d)}", m.Code, m.Code)
}

// KeepaliveAck (0xD8) acknowledges a client keepalive.
type KeepaliveAck struct {
	Length int
}

func (m *KeepaliveAck) Type() byte { return TypeKeepaliveAck }

func (m *KeepaliveAck) String() string {
	return fmt.Sprintf("KeepaliveAck{len=%d}", m.Length)
}

// Unknown is the fallback for unrecognized packet types. These are
// logged and dropped without tearing down the stream.
type Unknown struct {
	PacketType byte
	Data       []byte
}

func (m *Unknown) Type() byte { return m.PacketType }

func (m *Unknown) String() string {
	return fmt.Sprintf("Unknown{type=0x%02x, len=%d}", m.PacketType, len(m.Data))
}

// decoderFunc decodes one packet type's payload
type decoderFunc func(payload []byte) (Message, error)

// decoders is the static dispatch table for the closed set of known
// packet types. Types absent from the table decode to *Unknown.
var decoders = map[byte]decoderFunc{
	TypePing:         decodePing,
	TypeStatusUpdate: decodeStatusUpdate,
	TypeAck:          decodeAck,
	TypeCommandEcho:  decodeCommandEcho,
	TypeBulkStatus:   decodeBulkStatus,
	TypeError:        decodeErrorCode,
	TypeKeepaliveAck: decodeKeepaliveAck,
}

// Decode resolves a frame to its decoded message through the dispatch
// table. Unrecognized types never error; malformed payloads for known
// types do, because the stream can no longer be trusted.
func Decode(f *Frame) (Message, error) {
	if decode, ok := decoders[f.Type]; ok {
		return decode(f.Payload)
	}
	return &Unknown{PacketType: f.Type, Data: f.Payload}, nil
}

func decodePing(payload []byte) (Message, error) {
	return &Ping{Data: payload}, nil
}

// decodeStatusUpdate decodes a 0x43 telemetry payload:
//
//	[0:4]   device id (big-endian uint32)
//	[4:11]  reserved
//	[11]    on/off flag
//	[12]    brightness
//	[13]    white temperature
//	[14:17] red, green, blue
//	[17:]   opaque trailer
func decodeStatusUpdate(payload []byte) (Message, error) {
	if len(payload) < minStatusUpdateSize {
		return nil, fmt.Errorf("status update payload too short: %d bytes (minimum %d)", len(payload), minStatusUpdateSize)
	}

	msg := &StatusUpdate{
		DeviceID:   binary.BigEndian.Uint32(payload[0:4]),
		IsOn:       payload[11] != 0,
		Brightness: payload[12],
		WhiteTemp:  payload[13],
		RGB:        [3]byte{payload[14], payload[15], payload[16]},
	}

	if len(payload) > minStatusUpdateSize {
		msg.Trailer = payload[minStatusUpdateSize:]
	}

	return msg, nil
}

func decodeAck(payload []byte) (Message, error) {
	if len(payload) < minAckSize {
		return nil, fmt.Errorf("ack payload too short: %d bytes (minimum %d)", len(payload), minAckSize)
	}

	return &Ack{
		DeviceID: binary.BigEndian.Uint32(payload[0:4]),
		Code:     binary.BigEndian.Uint16(payload[4:6]),
	}, nil
}

func decodeCommandEcho(payload []byte) (Message, error) {
	if len(payload) < minCommandEchoSize {
		return nil, fmt.Errorf("command echo payload too short: %d bytes (minimum %d)", len(payload), minCommandEchoSize)
	}

	return &CommandEcho{
		DeviceID: binary.BigEndian.Uint32(payload[0:4]),
		Raw:      payload,
	}, nil
}

func decodeBulkStatus(payload []byte) (Message, error) {
	return &BulkStatus{Raw: payload}, nil
}

func decodeErrorCode(payload []byte) (Message, error) {
	if len(payload) != errorPayloadSize {
		return nil, fmt.Errorf("error payload must be exactly %d byte, got %d", errorPayloadSize, len(payload))
	}

	return &ErrorCode{Code: payload[0]}, nil
}

func decodeKeepaliveAck(payload []byte) (Message, error) {
	return &KeepaliveAck{Length: len(payload)}, nil
}
