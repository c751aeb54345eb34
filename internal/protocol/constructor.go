package protocol

import (
	"encoding/binary"
	"fmt"
)

// Command constructor library for building outbound frames to send to the
// cloud relay. Constants were captured from live traffic against mesh
// switches and bulbs.

// CommandCodeSize is the length of the command code that opens every
// outbound command preamble.
const CommandCodeSize = 5

// CommandCodeSetState is the command code for on/off state changes.
var CommandCodeSetState = [CommandCodeSize]byte{0x73, 0x00, 0x00, 0x00, 0x1f}

// commandSuffix is the fixed tail of every command preamble. The relay
// rejects frames without it byte-for-byte.
var commandSuffix = []byte{
	0x00, 0x7e, 0x00, 0x00, 0x00, 0x00, 0xf8, 0xd0,
	0x0d, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// PreambleSize is the total preamble length:
// command code + device id + sequence + fixed suffix.
const PreambleSize = CommandCodeSize + 4 + 2 + 15

// Inner packet bodies and checksum bases for the on/off commands. The
// checksum is an additive guard over the two mesh id bytes against the
// per-command base, modulo 256.
var (
	innerBodyOn  = []byte{0xd0, 0x00, 0x00, 0x01, 0x00, 0x00}
	innerBodyOff = []byte{0xd0, 0x00, 0x00, 0x00, 0x00, 0x00}
)

const (
	checksumBaseOn  = 430
	checksumBaseOff = 429
	innerTerminator = 0x7e
)

// BuildCommand assembles a complete outbound command:
//
//	[0:5]   command code
//	[5:9]   device id (big-endian uint32)
//	[9:11]  sequence (big-endian uint16)
//	[11:26] fixed suffix
//	[26:]   command-specific inner packet
//
// The sequence number is owned by the session; this function only
// serializes it.
func BuildCommand(code [CommandCodeSize]byte, deviceID uint32, seq uint16, inner []byte) []byte {
	buf := make([]byte, PreambleSize+len(inner))
	copy(buf[0:CommandCodeSize], code[:])
	binary.BigEndian.PutUint32(buf[CommandCodeSize:CommandCodeSize+4], deviceID)
	binary.BigEndian.PutUint16(buf[CommandCodeSize+4:CommandCodeSize+6], seq)
	copy(buf[CommandCodeSize+6:PreambleSize], commandSuffix)
	copy(buf[PreambleSize:], inner)
	return buf
}

// TurnOnPacket builds the inner packet for a turn-on command:
// mesh id, fixed on body, additive checksum, terminator.
func TurnOnPacket(meshID [2]byte) []byte {
	return innerPacket(meshID, innerBodyOn, checksumBaseOn)
}

// TurnOffPacket builds the inner packet for a turn-off command.
func TurnOffPacket(meshID [2]byte) []byte {
	return innerPacket(meshID, innerBodyOff, checksumBaseOff)
}

func innerPacket(meshID [2]byte, body []byte, checksumBase int) []byte {
	packet := make([]byte, 0, 2+len(body)+2)
	packet = append(packet, meshID[0], meshID[1])
	packet = append(packet, body...)
	packet = append(packet, innerChecksum(checksumBase, meshID))
	packet = append(packet, innerTerminator)
	return packet
}

// innerChecksum computes the additive checksum over the mesh id bytes.
// The relay recomputes this exact sum and rejects mismatches.
func innerChecksum(base int, meshID [2]byte) byte {
	return byte((base + int(meshID[0]) + int(meshID[1])) % 256)
}

// Command is the decoded form of an outbound command, used for
// round-trip verification and traffic analysis.
type Command struct {
	Code     [CommandCodeSize]byte
	DeviceID uint32
	Seq      uint16
	Suffix   []byte
	Inner    []byte
}

// ParseCommand decodes bytes produced by BuildCommand back into their
// preamble fields and inner packet.
func ParseCommand(data []byte) (*Command, error) {
	if len(data) < PreambleSize {
		return nil, fmt.Errorf("command too short: %d bytes (minimum %d)", len(data), PreambleSize)
	}

	cmd := &Command{
		DeviceID: binary.BigEndian.Uint32(data[CommandCodeSize : CommandCodeSize+4]),
		Seq:      binary.BigEndian.Uint16(data[CommandCodeSize+4 : CommandCodeSize+6]),
		Suffix:   data[CommandCodeSize+6 : PreambleSize],
	}
	copy(cmd.Code[:], data[0:CommandCodeSize])

	if len(data) > PreambleSize {
		cmd.Inner = data[PreambleSize:]
	}

	return cmd, nil
}

func (c *Command) String() string {
	return fmt.Sprintf("Command{code=% x, device=%d, seq=%d, inner=%d bytes}",
		c.Code[:], c.DeviceID, c.Seq, len(c.Inner))
}
