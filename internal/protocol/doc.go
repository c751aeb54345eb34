// Package protocol implements the Cync cloud relay binary protocol.
//
// This package handles framing, decoding, and construction of the binary
// messages exchanged with the cloud relay that fronts a mesh of switches
// and bulbs. The relay speaks raw framed TCP over TLS; there is no
// higher-level transport layer.
//
// # Wire Frame Format
//
// Every post-login message, in both directions, is one frame:
//   - Packet type: 1 byte
//   - Payload length: 4 bytes (big-endian)
//   - Payload: exactly length bytes
//
// A payload shorter than the declared length means the stream is
// unsynchronized; the only recovery is to drop the connection and
// reconnect.
//
// # Packet Types
//
// Inbound packets form a closed set, each with its own decoder resolved
// through a static dispatch table:
//   - 0x18 ping, 0xD8 keepalive ack: connection liveness, log only
//   - 0x43 status update: device id plus on/off, brightness, white
//     temperature, and RGB fields
//   - 0x7B ack, 0x83 command echo: command feedback
//   - 0xAB bulk status: fixed 19-byte records, layout not yet mapped
//   - 0xE0 error: exactly one error-code byte
//
// Unrecognized types decode to Unknown and are dropped by callers.
//
// # Usage Example - Parsing
//
//	frame, err := protocol.ReadFrame(conn)
//	if err != nil {
//	    return err
//	}
//	msg, err := protocol.Decode(frame)
//	if err != nil {
//	    return err
//	}
//	switch m := msg.(type) {
//	case *protocol.StatusUpdate:
//	    fmt.Printf("device %d on=%v\n", m.DeviceID, m.IsOn)
//	}
//
// # Usage Example - Construction
//
//	inner := protocol.TurnOnPacket(meshID)
//	data := protocol.BuildCommand(protocol.CommandCodeSetState, deviceID, seq, inner)
//	_, err := conn.Write(data)
//
// Outbound commands carry a 26-byte preamble (command code, device id,
// sequence, fixed suffix) followed by a command-specific inner packet
// whose additive checksum the relay verifies.
//
// # Thread Safety
//
// All parsing and construction functions are stateless and safe for
// concurrent use. Sequence numbers are owned by the connection session,
// not this package.
package protocol
