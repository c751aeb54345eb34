package protocol

import (
	"bytes"
	"io"
	"testing"
)

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
		verify  func(t *testing.T, frame *Frame)
	}{
		{
			name: "status frame with payload",
			data: append([]byte{
				0x43,                   // status update
				0x00, 0x00, 0x00, 0x03, // 3 byte payload
			}, 0x01, 0x02, 0x03),
			wantErr: false,
			verify: func(t *testing.T, frame *Frame) {
				if frame.Type != TypeStatusUpdate {
					t.Errorf("type = 0x%02x, want 0x%02x", frame.Type, TypeStatusUpdate)
				}
				if frame.Length != 3 {
					t.Errorf("length = %d, want 3", frame.Length)
				}
				if !bytes.Equal(frame.Payload, []byte{0x01, 0x02, 0x03}) {
					t.Errorf("payload = %v, want [1 2 3]", frame.Payload)
				}
			},
		},
		{
			name:    "zero-length frame",
			data:    []byte{0xD8, 0x00, 0x00, 0x00, 0x00},
			wantErr: false,
			verify: func(t *testing.T, frame *Frame) {
				if frame.Type != TypeKeepaliveAck {
					t.Errorf("type = 0x%02x, want 0x%02x", frame.Type, TypeKeepaliveAck)
				}
				if len(frame.Payload) != 0 {
					t.Errorf("payload length = %d, want 0", len(frame.Payload))
				}
			},
		},
		{
			name: "length is big-endian",
			data: append([]byte{
				0x18,
				0x00, 0x00, 0x01, 0x00, // 256 byte payload
			}, make([]byte, 256)...),
			wantErr: false,
			verify: func(t *testing.T, frame *Frame) {
				if frame.Length != 256 {
					t.Errorf("length = %d, want 256", frame.Length)
				}
				if len(frame.Payload) != 256 {
					t.Errorf("payload length = %d, want 256", len(frame.Payload))
				}
			},
		},
		{
			name:    "truncated header",
			data:    []byte{0x43, 0x00, 0x00},
			wantErr: true,
		},
		{
			name: "payload shorter than declared length",
			data: []byte{
				0x43,
				0x00, 0x00, 0x00, 0x05, // declares 5 bytes
				0x01, 0x02, // delivers 2
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			frame, err := ReadFrame(r)

			if (err != nil) != tt.wantErr {
				t.Errorf("ReadFrame() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && tt.verify != nil {
				tt.verify(t, frame)
			}
		})
	}
}

func TestReadFrame_EOF(t *testing.T) {
	t.Run("clean EOF before header", func(t *testing.T) {
		r := bytes.NewReader(nil)
		_, err := ReadFrame(r)
		if err != io.EOF {
			t.Errorf("expected io.EOF, got %v", err)
		}
	})

	t.Run("EOF mid-payload is not io.EOF", func(t *testing.T) {
		r := bytes.NewReader([]byte{0x43, 0x00, 0x00, 0x00, 0x04, 0x01})
		_, err := ReadFrame(r)
		if err == nil {
			t.Fatal("expected error for torn payload")
		}
		if err == io.EOF {
			t.Error("torn payload should not surface as bare io.EOF")
		}
	})
}

func TestFrame_Encode(t *testing.T) {
	frame := &Frame{Type: TypeAck, Payload: []byte{0xAA, 0xBB}}
	got := frame.Encode()
	want := []byte{0x7B, 0x00, 0x00, 0x00, 0x02, 0xAA, 0xBB}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % x, want % x", got, want)
	}
}

func TestFrame_EncodeDecodeRoundTrip(t *testing.T) {
	original := &Frame{Type: TypeStatusUpdate, Payload: []byte{0x01, 0x02, 0x03, 0x04}}

	decoded, err := ReadFrame(bytes.NewReader(original.Encode()))
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}

	if decoded.Type != original.Type {
		t.Errorf("type = 0x%02x, want 0x%02x", decoded.Type, original.Type)
	}
	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("payload = %v, want %v", decoded.Payload, original.Payload)
	}
}

func TestKeepaliveFrame(t *testing.T) {
	want := []byte{0xD3, 0x00, 0x00, 0x00, 0x00}
	if got := KeepaliveFrame(); !bytes.Equal(got, want) {
		t.Errorf("KeepaliveFrame() = % x, want % x", got, want)
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		packetType byte
		want       string
	}{
		{TypePing, "ping"},
		{TypeStatusUpdate, "status"},
		{TypeAck, "ack"},
		{TypeCommandEcho, "command-echo"},
		{TypeBulkStatus, "bulk-status"},
		{TypeKeepalive, "keepalive"},
		{TypeKeepaliveAck, "keepalive-ack"},
		{TypeError, "error"},
		{0x99, "unknown(0x99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := TypeString(tt.packetType); got != tt.want {
				t.Errorf("TypeString(0x%02x) = %q, want %q", tt.packetType, got, tt.want)
			}
		})
	}
}

func BenchmarkReadFrame(b *testing.B) {
	data := (&Frame{Type: TypeStatusUpdate, Payload: make([]byte, 24)}).Encode()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := bytes.NewReader(data)
		if _, err := ReadFrame(r); err != nil {
			b.Fatal(err)
		}
	}
}
