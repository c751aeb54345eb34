package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/muurk/recync/internal/eventbus"
	"github.com/muurk/recync/internal/protocol"
)

const testDeviceID = uint32(0x0CECCA92) // 216844946

// pipeDialer hands the session the client side of a fresh net.Pipe per
// dial and delivers the server side to the test.
func pipeDialer(serverConns chan<- net.Conn) Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		client, server := net.Pipe()
		serverConns <- server
		return client, nil
	}
}

func recvEvent(t *testing.T, ch <-chan eventbus.Event) eventbus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return eventbus.Event{}
	}
}

func recvConn(t *testing.T, ch <-chan net.Conn) net.Conn {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dial")
		return nil
	}
}

func expectLogin(t *testing.T, conn net.Conn, want []byte) {
	t.Helper()
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("reading login: %v", err)
	}
	if !bytes.Equal(buf, want) {
		t.Fatalf("login = % x, want % x", buf, want)
	}
}

// statusFrame builds an inbound status frame for the given device.
func statusFrame(deviceID uint32, isOn bool) []byte {
	payload := make([]byte, 17)
	payload[0] = byte(deviceID >> 24)
	payload[1] = byte(deviceID >> 16)
	payload[2] = byte(deviceID >> 8)
	payload[3] = byte(deviceID)
	if isOn {
		payload[11] = 1
	}
	payload[12] = 0x64 // brightness
	payload[13] = 0x32 // white temp
	frame := &protocol.Frame{Type: protocol.TypeStatusUpdate, Length: uint32(len(payload)), Payload: payload}
	return frame.Encode()
}

func TestSession_LifecycleEvents(t *testing.T) {
	login := []byte{0x13, 0x03, 0xab, 0xcd}
	s := New(login)
	s.reconnectDelay = 20 * time.Millisecond
	s.SetAllowedDevices([]uint32{testDeviceID})

	serverConns := make(chan net.Conn, 4)
	s.SetDialer(pipeDialer(serverConns))

	lifecycle := make(chan eventbus.Event, 16)
	unsub := s.Bus().Subscribe(func(e eventbus.Event) { lifecycle <- e },
		[]eventbus.EventType{eventbus.EventConnected, eventbus.EventReconnected, eventbus.EventDisconnected},
		nil)
	defer unsub()

	updates := make(chan *protocol.StatusUpdate, 4)
	s.SetUpdateCallback(func(deviceID string, status *protocol.StatusUpdate) {
		updates <- status
	})

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer s.Stop()

	server := recvConn(t, serverConns)
	expectLogin(t, server, login)

	if e := recvEvent(t, lifecycle); e.Type != eventbus.EventConnected {
		t.Fatalf("event = %q, want %q", e.Type, eventbus.EventConnected)
	}
	if !s.Connected() {
		t.Error("Connected() = false after login")
	}

	// A status frame for a device outside the allow-list, then one for
	// the listed device; only the latter reaches the callback.
	if _, err := server.Write(statusFrame(99, true)); err != nil {
		t.Fatalf("writing unlisted status: %v", err)
	}
	if _, err := server.Write(statusFrame(testDeviceID, true)); err != nil {
		t.Fatalf("writing status: %v", err)
	}

	select {
	case status := <-updates:
		if status.DeviceID != testDeviceID {
			t.Errorf("callback device = %d, want %d", status.DeviceID, testDeviceID)
		}
		if !status.IsOn || status.Brightness != 0x64 || status.WhiteTemp != 0x32 {
			t.Errorf("callback status = %+v", status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status callback")
	}

	// Server-side EOF: exactly one disconnected, then a reconnect with a
	// fresh login and a reconnected (not connected) event.
	_ = server.Close()

	if e := recvEvent(t, lifecycle); e.Type != eventbus.EventDisconnected {
		t.Fatalf("event = %q, want %q", e.Type, eventbus.EventDisconnected)
	}

	server2 := recvConn(t, serverConns)
	expectLogin(t, server2, login)
	defer server2.Close()

	if e := recvEvent(t, lifecycle); e.Type != eventbus.EventReconnected {
		t.Fatalf("event = %q, want %q", e.Type, eventbus.EventReconnected)
	}

	select {
	case u := <-updates:
		t.Errorf("unexpected callback for device %d", u.DeviceID)
	default:
	}
}

func TestSession_SendCommandDroppedWhenDisconnected(t *testing.T) {
	s := New(nil)

	err := s.SendCommand(protocol.CommandCodeSetState, testDeviceID, protocol.TurnOnPacket([2]byte{}))
	if err != nil {
		t.Fatalf("SendCommand() error = %v, want nil drop", err)
	}
	if seq := s.Sequence(); seq != 0 {
		t.Errorf("sequence = %d, want 0 (dropped commands consume no sequence numbers)", seq)
	}
}

func TestSession_SendCommandDroppedForUnlistedDevice(t *testing.T) {
	s := New(nil)
	s.SetAllowedDevices([]uint32{testDeviceID})

	// Connected but without a transport: a drop never touches the
	// transport, so no error can surface.
	s.mu.Lock()
	s.status = StatusConnected
	s.mu.Unlock()

	err := s.SendCommand(protocol.CommandCodeSetState, 99, protocol.TurnOnPacket([2]byte{}))
	if err != nil {
		t.Fatalf("SendCommand() error = %v, want nil drop", err)
	}
	if seq := s.Sequence(); seq != 0 {
		t.Errorf("sequence = %d, want 0", seq)
	}
}

func TestSession_SendCommandSequencesWrites(t *testing.T) {
	s := New(nil)
	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	s.mu.Lock()
	s.conn = client
	s.status = StatusConnected
	s.mu.Unlock()

	writes := make(chan []byte, 4)
	go func() {
		buf := make([]byte, 512)
		for {
			n, err := server.Read(buf)
			if err != nil {
				return
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			writes <- data
		}
	}()

	meshID := [2]byte{0x01, 0x02}
	if err := s.SendCommand(protocol.CommandCodeSetState, testDeviceID, protocol.TurnOnPacket(meshID)); err != nil {
		t.Fatalf("SendCommand(on) error = %v", err)
	}
	if err := s.SendCommand(protocol.CommandCodeSetState, testDeviceID, protocol.TurnOffPacket(meshID)); err != nil {
		t.Fatalf("SendCommand(off) error = %v", err)
	}

	wantInner := [][]byte{protocol.TurnOnPacket(meshID), protocol.TurnOffPacket(meshID)}
	for i, want := range wantInner {
		var data []byte
		select {
		case data = <-writes:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for write %d", i+1)
		}

		cmd, err := protocol.ParseCommand(data)
		if err != nil {
			t.Fatalf("ParseCommand(%d) error = %v", i+1, err)
		}
		if cmd.Code != protocol.CommandCodeSetState {
			t.Errorf("command %d code = % x", i+1, cmd.Code)
		}
		if cmd.DeviceID != testDeviceID {
			t.Errorf("command %d device = %d, want %d", i+1, cmd.DeviceID, testDeviceID)
		}
		if cmd.Seq != uint16(i+1) {
			t.Errorf("command %d seq = %d, want %d", i+1, cmd.Seq, i+1)
		}
		if !bytes.Equal(cmd.Inner, want) {
			t.Errorf("command %d inner = % x, want % x", i+1, cmd.Inner, want)
		}
	}

	if seq := s.Sequence(); seq != 2 {
		t.Errorf("sequence = %d, want 2", seq)
	}
}

func TestSession_Keepalive(t *testing.T) {
	s := New(nil)

	// Disconnected: no transport is touched, so no panic and no write.
	s.sendKeepalive()

	client, server := net.Pipe()
	defer func() { _ = client.Close() }()
	defer func() { _ = server.Close() }()

	s.mu.Lock()
	s.conn = client
	s.status = StatusConnected
	s.mu.Unlock()

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, err := server.Read(buf)
		if err != nil {
			return
		}
		got <- buf[:n]
	}()

	s.sendKeepalive()

	select {
	case data := <-got:
		if !bytes.Equal(data, protocol.KeepaliveFrame()) {
			t.Errorf("keepalive = % x, want % x", data, protocol.KeepaliveFrame())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for keepalive write")
	}
}

func TestSession_InitializeTwice(t *testing.T) {
	s := New(nil)
	s.reconnectDelay = 10 * time.Millisecond
	s.SetDialer(func(ctx context.Context) (net.Conn, error) {
		return nil, errors.New("refused")
	})

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer s.Stop()

	if err := s.Initialize(); err == nil {
		t.Error("second Initialize() = nil, want error")
	}
}

func TestSession_StopIsIdempotent(t *testing.T) {
	s := New(nil)
	s.Stop() // never initialized

	s.reconnectDelay = 10 * time.Millisecond
	s.SetDialer(func(ctx context.Context) (net.Conn, error) {
		return nil, errors.New("refused")
	})
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	s.Stop()
	s.Stop()

	if s.Status() != StatusDisconnected {
		t.Errorf("status after Stop = %v, want %v", s.Status(), StatusDisconnected)
	}
}
