package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/muurk/recync/internal/eventbus"
	"github.com/muurk/recync/internal/logging"
	"github.com/muurk/recync/internal/protocol"
	"github.com/muurk/recync/internal/urls"
)

// Status is the connection state of a session.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

// String returns a human-readable status name
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

const (
	// KeepaliveInterval is how often the keepalive frame is written
	// while connected
	KeepaliveInterval = 10 * time.Second

	// ReconnectDelay is the fixed pause between reconnect attempts.
	// Retries are unbounded; the loop runs until Stop.
	ReconnectDelay = 2 * time.Second

	dialTimeout = 15 * time.Second
)

// StatusCallback receives decoded telemetry for allow-listed devices.
// Each invocation runs on its own goroutine so a slow handler cannot
// stall the read loop.
type StatusCallback func(deviceID string, status *protocol.StatusUpdate)

// Dialer opens the transport to the relay.
type Dialer func(ctx context.Context) (net.Conn, error)

// Session holds the persistent connection to the cloud relay: the login
// credential, the outbound sequence counter, the connection status, and
// the event fan-out. All mutable state is owned here and reachable only
// through methods.
type Session struct {
	loginCode []byte
	bus       *eventbus.Bus
	dial      Dialer

	// reconnectDelay is ReconnectDelay outside of tests
	reconnectDelay time.Duration

	mu       sync.Mutex
	conn     net.Conn
	status   Status
	seq      uint16
	allowed  map[uint32]struct{} // nil = every device is of interest
	cb       StatusCallback
	started  bool
	connects int // successful logins, for connected vs reconnected

	// writeMu serializes every transport write (login, keepalive,
	// commands) so concurrent writers cannot interleave frames.
	writeMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session for the given opaque binary login credential.
// The credential comes from the external authentication collaborator and
// is written verbatim as the first bytes after connect.
func New(loginCode []byte) *Session {
	return &Session{
		loginCode:      loginCode,
		bus:            eventbus.New(),
		dial:           DefaultDialer(urls.CloudServerHost, urls.CloudServerPort),
		reconnectDelay: ReconnectDelay,
		status:         StatusDisconnected,
	}
}

// Bus returns the session's event bus for lifecycle and status
// subscriptions.
func (s *Session) Bus() *eventbus.Bus {
	return s.bus
}

// SetDialer replaces the transport dialer. Must be called before
// Initialize.
func (s *Session) SetDialer(dial Dialer) {
	s.dial = dial
}

// SetAllowedDevices installs the allow-list of device ids the session
// acts on. Status frames and commands for other devices are dropped.
// A nil or empty list means every device is of interest.
func (s *Session) SetAllowedDevices(deviceIDs []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(deviceIDs) == 0 {
		s.allowed = nil
		return
	}
	s.allowed = make(map[uint32]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		s.allowed[id] = struct{}{}
	}
}

// SetUpdateCallback sets the callback invoked with decoded status
// updates for allow-listed devices.
func (s *Session) SetUpdateCallback(cb StatusCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = cb
}

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connected reports whether the session is currently connected.
func (s *Session) Connected() bool {
	return s.Status() == StatusConnected
}

// Sequence returns the current outbound sequence counter. It increments
// by one per issued command and never resets during the session's life.
func (s *Session) Sequence() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Initialize starts the read loop and the keepalive loop. It fails if
// the session is already running; call Stop first.
func (s *Session) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("session already initialized")
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.keepaliveLoop(ctx)
	return nil
}

// Stop cancels both loops and closes the transport. Safe to call from
// any state; after Stop the session emits no further events.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	conn := s.conn
	s.mu.Unlock()

	cancel()
	if conn != nil {
		_ = conn.Close() // unblock the read loop
	}
	s.wg.Wait()

	s.mu.Lock()
	s.status = StatusDisconnected
	s.mu.Unlock()
}

// readLoop runs the connect/login/process cycle forever, with a fixed
// delay between attempts. Failures of any kind (dial errors, EOF, torn
// frames, protocol violations) land here and trigger a reconnect.
func (s *Session) readLoop(ctx context.Context) {
	defer s.wg.Done()

	delay := backoff.NewConstantBackOff(s.reconnectDelay)
	for {
		if ctx.Err() != nil {
			return
		}
		s.setStatus(StatusConnecting)

		err := s.runConnection(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logging.Warn("Connection failed", zap.Error(err))
		}

		s.setStatus(StatusDisconnected)
		s.bus.Emit(eventbus.EventDisconnected, nil)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay.NextBackOff()):
		}
	}
}

// runConnection performs one full connection attempt: dial, send the
// raw login credential, announce the connection, then process frames
// until the stream dies.
func (s *Session) runConnection(ctx context.Context) error {
	logging.Info("Connecting to cloud")

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	// The login credential goes out raw, unframed
	if err := s.write(s.loginCode); err != nil {
		return fmt.Errorf("login write failed: %w", err)
	}

	s.mu.Lock()
	s.status = StatusConnected
	s.connects++
	first := s.connects == 1
	s.mu.Unlock()

	logging.LogConnection(conn.RemoteAddr().String(), "connected")
	if first {
		s.bus.Emit(eventbus.EventConnected, nil)
	} else {
		s.bus.Emit(eventbus.EventReconnected, nil)
	}

	return s.process(conn)
}

// process is the packet loop: frame, decode, dispatch. Any error,
// including clean EOF, returns to the reconnect handler; the stream
// cannot be resynchronized in place.
func (s *Session) process(conn net.Conn) error {
	for {
		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			return err
		}
		logging.LogFrame("recv", frame.Type, frame.Payload)

		if err := s.handleFrame(frame); err != nil {
			return err
		}
	}
}

// handleFrame dispatches one decoded message. Unknown types are dropped;
// malformed payloads for known types are protocol violations that tear
// down the connection.
func (s *Session) handleFrame(frame *protocol.Frame) error {
	msg, err := protocol.Decode(frame)
	if err != nil {
		return fmt.Errorf("decode %s: %w", frame, err)
	}

	switch m := msg.(type) {
	case *protocol.Ping:
		logging.Debug("Ping", zap.String("hex", logging.HexDump(m.Data)))
	case *protocol.StatusUpdate:
		s.handleStatus(m)
	case *protocol.Ack:
		logging.Debug("Handled ack",
			zap.Uint32("device_id", m.DeviceID),
			zap.Uint16("ack_code", m.Code),
		)
	case *protocol.CommandEcho:
		if s.deviceAllowed(m.DeviceID) {
			logging.Debug("Command about device",
				zap.Uint32("device_id", m.DeviceID),
				zap.String("hex", logging.HexDump(m.Raw)),
			)
		}
	case *protocol.BulkStatus:
		logging.Debug("Bulk status", zap.Int("remainder", m.Remainder()))
	case *protocol.ErrorCode:
		logging.Warn("Relay error", zap.Uint8("code", m.Code))
	case *protocol.KeepaliveAck:
		logging.Debug("Keep-ack", zap.Int("length", m.Length))
	case *protocol.Unknown:
		logging.Debug("Dropping packet",
			zap.String("type", fmt.Sprintf("0x%02x", m.PacketType)),
			zap.Int("length", len(m.Data)),
			zap.String("hex", logging.HexDump(m.Data)),
		)
	}

	return nil
}

// handleStatus filters a status update against the allow-list, then
// fans it out: the registered callback gets its own goroutine and the
// bus emits a resource-updated event carrying the decoded status.
func (s *Session) handleStatus(status *protocol.StatusUpdate) {
	if !s.deviceAllowed(status.DeviceID) {
		logging.Debug("Ignoring status update for unlisted device",
			zap.Uint32("device_id", status.DeviceID),
		)
		return
	}

	logging.Debug("Status from device",
		zap.String("device_id", status.DeviceIDString()),
		zap.Bool("is_on", status.IsOn),
		zap.Uint8("brightness", status.Brightness),
		zap.Uint8("white_temp", status.WhiteTemp),
		zap.String("trailer", logging.HexDump(status.Trailer)),
	)

	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb != nil {
		go cb(status.DeviceIDString(), status)
	}

	s.bus.Emit(eventbus.EventResourceUpdated, status)
}

func (s *Session) deviceAllowed(deviceID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.allowed == nil {
		return true
	}
	_, ok := s.allowed[deviceID]
	return ok
}

// SendCommand builds and writes an outbound command. Commands are
// dropped without error when the session is not connected or the device
// is not allow-listed; a transport write failure is returned to the
// caller and will also surface through the read loop's reconnect.
func (s *Session) SendCommand(code [protocol.CommandCodeSize]byte, deviceID uint32, inner []byte) error {
	s.mu.Lock()
	if s.status != StatusConnected {
		s.mu.Unlock()
		logging.Warn("Not connected, dropping message",
			zap.Uint32("device_id", deviceID),
		)
		return nil
	}
	if s.allowed != nil {
		if _, ok := s.allowed[deviceID]; !ok {
			s.mu.Unlock()
			logging.Debug("Ignoring command for unlisted device",
				zap.Uint32("device_id", deviceID),
			)
			return nil
		}
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	data := protocol.BuildCommand(code, deviceID, seq, inner)
	logging.LogRawBytes("Sending command", data)
	return s.write(data)
}

// sendKeepalive writes the fixed keepalive frame if currently connected.
func (s *Session) sendKeepalive() {
	if !s.Connected() {
		return
	}
	logging.Debug("Keep-alive")
	if err := s.write(protocol.KeepaliveFrame()); err != nil {
		logging.Warn("Keepalive write failed", zap.Error(err))
	}
}

// keepaliveLoop fires every KeepaliveInterval for the session's
// lifetime. It never exits on its own, only on Stop.
func (s *Session) keepaliveLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendKeepalive()
		}
	}
}

// write sends bytes on the transport under the single-writer mutex.
func (s *Session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("transport not open")
	}

	_, err := conn.Write(data)
	return err
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// DefaultDialer returns the production dialer: TLS to the relay with
// certificate verification, falling back once to an unverified handshake
// when the failure is specifically a certificate error. Any other dial
// error propagates to the reconnect loop.
func DefaultDialer(host string, port int) Dialer {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return func(ctx context.Context) (net.Conn, error) {
		netDialer := &net.Dialer{Timeout: dialTimeout}

		dialer := &tls.Dialer{NetDialer: netDialer, Config: &tls.Config{ServerName: host}}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		if !isCertificateError(err) {
			return nil, err
		}

		logging.Warn("Certificate verification failed, retrying without verification", zap.Error(err))
		insecure := &tls.Dialer{
			NetDialer: netDialer,
			Config:    &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- deliberate fallback, relay ships a broken chain
		}
		return insecure.DialContext(ctx, "tcp", addr)
	}
}

// isCertificateError reports whether a dial failure was caused by
// certificate verification rather than the transport.
func isCertificateError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var hostErr x509.HostnameError
	if errors.As(err, &hostErr) {
		return true
	}
	var caErr x509.UnknownAuthorityError
	if errors.As(err, &caErr) {
		return true
	}
	var invErr x509.CertificateInvalidError
	return errors.As(err, &invErr)
}
