package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Manager owns the connection lifecycle: dialing, heartbeat, reconnection
// with capped exponential backoff, and teardown. Raw frames and lifecycle
// notices are published over channels to a single subscriber set; there is
// no buffering or replay for late subscribers.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	frames  chan Frame
	notices chan Notice

	mu             sync.Mutex
	phase          Phase
	attempts       int
	lastCloseCode  int
	gen            int // bumps on every transition; stale async callbacks check it
	sock           *socket
	reconnectTimer *time.Timer
	pingStop       chan struct{}
	graceful       bool
	closed         bool
}

// NewManager creates a Connection Manager. It does not dial until Connect
// is called.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:     cfg,
		logger:  logger,
		phase:   PhaseIdle,
		frames:  make(chan Frame, cfg.BufferSize),
		notices: make(chan Notice, 32),
	}
}

// Frames returns the raw inbound frame stream.
func (m *Manager) Frames() <-chan Frame {
	return m.frames
}

// Notices returns the lifecycle notification stream.
func (m *Manager) Notices() <-chan Notice {
	return m.notices
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Attempts returns the current reconnect attempt count. It resets to zero
// on every successful open.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// LastCloseCode returns the close code of the most recent disconnect,
// 0 if none was observed.
func (m *Manager) LastCloseCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCloseCode
}

// Connect starts a transport attempt. It is a no-op while an attempt is
// already in flight or the connection is open, so duplicate initialization
// is harmless. A manual Connect cancels any pending reconnect timer and is
// honored even after reconnection attempts were exhausted.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.closed || m.phase == PhaseConnecting || m.phase == PhaseOpen {
		m.mu.Unlock()
		return
	}

	m.cancelReconnectLocked()
	m.phase = PhaseConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go m.dial(gen)
}

// Disconnect performs a graceful close with the normal-closure code. It
// detaches the socket before closing, so no disconnect notice is emitted
// and no reconnect is ever scheduled for a graceful close.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	sock := m.detachLocked()
	m.phase = PhaseClosed
	m.mu.Unlock()

	if sock != nil {
		sock.close(websocket.CloseNormalClosure)
		<-sock.readDone
	}
}

// Close disposes the manager: graceful close, every timer cancelled, all
// output channels closed. The manager cannot be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	sock := m.detachLocked()
	m.phase = PhaseClosed
	m.closed = true
	m.mu.Unlock()

	if sock != nil {
		sock.close(websocket.CloseNormalClosure)
		<-sock.readDone
	}

	// The socket read loop is the only frame producer and it has exited;
	// notices are only sent under mu with closed already set.
	close(m.frames)

	m.mu.Lock()
	close(m.notices)
	m.mu.Unlock()
}

// Send marshals the message and writes it to the socket. It returns true
// only while the connection is open; any other phase fails silently, so
// delivery is best effort.
func (m *Manager) Send(v any) bool {
	m.mu.Lock()
	sock := m.sock
	open := m.phase == PhaseOpen && sock != nil
	m.mu.Unlock()

	if !open {
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("failed to marshal outbound message", "error", err)
		return false
	}

	if err := sock.write(data); err != nil {
		m.logger.Debug("send failed", "error", err)
		return false
	}
	return true
}

// dial performs one transport attempt. gen guards against the manager
// having moved on (manual disconnect, dispose) while the dial was in
// flight.
func (m *Manager) dial(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: m.cfg.ConnectTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, m.cfg.URL, nil)

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		m.logger.Warn("connect failed", "url", m.cfg.URL, "error", err)
		m.notifyLocked(Notice{Kind: NoticeTransportError, Err: err})
		m.notifyLocked(Notice{Kind: NoticeDisconnected})
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return
	}

	sock := newSocket(conn, m.cfg, m.frames, func(code int, cause error) {
		m.socketClosed(gen, code, cause)
	})
	m.sock = sock
	m.phase = PhaseOpen
	m.attempts = 0
	m.graceful = false
	m.startPingLocked()
	m.notifyLocked(Notice{Kind: NoticeConnected})
	m.mu.Unlock()

	go sock.readLoop()

	m.logger.Info("websocket connected", "url", m.cfg.URL)
}

// socketClosed handles the read loop exiting. A normal-closure code (or a
// close we initiated ourselves) never triggers reconnection.
func (m *Manager) socketClosed(gen int, code int, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || gen != m.gen {
		return
	}

	m.stopPingLocked()
	m.sock = nil
	m.lastCloseCode = code
	m.gen++

	if m.graceful || code == websocket.CloseNormalClosure {
		m.phase = PhaseClosed
		m.notifyLocked(Notice{Kind: NoticeDisconnected, CloseCode: code})
		return
	}

	m.logger.Warn("connection lost", "close_code", code, "error", cause)
	m.notifyLocked(Notice{Kind: NoticeTransportError, Err: cause, CloseCode: code})
	m.notifyLocked(Notice{Kind: NoticeDisconnected, CloseCode: code})
	m.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the backoff timer for the next attempt.
// Once the attempt budget is spent the manager stays Closed until an
// external caller invokes Connect again.
func (m *Manager) scheduleReconnectLocked() {
	if m.cfg.MaxReconnectAttempts >= 0 && m.attempts >= m.cfg.MaxReconnectAttempts {
		m.phase = PhaseClosed
		m.logger.Warn("max reconnection attempts reached", "attempts", m.attempts)
		return
	}

	delay := reconnectDelay(m.cfg, m.attempts)

	m.phase = PhaseReconnecting
	m.logger.Info("reconnecting", "delay", delay, "attempt", m.attempts+1)

	m.reconnectTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.closed || m.phase != PhaseReconnecting {
			m.mu.Unlock()
			return
		}
		m.attempts++
		m.phase = PhaseConnecting
		m.gen++
		gen := m.gen
		m.mu.Unlock()

		m.dial(gen)
	})
}

// reconnectDelay returns the backoff before the next attempt: the base
// delay doubled per prior attempt, capped at the maximum.
func reconnectDelay(cfg Config, attempts int) time.Duration {
	delay := cfg.ReconnectBaseDelay << attempts
	if delay > cfg.ReconnectMaxDelay || delay <= 0 {
		delay = cfg.ReconnectMaxDelay
	}
	return delay
}

// detachLocked invalidates all async callbacks, cancels timers, and hands
// back the socket (if any) for the caller to close outside the lock.
func (m *Manager) detachLocked() *socket {
	m.cancelReconnectLocked()
	m.stopPingLocked()
	m.graceful = true
	m.gen++

	sock := m.sock
	m.sock = nil
	return sock
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func (m *Manager) startPingLocked() {
	if m.cfg.PingInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	m.pingStop = stop
	go m.pingLoop(stop)
}

func (m *Manager) stopPingLocked() {
	if m.pingStop != nil {
		close(m.pingStop)
		m.pingStop = nil
	}
}

// pingLoop sends the application heartbeat while the connection is open.
// Send guards on phase, so a ping that fires after the connection closed
// is skipped rather than erroring.
func (m *Manager) pingLoop(stop chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !m.Send(pingFrame{Type: "ping"}) {
				m.logger.Debug("skipped ping, connection not open")
			}
		}
	}
}

// notifyLocked publishes a lifecycle notice without blocking. mu must be
// held; that serializes notices and makes the closed check race-free
// against Close.
func (m *Manager) notifyLocked(n Notice) {
	select {
	case m.notices <- n:
	default:
		m.logger.Warn("notice buffer full, dropping", "kind", n.Kind)
	}
}
