package connection

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.PingInterval = 0 // most tests don't want heartbeat noise
	cfg.ReconnectBaseDelay = 10 * time.Millisecond
	cfg.ReconnectMaxDelay = 50 * time.Millisecond
	return cfg
}

func waitNotice(t *testing.T, m *Manager, kind NoticeKind) Notice {
	t.Helper()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case n, ok := <-m.Notices():
			if !ok {
				t.Fatalf("notices closed while waiting for %q", kind)
			}
			if n.Kind == kind {
				return n
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q notice", kind)
		}
	}
}

func waitPhase(t *testing.T, m *Manager, want Phase) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("phase = %q, want %q", m.Phase(), want)
}

func TestManager_Connect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testConfig(wsURL(server)), nil)
	defer m.Close()

	m.Connect()
	waitNotice(t, m, NoticeConnected)

	if m.Phase() != PhaseOpen {
		t.Errorf("Phase = %q, want open", m.Phase())
	}
	if m.Attempts() != 0 {
		t.Errorf("Attempts = %d, want 0 after successful open", m.Attempts())
	}
}

func TestManager_ConnectIdempotent(t *testing.T) {
	var conns atomic.Int32
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testConfig(wsURL(server)), nil)
	defer m.Close()

	m.Connect()
	waitNotice(t, m, NoticeConnected)

	// Repeated Connect while open must not dial again.
	m.Connect()
	m.Connect()
	time.Sleep(100 * time.Millisecond)

	if n := conns.Load(); n != 1 {
		t.Errorf("server saw %d connections, want 1", n)
	}
}

func TestManager_ReceivesFrames(t *testing.T) {
	payloads := []string{
		`{"type":"participant_joined","user_id":"a"}`,
		`{"type":"participant_joined","user_id":"b"}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, p := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(p)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	m := NewManager(testConfig(wsURL(server)), nil)
	defer m.Close()

	m.Connect()

	for i, want := range payloads {
		select {
		case f := <-m.Frames():
			if string(f.Data) != want {
				t.Errorf("frame %d = %q, want %q", i, f.Data, want)
			}
			if f.ReceivedAt.IsZero() {
				t.Error("ReceivedAt should not be zero")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
}

func TestManager_SendOnlyWhileOpen(t *testing.T) {
	received := make(chan []byte, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	})
	defer server.Close()

	m := NewManager(testConfig(wsURL(server)), nil)
	defer m.Close()

	type msg struct {
		Type   string `json:"type"`
		Answer string `json:"answer"`
	}

	if m.Send(msg{Type: "submit_answer", Answer: "b"}) {
		t.Error("Send before connect should report failure")
	}

	m.Connect()
	waitNotice(t, m, NoticeConnected)

	if !m.Send(msg{Type: "submit_answer", Answer: "b"}) {
		t.Fatal("Send while open should succeed")
	}

	select {
	case data := <-received:
		var got msg
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("server received invalid JSON: %v", err)
		}
		if got.Type != "submit_answer" || got.Answer != "b" {
			t.Errorf("server received %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the message")
	}

	m.Disconnect()

	if m.Send(msg{Type: "submit_answer"}) {
		t.Error("Send after disconnect should report failure")
	}
}

func TestManager_Heartbeat(t *testing.T) {
	pings := make(chan []byte, 4)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			pings <- msg
		}
	})
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond

	m := NewManager(cfg, nil)
	defer m.Close()

	m.Connect()
	waitNotice(t, m, NoticeConnected)

	select {
	case data := <-pings:
		var p struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.Type != "ping" {
			t.Errorf("heartbeat payload = %q", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat observed")
	}
}

func TestManager_GracefulDisconnectNoReconnect(t *testing.T) {
	var conns atomic.Int32
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testConfig(wsURL(server)), nil)
	defer m.Close()

	m.Connect()
	waitNotice(t, m, NoticeConnected)

	m.Disconnect()

	if m.Phase() != PhaseClosed {
		t.Errorf("Phase = %q, want closed", m.Phase())
	}

	// No reconnect may fire, and an intentional teardown emits no
	// disconnect notice.
	select {
	case n := <-m.Notices():
		t.Errorf("unexpected notice after graceful disconnect: %+v", n)
	case <-time.After(200 * time.Millisecond):
	}

	if n := conns.Load(); n != 1 {
		t.Errorf("server saw %d connections, want 1 (no reconnect)", n)
	}
}

func TestManager_ServerNormalClosureNoReconnect(t *testing.T) {
	var conns atomic.Int32
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session over"),
			time.Now().Add(time.Second),
		)
		conn.ReadMessage() // wait for the close handshake
	})
	defer server.Close()

	m := NewManager(testConfig(wsURL(server)), nil)
	defer m.Close()

	m.Connect()
	waitNotice(t, m, NoticeConnected)

	n := waitNotice(t, m, NoticeDisconnected)
	if n.CloseCode != websocket.CloseNormalClosure {
		t.Errorf("CloseCode = %d, want %d", n.CloseCode, websocket.CloseNormalClosure)
	}

	waitPhase(t, m, PhaseClosed)
	time.Sleep(100 * time.Millisecond)

	if got := conns.Load(); got != 1 {
		t.Errorf("server saw %d connections, want 1", got)
	}
	if m.LastCloseCode() != websocket.CloseNormalClosure {
		t.Errorf("LastCloseCode = %d", m.LastCloseCode())
	}
}

func TestManager_ReconnectsAfterAbnormalClose(t *testing.T) {
	var conns atomic.Int32
	server := mockWSServer(t, func(conn *websocket.Conn) {
		if conns.Add(1) == 1 {
			// Drop the first connection without a close handshake.
			conn.Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testConfig(wsURL(server)), nil)
	defer m.Close()

	m.Connect()
	waitNotice(t, m, NoticeConnected)
	waitNotice(t, m, NoticeDisconnected)
	waitNotice(t, m, NoticeConnected)

	if m.Phase() != PhaseOpen {
		t.Errorf("Phase = %q, want open after reconnect", m.Phase())
	}
	if m.Attempts() != 0 {
		t.Errorf("Attempts = %d, want reset to 0", m.Attempts())
	}
	if conns.Load() != 2 {
		t.Errorf("server saw %d connections, want 2", conns.Load())
	}
}

func TestManager_GivesUpAfterMaxAttempts(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1") // nothing listens here
	cfg.ConnectTimeout = 200 * time.Millisecond
	cfg.MaxReconnectAttempts = 2

	m := NewManager(cfg, nil)
	defer m.Close()

	m.Connect()

	// Initial attempt plus two retries, each failing.
	for i := 0; i < 3; i++ {
		waitNotice(t, m, NoticeTransportError)
	}

	waitPhase(t, m, PhaseClosed)

	if m.Attempts() != 2 {
		t.Errorf("Attempts = %d, want 2", m.Attempts())
	}
}

func TestManager_ManualConnectAfterExhaustion(t *testing.T) {
	var reject atomic.Bool
	reject.Store(true)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reject.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := testConfig(wsURL(server))
	cfg.MaxReconnectAttempts = 1

	m := NewManager(cfg, nil)
	defer m.Close()

	m.Connect()
	waitPhase(t, m, PhaseClosed)

	// The budget is spent, but an explicit Connect still works.
	reject.Store(false)
	m.Connect()
	waitNotice(t, m, NoticeConnected)

	if m.Phase() != PhaseOpen {
		t.Errorf("Phase = %q, want open", m.Phase())
	}
}

func TestManager_CloseClosesChannels(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	m := NewManager(testConfig(wsURL(server)), nil)

	m.Connect()
	waitNotice(t, m, NoticeConnected)

	m.Close()
	m.Close() // second close is a no-op

	for range m.Frames() {
	}
	for range m.Notices() {
	}

	if m.Phase() != PhaseClosed {
		t.Errorf("Phase = %q, want closed", m.Phase())
	}
}

func TestReconnectDelay(t *testing.T) {
	cfg := Config{
		ReconnectBaseDelay: time.Second,
		ReconnectMaxDelay:  10 * time.Second,
	}

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{5, 10 * time.Second},
		{63, 10 * time.Second}, // shift overflow falls back to the cap
	}

	for _, tt := range tests {
		if got := reconnectDelay(cfg, tt.attempts); got != tt.want {
			t.Errorf("reconnectDelay(attempts=%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", cfg.ConnectTimeout)
	}
	if cfg.PingInterval != 30*time.Second {
		t.Errorf("PingInterval = %v, want 30s", cfg.PingInterval)
	}
	if cfg.ReconnectBaseDelay != time.Second {
		t.Errorf("ReconnectBaseDelay = %v, want 1s", cfg.ReconnectBaseDelay)
	}
	if cfg.ReconnectMaxDelay != 10*time.Second {
		t.Errorf("ReconnectMaxDelay = %v, want 10s", cfg.ReconnectMaxDelay)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d, want 5", cfg.MaxReconnectAttempts)
	}
}
