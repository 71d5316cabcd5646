package connection

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// socket wraps a single WebSocket transport attempt. The Manager owns at
// most one live socket at a time; a socket is never reused after close.
type socket struct {
	conn         *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration

	frames   chan<- Frame
	done     chan struct{}
	readDone chan struct{}

	// onClosed fires exactly once when the read loop exits, with the peer
	// close code (0 if unknown) and the terminating error.
	onClosed func(code int, err error)
}

func newSocket(conn *websocket.Conn, cfg Config, frames chan<- Frame, onClosed func(int, error)) *socket {
	return &socket{
		conn:         conn,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		frames:       frames,
		done:         make(chan struct{}),
		readDone:     make(chan struct{}),
		onClosed:     onClosed,
	}
}

// readLoop reads frames until the connection dies. A read deadline covers
// heartbeat loss: if the server goes silent past ReadTimeout the read
// fails and the socket is treated as abnormally closed.
func (s *socket) readLoop() {
	defer close(s.readDone)

	for {
		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}

		_, data, err := s.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			s.onClosed(closeCode(err), err)
			return
		}

		select {
		case s.frames <- Frame{Data: data, ReceivedAt: receivedAt}:
		case <-s.done:
			return
		}
	}
}

// write sends raw bytes with the configured write deadline. Callers
// serialize writes; gorilla allows one concurrent writer.
func (s *socket) write(data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// close tears the socket down, sending the given close code first.
func (s *socket) close(code int) {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)

	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""),
		time.Now().Add(time.Second),
	)
	s.conn.Close()
}

// closeCode extracts the WebSocket close code from a read error.
func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}
