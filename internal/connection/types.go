package connection

import (
	"time"
)

// Phase is the lifecycle phase of the managed connection.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseConnecting   Phase = "connecting"
	PhaseOpen         Phase = "open"
	PhaseReconnecting Phase = "reconnecting"
	PhaseClosed       Phase = "closed"
)

// Frame is one discrete unit of data received over the transport.
type Frame struct {
	Data       []byte    // Raw message bytes from the WebSocket
	ReceivedAt time.Time // Local timestamp when the read returned
}

// NoticeKind identifies a lifecycle notification.
type NoticeKind string

const (
	NoticeConnected      NoticeKind = "connected"
	NoticeDisconnected   NoticeKind = "disconnected"
	NoticeTransportError NoticeKind = "transport_error"
)

// Notice is a lifecycle notification from the manager. Notices are
// published to exactly one subscriber set with no replay for late
// subscribers.
type Notice struct {
	Kind      NoticeKind
	Err       error // set for transport errors
	CloseCode int   // last close code for disconnects, 0 if unknown
}

// Config configures the Connection Manager.
type Config struct {
	URL                  string        // WebSocket URL addressing session and participant
	ConnectTimeout       time.Duration // Abort an attempt that has not opened in time
	PingInterval         time.Duration // Application-level {"type":"ping"} cadence while open
	ReadTimeout          time.Duration // Max quiet time before the connection is considered silently dead
	WriteTimeout         time.Duration // Write deadline for sends
	ReconnectBaseDelay   time.Duration // First reconnect delay
	ReconnectMaxDelay    time.Duration // Backoff cap
	MaxReconnectAttempts int           // Attempts before giving up; negative means no cap
	BufferSize           int           // Frame channel buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:       5 * time.Second,
		PingInterval:         30 * time.Second,
		ReadTimeout:          90 * time.Second,
		WriteTimeout:         5 * time.Second,
		ReconnectBaseDelay:   1 * time.Second,
		ReconnectMaxDelay:    10 * time.Second,
		MaxReconnectAttempts: 5,
		BufferSize:           256,
	}
}

// pingFrame is the outbound heartbeat payload.
type pingFrame struct {
	Type string `json:"type"`
}
