package live

import (
	"errors"
	"time"

	"github.com/rkranz/quizlive/internal/connection"
	"github.com/rkranz/quizlive/internal/router"
	"github.com/rkranz/quizlive/internal/session"
)

// Errors
var (
	ErrSubmitInFlight   = errors.New("answer submission already in flight")
	ErrNoActiveQuestion = errors.New("no active question")
	ErrSessionInactive  = errors.New("session is no longer active")
)

// Config configures a Controller.
type Config struct {
	SessionID string
	UserID    string

	// WSBaseURL is the versioned websocket root, e.g.
	// "ws://localhost:8000/api/v1". The session and participant IDs are
	// appended to form the connection address.
	WSBaseURL string

	Connection connection.Config

	// ResyncInterval enables periodic snapshot resync when positive.
	ResyncInterval time.Duration

	// UpdateBufferSize bounds the consumer update stream.
	UpdateBufferSize int
}

// Update is one state change published to the consumer. Event is nil for
// connectivity-only updates.
type Update struct {
	State     session.State
	Event     router.Event
	Connected bool

	// Notice carries a user-visible recoverable condition: a server
	// error event or a snapshot fetch failure. Empty otherwise.
	Notice string
}

// Observer sees every inbound protocol event before it is reconciled.
// The event recorder hangs off this hook.
type Observer func(router.Inbound)
