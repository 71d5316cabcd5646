package recorder

import (
	"time"

	"github.com/google/uuid"
)

// Config holds event archive settings.
type Config struct {
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a row waits before flushing
	BufferSize    int           // Input channel buffer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		BufferSize:    1024,
	}
}

// Stats contains runtime counters.
type Stats struct {
	Recorded int64 // Rows accepted
	Flushed  int64 // Rows written to the database
	Dropped  int64 // Rows shed under backpressure
	Errors   int64 // Failed flushes
}

// row is one archived protocol event.
type row struct {
	ID         uuid.UUID
	SessionID  string
	Kind       string
	Payload    []byte
	ReceivedAt time.Time
}
