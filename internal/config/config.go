// Package config loads client configuration from YAML with environment
// variable expansion, defaults, and validation.
package config

import "time"

// ClientConfig is the root configuration for a quizlive client.
type ClientConfig struct {
	Session    SessionConfig    `yaml:"session"`
	API        APIConfig        `yaml:"api"`
	Connection ConnectionConfig `yaml:"connection"`
	Resync     ResyncConfig     `yaml:"resync"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// SessionConfig identifies the session and participant. Both may also be
// supplied on the command line, which takes precedence.
type SessionConfig struct {
	ID     string `yaml:"id"`
	UserID string `yaml:"user_id"`
}

// APIConfig holds quiz service endpoints.
type APIConfig struct {
	RestURL string        `yaml:"rest_url"`
	WSURL   string        `yaml:"ws_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ConnectionConfig holds Connection Manager settings.
type ConnectionConfig struct {
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	ReadTimeout          time.Duration `yaml:"read_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // negative = no cap
	BufferSize           int           `yaml:"buffer_size"`
}

// ResyncConfig holds the periodic snapshot resync setting. A zero
// interval disables periodic resync; the connect-time snapshot always
// happens regardless.
type ResyncConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ArchiveConfig holds the optional event recorder settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
