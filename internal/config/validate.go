package config

import "errors"

// Validate checks that all required fields are set and values are valid.
// Session identity is checked here, so flag overrides must be applied
// before validation.
func (c *ClientConfig) Validate() error {
	if c.Session.ID == "" {
		return errors.New("session.id is required")
	}
	if c.Session.UserID == "" {
		return errors.New("session.user_id is required")
	}

	if c.Connection.ConnectTimeout <= 0 {
		return errors.New("connection.connect_timeout must be positive")
	}
	if c.Connection.ReconnectBaseDelay <= 0 {
		return errors.New("connection.reconnect_base_delay must be positive")
	}
	if c.Connection.ReconnectMaxDelay < c.Connection.ReconnectBaseDelay {
		return errors.New("connection.reconnect_max_delay must be >= reconnect_base_delay")
	}
	if c.Connection.BufferSize < 1 {
		return errors.New("connection.buffer_size must be >= 1")
	}

	if c.Resync.Interval < 0 {
		return errors.New("resync.interval must not be negative")
	}

	if c.Archive.Enabled {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < 1 {
			return errors.New("archive.buffer_size must be >= 1")
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return errors.New(prefix + ".host is required")
	}
	if db.Name == "" {
		return errors.New(prefix + ".name is required")
	}
	if db.User == "" {
		return errors.New(prefix + ".user is required")
	}
	if db.Port < 1 || db.Port > 65535 {
		return errors.New(prefix + ".port must be 1-65535")
	}
	return nil
}
