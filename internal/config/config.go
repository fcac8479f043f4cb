package config

import "time"

// FeedConfig is the root configuration for a feed client.
type FeedConfig struct {
	Feed      FeedSection     `yaml:"feed"`
	Session   SessionConfig   `yaml:"session"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
}

// FeedSection holds the server endpoint and the channels to open.
type FeedSection struct {
	WSURL    string   `yaml:"ws_url"`   // Base URL, e.g. wss://notify.example.com/ws
	Channels []string `yaml:"channels"` // notifications, campaigns, dashboard, ...
}

// SessionConfig holds static credentials. Empty fields fall back to the environment.
type SessionConfig struct {
	UserID      string `yaml:"user_id"`
	AccessToken string `yaml:"access_token"`
	TokenFile   string `yaml:"token_file"` // Re-read on every reconnect when set
}

// ReconnectConfig holds the fixed-interval retry policy.
type ReconnectConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

// TransportConfig holds WebSocket client settings.
type TransportConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
