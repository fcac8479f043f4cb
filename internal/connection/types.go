package connection

import (
	"errors"
	"log/slog"
	"time"
)

// Errors
var (
	ErrStaleConnection   = errors.New("connection stale (no ping)")
	ErrAlreadyClosed     = errors.New("already closed")
	ErrInvalidChannel    = errors.New("invalid channel name")
	ErrMissingCredential = errors.New("missing credential")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a frame handed from a channel connection to the Message Router.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	Channel    string    // Logical channel the transport belongs to
	ReceivedAt time.Time // Local timestamp when the client received the frame
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Full channel endpoint including token query
	HandshakeTimeout time.Duration // Dial handshake deadline
	PingInterval     time.Duration // Keepalive ping period
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for control frames
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// Dialer creates a not-yet-connected Client for one attempt.
// Tests substitute a fake to drive the lifecycle without a network.
type Dialer func(cfg ClientConfig, logger *slog.Logger) Client
