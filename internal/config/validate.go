package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Feed.WSURL == "" {
		return errors.New("feed.ws_url is required")
	}
	u, err := url.Parse(c.Feed.WSURL)
	if err != nil {
		return fmt.Errorf("feed.ws_url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("feed.ws_url scheme must be ws or wss, got %q", u.Scheme)
	}

	for _, ch := range c.Feed.Channels {
		if ch == "" || strings.ContainsAny(ch, "/? \t") {
			return fmt.Errorf("feed.channels: invalid channel name %q", ch)
		}
	}

	if c.Reconnect.MaxAttempts < 0 {
		return errors.New("reconnect.max_attempts must be >= 0")
	}
	if c.Reconnect.Delay < 0 {
		return errors.New("reconnect.delay must be >= 0")
	}

	if c.Transport.PingTimeout < c.Transport.PingInterval {
		return fmt.Errorf("transport.ping_timeout (%s) cannot be shorter than ping_interval (%s)",
			c.Transport.PingTimeout, c.Transport.PingInterval)
	}
	if c.Transport.BufferSize < 1 {
		return errors.New("transport.buffer_size must be >= 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}
