package connection

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidChannelName reports whether name can be used as a single URL path segment.
func ValidChannelName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/? \t\r\n")
}

// Endpoint builds the channel URL <base>/<channel>/<userID>/?token=<token>.
func Endpoint(base, channel, userID, token string) (string, error) {
	if !ValidChannelName(channel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	if userID == "" {
		return "", fmt.Errorf("%w: user ID", ErrMissingCredential)
	}
	if token == "" {
		return "", fmt.Errorf("%w: access token", ErrMissingCredential)
	}

	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}

	// The server routes require the trailing slash
	escaped := u.EscapedPath()
	u.Path = u.Path + "/" + channel + "/" + userID + "/"
	u.RawPath = escaped + "/" + url.PathEscape(channel) + "/" + url.PathEscape(userID) + "/"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	return u.String(), nil
}
