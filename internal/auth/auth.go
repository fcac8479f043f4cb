// Package auth provides the identity and bearer token used to open feed channels.
//
// Credentials are resolved through a TokenSource every time a channel opens, never
// cached by the feed, so a refreshed token takes effect on the next reconnect.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
)

// ErrNoSession is returned when no user is logged in.
var ErrNoSession = errors.New("no active session")

// Credentials identify the user a channel is opened for.
type Credentials struct {
	UserID      string // Merchant/user ID, becomes a path segment of the channel URL
	AccessToken string // Bearer token, sent as the token query parameter
}

// Valid reports whether both fields are set.
func (c Credentials) Valid() bool {
	return c.UserID != "" && c.AccessToken != ""
}

// TokenSource supplies credentials at channel open time.
type TokenSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// LoadCredentials validates a user ID and token pair.
func LoadCredentials(userID, accessToken string) (Credentials, error) {
	if userID == "" {
		return Credentials{}, fmt.Errorf("user ID is required")
	}
	if accessToken == "" {
		return Credentials{}, fmt.Errorf("access token is required")
	}
	return Credentials{UserID: userID, AccessToken: accessToken}, nil
}

// Session is an in-memory credential holder owned by the application.
// Set is called on login, Clear on logout. Safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	creds Credentials
	set   bool
}

// NewSession returns an empty (logged out) session.
func NewSession() *Session {
	return &Session{}
}

// Set stores credentials for subsequent opens.
func (s *Session) Set(creds Credentials) {
	s.mu.Lock()
	s.creds = creds
	s.set = true
	s.mu.Unlock()
}

// Clear logs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	s.creds = Credentials{}
	s.set = false
	s.mu.Unlock()
}

// Credentials implements TokenSource.
func (s *Session) Credentials(ctx context.Context) (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set || !s.creds.Valid() {
		return Credentials{}, ErrNoSession
	}
	return s.creds, nil
}

// envCredentials is the environment layout read by EnvSource.
type envCredentials struct {
	UserID      string `env:"FEED_USER_ID"`
	AccessToken string `env:"FEED_ACCESS_TOKEN"`
}

// EnvSource reads FEED_USER_ID and FEED_ACCESS_TOKEN on every call.
type EnvSource struct{}

// Credentials implements TokenSource.
func (EnvSource) Credentials(ctx context.Context) (Credentials, error) {
	vars, err := env.ParseAs[envCredentials]()
	if err != nil {
		return Credentials{}, fmt.Errorf("parse credential env: %w", err)
	}
	creds := Credentials{UserID: vars.UserID, AccessToken: vars.AccessToken}
	if !creds.Valid() {
		return Credentials{}, ErrNoSession
	}
	return creds, nil
}

// FileSource pairs a fixed user ID with a token file that is re-read on every call.
// An external process refreshing the file rotates the token for the next reconnect.
type FileSource struct {
	UserID    string
	TokenPath string
}

// Credentials implements TokenSource.
func (f FileSource) Credentials(ctx context.Context) (Credentials, error) {
	if f.UserID == "" || f.TokenPath == "" {
		return Credentials{}, ErrNoSession
	}
	data, err := os.ReadFile(f.TokenPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return Credentials{}, ErrNoSession
	}
	return Credentials{UserID: f.UserID, AccessToken: token}, nil
}

// Chain tries each source in order and returns the first valid credentials.
// If every source fails, the last error is returned.
type Chain []TokenSource

// Credentials implements TokenSource.
func (c Chain) Credentials(ctx context.Context) (Credentials, error) {
	err := ErrNoSession
	for _, src := range c {
		creds, srcErr := src.Credentials(ctx)
		if srcErr == nil {
			return creds, nil
		}
		err = srcErr
	}
	return Credentials{}, err
}
