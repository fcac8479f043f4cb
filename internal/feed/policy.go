package feed

import "time"

// ReconnectPolicy decides whether and when a dropped channel is reopened.
// attempt is the number of reconnects already scheduled since the last
// successful open.
type ReconnectPolicy interface {
	ShouldRetry(attempt int) bool
	NextDelay(attempt int) time.Duration
}

// Default reconnect parameters.
const (
	DefaultMaxAttempts    = 5
	DefaultReconnectDelay = 5 * time.Second
)

// FixedPolicy retries up to MaxAttempts times with a constant delay.
type FixedPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy returns a FixedPolicy with the default parameters.
func DefaultPolicy() FixedPolicy {
	return FixedPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultReconnectDelay,
	}
}

func (p FixedPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

func (p FixedPolicy) NextDelay(int) time.Duration {
	return p.Delay
}
