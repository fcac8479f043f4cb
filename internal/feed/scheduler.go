package feed

import "time"

// Timer is a pending deferred callback.
type Timer interface {
	// Stop prevents the callback from running. Returns false if it already ran
	// or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay without blocking the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// realScheduler is backed by time.AfterFunc.
type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
