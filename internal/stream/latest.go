package stream

import (
	"context"
	"sync"
)

// Latest holds a current value and replays it to every new subscriber before
// any later change. Setting a value equal to the current one is a no-op.
type Latest[T comparable] struct {
	mu          sync.Mutex
	value       T
	subscribers map[*subscriber[T]]struct{}
	closed      bool
}

// NewLatest creates a Latest holding initial.
func NewLatest[T comparable](initial T) *Latest[T] {
	return &Latest[T]{
		value:       initial,
		subscribers: make(map[*subscriber[T]]struct{}),
	}
}

// Get returns the current value.
func (l *Latest[T]) Get() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Set replaces the current value and emits it. Reports whether the value changed.
func (l *Latest[T]) Set(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || v == l.value {
		return false
	}
	l.value = v
	for sub := range l.subscribers {
		sub.send(v)
	}
	return true
}

// Subscribe attaches a subscriber that first receives the current value.
// On a closed Latest the subscriber receives the final value and then ends.
func (l *Latest[T]) Subscribe(ctx context.Context) Subscriber[T] {
	sub := newSubscriber[T](4)

	l.mu.Lock()
	sub.send(l.value)
	if l.closed {
		l.mu.Unlock()
		sub.end()
		return sub
	}
	l.subscribers[sub] = struct{}{}
	l.mu.Unlock()

	sub.onClose = func() { l.remove(sub) }
	sub.watch(ctx)
	return sub
}

// Len returns the number of attached subscribers.
func (l *Latest[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subscribers)
}

// Close ends every subscription after pending values are delivered.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for sub := range l.subscribers {
		sub.end()
	}
	clear(l.subscribers)
}

func (l *Latest[T]) remove(sub *subscriber[T]) {
	l.mu.Lock()
	delete(l.subscribers, sub)
	l.mu.Unlock()
}
