package stream

import (
	"context"
	"sync"
)

// Subscriber receives values from a Latest.
type Subscriber[T any] interface {
	// C returns the receive channel. It is closed when the subscription ends.
	C() <-chan T

	// Close ends the subscription. Idempotent.
	Close() error
}

// subscriber forwards values from its queue to an unbuffered channel.
type subscriber[T any] struct {
	queue    *Queue[T]
	out      chan T
	done     chan struct{} // closed by Close
	finished chan struct{} // closed when forward exits
	once     sync.Once

	// onClose detaches the subscriber from its source
	onClose func()
}

func newSubscriber[T any](queueSize int) *subscriber[T] {
	s := &subscriber[T]{
		queue:    NewQueue[T](queueSize),
		out:      make(chan T),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *subscriber[T]) C() <-chan T {
	return s.out
}

// Close discards anything still queued.
func (s *subscriber[T]) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.queue.Close()
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

// end is used by the source when it shuts down: queued values are still delivered.
func (s *subscriber[T]) end() {
	s.queue.Close()
}

func (s *subscriber[T]) send(v T) bool {
	return s.queue.Push(v)
}

func (s *subscriber[T]) forward() {
	defer close(s.finished)
	defer close(s.out)
	for {
		v, ok := s.queue.Pop()
		if !ok {
			return
		}
		select {
		case s.out <- v:
		case <-s.done:
			return
		}
	}
}

// watch closes the subscriber when ctx is cancelled.
func (s *subscriber[T]) watch(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.finished:
		}
	}()
}
