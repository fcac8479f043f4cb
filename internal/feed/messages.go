package feed

import (
	"context"
	"sync/atomic"

	"github.com/dmitrymomot/saaskit/pkg/broadcast"

	"github.com/rickgao/deliveryfeed/internal/router"
)

// EnvelopeSubscriber receives the envelopes of one channel.
type EnvelopeSubscriber = broadcast.Subscriber[router.Envelope]

// MessageStream carries the envelopes of one channel. It is shared by every
// caller that connects the channel.
//
// Each subscriber has a buffer of Config.Client.BufferSize envelopes. A
// subscriber that falls further behind is dropped: its channel closes and
// the other subscribers are unaffected.
type MessageStream struct {
	b         *broadcast.MemoryBroadcaster[router.Envelope]
	published atomic.Int64

	// done is cancelled by Close and ends every subscription context
	done   context.Context
	cancel context.CancelFunc
}

func newMessageStream(bufferSize int) *MessageStream {
	done, cancel := context.WithCancel(context.Background())
	return &MessageStream{
		b:      broadcast.NewMemoryBroadcaster[router.Envelope](bufferSize),
		done:   done,
		cancel: cancel,
	}
}

// Subscribe attaches a subscriber that receives every envelope published
// from now on. It ends when ctx is cancelled or the stream closes.
func (s *MessageStream) Subscribe(ctx context.Context) EnvelopeSubscriber {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.done, cancel)
	context.AfterFunc(ctx, func() { stop() })
	return s.b.Subscribe(ctx)
}

// Publish implements router.Sink. It never blocks.
func (s *MessageStream) Publish(env router.Envelope) {
	_ = s.b.Broadcast(context.Background(), broadcast.Message[router.Envelope]{Data: env})
	s.published.Add(1)
}

// Published returns how many envelopes were published on the stream.
func (s *MessageStream) Published() int64 {
	return s.published.Load()
}

// Close ends every subscription.
func (s *MessageStream) Close() {
	s.cancel()
	_ = s.b.Close()
}
