package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/saaskit/pkg/statemachine"
	"github.com/google/uuid"

	"github.com/rickgao/deliveryfeed/internal/auth"
	"github.com/rickgao/deliveryfeed/internal/connection"
	"github.com/rickgao/deliveryfeed/internal/router"
	"github.com/rickgao/deliveryfeed/internal/stream"
)

// credentialTimeout bounds a single TokenSource lookup.
const credentialTimeout = 5 * time.Second

// channelConnection owns at most one transport to one logical channel.
// All state is mutated in handle, open and close under mu. Nothing that can
// block on the network or on the TokenSource runs with mu held.
type channelConnection struct {
	name   string
	id     uuid.UUID
	logger *slog.Logger

	baseURL   string
	clientCfg connection.ClientConfig
	tokens    auth.TokenSource
	dial      connection.Dialer
	policy    ReconnectPolicy
	scheduler Scheduler
	router    *router.Router

	messages *MessageStream
	states   *stream.Latest[State]

	mu        sync.Mutex
	fsm       statemachine.StateMachine
	client    connection.Client // nil when no transport is live
	cancel    context.CancelFunc
	gen       uint64 // bumped for every open and on close
	attempts  int    // reconnects scheduled since the last successful open
	timer     Timer  // pending reconnect
	resolving bool   // credential lookup in flight
	closed    bool   // deliberately torn down
}

// connect opens the channel unless it already has a live transport, a
// pending reconnect or an open in flight. The retry budget starts over.
func (c *channelConnection) connect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.client != nil || c.timer != nil || c.resolving {
		return
	}
	c.attempts = 0
	c.open()
}

// open starts a new generation and looks up credentials for it in the
// background. The channel stays Disconnected until they arrive.
// Must be called with mu held.
func (c *channelConnection) open() {
	c.gen++
	gen := c.gen

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.resolving = true

	c.logger.Debug("opening channel", "gen", gen, "attempt", c.attempts)
	go c.resolve(ctx, gen)
}

// resolve fetches fresh credentials and reports the endpoint they give.
func (c *channelConnection) resolve(ctx context.Context, gen uint64) {
	ctx, cancel := context.WithTimeout(ctx, credentialTimeout)
	creds, err := c.tokens.Credentials(ctx)
	cancel()

	var url string
	if err == nil {
		url, err = connection.Endpoint(c.baseURL, c.name, creds.UserID, creds.AccessToken)
	}
	c.handle(event{kind: eventCredentials, gen: gen, url: url, err: err})
}

// startTransport dials url for gen. Must be called with mu held.
func (c *channelConnection) startTransport(gen uint64, url string) {
	cfg := c.clientCfg
	cfg.URL = url
	client := c.dial(cfg, c.logger.With("gen", gen))

	ctx, cancel := context.WithCancel(context.Background())
	c.client = client
	c.cancel = cancel
	c.fire(triggerDial, gen)

	go c.run(ctx, gen, client)
}

// run dials client and turns its output into events until the transport ends.
func (c *channelConnection) run(ctx context.Context, gen uint64, client connection.Client) {
	if err := client.Connect(ctx); err != nil {
		c.handle(event{kind: eventFailed, gen: gen, err: err})
		return
	}
	c.handle(event{kind: eventOpened, gen: gen})

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-client.Messages():
			c.handle(event{kind: eventMessage, gen: gen, msg: msg})
		case err := <-client.Errors():
			// Frames read before the failure are already buffered
			for drained := false; !drained; {
				select {
				case msg := <-client.Messages():
					c.handle(event{kind: eventMessage, gen: gen, msg: msg})
				default:
					drained = true
				}
			}
			c.handle(event{kind: eventClosed, gen: gen, err: err})
			return
		}
	}
}

// handle applies one event.
func (c *channelConnection) handle(ev event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || ev.gen != c.gen {
		c.logger.Debug("ignoring stale event", "event", ev.kind, "gen", ev.gen)
		return
	}

	switch ev.kind {
	case eventCredentials:
		c.resolving = false
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		if ev.err != nil {
			c.logger.Warn("cannot open channel", "error", ev.err)
			return
		}
		c.startTransport(ev.gen, ev.url)

	case eventOpened:
		c.attempts = 0
		c.fire(triggerOpen, ev.gen)
		c.logger.Info("channel connected", "gen", ev.gen)

	case eventMessage:
		c.router.Route(connection.RawMessage{
			Data:       ev.msg.Data,
			Channel:    c.name,
			ReceivedAt: ev.msg.ReceivedAt,
		})

	case eventClosed, eventFailed:
		c.dropTransport()
		c.fire(triggerDrop, ev.gen)
		code, reason := connection.CloseInfo(ev.err)
		c.logger.Warn("channel disconnected",
			"event", ev.kind,
			"code", code,
			"reason", reason,
			"attempts", c.attempts,
		)
		c.scheduleReconnect()

	case eventRetry:
		c.timer = nil
		c.open()
	}
}

// scheduleReconnect consults the policy. Must be called with mu held.
func (c *channelConnection) scheduleReconnect() {
	if !c.policy.ShouldRetry(c.attempts) {
		c.logger.Warn("reconnect attempts exhausted", "attempts", c.attempts)
		return
	}

	c.attempts++
	delay := c.policy.NextDelay(c.attempts)
	gen := c.gen
	c.timer = c.scheduler.AfterFunc(delay, func() {
		c.handle(event{kind: eventRetry, gen: gen})
	})

	c.logger.Info("reconnect scheduled", "attempt", c.attempts, "delay", delay)
}

// close tears the channel down for good and ends its streams.
func (c *channelConnection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.gen++

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.dropTransport()
	c.fire(triggerClose, c.gen)

	c.messages.Close()
	c.states.Close()

	c.logger.Info("channel closed")
}

// dropTransport abandons any credential lookup and releases the live
// transport, if any. Must be called with mu held.
func (c *channelConnection) dropTransport() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.resolving = false
	if c.client == nil {
		return
	}
	if err := c.client.Close(); err != nil {
		c.logger.Debug("transport close error", "error", err)
	}
	c.client = nil
}

func (c *channelConnection) snapshot() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current(), c.attempts
}
