package feed

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/deliveryfeed/internal/auth"
	"github.com/rickgao/deliveryfeed/internal/connection"
	"github.com/rickgao/deliveryfeed/internal/router"
	"github.com/rickgao/deliveryfeed/internal/stream"
)

// StateStream replays the current State of one channel to new subscribers.
type StateStream = stream.Latest[State]

// Config configures a Registry.
type Config struct {
	WSURL  string                  // Base URL, e.g. wss://notify.example.com/ws
	Client connection.ClientConfig // Transport settings; URL is filled per channel
}

// Stats contains runtime statistics.
type Stats struct {
	Channels   int
	Connected  int
	Connecting int
	Router     router.Stats
}

// Option configures a Registry.
type Option func(*Registry)

// WithDialer replaces the transport constructor.
func WithDialer(d connection.Dialer) Option {
	return func(r *Registry) { r.dial = d }
}

// WithPolicy replaces the reconnect policy.
func WithPolicy(p ReconnectPolicy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithScheduler replaces the timer source used for reconnect delays.
func WithScheduler(s Scheduler) Option {
	return func(r *Registry) { r.scheduler = s }
}

// WithRouter replaces the message router.
func WithRouter(rt *router.Router) Option {
	return func(r *Registry) { r.router = rt }
}

// Registry owns the channel connections of one session. Create one per
// login and call DisconnectAll on logout. All methods are safe for
// concurrent use and none of them block on the network.
type Registry struct {
	cfg       Config
	tokens    auth.TokenSource
	logger    *slog.Logger
	dial      connection.Dialer
	policy    ReconnectPolicy
	scheduler Scheduler
	router    *router.Router

	mu       sync.Mutex
	channels map[string]*channelConnection
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config, tokens auth.TokenSource, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if tokens == nil {
		tokens = auth.NewSession()
	}

	r := &Registry{
		cfg:       cfg,
		tokens:    tokens,
		logger:    logger,
		dial:      connection.NewClient,
		policy:    DefaultPolicy(),
		scheduler: realScheduler{},
		channels:  make(map[string]*channelConnection),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.router == nil {
		r.router = router.New(logger)
	}
	return r
}

// Connect opens the named channel if needed and returns its message stream.
// Repeated calls share one transport and return the same stream. Calling
// Connect on a channel that gave up reconnecting starts it over.
func (r *Registry) Connect(name string) *MessageStream {
	c := r.lookupOrInsert(name)
	c.connect()
	return c.messages
}

// StateOf returns the state stream of the named channel. The channel is
// registered, idle, if it was not known yet.
func (r *Registry) StateOf(name string) *StateStream {
	return r.lookupOrInsert(name).states
}

// Disconnect tears down the named channel and forgets it. Its streams end.
func (r *Registry) Disconnect(name string) {
	r.mu.Lock()
	c, ok := r.channels[name]
	if ok {
		delete(r.channels, name)
		r.router.Unregister(name)
	}
	r.mu.Unlock()

	if ok {
		c.close()
	}
}

// DisconnectAll tears down every channel. Safe to call repeatedly.
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[string]*channelConnection)
	for name := range channels {
		r.router.Unregister(name)
	}
	r.mu.Unlock()

	for _, c := range channels {
		c.close()
	}
	if len(channels) > 0 {
		r.logger.Info("all channels disconnected", "count", len(channels))
	}
}

// Channels returns the sorted names of the known channels.
func (r *Registry) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.channels))
}

// Stats returns current statistics.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	channels := make([]*channelConnection, 0, len(r.channels))
	for _, c := range r.channels {
		channels = append(channels, c)
	}
	r.mu.Unlock()

	stats := Stats{
		Channels: len(channels),
		Router:   r.router.Stats(),
	}
	for _, c := range channels {
		switch state, _ := c.snapshot(); state {
		case Connected:
			stats.Connected++
		case Connecting:
			stats.Connecting++
		}
	}
	return stats
}

func (r *Registry) lookupOrInsert(name string) *channelConnection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.channels[name]; ok {
		return c
	}

	id := uuid.New()
	c := &channelConnection{
		name:      name,
		id:        id,
		logger:    r.logger.With("channel", name, "conn_id", id.String()),
		baseURL:   r.cfg.WSURL,
		clientCfg: r.cfg.Client,
		tokens:    r.tokens,
		dial:      r.dial,
		policy:    r.policy,
		scheduler: r.scheduler,
		router:    r.router,
		messages:  newMessageStream(r.cfg.Client.BufferSize),
		states:    stream.NewLatest(Disconnected),
	}
	c.fsm = newLifecycle(c)
	r.channels[name] = c
	r.router.Register(name, c.messages)
	return c
}
