package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rickgao/deliveryfeed/internal/connection"
)

// Errors
var (
	ErrInvalidUTF8 = errors.New("frame is not valid UTF-8")
	ErrNotObject   = errors.New("frame is not a JSON object")
)

// Sink receives the envelopes of one channel. Publish must not block.
type Sink interface {
	Publish(Envelope)
}

// Stats contains runtime statistics.
type Stats struct {
	Received    int64
	Routed      int64
	ParseErrors int64
	Unroutable  int64
}

// Router decodes frames and delivers them to per-channel sinks.
// All methods are safe for concurrent use.
type Router struct {
	logger *slog.Logger

	mu    sync.RWMutex
	sinks map[string]Sink

	received    atomic.Int64
	routed      atomic.Int64
	parseErrors atomic.Int64
	unroutable  atomic.Int64
}

// New creates a router with no sinks registered.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger: logger,
		sinks:  make(map[string]Sink),
	}
}

// Register sets the sink for channel, replacing any previous one.
func (r *Router) Register(channel string, sink Sink) {
	r.mu.Lock()
	r.sinks[channel] = sink
	r.mu.Unlock()
}

// Unregister removes the sink for channel.
func (r *Router) Unregister(channel string) {
	r.mu.Lock()
	delete(r.sinks, channel)
	r.mu.Unlock()
}

// Route decodes raw and publishes it to the sink of raw.Channel.
// Returns false if the frame was dropped.
func (r *Router) Route(raw connection.RawMessage) bool {
	r.received.Add(1)

	env, err := Decode(raw)
	if err != nil {
		r.parseErrors.Add(1)
		r.logger.Warn("dropping malformed frame",
			"channel", raw.Channel,
			"bytes", len(raw.Data),
			"error", err,
		)
		return false
	}

	r.mu.RLock()
	sink, ok := r.sinks[raw.Channel]
	r.mu.RUnlock()

	if !ok {
		r.unroutable.Add(1)
		r.logger.Debug("no sink for channel", "channel", raw.Channel, "type", env.Type)
		return false
	}

	sink.Publish(env)
	r.routed.Add(1)
	return true
}

// Stats returns current statistics.
func (r *Router) Stats() Stats {
	return Stats{
		Received:    r.received.Load(),
		Routed:      r.routed.Load(),
		ParseErrors: r.parseErrors.Load(),
		Unroutable:  r.unroutable.Load(),
	}
}

// Decode turns a raw frame into an envelope.
func Decode(raw connection.RawMessage) (Envelope, error) {
	if !utf8.Valid(raw.Data) {
		return Envelope{}, ErrInvalidUTF8
	}

	var v any
	if err := json.Unmarshal(raw.Data, &v); err != nil {
		return Envelope{}, fmt.Errorf("parse frame: %w", err)
	}
	payload, ok := v.(map[string]any)
	if !ok {
		return Envelope{}, ErrNotObject
	}

	return Envelope{
		ID:        uuid.New(),
		Channel:   raw.Channel,
		Type:      messageType(payload),
		Timestamp: raw.ReceivedAt,
		raw:       json.RawMessage(bytes.Clone(raw.Data)),
	}, nil
}

// messageType picks the discriminant. An explicit string "type" wins.
func messageType(payload map[string]any) string {
	if t, ok := payload["type"].(string); ok && t != "" {
		return t
	}
	switch {
	case has(payload, "notification_id"):
		return TypeNotificationStatus
	case has(payload, "campaign_id"):
		return TypeCampaignStatus
	case has(payload, "total_notifications"):
		return TypeDashboardStats
	}
	return TypeOpaque
}

func has(payload map[string]any, key string) bool {
	_, ok := payload[key]
	return ok
}
