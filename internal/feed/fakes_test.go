package feed

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/deliveryfeed/internal/auth"
	"github.com/rickgao/deliveryfeed/internal/connection"
)

var errDialRefused = errors.New("dial: connection refused")

// fakeClient is a transport driven by the test.
type fakeClient struct {
	cfg        connection.ClientConfig
	connectErr error

	messages chan connection.TimestampedMessage
	errors   chan error

	mu     sync.Mutex
	closed bool
}

func (f *fakeClient) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return connection.ErrAlreadyClosed
	}
	return f.connectErr
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Messages() <-chan connection.TimestampedMessage { return f.messages }
func (f *fakeClient) Errors() <-chan error                        { return f.errors }

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed && f.connectErr == nil
}

func (f *fakeClient) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// deliver simulates an inbound frame.
func (f *fakeClient) deliver(data string) {
	f.messages <- connection.TimestampedMessage{Data: []byte(data), ReceivedAt: time.Now()}
}

// serverClose simulates the server ending the connection.
func (f *fakeClient) serverClose(code int, reason string) {
	f.errors <- &websocket.CloseError{Code: code, Text: reason}
}

// fakeDialer records every transport it hands out.
type fakeDialer struct {
	mu      sync.Mutex
	clients []*fakeClient
	fail    bool
}

func (d *fakeDialer) dial(cfg connection.ClientConfig, _ *slog.Logger) connection.Client {
	d.mu.Lock()
	defer d.mu.Unlock()

	fc := &fakeClient{
		cfg:      cfg,
		messages: make(chan connection.TimestampedMessage, 16),
		errors:   make(chan error, 1),
	}
	if d.fail {
		fc.connectErr = errDialRefused
	}
	d.clients = append(d.clients, fc)
	return fc
}

func (d *fakeDialer) setFail(fail bool) {
	d.mu.Lock()
	d.fail = fail
	d.mu.Unlock()
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.clients)
}

func (d *fakeDialer) last() *fakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.clients) == 0 {
		return nil
	}
	return d.clients[len(d.clients)-1]
}

// fakeScheduler is a manual clock for reconnect timers.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// advance moves the clock forward and runs every due timer in order.
func (s *fakeScheduler) advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// scheduled returns how many timers were ever created.
func (s *fakeScheduler) scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// pending returns how many timers have neither fired nor been stopped.
func (s *fakeScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

// blockingSource is a TokenSource that answers only when released or when
// the lookup is abandoned.
type blockingSource struct {
	release chan struct{}
	calls   chan struct{}
}

func newBlockingSource() *blockingSource {
	return &blockingSource{release: make(chan struct{}), calls: make(chan struct{}, 16)}
}

func (s *blockingSource) Credentials(ctx context.Context) (auth.Credentials, error) {
	s.calls <- struct{}{}
	select {
	case <-s.release:
		return auth.Credentials{UserID: "m1", AccessToken: "slow"}, nil
	case <-ctx.Done():
		return auth.Credentials{}, ctx.Err()
	}
}

// harness wires a registry to fakes.
type harness struct {
	reg     *Registry
	dialer  *fakeDialer
	sched   *fakeScheduler
	session *auth.Session
}

const testBaseURL = "ws://feed.test/ws"

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		dialer:  &fakeDialer{},
		sched:   &fakeScheduler{},
		session: auth.NewSession(),
	}
	h.session.Set(auth.Credentials{UserID: "m1", AccessToken: "tok"})

	cfg := Config{WSURL: testBaseURL, Client: connection.DefaultClientConfig()}
	h.reg = NewRegistry(cfg, h.session, nil,
		WithDialer(h.dialer.dial),
		WithScheduler(h.sched),
		WithPolicy(DefaultPolicy()),
	)
	t.Cleanup(h.reg.DisconnectAll)
	return h
}

func (h *harness) channel(t *testing.T, name string) *channelConnection {
	t.Helper()
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	c, ok := h.reg.channels[name]
	if !ok {
		t.Fatalf("channel %q not registered", name)
	}
	return c
}

func (h *harness) waitState(t *testing.T, name string, want State) {
	t.Helper()
	c := h.channel(t, name)
	eventually(t, func() bool {
		s, _ := c.snapshot()
		return s == want
	}, "state %s", want)
}

func (h *harness) waitPending(t *testing.T, want int) {
	t.Helper()
	eventually(t, func() bool { return h.sched.pending() == want }, "%d pending timers", want)
}

// waitDials waits until n transports have been dialed.
func (h *harness) waitDials(t *testing.T, n int) {
	t.Helper()
	eventually(t, func() bool { return h.dialer.count() == n }, "%d dials", n)
}

// waitIdle waits until the channel has no lookup, transport or open in flight.
func (h *harness) waitIdle(t *testing.T, name string) {
	t.Helper()
	c := h.channel(t, name)
	eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return !c.resolving && c.client == nil && c.current() == Disconnected
	}, "channel %s idle", name)
}

func (h *harness) attempts(t *testing.T, name string) int {
	t.Helper()
	_, n := h.channel(t, name).snapshot()
	return n
}

func eventually(t *testing.T, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timeout waiting for "+format, args...)
}
