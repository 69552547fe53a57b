package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gkstorejd-max/gkstore-admin/internal/socketio"
)

// EventNewOrder is the server event carrying a freshly placed order.
const EventNewOrder = "newOrder"

// Disconnect reasons reported on EventDisconnected.
const (
	ReasonPingTimeout      = "ping timeout"
	ReasonTransportClose   = "transport close"
	ReasonTransportError   = "transport error"
	ReasonServerDisconnect = "io server disconnect"
	ReasonExhausted        = "reconnect attempts exhausted"
)

const (
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = time.Second
	defaultDialTimeout       = 10 * time.Second
	defaultEventBuffer       = 64
	defaultLiveness          = 45 * time.Second
)

// ConnectionState is the lifecycle state of the realtime channel.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateDisconnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// EventKind discriminates realtime events.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventReconnecting
	EventReconnected
	EventOrder
	EventBaseline
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventReconnecting:
		return "reconnecting"
	case EventReconnected:
		return "reconnected"
	case EventOrder:
		return "order"
	case EventBaseline:
		return "baseline"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is one item on the realtime channel's event stream.
type Event struct {
	Kind  EventKind
	State ConnectionState

	Order  Order   // EventOrder
	Orders []Order // EventBaseline
	Resync bool    // EventBaseline: true after a reconnect

	Attempt int    // EventReconnecting, EventReconnected, EventError
	Reason  string // EventDisconnected
	Err     error  // EventError, EventDisconnected
}

// BaselineFunc fetches today's orders so far.
type BaselineFunc func(ctx context.Context) ([]Order, error)

// ConnectError is a namespace connect refusal from the server.
type ConnectError struct {
	Message string
}

func (e *ConnectError) Error() string { return "connect error: " + e.Message }

// RealtimeOptions configures a Realtime channel.
type RealtimeOptions struct {
	URL        string   // server origin, e.g. "http://localhost:6005"
	Path       string   // engine path, default "/socket.io/"
	Namespace  string   // default "/"
	Transports []string // default websocket then polling

	ReconnectAttempts int
	ReconnectDelay    time.Duration
	DialTimeout       time.Duration

	Jar      http.CookieJar
	Baseline BaselineFunc
	Logger   *slog.Logger

	EventBuffer int
}

func (o RealtimeOptions) withDefaults() RealtimeOptions {
	if o.Path == "" {
		o.Path = "/socket.io/"
	}
	if o.Namespace == "" {
		o.Namespace = "/"
	}
	if len(o.Transports) == 0 {
		o.Transports = []string{TransportWebsocket, TransportPolling}
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = defaultReconnectAttempts
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = defaultReconnectDelay
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = defaultEventBuffer
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Realtime maintains the order event subscription. Events are delivered on a
// single channel in the order they happen; it is closed once the channel has
// been torn down.
type Realtime struct {
	opts     RealtimeOptions
	endpoint *url.URL
	logger   *slog.Logger

	events chan Event
	manual chan struct{}

	mu      sync.Mutex
	state   ConnectionState
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRealtime creates a channel. Nothing is dialled until Start.
func NewRealtime(opts RealtimeOptions) (*Realtime, error) {
	opts = opts.withDefaults()
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("realtime url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("realtime url %q: missing scheme or host", opts.URL)
	}
	for _, name := range opts.Transports {
		if name != TransportWebsocket && name != TransportPolling {
			return nil, fmt.Errorf("unknown realtime transport %q", name)
		}
	}
	u.Path = opts.Path
	u.RawQuery = ""

	return &Realtime{
		opts:     opts,
		endpoint: u,
		logger:   opts.Logger.With("component", "realtime"),
		events:   make(chan Event, opts.EventBuffer),
		manual:   make(chan struct{}, 1),
		state:    StateDisconnected,
		done:     make(chan struct{}),
	}, nil
}

// Events returns the event stream.
func (r *Realtime) Events() <-chan Event { return r.events }

// State returns the current connection state.
func (r *Realtime) State() ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start connects in the background. It is a no-op after the first call or
// after Close.
func (r *Realtime) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true
	r.state = StateConnecting
	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)
}

// Reconnect asks a channel that gave up reconnecting to start a new round of
// attempts. It has no effect while connected or reconnecting.
func (r *Realtime) Reconnect() {
	select {
	case r.manual <- struct{}{}:
	default:
	}
}

// Close tears the channel down: pending reconnect waits are cancelled, the
// transport is closed and the event stream is closed. Safe to call at any
// time and more than once.
func (r *Realtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	started, cancel := r.started, r.cancel
	r.mu.Unlock()

	if !started {
		close(r.events)
		close(r.done)
	} else {
		cancel()
		<-r.done
	}
	r.setState(StateDisconnected)
}

// Done is closed when the channel has been torn down.
func (r *Realtime) Done() <-chan struct{} { return r.done }

func (r *Realtime) setState(s ConnectionState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Realtime) emit(ctx context.Context, ev Event) {
	ev.State = r.State()
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}

func (r *Realtime) run(ctx context.Context) {
	defer close(r.done)
	defer close(r.events)

	t, err := r.connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("connect failed", "error", err)
		r.emit(ctx, Event{Kind: EventError, Err: err})
	}

	everConnected := false
	attempt := 0
	wait := true
	for {
		if t != nil {
			r.session(ctx, t, attempt, everConnected)
			everConnected = true
			if ctx.Err() != nil {
				return
			}
			wait = true
		}

		t, attempt, err = r.reconnect(ctx, wait)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		r.setState(StateDisconnected)
		r.logger.Warn("giving up reconnecting", "attempts", r.opts.ReconnectAttempts, "error", err)
		r.emit(ctx, Event{Kind: EventDisconnected, Reason: ReasonExhausted, Err: err})

		select {
		case <-ctx.Done():
			return
		case <-r.manual:
			r.logger.Info("manual reconnect requested")
		}
		wait = false
	}
}

// session runs one connected period and returns once the transport is gone.
func (r *Realtime) session(ctx context.Context, t *link, attempt int, resync bool) {
	defer t.Close()

	r.setState(StateConnected)
	if resync {
		r.logger.Info("reconnected", "transport", t.Name(), "attempt", attempt)
		r.emit(ctx, Event{Kind: EventReconnected, Attempt: attempt})
	} else {
		r.logger.Info("connected", "transport", t.Name())
		r.emit(ctx, Event{Kind: EventConnected})
	}
	r.fetchBaseline(ctx, resync)

	reason, err := r.serve(ctx, t)
	if ctx.Err() != nil {
		return
	}
	r.setState(StateDisconnected)
	r.logger.Warn("disconnected", "reason", reason, "error", err)
	r.emit(ctx, Event{Kind: EventDisconnected, Reason: reason, Err: err})
}

func (r *Realtime) fetchBaseline(ctx context.Context, resync bool) {
	if r.opts.Baseline == nil {
		return
	}
	orders, err := r.opts.Baseline(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("baseline fetch failed", "resync", resync, "error", err)
		r.emit(ctx, Event{Kind: EventError, Err: fmt.Errorf("fetch today's orders: %w", err)})
		return
	}
	r.emit(ctx, Event{Kind: EventBaseline, Orders: orders, Resync: resync})
}

// link is a transport that has joined the namespace, together with any
// packets that arrived alongside the connect acknowledgement.
type link struct {
	transport
	backlog []string
}

// reconnect runs one bounded round of reconnection attempts at fixed spacing.
func (r *Realtime) reconnect(ctx context.Context, wait bool) (*link, int, error) {
	select {
	case <-r.manual:
	default:
	}
	r.setState(StateReconnecting)

	if wait {
		timer := time.NewTimer(r.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, 0, ctx.Err()
		case <-timer.C:
		}
	}

	attempt := 0
	op := func() (*link, error) {
		attempt++
		r.emit(ctx, Event{Kind: EventReconnecting, Attempt: attempt})
		t, err := r.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			r.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
			r.emit(ctx, Event{Kind: EventError, Attempt: attempt, Err: err})
			return nil, err
		}
		return t, nil
	}

	t, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.opts.ReconnectDelay)),
		backoff.WithMaxTries(uint(r.opts.ReconnectAttempts)),
	)
	return t, attempt, err
}

// connect tries each transport in preference order.
func (r *Realtime) connect(ctx context.Context) (*link, error) {
	var errs []error
	for _, name := range r.opts.Transports {
		dctx, cancel := context.WithTimeout(ctx, r.opts.DialTimeout)
		t, err := r.dial(dctx, name)
		cancel()
		if err == nil {
			return t, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Debug("transport failed", "transport", name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return nil, errors.Join(errs...)
}

func (r *Realtime) dial(ctx context.Context, name string) (*link, error) {
	var (
		t   transport
		err error
	)
	switch name {
	case TransportWebsocket:
		t, err = dialWebsocket(ctx, r.endpoint, r.opts.Jar)
	case TransportPolling:
		t, err = dialPolling(ctx, r.endpoint, r.opts.Jar)
	default:
		err = fmt.Errorf("unknown transport %q", name)
	}
	if err != nil {
		return nil, err
	}
	backlog, err := r.joinNamespace(ctx, t)
	if err != nil {
		t.Close()
		return nil, err
	}
	return &link{transport: t, backlog: backlog}, nil
}

// joinNamespace sends the namespace connect packet and waits for the answer.
// Packets received after the acknowledgement in the same read are returned.
func (r *Realtime) joinNamespace(ctx context.Context, t transport) ([]string, error) {
	connect, err := socketio.ConnectPacket(r.opts.Namespace, nil)
	if err != nil {
		return nil, err
	}
	if err := t.Write(socketio.Message(connect)); err != nil {
		return nil, fmt.Errorf("send connect: %w", err)
	}

	type outcome struct {
		backlog []string
		err     error
	}
	result := make(chan outcome, 1)
	go func() {
		for {
			packets, err := t.Read()
			if err != nil {
				result <- outcome{err: fmt.Errorf("await connect: %w", err)}
				return
			}
			for i, raw := range packets {
				typ, data, err := socketio.DecodeEngine(raw)
				if err != nil {
					continue
				}
				switch typ {
				case socketio.EnginePing:
					t.Write(socketio.EncodeEngine(socketio.EnginePong, data))
				case socketio.EngineClose:
					result <- outcome{err: errTransportClosed}
					return
				case socketio.EngineMessage:
					p, err := socketio.Decode(data)
					if err != nil || p.Namespace != r.opts.Namespace {
						continue
					}
					switch p.Type {
					case socketio.PacketConnect:
						result <- outcome{backlog: packets[i+1:]}
						return
					case socketio.PacketConnectError:
						result <- outcome{err: &ConnectError{Message: p.ErrorMessage()}}
						return
					}
				}
			}
		}
	}()

	select {
	case out := <-result:
		return out.backlog, out.err
	case <-ctx.Done():
		t.Close()
		<-result
		return nil, ctx.Err()
	}
}

// serve reads packets until the transport goes away or ctx is cancelled.
func (r *Realtime) serve(ctx context.Context, t *link) (string, error) {
	type batch struct {
		packets []string
		err     error
	}
	reads := make(chan batch)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			packets, err := t.Read()
			select {
			case reads <- batch{packets, err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	liveness := defaultLiveness
	if open := t.Open(); open.PingInterval > 0 {
		liveness = time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond
	}
	watchdog := time.NewTimer(liveness)
	defer watchdog.Stop()

	for _, raw := range t.backlog {
		if reason := r.handle(ctx, t, raw); reason != "" {
			return reason, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			t.Write(socketio.Message(socketio.DisconnectPacket(r.opts.Namespace)))
			return "io client disconnect", nil
		case <-watchdog.C:
			return ReasonPingTimeout, nil
		case <-r.manual:
		case b := <-reads:
			if b.err != nil {
				return ReasonTransportError, b.err
			}
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(liveness)
			for _, raw := range b.packets {
				if reason := r.handle(ctx, t, raw); reason != "" {
					return reason, nil
				}
			}
		}
	}
}

// handle processes one engine packet. A non-empty result ends the session.
func (r *Realtime) handle(ctx context.Context, t transport, raw string) string {
	typ, data, err := socketio.DecodeEngine(raw)
	if err != nil {
		r.logger.Debug("bad engine packet", "error", err)
		return ""
	}
	switch typ {
	case socketio.EnginePing:
		if err := t.Write(socketio.EncodeEngine(socketio.EnginePong, data)); err != nil {
			r.logger.Debug("pong failed", "error", err)
		}
	case socketio.EngineClose:
		return ReasonTransportClose
	case socketio.EngineMessage:
		return r.handleSocket(ctx, data)
	}
	return ""
}

func (r *Realtime) handleSocket(ctx context.Context, data string) string {
	p, err := socketio.Decode(data)
	if err != nil {
		r.logger.Debug("bad socket packet", "error", err)
		return ""
	}
	if p.Namespace != r.opts.Namespace {
		return ""
	}
	switch p.Type {
	case socketio.PacketDisconnect:
		return ReasonServerDisconnect
	case socketio.PacketConnectError:
		err := &ConnectError{Message: p.ErrorMessage()}
		r.logger.Warn("connect error", "error", err)
		r.emit(ctx, Event{Kind: EventError, Err: err})
	case socketio.PacketEvent:
		name, args, err := p.Event()
		if err != nil {
			r.logger.Debug("bad event packet", "error", err)
			return ""
		}
		if name != EventNewOrder {
			r.logger.Debug("ignoring event", "event", name)
			return ""
		}
		order, err := decodeOrderEvent(args)
		if err != nil {
			r.logger.Warn("bad newOrder payload", "error", err)
			r.emit(ctx, Event{Kind: EventError, Err: err})
			return ""
		}
		r.logger.Debug("new order", "order_id", order.ID)
		r.emit(ctx, Event{Kind: EventOrder, Order: order})
	}
	return ""
}

func decodeOrderEvent(args []json.RawMessage) (Order, error) {
	if len(args) == 0 {
		return Order{}, errors.New("newOrder without payload")
	}
	var o Order
	if err := json.Unmarshal(args[0], &o); err != nil {
		return Order{}, fmt.Errorf("decode newOrder: %w", err)
	}
	if strings.TrimSpace(o.ID) == "" {
		return Order{}, errors.New("newOrder without _id")
	}
	return o, nil
}
