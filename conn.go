package durasock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/durasock/durasock/internal/codec"
	"github.com/durasock/durasock/pkg/logger"
	"github.com/durasock/durasock/pkg/transport"
)

// ErrClosed is returned by Connect when the controller is being torn down
// concurrently.
var ErrClosed = errors.New("durasock: connection is closed")

// ErrProbeTimeout is the closure cause passed to OnClose when the heartbeat
// declared the transport dead.
var ErrProbeTimeout = errors.New("durasock: heartbeat probe timed out")

// Conn is the connection controller: it owns the current transport, drives
// the lifecycle state machine, and routes events between the heartbeat
// engine, the reconnect scheduler, and the caller.
//
// A Conn owns at most one live transport at a time. Transports are never
// reused; every reconnect dials a fresh one.
type Conn struct {
	// OnOpen fires after every successful open, initial or reconnect.
	OnOpen func()
	// OnMessage receives application frames. Reserved ping/pong envelopes
	// are intercepted by the heartbeat and never delivered here.
	OnMessage func(Message)
	// OnClose fires once per real transport closure. The error is the
	// closure cause; nil for closures this side initiated.
	OnClose func(err error)
	// OnError receives transport errors verbatim. An error is never fatal
	// by itself; the closure that follows it drives recovery.
	OnError func(err error)

	// The four slots above are plain assignable fields: at most one
	// handler per event, assigning replaces. Assign them before Connect;
	// assignment is not synchronized with delivery.

	url    string
	cfg    Config
	log    logger.Logger
	dialer transport.Dialer
	codec  codec.Codec
	kind   transport.MessageKind

	sched *reconnectScheduler

	mu        sync.Mutex
	state     State
	suspended bool

	// gen counts transport generations. Every dial, manual close, and
	// suspension bumps it; events carrying a stale generation are dropped,
	// so a replaced transport can never act on its successor's state.
	gen       int
	sessionID string
	tr        transport.Transport
	hb        *heartbeatEngine

	// unregister evicts this controller from its registry on Close.
	unregister func()
}

// New builds a controller for the given URL. http/https schemes are rewritten
// to ws/wss. The configuration is validated once here; invalid values are a
// construction-time error. New never dials; call [Conn.Connect].
func New(rawURL string, cfg *Config) (*Conn, error) {
	var conf Config
	if cfg != nil {
		conf = *cfg
	}
	conf = conf.withDefaults()
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	u, err := rewriteScheme(rawURL)
	if err != nil {
		return nil, err
	}

	cod, kind := conf.codec()
	c := &Conn{
		url:    u,
		cfg:    conf,
		log:    conf.Logger,
		dialer: conf.Dialer,
		codec:  cod,
		kind:   kind,
		state:  StateIdle,
	}
	c.sched = newReconnectScheduler(conf.retryer(), c.redial, conf.Logger)
	return c, nil
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsClosed reports whether the controller was closed by the caller.
func (c *Conn) IsClosed() bool {
	return c.State() == StateClosed
}

// URL returns the transport URL after scheme rewriting.
func (c *Conn) URL() string { return c.url }

func (c *Conn) transitionToLocked(newState State) error {
	if err := c.state.validateTransitionTo(newState); err != nil {
		return err
	}
	c.state = newState
	c.log.Debug("connection state transitioned", "new_state", newState)
	return nil
}

func (c *Conn) mustTransitionToLocked(newState State) {
	if err := c.transitionToLocked(newState); err != nil {
		panic(fmt.Sprintf("BUG: %v", err))
	}
}

// Connect dials the transport. It is idempotent: a no-op while already
// connecting or open. Calling it on a closed controller reopens it with a
// clean reconnect slate.
//
// The initial connection error is returned to the caller rather than fed to
// the reconnect scheduler, so the host decides what a misconfigured endpoint
// means for it. Automatic reconnection engages only after a successful open.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateOpen:
		c.mu.Unlock()
		return nil
	case StateClosing:
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.state
	c.suspended = false
	c.mustTransitionToLocked(StateConnecting)
	c.mu.Unlock()

	if prev == StateClosed {
		c.sched.resume()
	} else {
		c.sched.cancelPending()
	}

	if err := c.dial(ctx); err != nil {
		c.mu.Lock()
		if c.state == StateConnecting {
			if prev == StateReconnecting {
				c.mustTransitionToLocked(StateReconnecting)
			} else {
				c.mustTransitionToLocked(StateIdle)
			}
		}
		c.mu.Unlock()
		if prev == StateReconnecting {
			c.sched.Schedule(err)
		}
		return err
	}
	return nil
}

// dial opens a new transport generation and, on success, brings the
// controller to the open state.
func (c *Conn) dial(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	cb := transport.Callbacks{
		OnMessage: func(kind transport.MessageKind, data []byte) { c.handleMessage(gen, kind, data) },
		OnClose:   func(err error) { c.handleUnexpectedClose(gen, err) },
		OnError:   func(err error) { c.handleTransportError(gen, err) },
	}

	tr, err := c.dialer.Dial(ctx, c.url, cb)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		// Close or suspension won the race; discard the fresh transport.
		c.mu.Unlock()
		tr.Detach()
		_ = closeTransport(tr)
		return ErrClosed
	}
	c.tr = tr
	c.sessionID = uuid.NewString()
	sessionID := c.sessionID
	c.mustTransitionToLocked(StateOpen)
	hb := newHeartbeatEngine(
		c.cfg,
		func(envelopeType string) { c.sendReserved(gen, envelopeType) },
		func() { c.forceClose(gen, ErrProbeTimeout) },
		c.log,
	)
	c.hb = hb
	onOpen := c.OnOpen
	c.mu.Unlock()

	c.sched.Reset()
	hb.start()

	c.log.Info("connection open", "session_id", sessionID, "url", c.url)
	if onOpen != nil {
		onOpen()
	}
	return nil
}

// redial is the reconnect scheduler's entry point.
func (c *Conn) redial() {
	c.mu.Lock()
	if c.state != StateReconnecting || c.suspended {
		c.mu.Unlock()
		return
	}
	c.mustTransitionToLocked(StateConnecting)
	c.mu.Unlock()

	if err := c.dial(context.Background()); err != nil {
		c.log.Debug("reconnect attempt failed", "error", err)
		c.mu.Lock()
		if c.state == StateConnecting {
			c.mustTransitionToLocked(StateReconnecting)
		}
		c.mu.Unlock()
		c.sched.Schedule(err)
	}
}

// Send serializes the payload and writes it to the transport if and only if
// the connection is open. Otherwise the call is a no-op: this connection
// makes no delivery guarantees while reconnecting, by contract.
func (c *Conn) Send(payload any) error {
	c.mu.Lock()
	if c.state != StateOpen || c.tr == nil {
		state := c.state
		c.mu.Unlock()
		c.log.Debug("dropping send, connection is not open", "state", state)
		return nil
	}
	tr := c.tr
	c.mu.Unlock()

	data, err := c.codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := tr.Send(c.kind, data); err != nil {
		return fmt.Errorf("send payload: %w", err)
	}
	return nil
}

// sendReserved writes a heartbeat envelope for the given transport
// generation. Stale generations are dropped.
func (c *Conn) sendReserved(gen int, envelopeType string) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateOpen || c.tr == nil {
		c.mu.Unlock()
		return
	}
	tr := c.tr
	c.mu.Unlock()

	data, err := c.codec.Marshal(Envelope{Type: envelopeType})
	if err != nil {
		c.log.Error("BUG: failed to marshal reserved envelope", "error", err)
		return
	}
	if err := tr.Send(c.kind, data); err != nil {
		c.log.Debug("failed to write reserved envelope", "type", envelopeType, "error", err)
	}
}

// handleMessage decodes an inbound frame and routes it: reserved envelopes to
// the heartbeat, everything else to OnMessage. Malformed frames are logged
// and dropped, never surfaced as errors.
func (c *Conn) handleMessage(gen int, _ transport.MessageKind, data []byte) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateOpen {
		c.mu.Unlock()
		return
	}
	hb := c.hb
	onMessage := c.OnMessage
	c.mu.Unlock()

	var env Envelope
	if err := c.codec.Unmarshal(data, &env); err != nil {
		c.log.Debug("dropping malformed frame", "error", err)
		return
	}
	if env.Type == "" {
		c.log.Debug("dropping frame without a type field")
		return
	}

	switch env.Type {
	case TypePing:
		hb.handlePing()
	case TypePong:
		hb.handlePong()
	default:
		if onMessage != nil {
			onMessage(Message{Type: env.Type, Data: data, codec: c.codec})
		}
	}
}

// handleUnexpectedClose runs the recovery path for a transport closure this
// side did not ask for. Both real peer closures and forced closures (probe
// timeout, transport error) converge here, so they share one scheduler entry
// point and one attempt-ceiling account.
func (c *Conn) handleUnexpectedClose(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateOpen {
		c.mu.Unlock()
		return
	}
	c.stopHeartbeatLocked()
	tr := c.tr
	c.tr = nil
	c.mustTransitionToLocked(StateReconnecting)
	onClose := c.OnClose
	c.mu.Unlock()

	if tr != nil {
		tr.Detach()
		_ = closeTransport(tr)
	}

	c.log.Info("transport closed unexpectedly", "cause", cause)
	if onClose != nil {
		onClose(cause)
	}
	c.sched.Schedule(cause)
}

// handleTransportError forwards the error to the caller and then force-closes
// the transport, treating it as an unexpected closure.
func (c *Conn) handleTransportError(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	onError := c.OnError
	c.mu.Unlock()

	c.log.Debug("transport error", "error", err)
	if onError != nil {
		onError(err)
	}
	c.forceClose(gen, err)
}

// forceClose tears the transport down and enters the unexpected-close path.
// A closure already being handled makes this a no-op.
func (c *Conn) forceClose(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateOpen {
		c.mu.Unlock()
		return
	}
	tr := c.tr
	c.mu.Unlock()

	if tr != nil {
		tr.Detach()
		_ = closeTransport(tr)
	}
	c.handleUnexpectedClose(gen, cause)
}

// Close tears the controller down: heartbeat stopped, reconnection disabled,
// transport closed, timers released. It is idempotent, and terminal until the
// caller invokes Connect explicitly again.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.state == StateClosed || c.state == StateClosing {
		c.mu.Unlock()
		return nil
	}
	c.mustTransitionToLocked(StateClosing)
	c.stopHeartbeatLocked()
	c.gen++
	tr := c.tr
	c.tr = nil
	c.suspended = false
	unregister := c.unregister
	c.unregister = nil
	onClose := c.OnClose
	c.mu.Unlock()

	c.sched.Stop()

	var err error
	if tr != nil {
		tr.Detach()
		err = closeTransport(tr)
	}

	if unregister != nil {
		unregister()
	}

	c.mu.Lock()
	c.mustTransitionToLocked(StateClosed)
	c.mu.Unlock()

	c.log.Info("connection closed")
	if tr != nil && onClose != nil {
		onClose(nil)
	}
	return err
}

// suspend force-closes the transport without engaging the reconnect
// scheduler. Used by the visibility gate on backgrounding.
func (c *Conn) suspend() {
	c.mu.Lock()
	switch c.state {
	case StateOpen, StateConnecting, StateReconnecting:
	default:
		c.mu.Unlock()
		return
	}
	if c.suspended {
		c.mu.Unlock()
		return
	}
	c.suspended = true
	c.stopHeartbeatLocked()
	c.gen++
	tr := c.tr
	c.tr = nil
	if c.state != StateReconnecting {
		c.mustTransitionToLocked(StateReconnecting)
	}
	onClose := c.OnClose
	c.mu.Unlock()

	c.sched.cancelPending()

	if tr != nil {
		tr.Detach()
		_ = closeTransport(tr)
	}

	c.log.Info("connection suspended")
	if tr != nil && onClose != nil {
		onClose(nil)
	}
}

// resume redials immediately after a foreground signal, bypassing the
// reconnect backoff: this is a deliberate resume, not a failure retry.
func (c *Conn) resume() {
	c.mu.Lock()
	if !c.suspended {
		c.mu.Unlock()
		return
	}
	c.suspended = false
	c.mustTransitionToLocked(StateConnecting)
	c.mu.Unlock()

	c.log.Info("connection resuming after foreground signal")
	if err := c.dial(context.Background()); err != nil {
		c.log.Debug("resume dial failed", "error", err)
		c.mu.Lock()
		if c.state == StateConnecting {
			c.mustTransitionToLocked(StateReconnecting)
		}
		c.mu.Unlock()
		c.sched.Schedule(err)
	}
}

func (c *Conn) stopHeartbeatLocked() {
	if c.hb != nil {
		c.hb.stop()
		c.hb = nil
	}
}

func closeTransport(tr transport.Transport) error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return tr.Close(ctx)
}
