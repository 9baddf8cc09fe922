package durasock

import (
	"sync"
	"time"

	"github.com/durasock/durasock/pkg/logger"
)

// heartbeatEngine detects transport staleness the peer's close event would
// miss. One engine is created per live transport and stopped on every exit
// from the open state.
//
// With InitiatorSelf the engine sends a ping on each interval tick (the first
// probe goes out one full interval after start, not immediately) and arms a
// dead man's switch for the answering pong. With InitiatorPeer it sends
// nothing on its own; it expects the peer to ping within interval+timeout and
// replies with pongs.
type heartbeatEngine struct {
	interval  time.Duration
	timeout   time.Duration
	initiator Initiator

	// send writes a reserved envelope of the given type to the transport.
	send func(envelopeType string)
	// onFailure runs once when a probe times out or the peer goes silent.
	onFailure func()

	log logger.Logger

	mu      sync.Mutex
	pending *pendingProbe
	idle    *time.Timer
	stopCh  chan struct{}
	stopped bool
}

// pendingProbe pairs an outstanding probe's timeout timer with its send
// timestamp, for round-trip logging.
type pendingProbe struct {
	timer  *time.Timer
	sentAt time.Time
}

func newHeartbeatEngine(cfg Config, send func(string), onFailure func(), log logger.Logger) *heartbeatEngine {
	return &heartbeatEngine{
		interval:  cfg.HeartbeatInterval,
		timeout:   cfg.ProbeTimeout,
		initiator: cfg.HeartbeatInitiator,
		send:      send,
		onFailure: onFailure,
		log:       log,
		stopCh:    make(chan struct{}),
	}
}

func (h *heartbeatEngine) start() {
	if h.initiator == InitiatorPeer {
		h.mu.Lock()
		h.idle = time.AfterFunc(h.interval+h.timeout, h.fail)
		h.mu.Unlock()
		return
	}
	go h.run()
}

func (h *heartbeatEngine) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.probe()
		}
	}
}

func (h *heartbeatEngine) probe() {
	h.mu.Lock()
	if h.stopped || h.pending != nil {
		// An unanswered probe is already outstanding; its timer decides.
		h.mu.Unlock()
		return
	}
	p := &pendingProbe{sentAt: time.Now()}
	p.timer = time.AfterFunc(h.timeout, h.fail)
	h.pending = p
	h.mu.Unlock()

	h.log.Debug("sending heartbeat probe")
	h.send(TypePing)
}

func (h *heartbeatEngine) fail() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if h.initiator == InitiatorSelf && h.pending == nil {
		// The pong won the race against the timer.
		h.mu.Unlock()
		return
	}
	h.pending = nil
	h.mu.Unlock()

	h.log.Debug("heartbeat probe timed out, declaring transport dead")
	h.onFailure()
}

// handlePong clears the outstanding probe. A pong with no probe outstanding
// is ignored.
func (h *heartbeatEngine) handlePong() {
	h.mu.Lock()
	p := h.pending
	h.pending = nil
	h.mu.Unlock()

	if p == nil {
		return
	}
	p.timer.Stop()
	h.log.Debug("heartbeat pong received", "rtt", time.Since(p.sentAt))
}

// handlePing answers a peer probe and, in peer-driven mode, re-arms the
// silence timer.
func (h *heartbeatEngine) handlePing() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if h.idle != nil {
		h.idle.Reset(h.interval + h.timeout)
	}
	h.mu.Unlock()

	h.send(TypePong)
}

// stop cancels the interval loop and every outstanding timer. Safe to call
// more than once. Nothing fires after stop returns.
func (h *heartbeatEngine) stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	if h.pending != nil {
		h.pending.timer.Stop()
		h.pending = nil
	}
	if h.idle != nil {
		h.idle.Stop()
		h.idle = nil
	}
	h.mu.Unlock()

	close(h.stopCh)
}
