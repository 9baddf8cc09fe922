package durasock

import "sync"

// Signal is a host-environment visibility transition.
type Signal int

const (
	// Foreground means the host became visible again; a suspended
	// connection redials immediately.
	Foreground Signal = iota
	// Background means the host was backgrounded; the connection is
	// suspended, not failed, so the reconnect backoff stays out of it.
	Background
)

func (s Signal) String() string {
	switch s {
	case Foreground:
		return "Foreground"
	case Background:
		return "Background"
	default:
		return "InvalidSignal"
	}
}

// VisibilityGate ties a connection to a host-provided foreground/background
// signal. It holds no state of its own beyond whether it is running; the
// suspended condition lives on the Conn.
type VisibilityGate struct {
	conn *Conn

	stopOnce sync.Once
	stopCh   chan struct{}
}

// WatchVisibility suspends and resumes the connection from signals delivered
// on the channel. Watching ends when the channel is closed or the gate is
// stopped; closing the Conn does not require stopping the gate first, but a
// stopped gate is the caller's signal-source cleanup hook.
func (c *Conn) WatchVisibility(signals <-chan Signal) *VisibilityGate {
	g := &VisibilityGate{
		conn:   c,
		stopCh: make(chan struct{}),
	}
	go g.watch(signals)
	return g
}

// Stop detaches the gate from the connection. Idempotent.
func (g *VisibilityGate) Stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}

func (g *VisibilityGate) watch(signals <-chan Signal) {
	for {
		select {
		case <-g.stopCh:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			switch sig {
			case Background:
				g.conn.log.Debug("visibility gate: background signal")
				g.conn.suspend()
			case Foreground:
				g.conn.log.Debug("visibility gate: foreground signal")
				g.conn.resume()
			}
		}
	}
}
