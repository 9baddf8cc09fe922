package durasock

import (
	"context"
	"sync"

	"github.com/durasock/durasock/pkg/transport"
)

// mockDialer hands out scripted in-memory transports so the lifecycle engine
// can be driven without a network.
type mockDialer struct {
	mu sync.Mutex

	// dialErr, when set, fails every dial.
	dialErr error
	// failAfter, when positive, fails every dial after that many successes.
	failAfter int

	dials   int
	history []*mockTransport
}

func (d *mockDialer) Dial(_ context.Context, _ string, cb transport.Callbacks) (transport.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	if d.failAfter > 0 && len(d.history) >= d.failAfter {
		return nil, context.DeadlineExceeded
	}

	t := &mockTransport{cb: cb}
	d.history = append(d.history, t)
	return t, nil
}

func (d *mockDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *mockDialer) latest() *mockTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.history) == 0 {
		return nil
	}
	return d.history[len(d.history)-1]
}

type sentFrame struct {
	kind transport.MessageKind
	data []byte
}

type mockTransport struct {
	cb transport.Callbacks

	// onSend, when set, observes every frame after it is recorded.
	// Tests use it to script peer behavior such as answering pings.
	onSend func(data []byte)

	mu       sync.Mutex
	sent     []sentFrame
	closed   bool
	detached bool
}

func (t *mockTransport) Send(kind transport.MessageKind, data []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return transport.ErrClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	t.sent = append(t.sent, sentFrame{kind: kind, data: buf})
	onSend := t.onSend
	t.mu.Unlock()

	if onSend != nil {
		onSend(buf)
	}
	return nil
}

func (t *mockTransport) Close(context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *mockTransport) Detach() {
	t.mu.Lock()
	t.detached = true
	t.mu.Unlock()
}

func (t *mockTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *mockTransport) sentFrames() []sentFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]sentFrame, len(t.sent))
	copy(out, t.sent)
	return out
}

// deliver injects an inbound frame, as the host environment would.
func (t *mockTransport) deliver(data []byte) {
	t.mu.Lock()
	detached := t.detached
	cb := t.cb
	t.mu.Unlock()

	if detached || cb.OnMessage == nil {
		return
	}
	cb.OnMessage(transport.KindText, data)
}

// remoteClose simulates the peer (or the network) killing the connection.
func (t *mockTransport) remoteClose(err error) {
	t.mu.Lock()
	t.closed = true
	detached := t.detached
	cb := t.cb
	t.mu.Unlock()

	if detached || cb.OnClose == nil {
		return
	}
	cb.OnClose(err)
}

// remoteError simulates a transport error event.
func (t *mockTransport) remoteError(err error) {
	t.mu.Lock()
	detached := t.detached
	cb := t.cb
	t.mu.Unlock()

	if detached || cb.OnError == nil {
		return
	}
	cb.OnError(err)
}
