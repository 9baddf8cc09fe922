// Package gorillaws implements the durasock transport over gorilla/websocket.
package gorillaws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	gorilla "github.com/gorilla/websocket"

	"github.com/durasock/durasock/pkg/transport"
)

// DefaultDialer is the gorilla dialer used unless one is supplied.
//
// It matches gorilla's own default dialer except that compression is enabled.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
}

// Dialer dials gorilla/websocket connections. The zero value is ready to use.
type Dialer struct {
	// WSDialer overrides DefaultDialer when non-nil.
	WSDialer *gorilla.Dialer
}

var _ transport.Dialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context, url string, cb transport.Callbacks) (transport.Transport, error) {
	wsd := d.WSDialer
	if wsd == nil {
		wsd = DefaultDialer
	}

	conn, res, err := wsd.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	c := &Conn{
		conn:   conn,
		cb:     cb,
		closed: make(chan struct{}),
	}
	go c.readLoop()

	return c, nil
}

// Conn is one live gorilla WebSocket connection.
type Conn struct {
	conn *gorilla.Conn
	cb   transport.Callbacks

	// writeMu serializes writes; gorilla allows at most one concurrent writer.
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}

	detached atomic.Bool
}

var _ transport.Transport = (*Conn)(nil)

func (c *Conn) Send(kind transport.MessageKind, data []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}

	mt := gorilla.TextMessage
	if kind == transport.KindBinary {
		mt = gorilla.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(mt, data)
}

func (c *Conn) Detach() {
	c.detached.Store(true)
}

// Close writes a close frame and releases the underlying socket.
//
// The close frame is best effort: if the peer is gone the write fails, and we
// still close the socket locally so nothing leaks. The context deadline, when
// present, bounds the close frame write.
func (c *Conn) Close(ctx context.Context) error {
	var err error
	first := false
	c.closeOnce.Do(func() {
		first = true
		close(c.closed)

		c.writeMu.Lock()
		defer c.writeMu.Unlock()

		if deadline, ok := ctx.Deadline(); ok {
			_ = c.conn.SetWriteDeadline(deadline)
		}
		_ = c.conn.WriteMessage(
			gorilla.CloseMessage,
			gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""),
		)

		err = c.conn.Close()
	})
	if !first {
		return nil
	}
	return err
}

// markClosed flips the connection to closed without the close handshake.
// Used by the read loop after a terminal read error.
func (c *Conn) markClosed() bool {
	first := false
	c.closeOnce.Do(func() {
		first = true
		close(c.closed)
		_ = c.conn.Close()
	})
	return first
}

func (c *Conn) readLoop() {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			first := c.markClosed()
			if !first || c.detached.Load() {
				// Locally closed, or the owner already moved on.
				return
			}
			if abnormalCloseError(err) && c.cb.OnError != nil {
				c.cb.OnError(err)
			}
			if c.cb.OnClose != nil {
				c.cb.OnClose(err)
			}
			return
		}

		if c.detached.Load() {
			continue
		}

		var kind transport.MessageKind
		switch mt {
		case gorilla.TextMessage:
			kind = transport.KindText
		case gorilla.BinaryMessage:
			kind = transport.KindBinary
		default:
			continue
		}

		if c.cb.OnMessage != nil {
			c.cb.OnMessage(kind, data)
		}
	}
}

// abnormalCloseError reports whether the read error indicates a failure
// rather than a clean close handshake from the peer.
func abnormalCloseError(err error) bool {
	var ce *gorilla.CloseError
	if errors.As(err, &ce) {
		return ce.Code != gorilla.CloseNormalClosure && ce.Code != gorilla.CloseGoingAway
	}
	// Not a close frame at all: the connection dropped out from under us.
	return true
}
