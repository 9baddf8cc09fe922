// Package transport defines the socket primitive durasock runs over.
//
// A Transport is one instance of an underlying full-duplex connection. It is
// never reused: the controller discards it on every closure and asks its
// Dialer for a fresh one.
package transport

import (
	"context"
	"errors"
)

// MessageKind distinguishes text and binary frames.
type MessageKind int

const (
	KindText MessageKind = iota + 1
	KindBinary
)

// ErrClosed is returned by Send once the transport has been closed.
var ErrClosed = errors.New("transport is closed")

// Callbacks receives events from a live transport. The open event is implied
// by a successful Dial. Any callback may be nil.
//
// OnClose fires at most once, and only for closures initiated by the remote
// peer or by a transport failure. A locally initiated Close never fires it;
// the owner already knows.
type Callbacks struct {
	OnMessage func(kind MessageKind, data []byte)
	OnClose   func(err error)
	OnError   func(err error)
}

// Transport is a single live socket connection.
type Transport interface {
	// Send writes one frame. It returns ErrClosed after the transport
	// has been closed locally or remotely.
	Send(kind MessageKind, data []byte) error

	// Close tears the connection down. The context bounds the graceful
	// part of the close; the underlying socket is released regardless.
	// Close is idempotent.
	Close(ctx context.Context) error

	// Detach permanently stops callback delivery. The owner must call it
	// before replacing the transport so that no event from the old
	// connection is processed after a new one exists.
	Detach()
}

// Dialer establishes transports. Implementations must return only after the
// connection is open and ready to send.
type Dialer interface {
	Dial(ctx context.Context, url string, cb Callbacks) (Transport, error)
}
