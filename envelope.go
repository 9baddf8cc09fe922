package durasock

import "github.com/durasock/durasock/internal/codec"

// Reserved envelope types. Frames carrying them belong to the heartbeat and
// are never delivered to [Conn.OnMessage].
const (
	TypePing = "ping"
	TypePong = "pong"
)

// Envelope is the wire shape every frame must have: a "type" discriminator
// plus arbitrary payload fields.
type Envelope struct {
	Type string `json:"type" cbor:"type"`
}

// Message is one inbound application frame.
type Message struct {
	// Type is the envelope's "type" discriminator.
	Type string
	// Data is the raw frame as received.
	Data []byte

	codec codec.Codec
}

// Decode unmarshals the frame into dst using the connection's wire codec.
func (m Message) Decode(dst any) error {
	return m.codec.Unmarshal(m.Data, dst)
}
