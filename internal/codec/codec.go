// Package codec provides the wire codecs for durasock envelopes.
//
// Frames are self-contained (one WebSocket message per envelope), so the
// codecs work on byte slices rather than streams.
package codec

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

type Marshaler interface {
	Marshal(v any) ([]byte, error)
}

type Unmarshaler interface {
	Unmarshal(data []byte, dst any) error
}

// Codec marshals and unmarshals whole frames.
type Codec interface {
	Marshaler
	Unmarshaler
}

// JSON encodes envelopes as JSON text frames.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, dst any) error { return json.Unmarshal(data, dst) }

// CBOR encodes envelopes as CBOR binary frames.
type CBOR struct{}

func (CBOR) Marshal(v any) ([]byte, error) { return cbor.Marshal(v) }

func (CBOR) Unmarshal(data []byte, dst any) error { return cbor.Unmarshal(data, dst) }
