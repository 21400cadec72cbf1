package server

import (
	"connectrpc.com/connect"

	"github.com/chazu/logicproc/codec"
)

// cborCodec carries control messages as canonical CBOR. Clients and
// handlers select it with WithCBOR.
type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Marshal(v any) ([]byte, error) { return codec.Marshal(v) }

func (cborCodec) Unmarshal(data []byte, v any) error { return codec.Unmarshal(data, v) }

// WithCBOR configures a client or handler to use the CBOR codec.
func WithCBOR() connect.Option {
	return connect.WithCodec(cborCodec{})
}
