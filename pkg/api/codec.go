package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is both the encoding.Codec registration name and the
// content-subtype grpc.Server/grpc.Dial negotiate, yielding the wire
// content-type "application/grpc+json".
const codecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec, letting the
// AIFS RPC surface ride grpc-go's real transport, flow control, and
// interceptor chain without a protobuf schema (see doc.go's "Wire format"
// section and DESIGN.md's resolution of the RPC-surface question).
type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
