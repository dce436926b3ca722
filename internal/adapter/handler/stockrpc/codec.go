package stockrpc

import (
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype clients must select with
// grpc.CallContentSubtype; Client does so on every call.
const CodecName = "msgpack"

func init() {
	encoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (codec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

func (codec) Name() string { return CodecName }
