package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/quantfabric/execdb/internal/domain"
)

// MsgPackCodec encodes commands and events as MessagePack. This is the
// default wire format: compact, deterministic, and what operational tooling
// reading the namespace expects.
type MsgPackCodec struct{}

// NewMsgPackCodec returns a MessagePack command/event codec.
func NewMsgPackCodec() MsgPackCodec { return MsgPackCodec{} }

func (MsgPackCodec) EncodeOrderInit(init *domain.OrderInitialized) ([]byte, error) {
	return encodeOrderInit(init, msgpack.Marshal)
}

func (MsgPackCodec) DecodeOrderInit(data []byte) (*domain.OrderInitialized, error) {
	return decodeOrderInit(data, msgpack.Unmarshal)
}

func (MsgPackCodec) EncodeEvent(ev domain.Event) ([]byte, error) {
	return encodeEvent(ev, msgpack.Marshal)
}

func (MsgPackCodec) DecodeEvent(data []byte) (domain.Event, error) {
	return decodeEvent(data, msgpack.Unmarshal)
}

// Compile-time interface checks.
var (
	_ domain.CommandCodec = MsgPackCodec{}
	_ domain.EventCodec   = MsgPackCodec{}
)
