package codec

import (
	gojson "github.com/goccy/go-json"

	"github.com/quantfabric/execdb/internal/domain"
)

// JSONCodec encodes commands and events as JSON. Useful when stored records
// need to be inspectable with standard Redis tooling.
type JSONCodec struct{}

// NewJSONCodec returns a JSON command/event codec.
func NewJSONCodec() JSONCodec { return JSONCodec{} }

func (JSONCodec) EncodeOrderInit(init *domain.OrderInitialized) ([]byte, error) {
	return encodeOrderInit(init, gojson.Marshal)
}

func (JSONCodec) DecodeOrderInit(data []byte) (*domain.OrderInitialized, error) {
	return decodeOrderInit(data, gojson.Unmarshal)
}

func (JSONCodec) EncodeEvent(ev domain.Event) ([]byte, error) {
	return encodeEvent(ev, gojson.Marshal)
}

func (JSONCodec) DecodeEvent(data []byte) (domain.Event, error) {
	return decodeEvent(data, gojson.Unmarshal)
}

// Compile-time interface checks.
var (
	_ domain.CommandCodec = JSONCodec{}
	_ domain.EventCodec   = JSONCodec{}
)
