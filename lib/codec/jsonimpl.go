package codec

import (
	"encoding/json"

	"github.com/omnikv/omnistore/lib/backend"
)

// NewJSONCodec creates a codec using canonical JSON encoding. Decoded
// values use the JSON value domain: string, float64, bool, nil,
// map[string]any and []any.
func NewJSONCodec() ICodec {
	return &jsonCodecImpl{}
}

// jsonCodecImpl implements the ICodec interface using json encoding
type jsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec/interface.go)
// --------------------------------------------------------------------------

func (c jsonCodecImpl) Mode() Mode {
	return ModeJSON
}

func (c jsonCodecImpl) Encode(value any) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, backend.WrapError(backend.CodeSerialization, "json encode", err)
	}
	return b, nil
}

func (c jsonCodecImpl) Decode(b []byte) (any, error) {
	var value any
	if err := json.Unmarshal(b, &value); err != nil {
		return nil, backend.WrapError(backend.CodeSerialization, "json decode", err)
	}
	return value, nil
}

func (c jsonCodecImpl) DecodeInto(b []byte, dest any) error {
	if err := json.Unmarshal(b, dest); err != nil {
		return backend.WrapError(backend.CodeSerialization, "json decode", err)
	}
	return nil
}
