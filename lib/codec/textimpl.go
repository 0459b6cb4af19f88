package codec

import "github.com/omnikv/omnistore/lib/backend"

// NewTextCodec creates a codec that stores strings as their UTF-8 bytes
func NewTextCodec() ICodec {
	return &textCodecImpl{}
}

// textCodecImpl implements the ICodec interface for textual payloads
type textCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec/interface.go)
// --------------------------------------------------------------------------

func (c textCodecImpl) Mode() Mode {
	return ModeText
}

func (c textCodecImpl) Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, backend.NewErrorf(backend.CodeSerialization, "text mode requires string or []byte, got %T", value)
	}
}

func (c textCodecImpl) Decode(b []byte) (any, error) {
	return string(b), nil
}

func (c textCodecImpl) DecodeInto(b []byte, dest any) error {
	switch d := dest.(type) {
	case *string:
		*d = string(b)
		return nil
	case *[]byte:
		*d = b
		return nil
	default:
		return backend.NewErrorf(backend.CodeSerialization, "text mode requires *string or *[]byte destination, got %T", dest)
	}
}
