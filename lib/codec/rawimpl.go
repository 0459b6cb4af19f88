package codec

import "github.com/omnikv/omnistore/lib/backend"

// NewRawCodec creates a codec that passes byte slices through untouched
func NewRawCodec() ICodec {
	return &rawCodecImpl{}
}

// rawCodecImpl implements the ICodec interface for raw byte payloads
type rawCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec/interface.go)
// --------------------------------------------------------------------------

func (c rawCodecImpl) Mode() Mode {
	return ModeRaw
}

func (c rawCodecImpl) Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, backend.NewErrorf(backend.CodeSerialization, "raw mode requires []byte or string, got %T", value)
	}
}

func (c rawCodecImpl) Decode(b []byte) (any, error) {
	return b, nil
}

func (c rawCodecImpl) DecodeInto(b []byte, dest any) error {
	switch d := dest.(type) {
	case *[]byte:
		*d = b
		return nil
	case *string:
		*d = string(b)
		return nil
	default:
		return backend.NewErrorf(backend.CodeSerialization, "raw mode requires *[]byte or *string destination, got %T", dest)
	}
}
