package codec

import (
	"encoding/json"

	"github.com/omnikv/omnistore/lib/backend"
)

var codecs = map[Mode]ICodec{
	ModeRaw:  NewRawCodec(),
	ModeText: NewTextCodec(),
	ModeJSON: NewJSONCodec(),
	ModeGob:  NewGobCodec(),
}

// ForMode returns the codec implementing the given concrete mode.
// ModeAuto is not a concrete mode: entries are always persisted with
// the mode actually used, so an absent mode at decode time is an error.
func ForMode(mode Mode) (ICodec, error) {
	if c, ok := codecs[mode]; ok {
		return c, nil
	}
	return nil, backend.NewErrorf(backend.CodeSerialization, "unknown serialization mode: %q", mode)
}

// Infer picks a serialization mode for a value when the caller supplied
// none: byte slices pass through raw, strings as text, everything else
// as canonical JSON with gob as the opaque fallback for values JSON
// cannot represent.
func Infer(value any) Mode {
	switch value.(type) {
	case []byte:
		return ModeRaw
	case string:
		return ModeText
	default:
		if _, err := json.Marshal(value); err != nil {
			return ModeGob
		}
		return ModeJSON
	}
}

// Encode serializes a value. An explicit mode always wins; ModeAuto
// infers one from the value's type. It returns the encoded bytes and
// the mode actually used, which must be persisted with the entry.
func Encode(value any, mode Mode) ([]byte, Mode, error) {
	if mode == ModeAuto {
		mode = Infer(value)
	}
	c, err := ForMode(mode)
	if err != nil {
		return nil, "", err
	}
	b, err := c.Encode(value)
	if err != nil {
		return nil, "", err
	}
	return b, mode, nil
}

// Decode deserializes bytes using the mode recorded for the entry.
func Decode(b []byte, mode Mode) (any, error) {
	c, err := ForMode(mode)
	if err != nil {
		return nil, err
	}
	return c.Decode(b)
}

// DecodeInto deserializes bytes into a typed destination pointer.
func DecodeInto(b []byte, mode Mode, dest any) error {
	c, err := ForMode(mode)
	if err != nil {
		return err
	}
	return c.DecodeInto(b, dest)
}
