package codec

import "github.com/omnikv/omnistore/lib/backend"

// Mode identifies a serialization mode. The mode used for a write is
// persisted alongside the entry so reads are self-describing.
type Mode string

const (
	// ModeAuto lets Encode infer the mode from the value's type.
	ModeAuto Mode = ""
	// ModeRaw passes byte slices through untouched.
	ModeRaw Mode = "raw"
	// ModeText stores strings as their UTF-8 bytes.
	ModeText Mode = "text"
	// ModeJSON stores values in canonical JSON encoding.
	ModeJSON Mode = "json"
	// ModeGob stores arbitrary Go object graphs via encoding/gob.
	// Concrete types crossing the interface boundary must be
	// registered with Register first.
	ModeGob Mode = "gob"
)

// ICodec is the interface for all value serializers. One implementation
// exists per mode; the package-level Encode/Decode functions dispatch
// between them.
type ICodec interface {
	// Mode returns the mode this codec implements.
	Mode() Mode
	// Encode serializes a value into a byte slice.
	Encode(value any) ([]byte, error)
	// Decode deserializes a byte slice into a value.
	Decode(b []byte) (any, error)
	// DecodeInto deserializes a byte slice into the given destination
	// pointer, preserving concrete types where the encoding allows it.
	DecodeInto(b []byte, dest any) error
}

// --------------------------------------------------------------------------
// Mode Tags
// --------------------------------------------------------------------------

// Single-byte tags persisted in the entry envelope.
const (
	tagRaw  byte = 'r'
	tagText byte = 't'
	tagJSON byte = 'j'
	tagGob  byte = 'g'
)

// Tag returns the persisted envelope tag for a mode.
func Tag(m Mode) (byte, error) {
	switch m {
	case ModeRaw:
		return tagRaw, nil
	case ModeText:
		return tagText, nil
	case ModeJSON:
		return tagJSON, nil
	case ModeGob:
		return tagGob, nil
	default:
		return 0, backend.NewErrorf(backend.CodeSerialization, "unknown serialization mode: %q", m)
	}
}

// FromTag maps a persisted envelope tag back to its mode. Unrecognized
// tags are a hard error, never silently coerced.
func FromTag(tag byte) (Mode, error) {
	switch tag {
	case tagRaw:
		return ModeRaw, nil
	case tagText:
		return ModeText, nil
	case tagJSON:
		return ModeJSON, nil
	case tagGob:
		return ModeGob, nil
	default:
		return "", backend.NewErrorf(backend.CodeSerialization, "unknown serialization mode tag: %q", tag)
	}
}

// ParseMode validates a user-supplied mode string ("" means auto).
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeRaw, ModeText, ModeJSON, ModeGob:
		return Mode(s), nil
	default:
		return "", backend.NewErrorf(backend.CodeSerialization, "unknown serialization mode: %q", s)
	}
}
