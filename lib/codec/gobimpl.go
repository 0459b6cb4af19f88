package codec

import (
	"bytes"
	"encoding/gob"
	"reflect"
	"time"

	"github.com/omnikv/omnistore/lib/backend"
)

func init() {
	// common composite types crossing the interface boundary
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(time.Time{})
}

// Register records a concrete type for the gob fallback mode, required
// before values of that type can round-trip through an interface.
func Register(value any) {
	gob.Register(value)
}

// NewGobCodec creates a codec using Go's binary gob format. It is the
// opaque fallback for values no other mode can represent.
func NewGobCodec() ICodec {
	return &gobCodecImpl{}
}

// gobCodecImpl implements the ICodec interface using gob encoding
type gobCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec/interface.go)
// --------------------------------------------------------------------------

func (c gobCodecImpl) Mode() Mode {
	return ModeGob
}

func (c gobCodecImpl) Encode(value any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(&value); err != nil {
		return nil, backend.WrapError(backend.CodeSerialization, "gob encode", err)
	}
	return buf.Bytes(), nil
}

func (c gobCodecImpl) Decode(b []byte) (any, error) {
	var value any
	dec := gob.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&value); err != nil {
		return nil, backend.WrapError(backend.CodeSerialization, "gob decode", err)
	}
	return value, nil
}

func (c gobCodecImpl) DecodeInto(b []byte, dest any) error {
	if reflect.ValueOf(dest).Kind() != reflect.Pointer {
		return backend.NewErrorf(backend.CodeSerialization, "gob destination must be a pointer, got %T", dest)
	}
	dec := gob.NewDecoder(bytes.NewReader(b))
	// values are encoded through an interface, decode the same way and
	// assign the concrete result
	var value any
	if err := dec.Decode(&value); err != nil {
		return backend.WrapError(backend.CodeSerialization, "gob decode", err)
	}
	dv := reflect.ValueOf(dest).Elem()
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		dv.Set(reflect.Zero(dv.Type()))
		return nil
	}
	if !rv.Type().AssignableTo(dv.Type()) {
		return backend.NewErrorf(backend.CodeSerialization, "gob decode: cannot assign %T to %T", value, dest)
	}
	dv.Set(rv)
	return nil
}
