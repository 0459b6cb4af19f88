package store

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/omnikv/omnistore/lib/backend"
	"github.com/omnikv/omnistore/lib/codec"
)

// --------------------------------------------------------------------------
// Entry Envelope
// --------------------------------------------------------------------------

// Every stored record carries a fixed binary header in front of the
// payload so reads are self-describing and stat/info can recover mode
// and timestamps without touching the payload:
//
//	magic "OMNIS\x00" | version | mode tag | created | updated | expires
//
// Timestamps are big-endian unix nanoseconds; expires = 0 means the
// entry never expires.
const (
	magicNum     = "OMNIS\x00" // envelope format identifier
	entryVersion = 1
	headerSize   = len(magicNum) + 2 + 3*8
)

// entryHeader is the decoded envelope header of a stored record.
type entryHeader struct {
	Mode      codec.Mode
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time // zero = no expiry
}

// expired reports whether the entry is logically absent at the given
// instant (lazy eviction: physical removal may lag behind).
func (h *entryHeader) expired(now time.Time) bool {
	return !h.ExpiresAt.IsZero() && !h.ExpiresAt.After(now)
}

// encodeEntry prefixes the payload with the envelope header.
func encodeEntry(h entryHeader, payload []byte) ([]byte, error) {
	tag, err := codec.Tag(h.Mode)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerSize+len(payload))
	off := copy(buf, magicNum)
	buf[off] = entryVersion
	buf[off+1] = tag
	off += 2
	binary.BigEndian.PutUint64(buf[off:], uint64(h.CreatedAt.UnixNano()))
	binary.BigEndian.PutUint64(buf[off+8:], uint64(h.UpdatedAt.UnixNano()))
	var expires uint64
	if !h.ExpiresAt.IsZero() {
		expires = uint64(h.ExpiresAt.UnixNano())
	}
	binary.BigEndian.PutUint64(buf[off+16:], expires)
	copy(buf[headerSize:], payload)
	return buf, nil
}

// decodeHeader parses the envelope header from the first headerSize
// bytes of a stored record.
func decodeHeader(b []byte) (entryHeader, error) {
	if len(b) < headerSize {
		return entryHeader{}, backend.NewErrorf(backend.CodeSerialization, "entry too short (%d bytes)", len(b))
	}
	if string(b[:len(magicNum)]) != magicNum {
		return entryHeader{}, backend.NewError(backend.CodeSerialization, "bad entry magic")
	}
	off := len(magicNum)
	if b[off] != entryVersion {
		return entryHeader{}, backend.NewErrorf(backend.CodeSerialization, "unsupported entry version %d", b[off])
	}
	mode, err := codec.FromTag(b[off+1])
	if err != nil {
		return entryHeader{}, err
	}
	off += 2
	h := entryHeader{
		Mode:      mode,
		CreatedAt: time.Unix(0, int64(binary.BigEndian.Uint64(b[off:]))),
		UpdatedAt: time.Unix(0, int64(binary.BigEndian.Uint64(b[off+8:]))),
	}
	if expires := binary.BigEndian.Uint64(b[off+16:]); expires != 0 {
		h.ExpiresAt = time.Unix(0, int64(expires))
	}
	return h, nil
}

// decodeEntry parses a full stored record into header and payload.
func decodeEntry(b []byte) (entryHeader, []byte, error) {
	h, err := decodeHeader(b)
	if err != nil {
		return entryHeader{}, nil, err
	}
	return h, b[headerSize:], nil
}

// readHeader reads exactly the envelope header from a stream.
func readHeader(r io.Reader) (entryHeader, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return entryHeader{}, backend.WrapError(backend.CodeSerialization, "reading entry header", err)
	}
	return decodeHeader(buf)
}
