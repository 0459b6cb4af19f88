// Package codec converts typed values to and from raw bytes for
// storage. Four modes exist: raw ([]byte passthrough), text (string as
// UTF-8), json (canonical structured encoding) and gob (portable Go
// object graphs, the opaque fallback).
//
// Callers either name a mode explicitly or let Encode infer one from
// the value's type. The mode used is returned and persisted alongside
// the entry, so decoding never requires the caller to restate it.
// Decoding an entry whose recorded mode is absent or unrecognized fails
// hard with a serialization error; values are never silently coerced.
//
// Every mode guarantees the round-trip property: encoding a value with
// mode M and decoding the result with mode M reproduces an equal value
// for all values representable in M. For json that value domain is the
// canonical JSON one (string, float64, bool, nil, map[string]any,
// []any); DecodeInto recovers caller-defined types instead.
package codec
