// Package store provides the user-facing key-value facade of omnistore.
//
// A store is constructed from a URI; the scheme selects one of the
// registered backend adapters (see lib/backend and its engines) and the
// rest of the URI configures it. On top of the adapter's byte-level
// operations the store adds:
//
//   - serialization through the codec dispatcher, with automatic mode
//     inference for untyped values (see lib/codec)
//   - a self-describing entry envelope carrying the serialization mode,
//     creation/update timestamps and an optional expiry instant
//   - lazy time-to-live expiry: expired entries read as absent and are
//     evicted on first access after their deadline
//   - per-key guarding of mutating operations through the lock manager
//     (see lib/lockmgr)
//   - a configurable missing-key policy, either raising a not-found
//     error or yielding a nil sentinel for absent keys
//
// Example:
//
//	s, err := store.New(store.DefaultConfig("file:///var/data"))
//	if err != nil { ... }
//	defer s.Close()
//
//	err = s.Put(ctx, "users/alice", map[string]any{"admin": true})
//	v, err := s.Get(ctx, "users/alice")
//
// Stores are safe for concurrent use. Multiple stores (and processes)
// pointed at the same backend coordinate their guarded operations
// through the backend itself whenever it supports an atomic
// write-if-absent primitive.
package store
