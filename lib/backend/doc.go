// Package backend defines the capability contract for storage backends
// and the URI-based resolution that selects and constructs them. It is
// the lowest layer of the storage core: adapters deal in opaque bytes
// only, while serialization, entry metadata and TTL semantics live in
// the store layer above.
//
// The package focuses on:
//   - A unified Adapter interface for primitive byte-level operations
//   - Feature discovery through capability flags
//   - Scheme-based adapter registration and URI resolution
//   - A shared error taxonomy with typed codes
//
// Key Components:
//
//   - Adapter Interface: The core interface every backend engine must
//     satisfy. It provides primitive operations (Read, Write, Remove,
//     Exists, List, Stat, OpenRead, OpenWrite) plus optional atomic
//     operations (WriteIfAbsent, CompareAndSwap) that engines advertise
//     through the SupportsFeature method. Atomic operations are the
//     hook the lock manager uses to coordinate across processes.
//
//   - Scheme Registry: Engines register a Factory for their URI scheme
//     from their package init, mirroring database/sql driver
//     registration. Resolve parses a connection URI, selects the
//     factory by scheme and returns a constructed, ready-to-use
//     adapter. Construction establishes connection state only and
//     never implicitly creates remote resources.
//
//   - Error System: A structured error type wrapping a taxonomy code
//     (unsupported scheme, configuration, key not found, serialization,
//     lock timeout, backend), a message and an optional cause. Matching
//     works through errors.Is against the exported sentinel instances.
//
// Engine implementations live under the engines/ subdirectory:
// memory (xsync), fs (afero), bolt (bbolt), redis (go-redis),
// sql (database/sql + sqlite) and s3 (minio). The testing package
// (github.com/omnikv/omnistore/lib/backend/testing) provides a
// standardized conformance suite for adapter implementations.
package backend
