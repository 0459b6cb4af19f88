package store

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/omnikv/omnistore/lib/codec"
	"github.com/omnikv/omnistore/lib/lockmgr"
)

// Info is the metadata surfaced for a single key.
type Info struct {
	// Key is the relative store key.
	Key string `json:"key"`
	// Store is the base URI of the owning store.
	Store string `json:"store"`
	// Size is the payload length in bytes (envelope header excluded).
	Size int64 `json:"size"`
	// Mode is the serialization mode the entry was written with.
	Mode codec.Mode `json:"mode"`
	// CreatedAt is set on first write and never changes on overwrites.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is refreshed on every write.
	UpdatedAt time.Time `json:"updated_at"`
	// ExpiresAt is the expiry instant; zero means no expiry.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// IStore is the uniform interface for key-value storage over any
// backend. All operations are safe for concurrent use; put, pop,
// delete and touch are guarded (linearizable per key), reads are not.
//
// Absent or expired keys follow the missing-key policy: with the raise
// policy (store default or WithRaise(true)) they fail with an error
// matching backend.ErrKeyNotFound; otherwise value-returning reads
// yield the absent sentinel (nil) and delete becomes a no-op.
type IStore interface {
	// Put serializes value and overwrites the entry under key
	// unconditionally. created_at is preserved across overwrites.
	Put(ctx context.Context, key string, value any, opts ...Option) error

	// Get reads, expiry-checks and decodes the entry under key.
	Get(ctx context.Context, key string, opts ...Option) (any, error)

	// GetInto decodes the entry under key into the destination pointer.
	// It reports whether the key existed.
	GetInto(ctx context.Context, key string, dest any, opts ...Option) (bool, error)

	// Pop retrieves the value under key and removes the entry, as one
	// guarded sequence atomic with respect to other guarded operations
	// on the same key.
	Pop(ctx context.Context, key string, opts ...Option) (any, error)

	// Stream lazily yields the stored payload line by line without
	// loading it fully into memory. Each range over the sequence
	// re-reads the entry from the backend.
	Stream(ctx context.Context, key string, opts ...Option) iter.Seq2[[]byte, error]

	// Open returns a sequential reader over the stored payload. The
	// caller must close it on all exit paths.
	Open(ctx context.Context, key string, opts ...Option) (io.ReadCloser, error)

	// Create returns a write handle for key. The entry, including its
	// metadata, is committed when the handle is closed; an abandoned
	// handle commits nothing. Content written through a handle is
	// stored raw unless WithMode says otherwise.
	Create(ctx context.Context, key string, opts ...Option) (io.WriteCloser, error)

	// Delete removes the entry under key.
	Delete(ctx context.Context, key string, opts ...Option) error

	// IterateKeys lazily yields all keys under the given prefix
	// (empty prefix = all keys). Ordering follows the adapter.
	IterateKeys(ctx context.Context, prefix string) iter.Seq2[string, error]

	// IterateValues lazily yields the decoded values under the prefix.
	IterateValues(ctx context.Context, prefix string, opts ...Option) iter.Seq2[any, error]

	// Exists reports whether key holds a live (non-expired) entry.
	Exists(ctx context.Context, key string) (bool, error)

	// Info returns metadata for key without reading the payload.
	Info(ctx context.Context, key string, opts ...Option) (Info, error)

	// Touch stores the current timestamp under key and returns it.
	Touch(ctx context.Context, key string, opts ...Option) (time.Time, error)

	// Checksum computes a hex digest of the stored payload. Supported
	// algorithms: sha256 (default for ""), sha1, md5, sha512.
	Checksum(ctx context.Context, key string, algorithm string) (string, error)

	// Lock obtains the per-key guard used by the mutating operations,
	// letting callers span their own multi-step sequences. The guard
	// must be released on every exit path.
	Lock(ctx context.Context, key string, timeout time.Duration) (lockmgr.Guard, error)

	// Close releases the underlying adapter.
	Close() error
}
