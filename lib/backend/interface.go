package backend

import (
	"context"
	"io"
	"iter"
	"time"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Feature represents adapter capabilities as bit flags
type Feature uint64

const (
	FeatureRead           Feature = 1 << iota // Support for Read operations
	FeatureWrite                              // Support for Write operations
	FeatureRemove                             // Support for Remove operations
	FeatureExists                             // Support for Exists operations
	FeatureList                               // Support for List operations
	FeatureStat                               // Support for Stat operations
	FeatureStream                             // Support for OpenRead/OpenWrite operations
	FeatureWriteIfAbsent                      // Support for atomic write-if-absent
	FeatureCompareAndSwap                     // Support for atomic compare-and-swap
	FeatureOrderedList                        // List yields keys in lexicographic order
)

func (f Feature) String() string {
	switch f {
	case FeatureRead:
		return "Read"
	case FeatureWrite:
		return "Write"
	case FeatureRemove:
		return "Remove"
	case FeatureExists:
		return "Exists"
	case FeatureList:
		return "List"
	case FeatureStat:
		return "Stat"
	case FeatureStream:
		return "Stream"
	case FeatureWriteIfAbsent:
		return "WriteIfAbsent"
	case FeatureCompareAndSwap:
		return "CompareAndSwap"
	case FeatureOrderedList:
		return "OrderedList"
	default:
		return "Unknown"
	}
}

// Info holds the backend-native metadata for a single key. Engines that
// cannot recover timestamps leave them zero; the store layer falls back
// to the entry envelope in that case.
type Info struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EngineInfo describes a constructed adapter instance.
type EngineInfo struct {
	Engine            string    `json:"engine"`
	URI               string    `json:"uri"`
	SupportedFeatures []Feature `json:"supported_features"`
}

// --------------------------------------------------------------------------
// Adapter Interface
// --------------------------------------------------------------------------

// Adapter defines the capability contract every storage backend must
// implement. Adapters deal in opaque bytes only: entry envelopes,
// serialization and TTL semantics live above this interface.
//
// An Adapter instance is shared by all operations against one store and
// must be safe for concurrent use. Implementations can vary in their
// feature support, which can be queried with SupportsFeature.
type Adapter interface {

	// --------------------------------------------------------------------------
	// Primitive Operations
	// --------------------------------------------------------------------------

	// Read returns the raw bytes stored under key. It returns an Error
	// with CodeKeyNotFound if the key is absent.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores the raw bytes under key, overwriting unconditionally.
	Write(ctx context.Context, key string, value []byte) error

	// Remove deletes the entry under key. It returns an Error with
	// CodeKeyNotFound if the key is absent.
	Remove(ctx context.Context, key string) error

	// Exists reports whether the key is physically present.
	Exists(ctx context.Context, key string) (bool, error)

	// List yields all keys under the given prefix. Prefixes match whole
	// path segments: prefix "a" matches "a" and "a/b" but not "ab".
	// The sequence is finite and restartable; ordering is unspecified
	// unless the adapter advertises FeatureOrderedList.
	List(ctx context.Context, prefix string) iter.Seq2[string, error]

	// Stat returns size and backend-native timestamps for key without
	// reading the payload where the backend supports that. It returns
	// an Error with CodeKeyNotFound if the key is absent.
	Stat(ctx context.Context, key string) (Info, error)

	// OpenRead returns a sequential reader over the raw bytes under key.
	// The caller must close the reader on all exit paths.
	OpenRead(ctx context.Context, key string) (io.ReadCloser, error)

	// OpenWrite returns a sequential writer for key. The written bytes
	// become visible atomically when the writer is closed; a writer that
	// is never closed commits nothing.
	OpenWrite(ctx context.Context, key string) (io.WriteCloser, error)

	// --------------------------------------------------------------------------
	// Optional Atomic Operations
	// --------------------------------------------------------------------------

	// WriteIfAbsent atomically stores value under key only if the key
	// does not exist. It reports whether the write happened. Only valid
	// when FeatureWriteIfAbsent is supported.
	WriteIfAbsent(ctx context.Context, key string, value []byte) (bool, error)

	// CompareAndSwap atomically replaces the value under key with next
	// if the current value equals expected. It reports whether the swap
	// happened. Only valid when FeatureCompareAndSwap is supported.
	CompareAndSwap(ctx context.Context, key string, expected, next []byte) (bool, error)

	// --------------------------------------------------------------------------
	// Introspection and Lifecycle
	// --------------------------------------------------------------------------

	// SupportsFeature reports whether the adapter implements the feature.
	SupportsFeature(f Feature) bool

	// Info returns metadata about the adapter instance.
	Info() EngineInfo

	// Close releases connections held by the adapter.
	Close() error
}
