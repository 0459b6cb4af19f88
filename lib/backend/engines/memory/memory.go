// Package memory implements an in-memory backend adapter on top of a
// concurrent xsync map. It supports the full atomic feature set and is
// the default backend for tests and ephemeral cache-like stores.
package memory

import (
	"bytes"
	"context"
	"io"
	"iter"
	"net/url"
	"sort"

	"github.com/omnikv/omnistore/lib/backend"
	"github.com/puzpuzpuz/xsync/v3"
)

const features = backend.FeatureRead |
	backend.FeatureWrite |
	backend.FeatureRemove |
	backend.FeatureExists |
	backend.FeatureList |
	backend.FeatureStat |
	backend.FeatureStream |
	backend.FeatureWriteIfAbsent |
	backend.FeatureCompareAndSwap |
	backend.FeatureOrderedList

func init() {
	backend.Register("memory", func(u *url.URL) (backend.Adapter, error) {
		return New(u.String()), nil
	})
}

type memoryAdapter struct {
	uri  string
	data *xsync.MapOf[string, []byte]
}

// New creates a new in-memory adapter. Every instance owns its own key
// space; two stores built from the same memory:// URI do not share data.
func New(uri string) backend.Adapter {
	return &memoryAdapter{
		uri:  uri,
		data: xsync.NewMapOf[string, []byte](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (a *memoryAdapter) Read(_ context.Context, key string) ([]byte, error) {
	value, ok := a.data.Load(key)
	if !ok {
		return nil, backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return clone(value), nil
}

func (a *memoryAdapter) Write(_ context.Context, key string, value []byte) error {
	a.data.Store(key, clone(value))
	return nil
}

func (a *memoryAdapter) Remove(_ context.Context, key string) error {
	if _, ok := a.data.LoadAndDelete(key); !ok {
		return backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return nil
}

func (a *memoryAdapter) Exists(_ context.Context, key string) (bool, error) {
	_, ok := a.data.Load(key)
	return ok, nil
}

func (a *memoryAdapter) List(_ context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var keys []string
		a.data.Range(func(key string, _ []byte) bool {
			if backend.MatchPrefix(key, prefix) {
				keys = append(keys, key)
			}
			return true
		})
		sort.Strings(keys)
		for _, key := range keys {
			if !yield(key, nil) {
				return
			}
		}
	}
}

func (a *memoryAdapter) Stat(_ context.Context, key string) (backend.Info, error) {
	value, ok := a.data.Load(key)
	if !ok {
		return backend.Info{}, backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return backend.Info{Key: key, Size: int64(len(value))}, nil
}

func (a *memoryAdapter) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	value, err := a.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

func (a *memoryAdapter) OpenWrite(_ context.Context, key string) (io.WriteCloser, error) {
	return &memoryWriter{adapter: a, key: key}, nil
}

func (a *memoryAdapter) WriteIfAbsent(_ context.Context, key string, value []byte) (bool, error) {
	_, loaded := a.data.LoadOrStore(key, clone(value))
	return !loaded, nil
}

func (a *memoryAdapter) CompareAndSwap(_ context.Context, key string, expected, next []byte) (bool, error) {
	swapped := false
	a.data.Compute(key, func(old []byte, loaded bool) ([]byte, bool) {
		if !loaded || !bytes.Equal(old, expected) {
			return old, !loaded
		}
		swapped = true
		return clone(next), false
	})
	return swapped, nil
}

func (a *memoryAdapter) SupportsFeature(f backend.Feature) bool {
	return features&f == f
}

func (a *memoryAdapter) Info() backend.EngineInfo {
	return backend.EngineInfo{
		Engine: "memory",
		URI:    a.uri,
		SupportedFeatures: []backend.Feature{
			backend.FeatureRead, backend.FeatureWrite, backend.FeatureRemove,
			backend.FeatureExists, backend.FeatureList, backend.FeatureStat,
			backend.FeatureStream, backend.FeatureWriteIfAbsent,
			backend.FeatureCompareAndSwap, backend.FeatureOrderedList,
		},
	}
}

func (a *memoryAdapter) Close() error {
	a.data.Clear()
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// memoryWriter buffers writes and commits them as one Store on Close.
type memoryWriter struct {
	adapter *memoryAdapter
	key     string
	buf     bytes.Buffer
	closed  bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, backend.NewError(backend.CodeBackend, "write on closed handle")
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.adapter.data.Store(w.key, clone(w.buf.Bytes()))
	return nil
}
