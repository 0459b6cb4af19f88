// Package bolt implements a backend adapter on top of bbolt, an
// embedded B+ tree key-value engine. The URI names the database file
// and an optional bucket: bolt:///path/to/data.db?bucket=mystore
package bolt

import (
	"bytes"
	"context"
	"io"
	"iter"
	"net/url"
	"time"

	"github.com/omnikv/omnistore/lib/backend"
	bbolt "go.etcd.io/bbolt"
)

const (
	defaultBucket = "omnistore"
	openTimeout   = time.Second
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
	backend.Register("bolt", func(u *url.URL) (backend.Adapter, error) {
		path := u.Path
		if u.Host != "" {
			path = u.Host + "/" + u.Path
		}
		if path == "" {
			return nil, backend.NewError(backend.CodeConfiguration, "bolt uri without database path")
		}
		bucket := u.Query().Get("bucket")
		if bucket == "" {
			bucket = defaultBucket
		}
		return Open(path, bucket)
	})
}

type boltAdapter struct {
	db     *bbolt.DB
	bucket []byte
	uri    string
}

// Open creates or opens a bbolt database at the given path and ensures
// the bucket exists.
func Open(path, bucket string) (backend.Adapter, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, backend.WrapError(backend.CodeConfiguration, "opening bolt db "+path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, backend.WrapError(backend.CodeBackend, "creating bucket "+bucket, err)
	}
	return &boltAdapter{
		db:     db,
		bucket: []byte(bucket),
		uri:    "bolt://" + path + "?bucket=" + bucket,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (a *boltAdapter) Read(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := a.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(a.bucket).Get([]byte(key))
		if v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	if err != nil {
		return nil, backend.WrapError(backend.CodeBackend, "bolt read "+key, err)
	}
	if value == nil {
		return nil, backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return value, nil
}

func (a *boltAdapter) Write(_ context.Context, key string, value []byte) error {
	err := a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).Put([]byte(key), value)
	})
	if err != nil {
		return backend.WrapError(backend.CodeBackend, "bolt write "+key, err)
	}
	return nil
}

func (a *boltAdapter) Remove(_ context.Context, key string) error {
	found := false
	err := a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(a.bucket)
		if b.Get([]byte(key)) == nil {
			return nil
		}
		found = true
		return b.Delete([]byte(key))
	})
	if err != nil {
		return backend.WrapError(backend.CodeBackend, "bolt remove "+key, err)
	}
	if !found {
		return backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return nil
}

func (a *boltAdapter) Exists(_ context.Context, key string) (bool, error) {
	found := false
	err := a.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(a.bucket).Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, backend.WrapError(backend.CodeBackend, "bolt stat "+key, err)
	}
	return found, nil
}

func (a *boltAdapter) List(_ context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		// collect inside the view tx, yield outside so slow consumers
		// don't hold the read transaction open
		var keys []string
		err := a.db.View(func(tx *bbolt.Tx) error {
			c := tx.Bucket(a.bucket).Cursor()
			seek := []byte(prefix)
			for k, _ := c.Seek(seek); k != nil && bytes.HasPrefix(k, seek); k, _ = c.Next() {
				if backend.MatchPrefix(string(k), prefix) {
					keys = append(keys, string(k))
				}
			}
			return nil
		})
		if err != nil {
			yield("", backend.WrapError(backend.CodeBackend, "bolt list "+prefix, err))
			return
		}
		for _, key := range keys {
			if !yield(key, nil) {
				return
			}
		}
	}
}

func (a *boltAdapter) Stat(ctx context.Context, key string) (backend.Info, error) {
	value, err := a.Read(ctx, key)
	if err != nil {
		return backend.Info{}, err
	}
	return backend.Info{Key: key, Size: int64(len(value))}, nil
}

func (a *boltAdapter) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	// bbolt values are only valid inside their transaction, so the
	// payload is copied out before handing over a reader
	value, err := a.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

func (a *boltAdapter) OpenWrite(ctx context.Context, key string) (io.WriteCloser, error) {
	return &boltWriter{adapter: a, ctx: ctx, key: key}, nil
}

func (a *boltAdapter) WriteIfAbsent(_ context.Context, key string, value []byte) (bool, error) {
	written := false
	err := a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(a.bucket)
		if b.Get([]byte(key)) != nil {
			return nil
		}
		written = true
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return false, backend.WrapError(backend.CodeBackend, "bolt write "+key, err)
	}
	return written, nil
}

func (a *boltAdapter) CompareAndSwap(_ context.Context, key string, expected, next []byte) (bool, error) {
	swapped := false
	err := a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(a.bucket)
		if !bytes.Equal(b.Get([]byte(key)), expected) {
			return nil
		}
		swapped = true
		return b.Put([]byte(key), next)
	})
	if err != nil {
		return false, backend.WrapError(backend.CodeBackend, "bolt cas "+key, err)
	}
	return swapped, nil
}

func (a *boltAdapter) SupportsFeature(f backend.Feature) bool {
	return features&f == f
}

func (a *boltAdapter) Info() backend.EngineInfo {
	return backend.EngineInfo{
		Engine: "bolt",
		URI:    a.uri,
		SupportedFeatures: []backend.Feature{
			backend.FeatureRead, backend.FeatureWrite, backend.FeatureRemove,
			backend.FeatureExists, backend.FeatureList, backend.FeatureStat,
			backend.FeatureStream, backend.FeatureWriteIfAbsent,
			backend.FeatureCompareAndSwap, backend.FeatureOrderedList,
		},
	}
}

func (a *boltAdapter) Close() error {
	return a.db.Close()
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// boltWriter buffers writes and commits them as one Put on Close.
type boltWriter struct {
	adapter *boltAdapter
	ctx     context.Context
	key     string
	buf     bytes.Buffer
	closed  bool
}

func (w *boltWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, backend.NewError(backend.CodeBackend, "write on closed handle")
	}
	return w.buf.Write(p)
}

func (w *boltWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.adapter.Write(w.ctx, w.key, w.buf.Bytes())
}
