// Package redis implements a backend adapter storing entries as flat
// string keys in Redis (or any RESP-compatible engine such as Valkey or
// Kvrocks). The URI is a standard redis connection URL:
// redis://localhost:6379/0
package redis

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"net/url"

	"github.com/omnikv/omnistore/lib/backend"
	"github.com/redis/go-redis/v9"
)

const features = backend.FeatureRead |
	backend.FeatureWrite |
	backend.FeatureRemove |
	backend.FeatureExists |
	backend.FeatureList |
	backend.FeatureStat |
	backend.FeatureStream |
	backend.FeatureWriteIfAbsent |
	backend.FeatureCompareAndSwap

// casScript swaps the value only when the current value matches the
// expected one. GET on a missing key yields false, which never equals a
// bulk string, so CAS on an absent key fails as required.
var casScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[2])
  return 1
end
return 0
`)

func init() {
	factory := func(u *url.URL) (backend.Adapter, error) {
		opts, err := redis.ParseURL(u.String())
		if err != nil {
			return nil, backend.WrapError(backend.CodeConfiguration, "invalid redis uri", err)
		}
		return New(redis.NewClient(opts), u.String())
	}
	backend.Register("redis", factory)
	backend.Register("rediss", factory)
}

type redisAdapter struct {
	client *redis.Client
	uri    string
}

// New wraps an existing redis client. The connection is verified with a
// ping so configuration problems surface at construction time.
func New(client *redis.Client, uri string) (backend.Adapter, error) {
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, backend.WrapError(backend.CodeBackend, "redis ping", err)
	}
	return &redisAdapter{client: client, uri: uri}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (a *redisAdapter) Read(ctx context.Context, key string) ([]byte, error) {
	value, err := a.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	if err != nil {
		return nil, backend.WrapError(backend.CodeBackend, "redis read "+key, err)
	}
	return value, nil
}

func (a *redisAdapter) Write(ctx context.Context, key string, value []byte) error {
	if err := a.client.Set(ctx, key, value, 0).Err(); err != nil {
		return backend.WrapError(backend.CodeBackend, "redis write "+key, err)
	}
	return nil
}

func (a *redisAdapter) Remove(ctx context.Context, key string) error {
	n, err := a.client.Del(ctx, key).Result()
	if err != nil {
		return backend.WrapError(backend.CodeBackend, "redis remove "+key, err)
	}
	if n == 0 {
		return backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return nil
}

func (a *redisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		return false, backend.WrapError(backend.CodeBackend, "redis stat "+key, err)
	}
	return n > 0, nil
}

func (a *redisAdapter) List(ctx context.Context, prefix string) iter.Seq2[string, error] {
	pattern := "*"
	if prefix != "" {
		pattern = escapeMatch(prefix) + "*"
	}
	return func(yield func(string, error) bool) {
		it := a.client.Scan(ctx, 0, pattern, 0).Iterator()
		for it.Next(ctx) {
			key := it.Val()
			if !backend.MatchPrefix(key, prefix) {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield("", backend.WrapError(backend.CodeBackend, "redis list "+prefix, err))
		}
	}
}

func (a *redisAdapter) Stat(ctx context.Context, key string) (backend.Info, error) {
	size, err := a.client.StrLen(ctx, key).Result()
	if err != nil {
		return backend.Info{}, backend.WrapError(backend.CodeBackend, "redis stat "+key, err)
	}
	if size == 0 {
		// STRLEN returns 0 for both empty and missing values
		ok, err := a.Exists(ctx, key)
		if err != nil {
			return backend.Info{}, err
		}
		if !ok {
			return backend.Info{}, backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
		}
	}
	return backend.Info{Key: key, Size: size}, nil
}

func (a *redisAdapter) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	value, err := a.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

func (a *redisAdapter) OpenWrite(ctx context.Context, key string) (io.WriteCloser, error) {
	return &redisWriter{adapter: a, ctx: ctx, key: key}, nil
}

func (a *redisAdapter) WriteIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := a.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, backend.WrapError(backend.CodeBackend, "redis write "+key, err)
	}
	return ok, nil
}

func (a *redisAdapter) CompareAndSwap(ctx context.Context, key string, expected, next []byte) (bool, error) {
	res, err := casScript.Run(ctx, a.client, []string{key}, expected, next).Int()
	if err != nil {
		return false, backend.WrapError(backend.CodeBackend, "redis cas "+key, err)
	}
	return res == 1, nil
}

func (a *redisAdapter) SupportsFeature(f backend.Feature) bool {
	return features&f == f
}

func (a *redisAdapter) Info() backend.EngineInfo {
	return backend.EngineInfo{
		Engine: "redis",
		URI:    a.uri,
		SupportedFeatures: []backend.Feature{
			backend.FeatureRead, backend.FeatureWrite, backend.FeatureRemove,
			backend.FeatureExists, backend.FeatureList, backend.FeatureStat,
			backend.FeatureStream, backend.FeatureWriteIfAbsent,
			backend.FeatureCompareAndSwap,
		},
	}
}

func (a *redisAdapter) Close() error {
	return a.client.Close()
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// escapeMatch escapes SCAN glob metacharacters so keys containing them
// match literally.
func escapeMatch(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// redisWriter buffers writes and commits them as one SET on Close.
type redisWriter struct {
	adapter *redisAdapter
	ctx     context.Context
	key     string
	buf     bytes.Buffer
	closed  bool
}

func (w *redisWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, backend.NewError(backend.CodeBackend, "write on closed handle")
	}
	return w.buf.Write(p)
}

func (w *redisWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.adapter.Write(w.ctx, w.key, w.buf.Bytes())
}
