// Package s3 implements a backend adapter for S3-compatible object
// storage via the minio client. The URI names bucket and optional key
// prefix; endpoint and credentials come from query parameters or the
// standard AWS environment variables:
//
//	s3://bucket/prefix?endpoint=minio.local:9000&insecure=true
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/omnikv/omnistore/lib/backend"
)

const defaultEndpoint = "s3.amazonaws.com"

const features = backend.FeatureRead |
	backend.FeatureWrite |
	backend.FeatureRemove |
	backend.FeatureExists |
	backend.FeatureList |
	backend.FeatureStat |
	backend.FeatureStream |
	backend.FeatureOrderedList

func init() {
	backend.Register("s3", func(u *url.URL) (backend.Adapter, error) {
		bucket := u.Host
		if bucket == "" {
			return nil, backend.NewError(backend.CodeConfiguration, "s3 uri without bucket")
		}
		q := u.Query()
		endpoint := q.Get("endpoint")
		if endpoint == "" {
			endpoint = os.Getenv("AWS_ENDPOINT_URL")
		}
		if endpoint == "" {
			endpoint = defaultEndpoint
		}
		endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")

		var creds *credentials.Credentials
		if ak := q.Get("access-key"); ak != "" {
			creds = credentials.NewStaticV4(ak, q.Get("secret-key"), "")
		} else {
			creds = credentials.NewEnvAWS()
		}

		client, err := minio.New(endpoint, &minio.Options{
			Creds:  creds,
			Secure: q.Get("insecure") != "true",
			Region: q.Get("region"),
		})
		if err != nil {
			return nil, backend.WrapError(backend.CodeConfiguration, "s3 client for "+endpoint, err)
		}
		return New(client, bucket, strings.Trim(u.Path, "/"), u.String()), nil
	})
}

type s3Adapter struct {
	client *minio.Client
	bucket string
	prefix string
	uri    string
}

// New wraps an existing minio client. The bucket is not created
// implicitly; writes against a missing bucket fail like any other
// backend error.
func New(client *minio.Client, bucket, prefix, uri string) backend.Adapter {
	return &s3Adapter{client: client, bucket: bucket, prefix: prefix, uri: uri}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (a *s3Adapter) Read(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, a.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapErr("read", key, err)
	}
	defer obj.Close()
	value, err := io.ReadAll(obj)
	if err != nil {
		return nil, wrapErr("read", key, err)
	}
	return value, nil
}

func (a *s3Adapter) Write(ctx context.Context, key string, value []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, a.objectName(key),
		bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{})
	if err != nil {
		return wrapErr("write", key, err)
	}
	return nil
}

func (a *s3Adapter) Remove(ctx context.Context, key string) error {
	// RemoveObject is silent on missing keys, so absence is checked first
	if _, err := a.client.StatObject(ctx, a.bucket, a.objectName(key), minio.StatObjectOptions{}); err != nil {
		return wrapErr("remove", key, err)
	}
	if err := a.client.RemoveObject(ctx, a.bucket, a.objectName(key), minio.RemoveObjectOptions{}); err != nil {
		return wrapErr("remove", key, err)
	}
	return nil
}

func (a *s3Adapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.StatObject(ctx, a.bucket, a.objectName(key), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, wrapErr("stat", key, err)
	}
	return true, nil
}

func (a *s3Adapter) List(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		opts := minio.ListObjectsOptions{
			Prefix:    a.objectName(prefix),
			Recursive: true,
		}
		for obj := range a.client.ListObjects(ctx, a.bucket, opts) {
			if obj.Err != nil {
				yield("", wrapErr("list", prefix, obj.Err))
				return
			}
			key := a.keyName(obj.Key)
			if !backend.MatchPrefix(key, prefix) {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
	}
}

func (a *s3Adapter) Stat(ctx context.Context, key string) (backend.Info, error) {
	stat, err := a.client.StatObject(ctx, a.bucket, a.objectName(key), minio.StatObjectOptions{})
	if err != nil {
		return backend.Info{}, wrapErr("stat", key, err)
	}
	return backend.Info{
		Key:       key,
		Size:      stat.Size,
		CreatedAt: stat.LastModified,
		UpdatedAt: stat.LastModified,
	}, nil
}

func (a *s3Adapter) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, a.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapErr("open", key, err)
	}
	// GetObject defers the request; probe so absence surfaces here
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, wrapErr("open", key, err)
	}
	return obj, nil
}

func (a *s3Adapter) OpenWrite(ctx context.Context, key string) (io.WriteCloser, error) {
	return &s3Writer{adapter: a, ctx: ctx, key: key}, nil
}

func (a *s3Adapter) WriteIfAbsent(context.Context, string, []byte) (bool, error) {
	return false, backend.NewError(backend.CodeUnsupportedOperation, "s3 adapter does not support WriteIfAbsent")
}

func (a *s3Adapter) CompareAndSwap(context.Context, string, []byte, []byte) (bool, error) {
	return false, backend.NewError(backend.CodeUnsupportedOperation, "s3 adapter does not support CompareAndSwap")
}

func (a *s3Adapter) SupportsFeature(f backend.Feature) bool {
	return features&f == f
}

func (a *s3Adapter) Info() backend.EngineInfo {
	return backend.EngineInfo{
		Engine: "s3",
		URI:    a.uri,
		SupportedFeatures: []backend.Feature{
			backend.FeatureRead, backend.FeatureWrite, backend.FeatureRemove,
			backend.FeatureExists, backend.FeatureList, backend.FeatureStat,
			backend.FeatureStream, backend.FeatureOrderedList,
		},
	}
}

func (a *s3Adapter) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func (a *s3Adapter) objectName(key string) string {
	if a.prefix == "" {
		return key
	}
	if key == "" {
		return a.prefix
	}
	return a.prefix + "/" + key
}

func (a *s3Adapter) keyName(objectName string) string {
	if a.prefix == "" {
		return objectName
	}
	return strings.TrimPrefix(strings.TrimPrefix(objectName, a.prefix), "/")
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
	}
	return false
}

func wrapErr(op, key string, err error) error {
	if isNoSuchKey(err) {
		return backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return backend.WrapError(backend.CodeBackend, "s3 "+op+" "+key, err)
}

// s3Writer buffers writes and commits them as one PutObject on Close.
type s3Writer struct {
	adapter *s3Adapter
	ctx     context.Context
	key     string
	buf     bytes.Buffer
	closed  bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, backend.NewError(backend.CodeBackend, "write on closed handle")
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.adapter.Write(w.ctx, w.key, w.buf.Bytes())
}
