// Package fs implements a local-filesystem backend adapter on top of
// afero. Keys map one-to-one to relative file paths below the base
// directory from the file:// URI.
package fs

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/omnikv/omnistore/lib/backend"
	"github.com/spf13/afero"
)

const features = backend.FeatureRead |
	backend.FeatureWrite |
	backend.FeatureRemove |
	backend.FeatureExists |
	backend.FeatureList |
	backend.FeatureStat |
	backend.FeatureStream |
	backend.FeatureWriteIfAbsent |
	backend.FeatureOrderedList

// tmpSuffix marks the staging sibling an open write handle writes to
// until it is renamed into place on Close. List hides these keys.
const tmpSuffix = ".__tmp__"

func init() {
	backend.Register("file", func(u *url.URL) (backend.Adapter, error) {
		base := u.Path
		if u.Host != "" {
			// file://relative/path parses the first segment as host
			base = u.Host + "/" + u.Path
		}
		if base == "" {
			return nil, backend.NewError(backend.CodeConfiguration, "file uri without path")
		}
		return New(afero.NewOsFs(), base), nil
	})
}

type fsAdapter struct {
	fs   afero.Fs
	base string
	uri  string
}

// New creates a filesystem adapter rooted at base. The base directory
// is created lazily on the first write.
func New(base afero.Fs, dir string) backend.Adapter {
	return &fsAdapter{
		fs:   afero.NewBasePathFs(base, dir),
		base: dir,
		uri:  "file://" + filepath.ToSlash(dir),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (a *fsAdapter) Read(_ context.Context, key string) ([]byte, error) {
	if err := a.statFile(key); err != nil {
		return nil, err
	}
	value, err := afero.ReadFile(a.fs, key)
	if err != nil {
		return nil, wrapErr("read", key, err)
	}
	return value, nil
}

func (a *fsAdapter) Write(_ context.Context, key string, value []byte) error {
	if err := a.ensureParent(key); err != nil {
		return err
	}
	if err := afero.WriteFile(a.fs, key, value, 0o644); err != nil {
		return wrapErr("write", key, err)
	}
	return nil
}

func (a *fsAdapter) Remove(_ context.Context, key string) error {
	if err := a.statFile(key); err != nil {
		return err
	}
	if err := a.fs.Remove(key); err != nil {
		return wrapErr("remove", key, err)
	}
	return nil
}

func (a *fsAdapter) Exists(_ context.Context, key string) (bool, error) {
	info, err := a.fs.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, wrapErr("stat", key, err)
	}
	return !info.IsDir(), nil
}

func (a *fsAdapter) List(_ context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := afero.Walk(a.fs, ".", func(p string, info os.FileInfo, err error) error {
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil
				}
				return err
			}
			if info.IsDir() {
				return nil
			}
			key := path.Clean(filepath.ToSlash(p))
			key = trimLeadingSlash(key)
			if strings.HasSuffix(key, tmpSuffix) {
				// staging file of an uncommitted write handle
				return nil
			}
			if !backend.MatchPrefix(key, prefix) {
				return nil
			}
			if !yield(key, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !errors.Is(err, filepath.SkipAll) {
			yield("", wrapErr("list", prefix, err))
		}
	}
}

func (a *fsAdapter) Stat(_ context.Context, key string) (backend.Info, error) {
	info, err := a.fs.Stat(key)
	if err != nil || info.IsDir() {
		return backend.Info{}, notFoundOrWrap("stat", key, err)
	}
	return backend.Info{
		Key:       key,
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

func (a *fsAdapter) OpenRead(_ context.Context, key string) (io.ReadCloser, error) {
	if err := a.statFile(key); err != nil {
		return nil, err
	}
	f, err := a.fs.Open(key)
	if err != nil {
		return nil, wrapErr("open", key, err)
	}
	return f, nil
}

func (a *fsAdapter) OpenWrite(_ context.Context, key string) (io.WriteCloser, error) {
	if err := a.ensureParent(key); err != nil {
		return nil, err
	}
	// write to a temp sibling, rename into place on Close so partial
	// writes never become visible
	tmp := key + tmpSuffix
	f, err := a.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, wrapErr("open", key, err)
	}
	return &fsWriter{fs: a.fs, file: f, tmp: tmp, key: key}, nil
}

func (a *fsAdapter) WriteIfAbsent(_ context.Context, key string, value []byte) (bool, error) {
	if err := a.ensureParent(key); err != nil {
		return false, err
	}
	f, err := a.fs.OpenFile(key, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, wrapErr("write", key, err)
	}
	defer f.Close()
	if _, err := f.Write(value); err != nil {
		return false, wrapErr("write", key, err)
	}
	return true, nil
}

func (a *fsAdapter) CompareAndSwap(context.Context, string, []byte, []byte) (bool, error) {
	return false, backend.NewError(backend.CodeUnsupportedOperation, "fs adapter does not support CompareAndSwap")
}

func (a *fsAdapter) SupportsFeature(f backend.Feature) bool {
	return features&f == f
}

func (a *fsAdapter) Info() backend.EngineInfo {
	return backend.EngineInfo{
		Engine: "fs",
		URI:    a.uri,
		SupportedFeatures: []backend.Feature{
			backend.FeatureRead, backend.FeatureWrite, backend.FeatureRemove,
			backend.FeatureExists, backend.FeatureList, backend.FeatureStat,
			backend.FeatureStream, backend.FeatureWriteIfAbsent,
			backend.FeatureOrderedList,
		},
	}
}

func (a *fsAdapter) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// statFile maps missing files and directories to CodeKeyNotFound.
func (a *fsAdapter) statFile(key string) error {
	info, err := a.fs.Stat(key)
	if err != nil || info.IsDir() {
		return notFoundOrWrap("stat", key, err)
	}
	return nil
}

func (a *fsAdapter) ensureParent(key string) error {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return nil
	}
	if err := a.fs.MkdirAll(dir, 0o755); err != nil {
		return wrapErr("mkdir", key, err)
	}
	return nil
}

func trimLeadingSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}

func wrapErr(op, key string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return backend.WrapError(backend.CodeBackend, "fs "+op+" "+key, err)
}

func notFoundOrWrap(op, key string, err error) error {
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return backend.WrapError(backend.CodeBackend, "fs "+op+" "+key, err)
}

// fsWriter commits the temp file to its final name on Close.
type fsWriter struct {
	fs     afero.Fs
	file   afero.File
	tmp    string
	key    string
	closed bool
}

func (w *fsWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

func (w *fsWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.file.Close(); err != nil {
		_ = w.fs.Remove(w.tmp)
		return wrapErr("close", w.key, err)
	}
	if err := w.fs.Rename(w.tmp, w.key); err != nil {
		_ = w.fs.Remove(w.tmp)
		return wrapErr("rename", w.key, err)
	}
	return nil
}
