package store

import (
	"bufio"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/omnikv/omnistore/lib/backend"
	"github.com/omnikv/omnistore/lib/codec"
	"github.com/omnikv/omnistore/lib/lockmgr"
)

// --------------------------------------------------------------------------
// Store Implementation
// --------------------------------------------------------------------------

// storeImpl implements IStore on top of a resolved backend adapter, the
// codec dispatcher and a lock manager. It owns the entry envelope: the
// adapter below it only ever sees opaque bytes.
type storeImpl struct {
	cfg     Config
	adapter backend.Adapter
	locks   lockmgr.ILockManager
}

// New resolves the configured URI to a backend adapter and returns a
// ready-to-use store. The caller must Close the store when done.
func New(cfg Config) (IStore, error) {
	cfg = cfg.withDefaults()
	adapter, err := backend.Resolve(cfg.URI)
	if err != nil {
		return nil, err
	}
	// keep the normalized form so Info and logs agree with the adapter
	cfg.URI = adapter.Info().URI
	return &storeImpl{
		cfg:     cfg,
		adapter: adapter,
		locks:   lockmgr.NewLockManager(adapter, cfg.LockRetryInterval),
	}, nil
}

// NewWithAdapter wraps an already constructed adapter. Useful for
// adapters that need programmatic setup a URI cannot express.
func NewWithAdapter(cfg Config, adapter backend.Adapter) IStore {
	cfg = cfg.withDefaults()
	if cfg.URI == "" {
		cfg.URI = adapter.Info().URI
	}
	return &storeImpl{
		cfg:     cfg,
		adapter: adapter,
		locks:   lockmgr.NewLockManager(adapter, cfg.LockRetryInterval),
	}
}

// countOp bumps the per-operation counter.
func countOp(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`omnistore_ops_total{op=%q}`, op)).Inc()
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// missing produces the policy-dependent result for an absent or expired
// key: an error under the raise policy, nil otherwise.
func (s *storeImpl) missing(key string, raise bool) error {
	if raise {
		return backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %s", key)
	}
	return nil
}

// readEntry loads and expiry-checks the full record under key. The
// returned bool reports whether a live entry was found; an expired
// record is lazily evicted and reported as absent. Callers that already
// hold the per-key guard pass guarded=true so the eviction removes
// directly instead of re-acquiring the (non-reentrant) guard.
func (s *storeImpl) readEntry(ctx context.Context, key string, guarded bool) (entryHeader, []byte, bool, error) {
	raw, err := s.adapter.Read(ctx, key)
	if backend.IsNotFound(err) {
		return entryHeader{}, nil, false, nil
	}
	if err != nil {
		return entryHeader{}, nil, false, err
	}
	h, payload, err := decodeEntry(raw)
	if err != nil {
		return entryHeader{}, nil, false, err
	}
	if h.expired(time.Now()) {
		if guarded {
			_ = s.adapter.Remove(ctx, key)
		} else {
			s.evictExpired(ctx, key)
		}
		return entryHeader{}, nil, false, nil
	}
	return h, payload, true, nil
}

// peekHeaderRaw reads only the envelope header under key, without any
// expiry handling. The returned bool reports whether a record exists.
func (s *storeImpl) peekHeaderRaw(ctx context.Context, key string) (entryHeader, bool, error) {
	rc, err := s.adapter.OpenRead(ctx, key)
	if backend.IsNotFound(err) {
		return entryHeader{}, false, nil
	}
	if err != nil {
		return entryHeader{}, false, err
	}
	defer rc.Close()
	h, err := readHeader(rc)
	if err != nil {
		return entryHeader{}, false, err
	}
	return h, true, nil
}

// peekHeader expiry-checks the header under key like readEntry but
// without loading the payload.
func (s *storeImpl) peekHeader(ctx context.Context, key string) (entryHeader, bool, error) {
	h, ok, err := s.peekHeaderRaw(ctx, key)
	if err != nil || !ok {
		return entryHeader{}, false, err
	}
	if h.expired(time.Now()) {
		s.evictExpired(ctx, key)
		return entryHeader{}, false, nil
	}
	return h, true, nil
}

// evictLockTimeout bounds how long a read path waits for the per-key
// guard before giving up on physically removing an expired record.
const evictLockTimeout = 250 * time.Millisecond

// evictExpired physically removes a record a read observed as expired.
// The removal runs under the per-key guard and re-checks the header
// first, so it can never erase a fresh entry a guarded write put in
// place after the observation. Eviction is best effort: if the guard is
// contended the record stays; expiry already holds logically.
func (s *storeImpl) evictExpired(ctx context.Context, key string) {
	guard, err := s.locks.AcquireLock(ctx, key, evictLockTimeout)
	if err != nil {
		return
	}
	defer guard.Release()
	if h, ok, err := s.peekHeaderRaw(ctx, key); err == nil && ok && h.expired(time.Now()) {
		_ = s.adapter.Remove(ctx, key)
	}
}

// decodeMode picks the mode reads decode with: an explicit or
// store-level mode wins, otherwise the mode persisted in the envelope.
func decodeMode(oc opConfig, h entryHeader) codec.Mode {
	if oc.mode != codec.ModeAuto {
		return oc.mode
	}
	return h.Mode
}

// headerForWrite builds the envelope header for a write happening now,
// preserving the creation timestamp of a live prior entry.
func (s *storeImpl) headerForWrite(ctx context.Context, key string, mode codec.Mode, oc opConfig) entryHeader {
	now := time.Now()
	h := entryHeader{Mode: mode, CreatedAt: now, UpdatedAt: now}
	// raw peek: the caller holds the per-key guard, and the overwrite
	// replaces an expired record anyway
	if prior, ok, _ := s.peekHeaderRaw(ctx, key); ok && !prior.expired(now) {
		h.CreatedAt = prior.CreatedAt
	}
	if oc.ttl > 0 {
		h.ExpiresAt = now.Add(oc.ttl)
	}
	return h
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(ctx context.Context, key string, value any, opts ...Option) error {
	countOp("put")
	key, err := backend.ValidateKey(key)
	if err != nil {
		return err
	}
	oc := s.apply(opts)
	payload, mode, err := codec.Encode(value, oc.mode)
	if err != nil {
		return err
	}
	return lockmgr.WithLock(ctx, s.locks, key, s.cfg.LockTimeout, func() error {
		record, err := encodeEntry(s.headerForWrite(ctx, key, mode, oc), payload)
		if err != nil {
			return err
		}
		return s.adapter.Write(ctx, key, record)
	})
}

func (s *storeImpl) Get(ctx context.Context, key string, opts ...Option) (any, error) {
	countOp("get")
	key, err := backend.ValidateKey(key)
	if err != nil {
		return nil, err
	}
	oc := s.apply(opts)
	h, payload, ok, err := s.readEntry(ctx, key, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.missing(key, oc.raise)
	}
	return codec.Decode(payload, decodeMode(oc, h))
}

func (s *storeImpl) GetInto(ctx context.Context, key string, dest any, opts ...Option) (bool, error) {
	countOp("get")
	key, err := backend.ValidateKey(key)
	if err != nil {
		return false, err
	}
	oc := s.apply(opts)
	h, payload, ok, err := s.readEntry(ctx, key, false)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, s.missing(key, oc.raise)
	}
	if err := codec.DecodeInto(payload, decodeMode(oc, h), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *storeImpl) Pop(ctx context.Context, key string, opts ...Option) (any, error) {
	countOp("pop")
	key, err := backend.ValidateKey(key)
	if err != nil {
		return nil, err
	}
	oc := s.apply(opts)
	var value any
	err = lockmgr.WithLock(ctx, s.locks, key, s.cfg.LockTimeout, func() error {
		h, payload, ok, err := s.readEntry(ctx, key, true)
		if err != nil {
			return err
		}
		if !ok {
			return s.missing(key, oc.raise)
		}
		if value, err = codec.Decode(payload, decodeMode(oc, h)); err != nil {
			return err
		}
		return s.adapter.Remove(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *storeImpl) Stream(ctx context.Context, key string, opts ...Option) iter.Seq2[[]byte, error] {
	countOp("stream")
	oc := s.apply(opts)
	return func(yield func([]byte, error) bool) {
		rc, err := s.openPayload(ctx, key)
		if backend.IsNotFound(err) {
			if !oc.raise {
				return
			}
			yield(nil, err)
			return
		}
		if err != nil {
			yield(nil, err)
			return
		}
		defer rc.Close()
		scanner := bufio.NewScanner(rc)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			if !yield(line, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, backend.WrapError(backend.CodeBackend, "streaming entry", err))
		}
	}
}

func (s *storeImpl) Open(ctx context.Context, key string, opts ...Option) (io.ReadCloser, error) {
	countOp("open")
	return s.openPayload(ctx, key)
}

// openPayload opens a reader positioned after the envelope header. An
// expired entry is lazily evicted and reported as not found.
func (s *storeImpl) openPayload(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := backend.ValidateKey(key)
	if err != nil {
		return nil, err
	}
	rc, err := s.adapter.OpenRead(ctx, key)
	if err != nil {
		return nil, err
	}
	h, err := readHeader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	if h.expired(time.Now()) {
		rc.Close()
		s.evictExpired(ctx, key)
		return nil, backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %s", key)
	}
	return rc, nil
}

func (s *storeImpl) Create(ctx context.Context, key string, opts ...Option) (io.WriteCloser, error) {
	countOp("create")
	key, err := backend.ValidateKey(key)
	if err != nil {
		return nil, err
	}
	oc := s.apply(opts)
	mode := oc.mode
	if mode == codec.ModeAuto {
		mode = codec.ModeRaw
	}
	wc, err := s.adapter.OpenWrite(ctx, key)
	if err != nil {
		return nil, err
	}
	header, err := encodeEntry(s.headerForWrite(ctx, key, mode, oc), nil)
	if err != nil {
		wc.Close()
		return nil, err
	}
	if _, err := wc.Write(header); err != nil {
		wc.Close()
		return nil, backend.WrapError(backend.CodeBackend, "writing entry header", err)
	}
	return wc, nil
}

func (s *storeImpl) Delete(ctx context.Context, key string, opts ...Option) error {
	countOp("delete")
	key, err := backend.ValidateKey(key)
	if err != nil {
		return err
	}
	oc := s.apply(opts)
	return lockmgr.WithLock(ctx, s.locks, key, s.cfg.LockTimeout, func() error {
		err := s.adapter.Remove(ctx, key)
		if backend.IsNotFound(err) {
			return s.missing(key, oc.raise)
		}
		return err
	})
}

func (s *storeImpl) IterateKeys(ctx context.Context, prefix string) iter.Seq2[string, error] {
	countOp("iterate_keys")
	return func(yield func(string, error) bool) {
		for key, err := range s.adapter.List(ctx, prefix) {
			if err != nil {
				yield("", err)
				return
			}
			if strings.HasSuffix(key, lockmgr.LockSuffix) {
				continue
			}
			_, ok, err := s.peekHeader(ctx, key)
			if err != nil {
				if !yield(key, err) {
					return
				}
				continue
			}
			if !ok {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
	}
}

func (s *storeImpl) IterateValues(ctx context.Context, prefix string, opts ...Option) iter.Seq2[any, error] {
	countOp("iterate_values")
	oc := s.apply(opts)
	return func(yield func(any, error) bool) {
		for key, err := range s.adapter.List(ctx, prefix) {
			if err != nil {
				yield(nil, err)
				return
			}
			if strings.HasSuffix(key, lockmgr.LockSuffix) {
				continue
			}
			h, payload, ok, err := s.readEntry(ctx, key, false)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !ok {
				continue
			}
			value, err := codec.Decode(payload, decodeMode(oc, h))
			if !yield(value, err) {
				return
			}
		}
	}
}

func (s *storeImpl) Exists(ctx context.Context, key string) (bool, error) {
	countOp("exists")
	key, err := backend.ValidateKey(key)
	if err != nil {
		return false, err
	}
	_, ok, err := s.peekHeader(ctx, key)
	return ok, err
}

func (s *storeImpl) Info(ctx context.Context, key string, opts ...Option) (Info, error) {
	countOp("info")
	key, err := backend.ValidateKey(key)
	if err != nil {
		return Info{}, err
	}
	oc := s.apply(opts)
	h, ok, err := s.peekHeader(ctx, key)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		return Info{}, s.missing(key, oc.raise)
	}
	stat, err := s.adapter.Stat(ctx, key)
	if err != nil {
		return Info{}, err
	}
	size := stat.Size - int64(headerSize)
	if size < 0 {
		size = 0
	}
	return Info{
		Key:       key,
		Store:     s.cfg.URI,
		Size:      size,
		Mode:      h.Mode,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
		ExpiresAt: h.ExpiresAt,
	}, nil
}

func (s *storeImpl) Touch(ctx context.Context, key string, opts ...Option) (time.Time, error) {
	countOp("touch")
	now := time.Now()
	if err := s.Put(ctx, key, now.Format(time.RFC3339Nano), opts...); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

func (s *storeImpl) Checksum(ctx context.Context, key string, algorithm string) (string, error) {
	countOp("checksum")
	var hasher hash.Hash
	switch algorithm {
	case "", "sha256":
		hasher = sha256.New()
	case "sha1":
		hasher = sha1.New()
	case "md5":
		hasher = md5.New()
	case "sha512":
		hasher = sha512.New()
	default:
		return "", backend.NewErrorf(backend.CodeUnsupportedOperation, "unknown checksum algorithm: %q", algorithm)
	}
	rc, err := s.openPayload(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	if _, err := io.Copy(hasher, rc); err != nil {
		return "", backend.WrapError(backend.CodeBackend, "hashing entry", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *storeImpl) Lock(ctx context.Context, key string, timeout time.Duration) (lockmgr.Guard, error) {
	countOp("lock")
	key, err := backend.ValidateKey(key)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = s.cfg.LockTimeout
	}
	return s.locks.AcquireLock(ctx, key, timeout)
}

func (s *storeImpl) Close() error {
	return s.adapter.Close()
}
