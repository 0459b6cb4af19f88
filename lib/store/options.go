package store

import (
	"time"

	"github.com/omnikv/omnistore/lib/codec"
)

// Option overrides one store default for a single operation call.
type Option func(*opConfig)

// opConfig is the per-call view of the store defaults after applying
// options.
type opConfig struct {
	mode  codec.Mode
	ttl   time.Duration
	raise bool
}

// WithMode forces a serialization mode for this call, overriding the
// store default and the automatic inference.
func WithMode(mode codec.Mode) Option {
	return func(o *opConfig) { o.mode = mode }
}

// WithTTL sets the time-to-live for the entry written by this call,
// overriding the store default. Zero disables expiry for this entry.
func WithTTL(ttl time.Duration) Option {
	return func(o *opConfig) { o.ttl = ttl }
}

// WithRaise overrides the missing-key policy for this call: true
// surfaces ErrKeyNotFound for absent or expired keys, false yields the
// absent sentinel instead.
func WithRaise(raise bool) Option {
	return func(o *opConfig) { o.raise = raise }
}

// apply resolves the per-call config from store defaults and options.
func (s *storeImpl) apply(opts []Option) opConfig {
	cfg := opConfig{
		mode:  s.cfg.Mode,
		ttl:   s.cfg.TTL,
		raise: s.cfg.RaiseOnNonexist,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
