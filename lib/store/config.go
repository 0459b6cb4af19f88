package store

import (
	"time"

	"github.com/omnikv/omnistore/lib/codec"
)

// Default timing parameters for guarded operations.
const (
	DefaultLockTimeout       = 10 * time.Second
	DefaultLockRetryInterval = 25 * time.Millisecond
)

// Config holds the process-wide defaults for one store. It is immutable
// after store construction; per-call options override individual fields
// for single operations.
type Config struct {
	// URI selects and configures the backend adapter.
	URI string

	// Mode is the default serialization mode. Empty means automatic
	// inference from the value's type.
	Mode codec.Mode

	// RaiseOnNonexist selects the default missing-key policy: true
	// surfaces ErrKeyNotFound for absent or expired keys, false yields
	// the absent sentinel (nil value) instead.
	RaiseOnNonexist bool

	// TTL is the default time-to-live for written entries. Zero means
	// entries never expire.
	TTL time.Duration

	// LockTimeout bounds how long a mutating operation waits for the
	// per-key guard before failing with ErrLockTimeout.
	LockTimeout time.Duration

	// LockRetryInterval is the poll interval of the adapter-backed lock
	// manager between acquisition attempts.
	LockRetryInterval time.Duration
}

// DefaultConfig returns a config for the given URI with the raise
// policy enabled and no default TTL.
func DefaultConfig(uri string) Config {
	return Config{
		URI:               uri,
		RaiseOnNonexist:   true,
		LockTimeout:       DefaultLockTimeout,
		LockRetryInterval: DefaultLockRetryInterval,
	}
}

// withDefaults fills unset timing fields.
func (c Config) withDefaults() Config {
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.LockRetryInterval <= 0 {
		c.LockRetryInterval = DefaultLockRetryInterval
	}
	return c
}
