package lockmgr

import (
	"context"
	"time"
)

// LockSuffix marks the sentinel entries the adapter-backed lock manager
// stores next to guarded keys. The store facade hides keys carrying
// this suffix from iteration.
const LockSuffix = ".__lock__"

// Guard is a held per-key lock. Release is idempotent and must be
// called on every exit path; WithLock does this automatically.
type Guard interface {
	// Release frees the lock. Calling Release twice is a no-op.
	Release() error
}

// ILockManager defines the interface for a lock provider. A lock
// manager hands out per-key mutual exclusion guards for mutating
// operation sequences.
type ILockManager interface {
	// AcquireLock blocks until the per-key guard is obtained or the
	// timeout elapses, in which case it fails with a lock timeout error.
	AcquireLock(ctx context.Context, key string, timeout time.Duration) (Guard, error)
}

// WithLock runs fn while holding the guard for key, releasing it on
// every exit path including failures inside fn.
func WithLock(ctx context.Context, mgr ILockManager, key string, timeout time.Duration, fn func() error) error {
	guard, err := mgr.AcquireLock(ctx, key, timeout)
	if err != nil {
		return err
	}
	defer guard.Release()
	return fn()
}
