package lockmgr

import (
	"context"
	"sync"
	"time"

	"github.com/omnikv/omnistore/lib/backend"
	"github.com/puzpuzpuz/xsync/v3"
)

// localLockManager implements ILockManager with in-process semaphores,
// the fallback for adapters without an atomic conditional-write
// primitive. It coordinates goroutines within one process only; cross
// process exclusion then depends on the backend's own consistency.
type localLockManager struct {
	locks *xsync.MapOf[string, chan struct{}]
}

// NewLocalLockManager creates an in-process lock manager.
func NewLocalLockManager() ILockManager {
	return &localLockManager{locks: xsync.NewMapOf[string, chan struct{}]()}
}

func (m *localLockManager) AcquireLock(ctx context.Context, key string, timeout time.Duration) (Guard, error) {
	sem, _ := m.locks.LoadOrCompute(key, func() chan struct{} {
		return make(chan struct{}, 1)
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return &localGuard{sem: sem}, nil
	case <-timer.C:
		return nil, backend.NewErrorf(backend.CodeLockTimeout, "lock on %q not acquired within %s", key, timeout)
	case <-ctx.Done():
		return nil, backend.WrapError(backend.CodeLockTimeout, "lock on "+key, ctx.Err())
	}
}

type localGuard struct {
	sem  chan struct{}
	once sync.Once
}

func (g *localGuard) Release() error {
	g.once.Do(func() { <-g.sem })
	return nil
}
