package lockmgr

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omnikv/omnistore/lib/backend"
)

const (
	// DefaultRetryInterval is the poll interval between acquisition
	// attempts of the adapter-backed lock manager.
	DefaultRetryInterval = 25 * time.Millisecond

	// sentinel payload: 16 byte owner uuid + 8 byte lease deadline
	sentinelLen = 24
)

// NewLockManager creates the lock manager best suited for the given
// adapter: a sentinel-entry manager when the backend exposes an atomic
// write-if-absent primitive (coordinating across all processes pointed
// at the same backend), otherwise an in-process fallback.
func NewLockManager(adapter backend.Adapter, retryInterval time.Duration) ILockManager {
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	if adapter.SupportsFeature(backend.FeatureWriteIfAbsent) {
		return &adapterLockManager{adapter: adapter, retryInterval: retryInterval}
	}
	return NewLocalLockManager()
}

// --------------------------------------------------------------------------
// Adapter-backed lock manager
// --------------------------------------------------------------------------

// adapterLockManager implements ILockManager with a sentinel entry next
// to the guarded key. Acquisition writes the sentinel with the atomic
// write-if-absent primitive; the payload carries a random owner ID and
// a lease deadline so a crashed holder's lock can be broken by the next
// acquirer after the timeout window.
type adapterLockManager struct {
	adapter       backend.Adapter
	retryInterval time.Duration
}

// NewAdapterLockManager creates a sentinel-entry lock manager on an
// adapter that supports FeatureWriteIfAbsent.
func NewAdapterLockManager(adapter backend.Adapter, retryInterval time.Duration) ILockManager {
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	return &adapterLockManager{adapter: adapter, retryInterval: retryInterval}
}

func (m *adapterLockManager) AcquireLock(ctx context.Context, key string, timeout time.Duration) (Guard, error) {
	lockKey := key + LockSuffix
	deadline := time.Now().Add(timeout)

	ownerID, err := generateOwnerID()
	if err != nil {
		return nil, backend.WrapError(backend.CodeBackend, "generating lock owner id", err)
	}

	for {
		// the lease expires one timeout window after acquisition, so a
		// holder that died is observed as stale by the next acquirer
		payload := encodeSentinel(ownerID, time.Now().Add(timeout))
		ok, err := m.adapter.WriteIfAbsent(ctx, lockKey, payload)
		if err != nil {
			return nil, err
		}
		if ok {
			return &adapterGuard{mgr: m, lockKey: lockKey, ownerID: ownerID}, nil
		}

		if observed, stale, err := m.readSentinel(ctx, lockKey); err == nil && stale {
			if m.adapter.SupportsFeature(backend.FeatureCompareAndSwap) {
				// swap the stale sentinel for our own in one atomic
				// step, so no second acquirer can break it again in
				// between and delete a live lock
				payload := encodeSentinel(ownerID, time.Now().Add(timeout))
				swapped, err := m.adapter.CompareAndSwap(ctx, lockKey, observed, payload)
				if err != nil {
					return nil, err
				}
				if swapped {
					return &adapterGuard{mgr: m, lockKey: lockKey, ownerID: ownerID}, nil
				}
				// someone else replaced it first, fall through and wait
			} else {
				// without compare-and-swap, re-read right before the
				// removal: if the sentinel changed since we observed it
				// stale, a contender already broke and re-acquired it.
				// A window between this check and the Remove remains;
				// it cannot be closed with write-if-absent alone.
				if current, rerr := m.adapter.Read(ctx, lockKey); rerr == nil && bytes.Equal(current, observed) {
					_ = m.adapter.Remove(ctx, lockKey)
				}
				continue
			}
		}

		if time.Now().After(deadline) {
			return nil, backend.NewErrorf(backend.CodeLockTimeout, "lock on %q not acquired within %s", key, timeout)
		}
		select {
		case <-ctx.Done():
			return nil, backend.WrapError(backend.CodeLockTimeout, "lock on "+key, ctx.Err())
		case <-time.After(m.retryInterval):
		}
	}
}

// readSentinel loads the sentinel under lockKey and reports whether its
// lease deadline is in the past. Undecodable sentinels count as stale.
// The raw payload is returned so the caller can break the lock
// conditioned on exactly this observation.
func (m *adapterLockManager) readSentinel(ctx context.Context, lockKey string) ([]byte, bool, error) {
	value, err := m.adapter.Read(ctx, lockKey)
	if err != nil {
		if backend.IsNotFound(err) {
			// released between attempts, not stale: just retry
			return nil, false, nil
		}
		return nil, false, err
	}
	_, lease, err := decodeSentinel(value)
	if err != nil {
		return value, true, nil
	}
	return value, time.Now().After(lease), nil
}

// adapterGuard releases the sentinel after verifying ownership, so a
// guard whose lease was broken never deletes someone else's lock.
type adapterGuard struct {
	mgr      *adapterLockManager
	lockKey  string
	ownerID  []byte
	released bool
	mu       sync.Mutex
}

func (g *adapterGuard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return nil
	}
	g.released = true

	value, err := g.mgr.adapter.Read(context.Background(), g.lockKey)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil
		}
		return err
	}
	owner, _, err := decodeSentinel(value)
	if err != nil || !bytes.Equal(owner, g.ownerID) {
		// lock was broken and re-acquired by someone else
		return nil
	}
	err = g.mgr.adapter.Remove(context.Background(), g.lockKey)
	if err != nil && !backend.IsNotFound(err) {
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Sentinel encoding
// --------------------------------------------------------------------------

func encodeSentinel(ownerID []byte, lease time.Time) []byte {
	payload := make([]byte, sentinelLen)
	copy(payload, ownerID)
	binary.BigEndian.PutUint64(payload[16:], uint64(lease.UnixNano()))
	return payload
}

func decodeSentinel(payload []byte) (ownerID []byte, lease time.Time, err error) {
	if len(payload) != sentinelLen {
		return nil, time.Time{}, backend.NewErrorf(backend.CodeBackend, "malformed lock sentinel (%d bytes)", len(payload))
	}
	ownerID = payload[:16]
	lease = time.Unix(0, int64(binary.BigEndian.Uint64(payload[16:])))
	return ownerID, lease, nil
}

// generateOwnerID creates a new unique owner ID for a lock holder.
func generateOwnerID() ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return id[:], nil
}
