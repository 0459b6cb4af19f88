package lockmgr

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/omnikv/omnistore/lib/backend"
	"github.com/omnikv/omnistore/lib/backend/engines/memory"
)

func managers(t *testing.T) map[string]func() ILockManager {
	t.Helper()
	return map[string]func() ILockManager{
		"Local": func() ILockManager {
			return NewLocalLockManager()
		},
		"Adapter": func() ILockManager {
			return NewAdapterLockManager(memory.New("memory://"), 5*time.Millisecond)
		},
	}
}

func TestAcquireRelease(t *testing.T) {
	for name, factory := range managers(t) {
		t.Run(name, func(t *testing.T) {
			mgr := factory()
			ctx := context.Background()

			guard, err := mgr.AcquireLock(ctx, "key", time.Second)
			if err != nil {
				t.Fatalf("AcquireLock failed: %v", err)
			}
			if err := guard.Release(); err != nil {
				t.Fatalf("Release failed: %v", err)
			}

			// release is idempotent
			if err := guard.Release(); err != nil {
				t.Fatalf("second Release failed: %v", err)
			}

			// lock can be re-acquired after release
			guard, err = mgr.AcquireLock(ctx, "key", time.Second)
			if err != nil {
				t.Fatalf("AcquireLock after Release failed: %v", err)
			}
			guard.Release()
		})
	}
}

func TestAcquireTimeout(t *testing.T) {
	for name, factory := range managers(t) {
		t.Run(name, func(t *testing.T) {
			mgr := factory()
			ctx := context.Background()

			guard, err := mgr.AcquireLock(ctx, "key", 10*time.Second)
			if err != nil {
				t.Fatalf("AcquireLock failed: %v", err)
			}
			defer guard.Release()

			_, err = mgr.AcquireLock(ctx, "key", 50*time.Millisecond)
			if !errors.Is(err, backend.ErrLockTimeout) {
				t.Errorf("Expected lock timeout error, got %v", err)
			}

			// a different key is unaffected
			other, err := mgr.AcquireLock(ctx, "other-key", 50*time.Millisecond)
			if err != nil {
				t.Fatalf("AcquireLock on other key failed: %v", err)
			}
			other.Release()
		})
	}
}

func TestContextCancellation(t *testing.T) {
	for name, factory := range managers(t) {
		t.Run(name, func(t *testing.T) {
			mgr := factory()

			guard, err := mgr.AcquireLock(context.Background(), "key", 10*time.Second)
			if err != nil {
				t.Fatalf("AcquireLock failed: %v", err)
			}
			defer guard.Release()

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			_, err = mgr.AcquireLock(ctx, "key", 10*time.Second)
			if !errors.Is(err, backend.ErrLockTimeout) {
				t.Errorf("Expected lock timeout error on cancellation, got %v", err)
			}
		})
	}
}

func TestMutualExclusion(t *testing.T) {
	for name, factory := range managers(t) {
		t.Run(name, func(t *testing.T) {
			mgr := factory()
			ctx := context.Background()

			const numGoroutines = 16
			counter := 0
			var wg sync.WaitGroup

			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := WithLock(ctx, mgr, "counter", 10*time.Second, func() error {
						// non-atomic increment, only safe under the lock
						v := counter
						time.Sleep(time.Millisecond)
						counter = v + 1
						return nil
					})
					if err != nil {
						t.Errorf("WithLock failed: %v", err)
					}
				}()
			}
			wg.Wait()

			if counter != numGoroutines {
				t.Errorf("Expected counter %d, got %d", numGoroutines, counter)
			}
		})
	}
}

func TestWithLockReleasesOnError(t *testing.T) {
	mgr := NewLocalLockManager()
	ctx := context.Background()

	wantErr := errors.New("fn failed")
	err := WithLock(ctx, mgr, "key", time.Second, func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected fn error to propagate, got %v", err)
	}

	// the guard must have been released despite the error
	guard, err := mgr.AcquireLock(ctx, "key", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Lock still held after failed WithLock: %v", err)
	}
	guard.Release()
}

func TestStaleLeaseBroken(t *testing.T) {
	adapter := memory.New("memory://")
	mgr := NewAdapterLockManager(adapter, 5*time.Millisecond)
	ctx := context.Background()

	// acquire with a short lease and never release, simulating a
	// crashed holder
	_, err := mgr.AcquireLock(ctx, "key", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	// the next acquirer must break the stale sentinel
	guard, err := mgr.AcquireLock(ctx, "key", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected stale lock to be broken, got %v", err)
	}
	guard.Release()
}

func TestBrokenGuardDoesNotReleaseNewOwner(t *testing.T) {
	adapter := memory.New("memory://")
	mgr := NewAdapterLockManager(adapter, 5*time.Millisecond)
	ctx := context.Background()

	stale, err := mgr.AcquireLock(ctx, "key", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	current, err := mgr.AcquireLock(ctx, "key", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	// releasing the broken guard must not free the new owner's lock
	if err := stale.Release(); err != nil {
		t.Fatalf("Release of broken guard failed: %v", err)
	}

	if _, err := mgr.AcquireLock(ctx, "key", 50*time.Millisecond); !errors.Is(err, backend.ErrLockTimeout) {
		t.Errorf("Expected lock to still be held by new owner, got %v", err)
	}

	current.Release()
}

func TestManagerSelection(t *testing.T) {
	// memory supports write-if-absent, so the sentinel manager is used
	mgr := NewLockManager(memory.New("memory://"), 0)
	if _, ok := mgr.(*adapterLockManager); !ok {
		t.Errorf("Expected adapter-backed manager, got %T", mgr)
	}
}

func TestSentinelRoundTrip(t *testing.T) {
	ownerID, err := generateOwnerID()
	if err != nil {
		t.Fatalf("generateOwnerID failed: %v", err)
	}
	lease := time.Now().Add(time.Minute)

	payload := encodeSentinel(ownerID, lease)
	gotOwner, gotLease, err := decodeSentinel(payload)
	if err != nil {
		t.Fatalf("decodeSentinel failed: %v", err)
	}
	if string(gotOwner) != string(ownerID) {
		t.Errorf("Owner ID corrupted on round trip")
	}
	if gotLease.UnixNano() != lease.UnixNano() {
		t.Errorf("Lease corrupted on round trip")
	}

	if _, _, err := decodeSentinel([]byte("short")); err == nil {
		t.Errorf("Expected error for malformed sentinel")
	}
}

// gateAdapter wraps an adapter so tests can orchestrate interleavings:
// it can hide the compare-and-swap capability, observe reads and count
// removals per key.
type gateAdapter struct {
	backend.Adapter
	hideCAS bool
	onRead  func(key string)

	mu      sync.Mutex
	removes map[string]int
}

func (g *gateAdapter) SupportsFeature(f backend.Feature) bool {
	if g.hideCAS && f == backend.FeatureCompareAndSwap {
		return false
	}
	return g.Adapter.SupportsFeature(f)
}

func (g *gateAdapter) Read(ctx context.Context, key string) ([]byte, error) {
	value, err := g.Adapter.Read(ctx, key)
	if err == nil && g.onRead != nil {
		g.onRead(key)
	}
	return value, err
}

func (g *gateAdapter) Remove(ctx context.Context, key string) error {
	g.mu.Lock()
	if g.removes == nil {
		g.removes = map[string]int{}
	}
	g.removes[key]++
	g.mu.Unlock()
	return g.Adapter.Remove(ctx, key)
}

func (g *gateAdapter) removeCount(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removes[key]
}

func TestStaleBreakSwapsAtomically(t *testing.T) {
	gate := &gateAdapter{Adapter: memory.New("memory://")}
	mgr := NewAdapterLockManager(gate, 5*time.Millisecond)
	ctx := context.Background()

	staleOwner, err := generateOwnerID()
	if err != nil {
		t.Fatalf("generateOwnerID failed: %v", err)
	}
	lockKey := "key" + LockSuffix
	if err := gate.Write(ctx, lockKey, encodeSentinel(staleOwner, time.Now().Add(-time.Minute))); err != nil {
		t.Fatalf("planting stale sentinel failed: %v", err)
	}

	guard, err := mgr.AcquireLock(ctx, "key", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected stale lock to be broken, got %v", err)
	}
	defer guard.Release()

	// on a compare-and-swap capable adapter the stale sentinel must be
	// replaced in one atomic step, never removed: after a removal a
	// second contender that also observed the stale sentinel can
	// delete the new holder's lock
	if n := gate.removeCount(lockKey); n != 0 {
		t.Errorf("Expected no Remove on the lock key, got %d", n)
	}

	value, err := gate.Adapter.Read(ctx, lockKey)
	if err != nil {
		t.Fatalf("reading sentinel failed: %v", err)
	}
	owner, _, err := decodeSentinel(value)
	if err != nil {
		t.Fatalf("decoding sentinel failed: %v", err)
	}
	if bytes.Equal(owner, staleOwner) {
		t.Errorf("sentinel still carries the stale owner")
	}
}

func TestStaleBreakSkipsChangedSentinel(t *testing.T) {
	gate := &gateAdapter{Adapter: memory.New("memory://"), hideCAS: true}
	ctx := context.Background()

	staleOwner, err := generateOwnerID()
	if err != nil {
		t.Fatalf("generateOwnerID failed: %v", err)
	}
	liveOwner, err := generateOwnerID()
	if err != nil {
		t.Fatalf("generateOwnerID failed: %v", err)
	}
	stale := encodeSentinel(staleOwner, time.Now().Add(-time.Minute))
	live := encodeSentinel(liveOwner, time.Now().Add(time.Hour))

	lockKey := "key" + LockSuffix
	if err := gate.Adapter.Write(ctx, lockKey, stale); err != nil {
		t.Fatalf("planting stale sentinel failed: %v", err)
	}

	// the moment the acquirer observes the stale sentinel, another
	// contender breaks it and re-acquires the lock
	var once sync.Once
	gate.onRead = func(key string) {
		if key != lockKey {
			return
		}
		once.Do(func() {
			_ = gate.Adapter.Write(ctx, lockKey, live)
		})
	}

	mgr := NewAdapterLockManager(gate, 5*time.Millisecond)
	if _, err := mgr.AcquireLock(ctx, "key", 60*time.Millisecond); !errors.Is(err, backend.ErrLockTimeout) {
		t.Fatalf("Expected ErrLockTimeout, got %v", err)
	}

	// the changed sentinel must not have been removed
	value, err := gate.Adapter.Read(ctx, lockKey)
	if err != nil {
		t.Fatalf("reading sentinel failed: %v", err)
	}
	if !bytes.Equal(value, live) {
		t.Errorf("live sentinel was deleted by the stale-break path")
	}
}
