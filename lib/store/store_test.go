package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/omnikv/omnistore/lib/backend"
	"github.com/omnikv/omnistore/lib/backend/engines/memory"
	"github.com/omnikv/omnistore/lib/codec"

	_ "github.com/omnikv/omnistore/lib/backend/engines/fs"
)

// StoreFactory creates a fresh store on an empty backend
type StoreFactory func(t *testing.T) IStore

// runStoreTests runs the facade test suite against every backend that
// needs no external infrastructure.
func runStoreTests(t *testing.T, test func(t *testing.T, factory StoreFactory)) {
	backends := map[string]StoreFactory{
		"Memory": func(t *testing.T) IStore {
			s, err := New(DefaultConfig("memory://"))
			if err != nil {
				t.Fatalf("failed to create memory store: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
		"Filesystem": func(t *testing.T) IStore {
			s, err := New(DefaultConfig(t.TempDir()))
			if err != nil {
				t.Fatalf("failed to create filesystem store: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}

	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			test(t, factory)
		})
	}
}

func TestPutGet(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		tests := []struct {
			name  string
			value any
			want  any
		}{
			{name: "string", value: "hello", want: "hello"},
			{name: "bytes", value: []byte{0, 1, 254, 255}, want: []byte{0, 1, 254, 255}},
			{name: "number decodes as float64", value: 42, want: float64(42)},
			{name: "map", value: map[string]any{"a": "b", "n": float64(1)}, want: map[string]any{"a": "b", "n": float64(1)}},
			{name: "bool", value: true, want: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := s.Put(ctx, "key", tt.value); err != nil {
					t.Fatalf("Put failed: %v", err)
				}
				got, err := s.Get(ctx, "key")
				if err != nil {
					t.Fatalf("Get failed: %v", err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("Get = %#v, want %#v", got, tt.want)
				}
			})
		}

		// overwrite wins unconditionally
		if err := s.Put(ctx, "key", "first"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := s.Put(ctx, "key", "second"); err != nil {
			t.Fatalf("Put (overwrite) failed: %v", err)
		}
		got, err := s.Get(ctx, "key")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != "second" {
			t.Errorf("Expected overwritten value, got %v", got)
		}
	})
}

func TestGetInto(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		type user struct {
			Name  string `json:"name"`
			Admin bool   `json:"admin"`
		}

		if err := s.Put(ctx, "users/alice", user{Name: "alice", Admin: true}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		var got user
		found, err := s.GetInto(ctx, "users/alice", &got)
		if err != nil {
			t.Fatalf("GetInto failed: %v", err)
		}
		if !found {
			t.Fatalf("Expected key to be found")
		}
		if got.Name != "alice" || !got.Admin {
			t.Errorf("GetInto = %#v", got)
		}

		// absent key with the no-raise policy reports found=false
		found, err = s.GetInto(ctx, "users/nobody", &got, WithRaise(false))
		if err != nil {
			t.Fatalf("GetInto (absent) failed: %v", err)
		}
		if found {
			t.Errorf("Expected absent key to report found=false")
		}
	})
}

func TestMissingKeyPolicy(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		// the default policy raises
		_, err := s.Get(ctx, "absent")
		if !backend.IsNotFound(err) {
			t.Errorf("Expected not-found error, got %v", err)
		}

		// per-call override yields the nil sentinel
		got, err := s.Get(ctx, "absent", WithRaise(false))
		if err != nil {
			t.Fatalf("Get with no-raise failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil sentinel, got %v", got)
		}

		// delete follows the same policy
		if err := s.Delete(ctx, "absent"); !backend.IsNotFound(err) {
			t.Errorf("Expected not-found error from Delete, got %v", err)
		}
		if err := s.Delete(ctx, "absent", WithRaise(false)); err != nil {
			t.Errorf("Expected no-raise Delete to be a no-op, got %v", err)
		}
	})
}

func TestPop(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		if err := s.Put(ctx, "job", "payload"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := s.Pop(ctx, "job")
		if err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
		if got != "payload" {
			t.Errorf("Pop = %v, want payload", got)
		}

		// the entry is gone afterwards
		if found, _ := s.Exists(ctx, "job"); found {
			t.Errorf("Expected key to be gone after Pop")
		}

		// popping again follows the missing-key policy
		if _, err := s.Pop(ctx, "job"); !backend.IsNotFound(err) {
			t.Errorf("Expected not-found error, got %v", err)
		}
		got, err = s.Pop(ctx, "job", WithRaise(false))
		if err != nil || got != nil {
			t.Errorf("Expected nil sentinel from no-raise Pop, got %v, %v", got, err)
		}
	})
}

func TestConcurrentPopSingleWinner(t *testing.T) {
	s, err := New(DefaultConfig("memory://"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Put(ctx, "ticket", "prize"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	const numGoroutines = 16
	var winners atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := s.Pop(ctx, "ticket")
			if err == nil && value == "prize" {
				winners.Add(1)
				return
			}
			if !backend.IsNotFound(err) {
				t.Errorf("Expected not-found for losers, got %v", err)
			}
		}()
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("Expected exactly one winner, got %d", winners.Load())
	}
}

func TestTTLExpiry(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		if err := s.Put(ctx, "ephemeral", "value", WithTTL(30*time.Millisecond)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := s.Put(ctx, "durable", "value"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		// live before the deadline
		if found, _ := s.Exists(ctx, "ephemeral"); !found {
			t.Fatalf("Expected entry to be live before expiry")
		}

		time.Sleep(50 * time.Millisecond)

		// reads observe the expiry
		if _, err := s.Get(ctx, "ephemeral"); !backend.IsNotFound(err) {
			t.Errorf("Expected expired key to read as absent, got %v", err)
		}
		if found, _ := s.Exists(ctx, "ephemeral"); found {
			t.Errorf("Expected expired key to report absent")
		}

		// iteration skips expired entries
		var keys []string
		for key, err := range s.IterateKeys(ctx, "") {
			if err != nil {
				t.Fatalf("IterateKeys failed: %v", err)
			}
			keys = append(keys, key)
		}
		if len(keys) != 1 || keys[0] != "durable" {
			t.Errorf("Expected only the durable key, got %v", keys)
		}

		// a later write under the same key starts a fresh entry
		if err := s.Put(ctx, "ephemeral", "reborn"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get(ctx, "ephemeral")
		if err != nil || got != "reborn" {
			t.Errorf("Expected rewritten entry to be live, got %v, %v", got, err)
		}
	})
}

func TestInfoTimestamps(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		if err := s.Put(ctx, "key", "0123456789"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		first, err := s.Info(ctx, "key")
		if err != nil {
			t.Fatalf("Info failed: %v", err)
		}
		if first.Key != "key" {
			t.Errorf("Info.Key = %q", first.Key)
		}
		if first.Size != 10 {
			t.Errorf("Info.Size = %d, want 10 (payload only)", first.Size)
		}
		if first.Mode != codec.ModeText {
			t.Errorf("Info.Mode = %v, want text", first.Mode)
		}
		if !first.ExpiresAt.IsZero() {
			t.Errorf("Expected no expiry, got %v", first.ExpiresAt)
		}
		if first.CreatedAt.IsZero() || first.UpdatedAt.IsZero() {
			t.Fatalf("Expected timestamps to be set: %+v", first)
		}

		time.Sleep(10 * time.Millisecond)

		// overwrites preserve created_at and refresh updated_at
		if err := s.Put(ctx, "key", "changed"); err != nil {
			t.Fatalf("Put (overwrite) failed: %v", err)
		}
		second, err := s.Info(ctx, "key")
		if err != nil {
			t.Fatalf("Info failed: %v", err)
		}
		if !second.CreatedAt.Equal(first.CreatedAt) {
			t.Errorf("Expected created_at to be preserved: %v != %v", second.CreatedAt, first.CreatedAt)
		}
		if !second.UpdatedAt.After(first.UpdatedAt) {
			t.Errorf("Expected updated_at to advance: %v <= %v", second.UpdatedAt, first.UpdatedAt)
		}

		// absent keys follow the policy
		if _, err := s.Info(ctx, "absent"); !backend.IsNotFound(err) {
			t.Errorf("Expected not-found error, got %v", err)
		}
	})
}

func TestIterateKeys(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		for _, key := range []string{"a/1", "a/2", "ab", "b/1"} {
			if err := s.Put(ctx, key, "value"); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
		}

		collect := func(prefix string) []string {
			var got []string
			for key, err := range s.IterateKeys(ctx, prefix) {
				if err != nil {
					t.Fatalf("IterateKeys(%q) failed: %v", prefix, err)
				}
				got = append(got, key)
			}
			sort.Strings(got)
			return got
		}

		if got := collect(""); !reflect.DeepEqual(got, []string{"a/1", "a/2", "ab", "b/1"}) {
			t.Errorf("IterateKeys(\"\") = %v", got)
		}
		if got := collect("a"); !reflect.DeepEqual(got, []string{"a/1", "a/2"}) {
			t.Errorf("IterateKeys(\"a\") = %v", got)
		}
	})
}

func TestIterateKeysHidesLockSentinels(t *testing.T) {
	s, err := New(DefaultConfig("memory://"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Put(ctx, "data", "value"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// holding a lock stores a sentinel entry on the backend
	guard, err := s.Lock(ctx, "data", time.Second)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer guard.Release()

	for key, err := range s.IterateKeys(ctx, "") {
		if err != nil {
			t.Fatalf("IterateKeys failed: %v", err)
		}
		if key != "data" {
			t.Errorf("Unexpected key in iteration: %q", key)
		}
	}
}

func TestIterateValues(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		if err := s.Put(ctx, "n/1", 1); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := s.Put(ctx, "n/2", 2); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		sum := 0.0
		for value, err := range s.IterateValues(ctx, "n") {
			if err != nil {
				t.Fatalf("IterateValues failed: %v", err)
			}
			sum += value.(float64)
		}
		if sum != 3 {
			t.Errorf("Expected values to sum to 3, got %v", sum)
		}
	})
}

func TestStream(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		content := "first line\nsecond line\nthird line"
		if err := s.Put(ctx, "lines", []byte(content)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		var lines []string
		for line, err := range s.Stream(ctx, "lines") {
			if err != nil {
				t.Fatalf("Stream failed: %v", err)
			}
			lines = append(lines, string(line))
		}
		want := []string{"first line", "second line", "third line"}
		if !reflect.DeepEqual(lines, want) {
			t.Errorf("Stream = %v, want %v", lines, want)
		}

		// early termination is clean
		count := 0
		for _, err := range s.Stream(ctx, "lines") {
			if err != nil {
				t.Fatalf("Stream failed: %v", err)
			}
			count++
			if count == 1 {
				break
			}
		}

		// absent key honors the policy
		for _, err := range s.Stream(ctx, "absent") {
			if !backend.IsNotFound(err) {
				t.Errorf("Expected not-found error, got %v", err)
			}
		}
		for range s.Stream(ctx, "absent", WithRaise(false)) {
			t.Errorf("Expected empty stream for absent key under no-raise")
		}
	})
}

func TestOpenAndCreate(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		// a streamed write commits on Close
		w, err := s.Create(ctx, "blob")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := w.Write([]byte("streamed ")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := w.Write([]byte("content")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		// nothing is visible before Close
		if found, _ := s.Exists(ctx, "blob"); found {
			t.Errorf("Expected no entry before Close")
		}

		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		r, err := s.Open(ctx, "blob")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		r.Close()
		if !bytes.Equal(got, []byte("streamed content")) {
			t.Errorf("Open = %q", got)
		}

		// handle-written entries read as raw through Get
		value, err := s.Get(ctx, "blob")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(value.([]byte), []byte("streamed content")) {
			t.Errorf("Get = %v", value)
		}
	})
}

func TestChecksum(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		if err := s.Put(ctx, "doc", "hello world"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		// digest covers the payload only, not the envelope
		got, err := s.Checksum(ctx, "doc", "sha1")
		if err != nil {
			t.Fatalf("Checksum failed: %v", err)
		}
		want := "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
		if got != want {
			t.Errorf("Checksum(sha1) = %s, want %s", got, want)
		}

		// empty algorithm defaults to sha256
		def, err := s.Checksum(ctx, "doc", "")
		if err != nil {
			t.Fatalf("Checksum failed: %v", err)
		}
		wantDefault := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
		if def != wantDefault {
			t.Errorf("Checksum(\"\") = %s, want %s", def, wantDefault)
		}

		if got, err := s.Checksum(ctx, "doc", "md5"); err != nil || got != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
			t.Errorf("Checksum(md5) = %s, %v", got, err)
		}

		if _, err := s.Checksum(ctx, "doc", "crc32"); err == nil {
			t.Errorf("Expected error for unsupported algorithm")
		}
		if _, err := s.Checksum(ctx, "absent", "sha1"); !backend.IsNotFound(err) {
			t.Errorf("Expected not-found error, got %v", err)
		}
	})
}

func TestTouch(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		ts, err := s.Touch(ctx, "marker")
		if err != nil {
			t.Fatalf("Touch failed: %v", err)
		}
		if time.Since(ts) > time.Minute {
			t.Errorf("Touch returned an implausible timestamp: %v", ts)
		}

		got, err := s.Get(ctx, "marker")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, got.(string))
		if err != nil {
			t.Fatalf("Touch payload is not a timestamp: %v", err)
		}
		if !parsed.Equal(ts) {
			t.Errorf("Stored timestamp %v differs from returned %v", parsed, ts)
		}
	})
}

func TestKeyValidation(t *testing.T) {
	s, err := New(DefaultConfig("memory://"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	for _, key := range []string{"", "/abs", "a/../b", "file://x"} {
		if err := s.Put(ctx, key, "value"); err == nil {
			t.Errorf("Expected Put(%q) to fail", key)
		}
		if _, err := s.Get(ctx, key); err == nil {
			t.Errorf("Expected Get(%q) to fail", key)
		}
	}

	// keys are normalized before hitting the backend
	if err := s.Put(ctx, "a//b/", "value"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(ctx, "a/b")
	if err != nil || got != "value" {
		t.Errorf("Expected normalized key to resolve, got %v, %v", got, err)
	}
}

func TestExplicitModes(t *testing.T) {
	runStoreTests(t, func(t *testing.T, factory StoreFactory) {
		s := factory(t)
		ctx := context.Background()

		// force json for a string value
		if err := s.Put(ctx, "k", "text", WithMode(codec.ModeJSON)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		info, err := s.Info(ctx, "k")
		if err != nil {
			t.Fatalf("Info failed: %v", err)
		}
		if info.Mode != codec.ModeJSON {
			t.Errorf("Expected persisted json mode, got %v", info.Mode)
		}
		got, err := s.Get(ctx, "k")
		if err != nil || got != "text" {
			t.Errorf("Get = %v, %v", got, err)
		}

		// read a text entry as raw bytes
		if err := s.Put(ctx, "t", "payload"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		raw, err := s.Get(ctx, "t", WithMode(codec.ModeRaw))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(raw.([]byte), []byte("payload")) {
			t.Errorf("Get (raw override) = %v", raw)
		}
	})
}

func TestStoreDefaults(t *testing.T) {
	cfg := DefaultConfig("memory://")
	cfg.RaiseOnNonexist = false
	cfg.TTL = 30 * time.Millisecond
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	// store-level no-raise policy
	got, err := s.Get(ctx, "absent")
	if err != nil || got != nil {
		t.Errorf("Expected nil sentinel under store policy, got %v, %v", got, err)
	}

	// store-level default ttl applies to writes
	if err := s.Put(ctx, "key", "value"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	info, err := s.Info(ctx, "key", WithRaise(true))
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.ExpiresAt.IsZero() {
		t.Errorf("Expected default ttl to set an expiry")
	}

	// per-call ttl of zero disables expiry
	if err := s.Put(ctx, "forever", "value", WithTTL(0)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	info, err = s.Info(ctx, "forever", WithRaise(true))
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if !info.ExpiresAt.IsZero() {
		t.Errorf("Expected WithTTL(0) to disable expiry, got %v", info.ExpiresAt)
	}
}

func TestConcurrentPuts(t *testing.T) {
	s, err := New(DefaultConfig("memory://"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	const numGoroutines = 8
	var wg sync.WaitGroup
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				key := fmt.Sprintf("worker/%d/%d", id, i)
				if err := s.Put(ctx, key, id); err != nil {
					t.Errorf("Put failed: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	count := 0
	for _, err := range s.IterateKeys(ctx, "worker") {
		if err != nil {
			t.Fatalf("IterateKeys failed: %v", err)
		}
		count++
	}
	if count != numGoroutines*25 {
		t.Errorf("Expected %d keys, got %d", numGoroutines*25, count)
	}
}

func TestLockTimeoutSurfaces(t *testing.T) {
	cfg := DefaultConfig("memory://")
	cfg.LockTimeout = 50 * time.Millisecond
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	guard, err := s.Lock(ctx, "key", 10*time.Second)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer guard.Release()

	// guarded operations on the locked key time out
	if err := s.Put(ctx, "key", "value"); !errors.Is(err, backend.ErrLockTimeout) {
		t.Errorf("Expected lock timeout error, got %v", err)
	}

	// unguarded reads are unaffected
	if _, err := s.Get(ctx, "key", WithRaise(false)); err != nil {
		t.Errorf("Expected read to pass while locked, got %v", err)
	}
}

// spyAdapter wraps an adapter so a test can interleave operations with
// a read: onRead fires after every successful Read of a key.
type spyAdapter struct {
	backend.Adapter
	onRead func(key string)
}

func (a *spyAdapter) Read(ctx context.Context, key string) ([]byte, error) {
	value, err := a.Adapter.Read(ctx, key)
	if err == nil && a.onRead != nil {
		a.onRead(key)
	}
	return value, err
}

func TestLazyEvictionSparesConcurrentRewrite(t *testing.T) {
	ctx := context.Background()
	spy := &spyAdapter{Adapter: memory.New("memory://")}
	s := NewWithAdapter(DefaultConfig("memory://"), spy)
	t.Cleanup(func() { s.Close() })

	if err := s.Put(ctx, "job", "stale", WithTTL(20*time.Millisecond)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	// the moment the read observes the expired record, a guarded Put
	// replaces it with a live one; the lazy eviction must re-check
	// under the guard and leave the fresh entry alone
	var once sync.Once
	spy.onRead = func(key string) {
		if key != "job" {
			return
		}
		once.Do(func() {
			if err := s.Put(ctx, "job", "fresh"); err != nil {
				t.Errorf("Put failed: %v", err)
			}
		})
	}

	if v, err := s.Get(ctx, "job", WithRaise(false)); err != nil || v != nil {
		t.Fatalf("Get = %v, %v, want absent sentinel for the expired read", v, err)
	}

	spy.onRead = nil
	v, err := s.Get(ctx, "job")
	if err != nil {
		t.Fatalf("fresh entry was erased by lazy eviction: %v", err)
	}
	if v != "fresh" {
		t.Errorf("Get = %v, want fresh", v)
	}
}
