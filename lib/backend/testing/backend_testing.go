package testing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/omnikv/omnistore/lib/backend"
)

// AdapterFactory is a function that creates a new instance of an
// Adapter implementation on a fresh, empty backend
type AdapterFactory func() backend.Adapter

// RunAdapterTests runs a comprehensive test suite for an Adapter
// implementation.
func RunAdapterTests(t *testing.T, name string, factory AdapterFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Read&Write", func(t *testing.T) {
			testReadWrite(t, factory())
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory())
		})

		t.Run("Exists", func(t *testing.T) {
			testExists(t, factory())
		})

		t.Run("List", func(t *testing.T) {
			testList(t, factory())
		})

		t.Run("Stat", func(t *testing.T) {
			testStat(t, factory())
		})

		t.Run("Streams", func(t *testing.T) {
			testStreams(t, factory())
		})

		t.Run("WriteIfAbsent", func(t *testing.T) {
			testWriteIfAbsent(t, factory())
		})

		t.Run("CompareAndSwap", func(t *testing.T) {
			testCompareAndSwap(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("ConcurrentUsage", func(t *testing.T) {
			testConcurrentUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the adapter supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, adapter backend.Adapter, feature backend.Feature) {
	if !adapter.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testReadWrite(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	if err := adapter.Write(ctx, testKey, testValue1); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	result, err := adapter.Read(ctx, testKey)
	if err != nil {
		t.Fatalf("Read failed after Write: %v", err)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	// overwrite
	if err := adapter.Write(ctx, testKey, testValue2); err != nil {
		t.Fatalf("Write (overwrite) failed: %v", err)
	}
	result, err = adapter.Read(ctx, testKey)
	if err != nil {
		t.Fatalf("Read failed after overwrite: %v", err)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	// absent key
	_, err = adapter.Read(ctx, "nonexistent-key")
	if !backend.IsNotFound(err) {
		t.Errorf("Expected not-found error for nonexistent key, got %v", err)
	}

	// mutation of the returned slice must not leak into the store
	retrievedValue, _ := adapter.Read(ctx, testKey)
	if len(retrievedValue) > 0 {
		retrievedValue[0] = 'X'
		originalValue, _ := adapter.Read(ctx, testKey)
		if bytes.Equal(retrievedValue, originalValue) {
			t.Errorf("Read should return a copy, not a reference to the stored value")
		}
	}

	// binary payloads survive unchanged
	binaryValue := []byte{0, 1, 2, 3, 254, 255}
	if err := adapter.Write(ctx, "binary", binaryValue); err != nil {
		t.Fatalf("Write (binary) failed: %v", err)
	}
	result, err = adapter.Read(ctx, "binary")
	if err != nil {
		t.Fatalf("Read (binary) failed: %v", err)
	}
	if !bytes.Equal(result, binaryValue) {
		t.Errorf("Expected binary value %v, got %v", binaryValue, result)
	}
}

func testRemove(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	testKey := "remove-key"

	if err := adapter.Write(ctx, testKey, []byte("value")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := adapter.Remove(ctx, testKey); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	_, err := adapter.Read(ctx, testKey)
	if !backend.IsNotFound(err) {
		t.Errorf("Expected key to be gone after Remove, got %v", err)
	}

	// removing an absent key reports not-found
	err = adapter.Remove(ctx, testKey)
	if !backend.IsNotFound(err) {
		t.Errorf("Expected not-found error removing absent key, got %v", err)
	}
}

func testExists(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	testKey := "exists-key"

	found, err := adapter.Exists(ctx, testKey)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if found {
		t.Errorf("Expected absent key to report false")
	}

	if err := adapter.Write(ctx, testKey, []byte("value")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	found, err = adapter.Exists(ctx, testKey)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !found {
		t.Errorf("Expected present key to report true")
	}
}

func testList(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	// no key is both a leaf and a segment prefix of another so the
	// suite also passes on path-based backends
	keys := []string{"a/1", "a/2", "ab", "b/1"}
	for _, key := range keys {
		if err := adapter.Write(ctx, key, []byte("value")); err != nil {
			t.Fatalf("Write failed for %s: %v", key, err)
		}
	}

	collect := func(prefix string) []string {
		var got []string
		for key, err := range adapter.List(ctx, prefix) {
			if err != nil {
				t.Fatalf("List(%q) failed: %v", prefix, err)
			}
			got = append(got, key)
		}
		sort.Strings(got)
		return got
	}

	equal := func(got, want []string) bool {
		if len(got) != len(want) {
			return false
		}
		for i := range got {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}

	// empty prefix lists everything
	if got := collect(""); !equal(got, keys) {
		t.Errorf("List(\"\") = %v, want %v", got, keys)
	}

	// prefixes match whole segments: "a" must not match "ab"
	if got := collect("a"); !equal(got, []string{"a/1", "a/2"}) {
		t.Errorf("List(\"a\") = %v, want [a/1 a/2]", got)
	}

	if got := collect("a/"); !equal(got, []string{"a/1", "a/2"}) {
		t.Errorf("List(\"a/\") = %v, want [a/1 a/2]", got)
	}

	// unmatched prefix yields nothing
	if got := collect("zz"); len(got) != 0 {
		t.Errorf("List(\"zz\") = %v, want empty", got)
	}

	// early termination must not error
	count := 0
	for _, err := range adapter.List(ctx, "") {
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		count++
		if count == 2 {
			break
		}
	}
}

func testStat(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	testKey := "stat-key"
	testValue := []byte("0123456789")

	_, err := adapter.Stat(ctx, testKey)
	if !backend.IsNotFound(err) {
		t.Errorf("Expected not-found error for absent key, got %v", err)
	}

	if err := adapter.Write(ctx, testKey, testValue); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := adapter.Stat(ctx, testKey)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Key != testKey {
		t.Errorf("Expected key %s, got %s", testKey, info.Key)
	}
	if info.Size != int64(len(testValue)) {
		t.Errorf("Expected size %d, got %d", len(testValue), info.Size)
	}
}

func testStreams(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	testKey := "stream-key"
	testValue := []byte("streamed content\nsecond line\n")

	// streamed writes become visible on Close
	w, err := adapter.OpenWrite(ctx, testKey)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if _, err := w.Write(testValue[:10]); err != nil {
		t.Fatalf("Write to stream failed: %v", err)
	}
	if _, err := w.Write(testValue[10:]); err != nil {
		t.Fatalf("Write to stream failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := adapter.OpenRead(ctx, testKey)
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close reader failed: %v", err)
	}
	if !bytes.Equal(content, testValue) {
		t.Errorf("Expected streamed content %q, got %q", testValue, content)
	}

	// reading an absent key fails
	_, err = adapter.OpenRead(ctx, "nonexistent-stream")
	if !backend.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func testWriteIfAbsent(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	requireFeature(t, adapter, backend.FeatureWriteIfAbsent)

	testKey := "wia-key"

	written, err := adapter.WriteIfAbsent(ctx, testKey, []byte("first"))
	if err != nil {
		t.Fatalf("WriteIfAbsent failed: %v", err)
	}
	if !written {
		t.Errorf("Expected first WriteIfAbsent to win")
	}

	written, err = adapter.WriteIfAbsent(ctx, testKey, []byte("second"))
	if err != nil {
		t.Fatalf("WriteIfAbsent failed: %v", err)
	}
	if written {
		t.Errorf("Expected second WriteIfAbsent to lose")
	}

	result, err := adapter.Read(ctx, testKey)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(result, []byte("first")) {
		t.Errorf("Expected value of winning write, got %s", result)
	}
}

func testCompareAndSwap(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	requireFeature(t, adapter, backend.FeatureCompareAndSwap)

	testKey := "cas-key"

	if err := adapter.Write(ctx, testKey, []byte("v1")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	swapped, err := adapter.CompareAndSwap(ctx, testKey, []byte("v1"), []byte("v2"))
	if err != nil {
		t.Fatalf("CompareAndSwap failed: %v", err)
	}
	if !swapped {
		t.Errorf("Expected swap with matching expected value")
	}

	swapped, err = adapter.CompareAndSwap(ctx, testKey, []byte("v1"), []byte("v3"))
	if err != nil {
		t.Fatalf("CompareAndSwap failed: %v", err)
	}
	if swapped {
		t.Errorf("Expected no swap with stale expected value")
	}

	result, err := adapter.Read(ctx, testKey)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(result, []byte("v2")) {
		t.Errorf("Expected value v2, got %s", result)
	}
}

func testEdgeCases(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	// empty value
	if err := adapter.Write(ctx, "empty", []byte{}); err != nil {
		t.Fatalf("Write (empty value) failed: %v", err)
	}
	result, err := adapter.Read(ctx, "empty")
	if err != nil {
		t.Fatalf("Read (empty value) failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Expected empty value, got %v", result)
	}

	// nested keys
	nestedKey := "deeply/nested/path/to/key"
	if err := adapter.Write(ctx, nestedKey, []byte("nested")); err != nil {
		t.Fatalf("Write (nested key) failed: %v", err)
	}
	result, err = adapter.Read(ctx, nestedKey)
	if err != nil {
		t.Fatalf("Read (nested key) failed: %v", err)
	}
	if !bytes.Equal(result, []byte("nested")) {
		t.Errorf("Expected nested value, got %s", result)
	}

	// unicode keys
	unicodeKey := "你好世界"
	if err := adapter.Write(ctx, unicodeKey, []byte("unicode")); err != nil {
		t.Fatalf("Write (unicode key) failed: %v", err)
	}
	result, err = adapter.Read(ctx, unicodeKey)
	if err != nil {
		t.Fatalf("Read (unicode key) failed: %v", err)
	}
	if !bytes.Equal(result, []byte("unicode")) {
		t.Errorf("Expected unicode value, got %s", result)
	}

	// large value
	largeValue := make([]byte, 1<<20)
	for i := range largeValue {
		largeValue[i] = byte(i % 251)
	}
	if err := adapter.Write(ctx, "large", largeValue); err != nil {
		t.Fatalf("Write (large value) failed: %v", err)
	}
	result, err = adapter.Read(ctx, "large")
	if err != nil {
		t.Fatalf("Read (large value) failed: %v", err)
	}
	if !bytes.Equal(result, largeValue) {
		t.Errorf("Large value corrupted on round trip")
	}
}

func testConcurrentUsage(t *testing.T, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()

	const (
		numGoroutines = 8
		numKeys       = 50
	)

	var wg sync.WaitGroup
	var errCount atomic.Int64

	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < numKeys; i++ {
				key := fmt.Sprintf("concurrent/%d/%d", id, i)
				if err := adapter.Write(ctx, key, []byte(key)); err != nil {
					errCount.Add(1)
					continue
				}
				result, err := adapter.Read(ctx, key)
				if err != nil || !bytes.Equal(result, []byte(key)) {
					errCount.Add(1)
				}
			}
		}(g)
	}
	wg.Wait()

	if errCount.Load() != 0 {
		t.Errorf("Expected no errors during concurrent usage, got %d", errCount.Load())
	}

	count := 0
	for _, err := range adapter.List(ctx, "concurrent") {
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		count++
	}
	if count != numGoroutines*numKeys {
		t.Errorf("Expected %d keys, got %d", numGoroutines*numKeys, count)
	}
}
