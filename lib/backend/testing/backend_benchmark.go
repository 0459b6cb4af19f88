package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/omnikv/omnistore/lib/backend"
)

// RunAdapterBenchmarks runs a standard benchmark suite for an Adapter
// implementation.
func RunAdapterBenchmarks(b *testing.B, name string, factory AdapterFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Write", func(b *testing.B) {
			benchmarkWrite(b, factory())
		})

		b.Run("WriteLargeValue", func(b *testing.B) {
			benchmarkWriteLarge(b, factory())
		})

		b.Run("Read", func(b *testing.B) {
			benchmarkRead(b, factory())
		})

		b.Run("Exists", func(b *testing.B) {
			benchmarkExists(b, factory())
		})

		b.Run("Remove", func(b *testing.B) {
			benchmarkRemove(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixed(b, factory())
		})
	})
}

const benchKeySpread = 1000

func benchKey(i int) string {
	return fmt.Sprintf("bench/key-%d", i%benchKeySpread)
}

func benchmarkWrite(b *testing.B, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()
	value := []byte("benchmark-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := adapter.Write(ctx, benchKey(i), value); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}

func benchmarkWriteLarge(b *testing.B, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()
	value := make([]byte, 100*1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := adapter.Write(ctx, benchKey(i), value); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}

func benchmarkRead(b *testing.B, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()
	value := []byte("benchmark-value")
	for i := 0; i < benchKeySpread; i++ {
		if err := adapter.Write(ctx, benchKey(i), value); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := adapter.Read(ctx, benchKey(i)); err != nil {
			b.Fatalf("Read failed: %v", err)
		}
	}
}

func benchmarkExists(b *testing.B, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()
	value := []byte("benchmark-value")
	for i := 0; i < benchKeySpread; i++ {
		if err := adapter.Write(ctx, benchKey(i), value); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := adapter.Exists(ctx, benchKey(i)); err != nil {
			b.Fatalf("Exists failed: %v", err)
		}
	}
}

func benchmarkRemove(b *testing.B, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()
	value := []byte("benchmark-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		key := fmt.Sprintf("bench/remove-%d", i)
		if err := adapter.Write(ctx, key, value); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
		b.StartTimer()
		if err := adapter.Remove(ctx, key); err != nil {
			b.Fatalf("Remove failed: %v", err)
		}
	}
}

func benchmarkMixed(b *testing.B, adapter backend.Adapter) {
	defer adapter.Close()
	ctx := context.Background()
	value := []byte("benchmark-value")
	for i := 0; i < benchKeySpread; i++ {
		if err := adapter.Write(ctx, benchKey(i), value); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		switch i % 3 {
		case 0:
			_ = adapter.Write(ctx, benchKey(i), value)
		case 1:
			_, _ = adapter.Read(ctx, benchKey(i))
		case 2:
			_, _ = adapter.Exists(ctx, benchKey(i))
		}
	}
}
