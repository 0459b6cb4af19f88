package redis

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/omnikv/omnistore/lib/backend"
	backendtesting "github.com/omnikv/omnistore/lib/backend/testing"
)

// set OMNISTORE_TEST_REDIS to a reachable URI to run these tests, e.g.
// OMNISTORE_TEST_REDIS=redis://localhost:6379/15
func newTestAdapter(tb testing.TB) backend.Adapter {
	raw := os.Getenv("OMNISTORE_TEST_REDIS")
	if raw == "" {
		tb.Skip("OMNISTORE_TEST_REDIS not set")
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		tb.Fatalf("invalid redis test uri: %v", err)
	}
	client := redis.NewClient(opts)
	adapter, err := New(client, raw)
	if err != nil {
		tb.Fatalf("failed to connect to redis: %v", err)
	}
	// tests expect an empty keyspace
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		tb.Fatalf("failed to flush redis database: %v", err)
	}
	return adapter
}

func Test(t *testing.T) {
	if os.Getenv("OMNISTORE_TEST_REDIS") == "" {
		t.Skip("OMNISTORE_TEST_REDIS not set")
	}
	backendtesting.RunAdapterTests(t, "Redis", func() backend.Adapter {
		return newTestAdapter(t)
	})
}

func Benchmark(b *testing.B) {
	if os.Getenv("OMNISTORE_TEST_REDIS") == "" {
		b.Skip("OMNISTORE_TEST_REDIS not set")
	}
	backendtesting.RunAdapterBenchmarks(b, "Redis", func() backend.Adapter {
		return newTestAdapter(b)
	})
}
