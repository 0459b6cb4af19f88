package memory

import (
	"testing"

	"github.com/omnikv/omnistore/lib/backend"
	backendtesting "github.com/omnikv/omnistore/lib/backend/testing"
)

func Test(t *testing.T) {
	backendtesting.RunAdapterTests(t, "Memory", func() backend.Adapter {
		return New("memory://")
	})
}

func Benchmark(b *testing.B) {
	backendtesting.RunAdapterBenchmarks(b, "Memory", func() backend.Adapter {
		return New("memory://")
	})
}
