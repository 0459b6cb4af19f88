// Package testing provides standardised tests and benchmarks for
// adapter implementations that satisfy the backend.Adapter interface.
//
// The package contains:
//   - testing: A comprehensive test suite for validating conformance to the Adapter interface contract
//   - benchmark: Performance tests for measuring throughput of common adapter operations
//
// This package is particularly useful for:
//   - Applications that need to select the most appropriate backend
//     based on performance characteristics
//   - Backend developers implementing the Adapter interface
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() backend.Adapter {
//		return NewMyAdapter()
//	}
//
//	// Running the standard test suite
//	backendtesting.RunAdapterTests(t, "MyAdapter", factory)
//
//	// Running performance benchmarks
//	backendtesting.RunAdapterBenchmarks(b, "MyAdapter", factory)
package testing
