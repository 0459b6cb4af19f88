// Package cmd implements the command-line interface for the omnistore
// key-value storage layer. It provides a hierarchical command structure
// with operations against any configured backend.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations (put, get, pop, del, keys, etc.)
//   - lock: Commands for running programs under a per-key lock
//   - mirror: Command for copying all keys from one store to another
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See omnistore -help for a list of all commands.
package cmd
