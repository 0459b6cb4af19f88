// Package lockmgr implements per-key locking on top of backend
// adapters. It provides the mutual exclusion guarantee for mutating
// operation sequences (put, pop, delete) across multiple processes or
// nodes pointed at the same backend location.
//
// Core Functionality:
//   - Lock acquisition with ownership verification
//   - Bounded blocking with configurable timeout and retry interval
//   - Scoped guards whose release cannot be skipped (WithLock)
//   - Automatic lease expiry so a crashed holder never wedges a key
//
// Implementation Approach:
//
//	Locks leverage the atomic conditional operations of the underlying
//	adapter. Specifically:
//
//	- Lock Acquisition: Attempts to create a sentinel entry next to the
//	  guarded key using WriteIfAbsent, which guarantees that only one
//	  requester can successfully create it. The sentinel value contains
//	  a randomly generated owner ID identifying the lock holder and a
//	  lease deadline.
//
//	- Lease Expiry: A sentinel whose lease deadline has passed is
//	  considered stale and is broken by the next acquirer. The lease is
//	  one timeout window long, so a failure never leaves a key locked
//	  beyond the timeout observed by the next acquirer.
//
//	- Safe Release: Release first verifies that the requester is the
//	  legitimate owner by comparing owner IDs before removing the
//	  sentinel.
//
//	Adapters without an atomic conditional-write primitive fall back to
//	an in-process lock manager built on per-key semaphores. That
//	fallback is pluggable: callers needing cross-process exclusion on
//	such backends can supply their own ILockManager (for example one
//	pointed at a different, atomic backend).
//
// Thread Safety:
//
//	The lock manager keeps no per-operation state outside the adapter
//	and is safe for concurrent use. It may be constructed multiple
//	times over the same adapter; all instances cooperate through the
//	shared sentinel entries.
package lockmgr
