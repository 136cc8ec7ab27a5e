// Package alloc implements a block-pool arena allocator for build workloads
// that create millions of short-lived objects and release them in bulk.
//
// # Overview
//
// A Pool owns a linked list of large backing blocks obtained from a Backend
// (aligned heap regions or anonymous OS mappings). Worker goroutines carve
// slabs out of those blocks through per-worker bump allocators, so the hot
// allocation path is a cursor advance with no locking. Individual
// allocations are never freed; lifetimes are managed in bulk through the
// pool lifecycle:
//
//	Init / InitEstimate  — size the pool for an upcoming build
//	Alloc / Local        — allocate during the build, from many workers
//	Cleanup              — drain per-worker accounting after the build
//	Reset                — recycle all blocks for the next build
//	Shrink               — return untouched pages to the OS
//	Clear                — release everything
//
// # Key Types
//
//   - Pool: the block pool, safe for concurrent allocation
//   - Bump: a per-worker bump allocator over pool-issued slabs
//   - BumpPair: two bump allocators per worker, separating two
//     allocation streams so one stream's refills do not pollute the other's slab
//   - Backend: the backing-memory capability required from the host
//
// # Concurrency
//
// Pool.Alloc is safe for concurrent use. The fast path performs a single
// atomic fetch-add on the current block's cursor; refill paths serialize on
// a per-slot or pool-wide mutex with O(1) critical sections. Worker
// identities are sharded over block slots to keep refill contention low.
// Lifecycle operations (Init, Reset, Cleanup, Shrink, Clear) require
// quiescence: no concurrent allocations may be in flight.
//
// A Bump is owned by a single worker and is not safe for concurrent use.
package alloc
