// Package partition rearranges a slice in place around a predicate using
// many workers and no auxiliary element storage, computing per-side
// reductions along the way.
//
// # Overview
//
// Slice splits the input into contiguous task subranges, runs a two-pointer
// partition with inline folds on each subrange in parallel, then derives the
// global split point from the per-task left counts. Elements that ended up on
// the wrong side of the global split form a small set of misplaced ranges;
// a second parallel phase swaps them pairwise across the split. The whole
// operation permutes elements in place; the only allocation is the internal
// task-state object.
//
// # Guarantees
//
// The partition is exact: the returned mid equals the number of elements
// satisfying the predicate on entry. It is not stable; relative order within
// either side is unspecified. The fold and combine callbacks must be
// associative with init as their neutral element, and the combine order
// depends on the task count, so non-commutative combines yield task-count
// dependent results.
//
// # Concurrency
//
// The caller must hold exclusive access to the slice for the duration of the
// call. Phases are separated by join barriers; within a phase, tasks touch
// disjoint index ranges and run without locks.
package partition
