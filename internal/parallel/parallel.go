// Package parallel is the thread-runtime facade used by the arena packages.
// It provides a worker count, a fan-out primitive with a join barrier, and
// stable worker identities for allocator clients.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// NumWorkers reports the default fan-out width.
func NumWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ParallelFor runs body(task) for every task in [0, tasks), with at most
// workers bodies in flight, and returns only after all bodies completed.
func ParallelFor(tasks, workers int, body func(task int)) {
	if tasks <= 0 {
		return
	}
	if workers <= 0 {
		workers = NumWorkers()
	}
	if tasks == 1 || workers == 1 {
		for t := 0; t < tasks; t++ {
			body(t)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for t := 0; t < tasks; t++ {
		t := t
		g.Go(func() error {
			body(t)
			return nil
		})
	}
	_ = g.Wait()
}

// ForEachWorker runs body once per worker, concurrently, passing each body a
// stable worker index in [0, workers). Allocator clients use the index to key
// per-worker state such as bump allocators.
func ForEachWorker(workers int, body func(worker int)) {
	if workers <= 0 {
		workers = NumWorkers()
	}
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			body(w)
			return nil
		})
	}
	_ = g.Wait()
}
