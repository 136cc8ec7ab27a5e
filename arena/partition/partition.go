package partition

import (
	"github.com/joshuapare/arenakit/internal/logger"
	"github.com/joshuapare/arenakit/internal/parallel"
)

const (
	// blockSize is the smallest subrange worth handing to a task. Inputs
	// below it always take the serial path.
	blockSize = 128

	// maxTasks bounds the task-state arrays.
	maxTasks = 512
)

// state is the per-call scratch of the parallel path. It is allocated once
// per Slice call; the misplaced-range slices alias its arrays.
type state[V any] struct {
	counterStart [maxTasks + 1]int
	counterLeft  [maxTasks + 1]int
	leftAcc      [maxTasks]V
	rightAcc     [maxTasks]V
	leftMisArr   [maxTasks]span
	rightMisArr  [maxTasks]span
}

// Serial partitions items in place around pred with a single worker, folding
// every element into the accumulator of the side it lands on. It returns the
// split point: items[:mid] satisfy pred, items[mid:] do not. left and right
// start from init.
func Serial[T, V any](items []T, init V, pred func(*T) bool, fold func(acc *V, item *T)) (mid int, left, right V) {
	left, right = init, init
	mid = serialPartition(items, 0, len(items), pred, fold, &left, &right)
	return mid, left, right
}

// serialPartition runs the two-pointer pass on items[begin:end], returning
// the absolute split index. The left cursor advances while pred holds, the
// right cursor retreats while it does not; stalled cursors swap and fold
// each element into its destination side.
func serialPartition[T, V any](items []T, begin, end int, pred func(*T) bool, fold func(*V, *T), leftAcc, rightAcc *V) int {
	l := begin
	r := end - 1
	for {
		for l <= r && pred(&items[l]) {
			fold(leftAcc, &items[l])
			l++
		}
		for l <= r && !pred(&items[r]) {
			fold(rightAcc, &items[r])
			r--
		}
		if r < l {
			break
		}
		fold(leftAcc, &items[r])
		fold(rightAcc, &items[l])
		items[l], items[r] = items[r], items[l]
		l++
		r--
	}
	return l
}

// Slice partitions items in place around pred using up to workers workers
// (zero selects the runtime default), returning the split point and the
// per-side reductions. fold accumulates one element into a side accumulator;
// combine merges two accumulators; init must be the neutral element of
// combine. The caller must hold exclusive access to items for the duration
// of the call.
func Slice[T, V any](items []T, workers int, init V, pred func(*T) bool, fold func(acc *V, item *T), combine func(acc, other *V)) (mid int, left, right V) {
	n := len(items)
	if workers <= 0 {
		workers = parallel.NumWorkers()
	}
	if n < blockSize || workers == 1 {
		return Serial(items, init, pred, fold)
	}

	tasks := workers
	if (n+workers-1)/workers < blockSize {
		tasks = (n + blockSize - 1) / blockSize
	}
	if tasks > maxTasks {
		tasks = maxTasks
	}

	st := &state[V]{}

	parallel.ParallelFor(tasks, workers, func(task int) {
		startID := task * n / tasks
		endID := (task + 1) * n / tasks
		localLeft, localRight := init, init
		m := serialPartition(items, startID, endID, pred, fold, &localLeft, &localRight)
		st.counterStart[task] = startID
		st.counterLeft[task] = m - startID
		st.leftAcc[task] = localLeft
		st.rightAcc[task] = localRight
	})

	left, right = init, init
	mid = 0
	for i := 0; i < tasks; i++ {
		combine(&left, &st.leftAcc[i])
		combine(&right, &st.rightAcc[i])
		mid += st.counterLeft[i]
	}
	st.counterStart[tasks] = n
	st.counterLeft[tasks] = 0

	globalLeft := span{start: 0, end: mid}
	globalRight := span{start: mid, end: n}

	leftMis := st.leftMisArr[:0]
	rightMis := st.rightMisArr[:0]
	misplacedLeft, misplacedRight := 0, 0
	for i := 0; i < tasks; i++ {
		taskLeft := span{
			start: st.counterStart[i],
			end:   st.counterStart[i] + st.counterLeft[i],
		}
		taskRight := span{
			start: taskLeft.end,
			end:   st.counterStart[i+1],
		}
		if lm := globalLeft.intersect(taskRight); !lm.empty() {
			misplacedLeft += lm.size()
			leftMis = append(leftMis, lm)
		}
		if rm := globalRight.intersect(taskLeft); !rm.empty() {
			misplacedRight += rm.size()
			rightMis = append(rightMis, rm)
		}
	}
	if misplacedLeft != misplacedRight {
		panic("partition: misplaced item counts diverge")
	}

	if misplaced := misplacedLeft; misplaced > 0 {
		logger.L.Debug("partition: swapping misplaced items",
			"items", misplaced, "leftRanges", len(leftMis), "rightRanges", len(rightMis))
		parallel.ParallelFor(tasks, workers, func(task int) {
			startID := task * misplaced / tasks
			endID := (task + 1) * misplaced / tasks
			if startID == endID {
				return
			}
			swapMisplaced(items, leftMis, rightMis, startID, endID)
		})
	}

	return mid, left, right
}
