package partition

// span is a half-open index interval into the slice under partition.
type span struct {
	start int
	end   int
}

func (s span) intersect(o span) span {
	return span{start: maxInt(s.start, o.start), end: minInt(s.end, o.end)}
}

func (s span) empty() bool {
	return s.end <= s.start
}

func (s span) size() int {
	return s.end - s.start
}

// findStart locates the span containing the index'th item of the virtual
// concatenation of spans, returning the span index and the offset within it.
func findStart(spans []span, index int) (int, int) {
	i := 0
	for index >= spans[i].size() {
		index -= spans[i].size()
		i++
	}
	return i, index
}

// swapMisplaced exchanges items [startID, endID) of the left misplaced
// concatenation with the same coordinates of the right one. Both
// concatenations have equal total size, so every coordinate maps to exactly
// one cell on each side and concurrent callers with disjoint coordinate
// slices never collide.
func swapMisplaced[T any](items []T, leftMis, rightMis []span, startID, endID int) {
	li, loff := findStart(leftMis, startID)
	ri, roff := findStart(rightMis, startID)

	l := leftMis[li].start + loff
	lLeft := leftMis[li].size() - loff
	r := rightMis[ri].start + roff
	rLeft := rightMis[ri].size() - roff

	size := endID - startID
	for size > 0 {
		if lLeft == 0 {
			li++
			l = leftMis[li].start
			lLeft = leftMis[li].size()
		}
		if rLeft == 0 {
			ri++
			r = rightMis[ri].start
			rLeft = rightMis[ri].size()
		}
		run := size
		if lLeft < run {
			run = lLeft
		}
		if rLeft < run {
			run = rLeft
		}
		size -= run
		lLeft -= run
		rLeft -= run
		for ; run > 0; run-- {
			items[l], items[r] = items[r], items[l]
			l++
			r++
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
