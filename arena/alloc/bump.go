package alloc

import "unsafe"

// Bump is a per-worker bump allocator over pool-issued slabs. The fast path
// is a pad-and-advance over the current slab with no atomics; slab refills go
// through Pool.Alloc. A Bump is owned by a single worker.
type Bump struct {
	pool   *Pool
	worker int

	buf []byte
	cur int
	end int

	slabSize    int
	bytesUsed   int64
	bytesWasted int64
}

func newBump(p *Pool, worker int) *Bump {
	return &Bump{pool: p, worker: worker, slabSize: p.defaultSlab}
}

// Alloc returns bytes bytes aligned to align. Requests large relative to the
// slab size bypass the slab and are served directly by the pool, so a few
// huge objects do not evict a slab full of small ones.
func (b *Bump) Alloc(bytes, align int) ([]byte, error) {
	if align <= 0 || align > MaxAlignment || align&(align-1) != 0 {
		return nil, ErrBadAlign
	}
	if bytes <= 0 {
		return nil, ErrNeedBytes
	}

	pad := (align - b.cur) & (align - 1)
	if b.cur+pad+bytes <= b.end {
		b.cur += pad + bytes
		b.bytesUsed += int64(pad + bytes)
		return b.buf[b.cur-bytes : b.cur : b.cur], nil
	}

	if 4*bytes > b.slabSize {
		buf, err := b.pool.Alloc(b.worker, bytes, MaxAlignment, false)
		if err != nil {
			return nil, err
		}
		b.bytesUsed += int64(bytes)
		return buf[:bytes:bytes], nil
	}

	// Retire the slab tail and fetch a fresh slab. A partial grant first
	// drains the trailing slack of the current pool block.
	b.bytesWasted += int64(b.end - b.cur)
	b.cur = 0
	b.end = 0
	b.buf = nil

	buf, err := b.pool.Alloc(b.worker, b.slabSize, MaxAlignment, true)
	if err != nil {
		return nil, err
	}
	if len(buf) < bytes {
		b.bytesWasted += int64(len(buf))
		buf, err = b.pool.Alloc(b.worker, b.slabSize, MaxAlignment, false)
		if err != nil {
			return nil, err
		}
		if b.slabSize < 16*pageSize {
			b.slabSize *= 2
		}
	}
	b.buf = buf
	b.cur = bytes
	b.end = len(buf)
	b.bytesUsed += int64(bytes)
	return b.buf[:bytes:bytes], nil
}

// Reset wipes the allocator state. The tuned slab size survives so the next
// build starts where the last one left off.
func (b *Bump) Reset() {
	b.buf = nil
	b.cur = 0
	b.end = 0
	b.bytesUsed = 0
	b.bytesWasted = 0
}

// UsedBytes is the payload bytes handed out, including alignment padding.
func (b *Bump) UsedBytes() int64 { return b.bytesUsed }

// WastedBytes is the bytes lost to retired slab tails plus the live tail.
func (b *Bump) WastedBytes() int64 { return b.bytesWasted + int64(b.end-b.cur) }

// BumpPair bundles two bump allocators for one worker so two allocation
// streams with different lifetime patterns do not interleave within a slab. In
// single mode both streams share one allocator.
type BumpPair struct {
	alloc0 *Bump
	alloc1 *Bump
}

func newBumpPair(p *Pool, worker int, single bool) *BumpPair {
	a0 := newBump(p, worker)
	a1 := a0
	if !single {
		a1 = newBump(p, worker)
	}
	return &BumpPair{alloc0: a0, alloc1: a1}
}

// Alloc0 allocates from the primary stream.
func (tp *BumpPair) Alloc0(bytes, align int) ([]byte, error) {
	return tp.alloc0.Alloc(bytes, align)
}

// Alloc1 allocates from the secondary stream.
func (tp *BumpPair) Alloc1(bytes, align int) ([]byte, error) {
	return tp.alloc1.Alloc(bytes, align)
}

// Reset wipes both allocators.
func (tp *BumpPair) Reset() {
	tp.alloc0.Reset()
	if tp.alloc1 != tp.alloc0 {
		tp.alloc1.Reset()
	}
}

// UsedBytes sums payload bytes across both streams.
func (tp *BumpPair) UsedBytes() int64 {
	n := tp.alloc0.UsedBytes()
	if tp.alloc1 != tp.alloc0 {
		n += tp.alloc1.UsedBytes()
	}
	return n
}

// WastedBytes sums wasted bytes across both streams.
func (tp *BumpPair) WastedBytes() int64 {
	n := tp.alloc0.WastedBytes()
	if tp.alloc1 != tp.alloc0 {
		n += tp.alloc1.WastedBytes()
	}
	return n
}

func uintptrOf(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}
