package alloc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/arenakit/internal/logger"
	"github.com/joshuapare/arenakit/internal/osmem"
)

const (
	// MaxAlignment is the largest alignment Alloc honors.
	MaxAlignment = 64

	// MaxAllocationSize is the largest single request the pool serves.
	MaxAllocationSize = 4*1024*1024 - MaxAlignment

	// maxSlots is the number of worker-sharded block slots.
	maxSlots = 8

	pageSize     = osmem.PageSize
	hugePageSize = osmem.HugePageSize
)

// Pool is a block-pool arena allocator. Blocks live on two lists: used
// (containing live allocations) and free (reset, reusable across builds).
// Each slot additionally pins the block its workers currently bump-allocate
// from; fixUsedBlocks splices those back into used on lifecycle transitions.
type Pool struct {
	backend Backend

	mu     sync.Mutex // guards used/free list structure on the grow path
	slotMu [maxSlots]sync.Mutex

	used atomic.Pointer[block]
	free atomic.Pointer[block]

	threadUsed [maxSlots]atomic.Pointer[block]
	threadHead [maxSlots]atomic.Pointer[block]

	slotMask      uint32
	singleMode    bool
	defaultSlab   int
	growSize      int
	log2GrowScale atomic.Uint32
	atype         Kind

	bytesUsed   int64
	bytesWasted int64

	localMu sync.Mutex
	locals  map[int]*BumpPair
}

// NewPool creates a pool over backend. A nil backend selects the process
// default. When osAllocation is set, all created blocks use anonymous OS
// mappings instead of the aligned heap allocator.
func NewPool(backend Backend, osAllocation bool) *Pool {
	if backend == nil {
		backend = osmem.New(nil)
	}
	atype := KindAligned
	if osAllocation {
		atype = KindOS
	}
	return &Pool{
		backend:     backend,
		defaultSlab: pageSize,
		growSize:    pageSize,
		atype:       atype,
		locals:      make(map[int]*BumpPair),
	}
}

// Backend returns the backing-memory capability attached to this pool.
func (p *Pool) Backend() Backend {
	return p.backend
}

// initGrowSizeAndSlots derives the growth size and the worker-slot sharding
// from the estimated build footprint. Sharding only pays off once several
// maximum-size blocks are in flight.
func (p *Pool) initGrowSizeAndSlots(bytesAllocate int, compact bool) {
	bytesAllocate = roundUp(bytesAllocate, pageSize)
	p.growSize = clampInt(bytesAllocate, pageSize, MaxAllocationSize)
	p.log2GrowScale.Store(0)
	p.slotMask = 0
	if !compact {
		if bytesAllocate > 4*MaxAllocationSize {
			p.slotMask = 0x1
		}
		if bytesAllocate > 8*MaxAllocationSize {
			p.slotMask = 0x3
		}
		if bytesAllocate > 16*MaxAllocationSize {
			p.slotMask = 0x7
		}
	}
}

// Init sizes the pool for an upcoming build and pre-creates one free block
// of bytesAllocate bytes (reserving bytesReserve, which defaults to
// bytesAllocate when zero). If the pool already holds blocks it is reset
// instead and keeps its current tuning.
func (p *Pool) Init(bytesAllocate, bytesReserve int) error {
	p.fixUsedBlocks()
	p.slotMask = maxSlots - 1
	if p.used.Load() != nil || p.free.Load() != nil {
		p.Reset()
		return nil
	}
	if bytesReserve == 0 {
		bytesReserve = bytesAllocate
	}
	blk, err := createBlock(p.backend, bytesAllocate, bytesReserve, nil, p.atype)
	if err != nil {
		return err
	}
	p.free.Store(blk)
	p.defaultSlab = clampInt(bytesAllocate/4, 128, pageSize+MaxAlignment)
	p.initGrowSizeAndSlots(bytesAllocate, false)
	return nil
}

// InitEstimate sets growth tuning for an estimated build footprint without
// pre-allocating. singleMode collapses each worker's bump pair onto a single
// slab; compact disables worker-slot sharding.
func (p *Pool) InitEstimate(bytesAllocate int, singleMode, compact bool) {
	p.fixUsedBlocks()
	if p.used.Load() != nil || p.free.Load() != nil {
		p.Reset()
		return
	}
	p.singleMode = singleMode
	p.defaultSlab = clampInt(bytesAllocate/4, 128, pageSize+MaxAlignment)
	p.initGrowSizeAndSlots(bytesAllocate, compact)
}

// fixUsedBlocks splices all per-slot block chains into the used list. It is
// the only operation observing every per-slot list at once; callers ensure
// no allocations are in flight.
func (p *Pool) fixUsedBlocks() {
	for i := range p.threadHead {
		for p.threadHead[i].Load() != nil {
			h := p.threadHead[i].Load()
			next := h.next
			h.next = p.used.Load()
			p.used.Store(h)
			p.threadHead[i].Store(next)
		}
		p.threadHead[i].Store(nil)
	}
}

func (p *Pool) growScale() int {
	scale := int(p.log2GrowScale.Add(1))
	if scale > 16 {
		scale = 16
	}
	return 1 << scale
}

// Alloc carves bytes from the pool on behalf of worker. align must be a
// power of two not larger than MaxAlignment. With partial set the returned
// slice may be shorter than requested (the trailing slack of the current
// block); otherwise its length is exactly bytes. The returned region is
// always aligned to align and never empty.
//
// The fast path is a single fetch-add on the current slot block and never
// blocks. Refills serialize on a per-slot mutex while free blocks are
// exhausted, or on the pool mutex when splicing from the free list or
// growing.
func (p *Pool) Alloc(worker, bytes, align int, partial bool) ([]byte, error) {
	if align <= 0 || align > MaxAlignment || align&(align-1) != 0 {
		return nil, ErrBadAlign
	}
	if bytes <= 0 {
		return nil, ErrNeedBytes
	}

	for {
		slot := uint32(worker) & p.slotMask
		myUsed := p.threadUsed[slot].Load()
		if myUsed != nil {
			if buf := myUsed.carve(p.backend, bytes, partial); buf != nil {
				if !partial {
					buf = buf[:bytes]
				}
				return buf, nil
			}
		}

		if bytes > MaxAllocationSize {
			return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, bytes)
		}

		// With no free blocks available, create per-slot blocks in parallel
		// instead of serializing every refill on the pool mutex.
		if p.free.Load() == nil {
			p.slotMu[slot].Lock()
			if myUsed == p.threadUsed[slot].Load() {
				allocSize := p.growSize
				if bytes > allocSize {
					allocSize = bytes
				}
				if allocSize > MaxAllocationSize {
					allocSize = MaxAllocationSize
				}
				blk, err := createBlock(p.backend, allocSize, allocSize, p.threadHead[slot].Load(), p.atype)
				if err != nil {
					p.slotMu[slot].Unlock()
					return nil, err
				}
				p.threadHead[slot].Store(blk)
				p.threadUsed[slot].Store(blk)
			}
			p.slotMu[slot].Unlock()
			continue
		}

		p.mu.Lock()
		if myUsed == p.threadUsed[slot].Load() {
			if fb := p.free.Load(); fb != nil {
				p.free.Store(fb.next)
				fb.next = p.used.Load()
				p.used.Store(fb)
				p.threadUsed[slot].Store(fb)
			} else {
				// Successive refills geometrically enlarge blocks to
				// amortize backend round-trips on large builds.
				allocSize := int(minInt64(int64(p.growSize)*int64(p.growScale()),
					int64(MaxAllocationSize+MaxAlignment))) - MaxAlignment
				blk, err := createBlock(p.backend, allocSize, allocSize, p.used.Load(), p.atype)
				if err != nil {
					p.mu.Unlock()
					return nil, err
				}
				p.used.Store(blk)
				p.threadUsed[slot].Store(blk)
				logger.L.Debug("alloc: pool grown", "bytes", allocSize)
			}
		}
		p.mu.Unlock()
	}
}

// AddShared splices a caller-owned region into the free list. The region is
// aligned up to MaxAlignment; regions with less than 4 KiB of usable payload
// are ignored. Shared blocks are dropped from the free list on Reset and are
// never returned to the backend.
func (p *Pool) AddShared(buf []byte) {
	if len(buf) == 0 {
		return
	}
	base := uintptrOf(buf)
	off := int(((base + MaxAlignment - 1) &^ uintptr(MaxAlignment-1)) - base)
	usable := len(buf) - off
	if usable < 4096 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b := &block{
		buf:      buf[off : off+usable : off+usable],
		raw:      buf,
		next:     p.free.Load(),
		reserved: usable,
		wasted:   off,
		kind:     KindShared,
	}
	b.allocEnd.Store(int64(usable))
	p.free.Store(b)
}

// Local returns worker's bump-allocator pair, creating it on first use. The
// registry is explicit so Cleanup can fold every worker's accounting into
// the pool.
func (p *Pool) Local(worker int) *BumpPair {
	p.localMu.Lock()
	defer p.localMu.Unlock()
	tp := p.locals[worker]
	if tp == nil {
		tp = newBumpPair(p, worker, p.singleMode)
		p.locals[worker] = tp
	}
	return tp
}

// Reset recycles all blocks for the next build: used blocks rewind and move
// to the free list, shared blocks are dropped, and every bump allocator is
// wiped. Pointers handed out before Reset are invalidated.
func (p *Pool) Reset() {
	p.fixUsedBlocks()
	p.bytesUsed = 0
	p.bytesWasted = 0

	for ub := p.used.Load(); ub != nil; ub = p.used.Load() {
		ub.resetBlock()
		next := ub.next
		ub.next = p.free.Load()
		p.free.Store(ub)
		p.used.Store(next)
	}
	p.free.Store(removeShared(p.free.Load()))

	for i := range p.threadUsed {
		p.threadUsed[i].Store(nil)
		p.threadHead[i].Store(nil)
	}

	p.localMu.Lock()
	for _, tp := range p.locals {
		tp.Reset()
	}
	p.localMu.Unlock()
	logger.L.Debug("alloc: pool reset")
}

// Cleanup drains per-worker accounting into the pool counters and discards
// the worker registry. Call once allocation has quiesced after a build.
func (p *Pool) Cleanup() {
	p.fixUsedBlocks()

	p.localMu.Lock()
	for _, tp := range p.locals {
		p.bytesUsed += tp.UsedBytes()
		p.bytesWasted += tp.WastedBytes()
	}
	p.locals = make(map[int]*BumpPair)
	p.localMu.Unlock()
}

// Shrink returns untouched pages of every block to the backend and drops the
// free list entirely.
func (p *Pool) Shrink() {
	for i := range p.threadUsed {
		if b := p.threadUsed[i].Load(); b != nil {
			shrinkList(p.backend, b)
		}
	}
	if ub := p.used.Load(); ub != nil {
		shrinkList(p.backend, ub)
	}
	if fb := p.free.Load(); fb != nil {
		clearList(p.backend, fb)
	}
	p.free.Store(nil)
}

// Clear releases all pool memory back to the backend.
func (p *Pool) Clear() {
	p.Cleanup()
	p.bytesUsed = 0
	p.bytesWasted = 0
	if ub := p.used.Load(); ub != nil {
		clearList(p.backend, ub)
	}
	if fb := p.free.Load(); fb != nil {
		clearList(p.backend, fb)
	}
	p.used.Store(nil)
	p.free.Store(nil)
	for i := range p.threadUsed {
		p.threadUsed[i].Store(nil)
		p.threadHead[i].Store(nil)
	}
	logger.L.Debug("alloc: pool cleared")
}

// UsedBytes reports payload bytes handed out, folding in live per-worker
// bump accounting.
func (p *Pool) UsedBytes() int64 {
	bytes := p.bytesUsed
	p.localMu.Lock()
	for _, tp := range p.locals {
		bytes += tp.UsedBytes()
	}
	p.localMu.Unlock()
	return bytes
}

// WastedBytes reports bytes lost to alignment padding and retired slab
// tails, folding in live per-worker bump accounting.
func (p *Pool) WastedBytes() int64 {
	bytes := p.bytesWasted
	p.localMu.Lock()
	for _, tp := range p.locals {
		bytes += tp.WastedBytes()
	}
	p.localMu.Unlock()
	return bytes
}

func roundUp(n, to int) int {
	return (n + to - 1) &^ (to - 1)
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
