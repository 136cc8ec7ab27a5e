package alloc

import (
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/arenakit/internal/logger"
)

// Kind distinguishes how a block was obtained and how it must be returned.
type Kind uint8

const (
	// KindAligned marks blocks from the backend's aligned heap allocator.
	KindAligned Kind = iota

	// KindOS marks blocks backed by an anonymous OS mapping.
	KindOS

	// KindShared marks caller-owned memory spliced in via AddShared.
	// The pool never frees shared blocks.
	KindShared

	// KindAny matches every block kind in statistics queries.
	KindAny Kind = 0xFF
)

func (k Kind) String() string {
	switch k {
	case KindAligned:
		return "aligned"
	case KindOS:
		return "os"
	case KindShared:
		return "shared"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// block is a contiguous backing region. The payload buf is aligned to
// MaxAlignment; cur is the bytes-consumed cursor and may transiently exceed
// reserved when racing carve attempts overshoot, which is why carve checks
// bounds after the fetch-add.
type block struct {
	cur      atomic.Int64 // bytes carved from the payload
	allocEnd atomic.Int64 // high-water mark charged to the monitor

	buf      []byte // payload view, MaxAlignment-aligned, len == reserved
	raw      []byte // region as obtained from the backend (for Unmap/Shrink)
	next     *block
	reserved int
	wasted   int // alignment padding ahead of the payload
	kind     Kind
	huge     bool
}

// createBlock obtains a new backing region from the backend. Sizes are
// rounded up to full pages. The monitor is charged only after the backend
// call succeeded, so a failed attempt has no visible side effects.
func createBlock(be Backend, bytesAlloc, bytesReserve int, next *block, kind Kind) (*block, error) {
	bytesAlloc = roundUp(bytesAlloc, pageSize)
	bytesReserve = roundUp(bytesReserve, pageSize)
	if bytesReserve < bytesAlloc {
		bytesReserve = bytesAlloc
	}

	switch kind {
	case KindAligned:
		// The very first block at exactly 2x huge-page size goes through the
		// OS mapping path so it starts on a 2 MiB boundary.
		if bytesAlloc == 2*hugePageSize && next == nil {
			return createBlock(be, bytesAlloc, bytesReserve, next, KindOS)
		}
		buf, err := be.AlignedAlloc(bytesAlloc, MaxAlignment)
		if err != nil {
			return nil, fmt.Errorf("alloc: aligned block of %d bytes: %w", bytesAlloc, err)
		}
		if bytesAlloc >= hugePageSize {
			be.Advise(buf)
		}
		be.MemoryMonitor(int64(bytesAlloc+MaxAlignment), false)
		b := &block{
			buf:      buf,
			raw:      buf,
			next:     next,
			reserved: bytesAlloc,
			wasted:   MaxAlignment,
			kind:     KindAligned,
		}
		b.allocEnd.Store(int64(bytesAlloc))
		logger.L.Debug("alloc: block created", "kind", KindAligned, "bytes", bytesAlloc)
		return b, nil

	case KindOS:
		buf, huge, err := be.Map(bytesReserve)
		if err != nil {
			return nil, fmt.Errorf("alloc: os block of %d bytes: %w", bytesReserve, err)
		}
		be.MemoryMonitor(int64(bytesAlloc), false)
		b := &block{
			buf:      buf,
			raw:      buf,
			next:     next,
			reserved: len(buf),
			kind:     KindOS,
			huge:     huge,
		}
		b.allocEnd.Store(int64(bytesAlloc))
		logger.L.Debug("alloc: block created", "kind", KindOS, "bytes", len(buf), "huge", huge)
		return b, nil

	default:
		panic("alloc: createBlock called with unsupported kind")
	}
}

// carve hands out granted bytes from the block. The request size is rounded
// to MaxAlignment so every offset stays aligned for any permitted alignment.
// When partial is set, a shorter trailing run may be granted. Returns nil
// when the block cannot serve the request.
func (b *block) carve(be Backend, bytes int, partial bool) []byte {
	bytes = roundUp(bytes, MaxAlignment)
	if int(b.cur.Load())+bytes > b.reserved && !partial {
		return nil
	}
	i := int(b.cur.Add(int64(bytes))) - bytes
	if i+bytes > b.reserved && !partial {
		return nil
	}
	if i >= b.reserved {
		return nil
	}
	granted := bytes
	if rest := b.reserved - i; granted > rest {
		granted = rest
	}
	// Charge the monitor for pages touched beyond the up-front reservation.
	if end := i + granted; end > int(b.allocEnd.Load()) {
		prev := int(b.allocEnd.Load())
		if prev < i {
			prev = i
		}
		be.MemoryMonitor(int64(end-prev), true)
	}
	return b.buf[i : i+granted : i+granted]
}

// usedBytes is the carved byte count, capped at the reservation.
func (b *block) usedBytes() int {
	cur := int(b.cur.Load())
	if cur > b.reserved {
		return b.reserved
	}
	return cur
}

// allocatedBytes is the high-water mark of charged bytes.
func (b *block) allocatedBytes() int {
	n := int(b.allocEnd.Load())
	if cur := int(b.cur.Load()); cur > n {
		n = cur
	}
	if n > b.reserved {
		n = b.reserved
	}
	return n
}

func (b *block) totalAllocatedBytes() int {
	return b.usedBytes() + b.wasted
}

func (b *block) totalReservedBytes() int {
	return b.reserved + b.wasted
}

func (b *block) freeBytes() int {
	return b.allocatedBytes() - b.usedBytes()
}

// resetBlock rewinds the cursor for reuse, recording the touched high-water
// mark so a later identical allocation sequence charges nothing new.
func (b *block) resetBlock() {
	b.allocEnd.Store(int64(b.allocatedBytes()))
	b.cur.Store(0)
}

// shrinkBlock returns untouched pages of an OS-mapped block to the host.
func (b *block) shrinkBlock(be Backend) {
	if b.kind != KindOS {
		return
	}
	newReserved, err := be.Shrink(b.raw, b.usedBytes(), b.huge)
	if err != nil {
		logger.L.Debug("alloc: block shrink failed", "err", err)
		return
	}
	be.MemoryMonitor(int64(newReserved-b.allocatedBytes()), true)
	b.reserved = newReserved
	b.buf = b.raw[:newReserved]
	b.allocEnd.Store(int64(newReserved))
}

// clearBlock releases the backing region according to the block kind.
func (b *block) clearBlock(be Backend) {
	released := int64(b.wasted + b.allocatedBytes())
	switch b.kind {
	case KindAligned:
		be.AlignedFree(b.raw)
		be.MemoryMonitor(-released, true)
	case KindOS:
		if err := be.Unmap(b.raw, b.huge); err != nil {
			logger.L.Debug("alloc: block unmap failed", "err", err)
		}
		be.MemoryMonitor(-released, true)
	case KindShared:
		// Caller-owned; never freed here.
	}
}

func (b *block) hasKind(k Kind, huge bool) bool {
	switch {
	case k == KindAny:
		return true
	case b.kind == KindOS:
		return k == KindOS && huge == b.huge
	default:
		return k == b.kind
	}
}

// List helpers. Lists are only walked or mutated during quiescent lifecycle
// operations or under the pool mutex.

func clearList(be Backend, head *block) {
	for b := head; b != nil; {
		next := b.next
		b.clearBlock(be)
		b = next
	}
}

func shrinkList(be Backend, head *block) {
	for b := head; b != nil; b = b.next {
		b.shrinkBlock(be)
	}
}

// removeShared unlinks caller-owned blocks from a list; they are re-added by
// the caller on the next build.
func removeShared(head *block) *block {
	prevNext := &head
	for b := head; b != nil; b = b.next {
		if b.kind == KindShared {
			*prevNext = b.next
		} else {
			prevNext = &b.next
		}
	}
	return head
}
