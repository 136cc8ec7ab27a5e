// Package osmem supplies the backing-memory capability for the arena
// allocator: an aligned small-block allocator on the Go heap and an anonymous
// OS mapping path with transparent-huge-page advice on platforms that
// support it.
package osmem

import (
	"errors"
	"unsafe"
)

const (
	// PageSize is the allocation granularity for OS mappings.
	PageSize = 4096

	// HugePageSize is the granularity used when a mapping was advised to be
	// backed by 2 MiB pages.
	HugePageSize = 2 << 20
)

var (
	// ErrBadSize indicates a non-positive allocation size.
	ErrBadSize = errors.New("osmem: size must be positive")

	// ErrBadAlign indicates an alignment that is not a power of two.
	ErrBadAlign = errors.New("osmem: alignment must be a power of two")
)

// Monitor observes backing-memory acquisition and release. delta is a signed
// byte count. post marks charges raised after the initial reservation; those
// may arrive from concurrent allocation paths and the callback must be safe
// for concurrent use when post is true.
type Monitor func(delta int64, post bool)

// Mem implements the memory backend over the host OS.
// The zero value is usable; New attaches an optional monitor callback.
type Mem struct {
	monitor Monitor
}

// New returns a backend reporting acquisition and release to monitor.
// A nil monitor disables reporting.
func New(monitor Monitor) *Mem {
	return &Mem{monitor: monitor}
}

// MemoryMonitor forwards a signed byte delta to the attached monitor.
func (m *Mem) MemoryMonitor(delta int64, post bool) {
	if m.monitor != nil {
		m.monitor(delta, post)
	}
}

// AlignedAlloc returns a heap region of exactly bytes whose base address is
// aligned to align.
func (m *Mem) AlignedAlloc(bytes, align int) ([]byte, error) {
	if bytes <= 0 {
		return nil, ErrBadSize
	}
	if align <= 0 || align&(align-1) != 0 {
		return nil, ErrBadAlign
	}
	raw := make([]byte, bytes+align)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	off := int((uintptr(align) - addr&uintptr(align-1)) & uintptr(align-1))
	return raw[off : off+bytes : off+bytes], nil
}

// AlignedFree releases a region obtained from AlignedAlloc. The Go runtime
// reclaims the backing array once the last reference is dropped.
func (m *Mem) AlignedFree(buf []byte) {}

func roundUp(n, to int) int {
	return (n + to - 1) &^ (to - 1)
}

func addrOf(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(&buf[0]))
}
