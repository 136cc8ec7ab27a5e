//go:build unix

package osmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Map creates an anonymous private mapping of at least bytes. Mappings of
// 2 MiB and larger are advised towards transparent huge pages; huge reports
// whether the advice stuck.
func (m *Mem) Map(bytes int) ([]byte, bool, error) {
	if bytes <= 0 {
		return nil, false, ErrBadSize
	}
	size := roundUp(bytes, PageSize)
	buf, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, false, fmt.Errorf("osmem: mmap %d bytes: %w", size, err)
	}
	huge := false
	if size >= HugePageSize {
		if err := unix.Madvise(buf, unix.MADV_HUGEPAGE); err == nil {
			huge = true
		}
	}
	return buf, huge, nil
}

// Unmap releases a mapping obtained from Map. buf must be the slice Map
// returned. A double unmap is treated as a no-op for callers.
func (m *Mem) Unmap(buf []byte, huge bool) error {
	if len(buf) == 0 {
		return nil
	}
	if err := unix.Munmap(buf); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return nil
		}
		return fmt.Errorf("osmem: munmap: %w", err)
	}
	return nil
}

// Shrink returns the physical pages behind the unused tail of a mapping to
// the OS and reports the new reserved byte count. The virtual range stays
// mapped until Unmap so the original slice remains valid.
func (m *Mem) Shrink(buf []byte, used int, huge bool) (int, error) {
	granularity := PageSize
	if huge {
		granularity = HugePageSize
	}
	keep := roundUp(used, granularity)
	if keep >= len(buf) {
		return len(buf), nil
	}
	tail := buf[keep:]
	if err := unix.Madvise(tail, unix.MADV_DONTNEED); err != nil {
		return len(buf), fmt.Errorf("osmem: madvise dontneed: %w", err)
	}
	return keep, nil
}

// Advise hints that buf should be backed by transparent huge pages.
// The hint may be ignored by the OS.
func (m *Mem) Advise(buf []byte) {
	start := uintptr(0)
	// madvise needs page-aligned addresses; trim the unaligned head.
	if len(buf) > 0 {
		start = addrOf(buf) & uintptr(PageSize-1)
	}
	if int(start) != 0 {
		skip := PageSize - int(start)
		if skip >= len(buf) {
			return
		}
		buf = buf[skip:]
	}
	if len(buf) >= PageSize {
		_ = unix.Madvise(buf[:len(buf)&^(PageSize-1)], unix.MADV_HUGEPAGE)
	}
}
