package alloc

import (
	"fmt"
	"strings"
)

// Statistics aggregates byte counts over the blocks of one kind.
type Statistics struct {
	BytesAllocated int64 // bytes backed by physical memory
	BytesReserved  int64 // bytes of reserved address space
	BytesFree      int64 // allocated but not yet carved bytes
}

// Add returns the element-wise sum of s and o.
func (s Statistics) Add(o Statistics) Statistics {
	return Statistics{
		BytesAllocated: s.BytesAllocated + o.BytesAllocated,
		BytesReserved:  s.BytesReserved + o.BytesReserved,
		BytesFree:      s.BytesFree + o.BytesFree,
	}
}

func (s Statistics) String() string {
	return fmt.Sprintf("allocated %7.3f MB, reserved %7.3f MB, free %7.3f MB",
		mb(s.BytesAllocated), mb(s.BytesReserved), mb(s.BytesFree))
}

func statList(head *block, k Kind, huge bool) Statistics {
	var s Statistics
	for b := head; b != nil; b = b.next {
		if !b.hasKind(k, huge) {
			continue
		}
		s.BytesAllocated += int64(b.totalAllocatedBytes())
		s.BytesReserved += int64(b.totalReservedBytes())
		s.BytesFree += int64(b.freeBytes())
	}
	return s
}

// StatsFor aggregates over every block of the given kind. KindAny matches all
// kinds; huge is only consulted for KindOS blocks.
func (p *Pool) StatsFor(k Kind, huge bool) Statistics {
	s := statList(p.used.Load(), k, huge)
	s = s.Add(statList(p.free.Load(), k, huge))
	for i := range p.threadHead {
		s = s.Add(statList(p.threadHead[i].Load(), k, huge))
	}
	return s
}

// AllStats is a snapshot of the pool's memory accounting, broken down by
// block kind.
type AllStats struct {
	BytesUsed   int64
	BytesWasted int64
	All         Statistics
	Aligned     Statistics
	OS4K        Statistics
	OS2M        Statistics
	Shared      Statistics
}

// Stats snapshots the pool accounting. Concurrent allocations may skew the
// numbers; call during quiescence for exact values.
func (p *Pool) Stats() AllStats {
	return AllStats{
		BytesUsed:   p.UsedBytes(),
		BytesWasted: p.WastedBytes(),
		All:         p.StatsFor(KindAny, false),
		Aligned:     p.StatsFor(KindAligned, false),
		OS4K:        p.StatsFor(KindOS, false),
		OS2M:        p.StatsFor(KindOS, true),
		Shared:      p.StatsFor(KindShared, false),
	}
}

func (a AllStats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "used %7.3f MB, wasted %7.3f MB\n", mb(a.BytesUsed), mb(a.BytesWasted))
	fmt.Fprintf(&sb, "  total:   %s\n", a.All)
	fmt.Fprintf(&sb, "  aligned: %s\n", a.Aligned)
	fmt.Fprintf(&sb, "  os(4k):  %s\n", a.OS4K)
	fmt.Fprintf(&sb, "  os(2M):  %s\n", a.OS2M)
	fmt.Fprintf(&sb, "  shared:  %s", a.Shared)
	return sb.String()
}

func mb(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}
