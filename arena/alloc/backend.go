package alloc

import "github.com/joshuapare/arenakit/internal/osmem"

// Backend is the backing-memory capability a Pool requires from the host.
//
// AlignedAlloc/AlignedFree serve small aligned heap blocks. Map/Unmap/Shrink/
// Advise serve large anonymous OS mappings; huge reports whether a mapping
// was advised onto 2 MiB pages and must be passed back unchanged. Shrink
// returns physical pages behind the unused tail of a mapping and reports the
// new reserved byte count; the virtual range stays valid until Unmap.
//
// MemoryMonitor is invoked with a signed byte delta whenever backing memory
// is acquired or released. Calls with post=true may arrive concurrently from
// allocation fast paths.
type Backend interface {
	AlignedAlloc(bytes, align int) ([]byte, error)
	AlignedFree(buf []byte)
	Map(bytes int) (buf []byte, huge bool, err error)
	Unmap(buf []byte, huge bool) error
	Shrink(buf []byte, used int, huge bool) (int, error)
	Advise(buf []byte)
	MemoryMonitor(delta int64, post bool)
}

var _ Backend = (*osmem.Mem)(nil)
