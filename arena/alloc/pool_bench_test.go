package alloc

import (
	"sync/atomic"
	"testing"
)

// BenchmarkPool_Alloc measures the shared fast path under a single worker.
func BenchmarkPool_Alloc(b *testing.B) {
	p := NewPool(nil, false)
	p.InitEstimate(b.N*64, false, false)
	defer p.Clear()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Alloc(0, 64, 64, false); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPool_AllocParallel measures contention across workers.
func BenchmarkPool_AllocParallel(b *testing.B) {
	p := NewPool(nil, false)
	p.InitEstimate(b.N*64, false, false)
	defer p.Clear()

	var next atomic.Int64
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		worker := int(next.Add(1))
		for pb.Next() {
			if _, err := p.Alloc(worker, 64, 64, false); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkBump_Alloc measures the per-worker bump fast path.
func BenchmarkBump_Alloc(b *testing.B) {
	p := NewPool(nil, false)
	p.InitEstimate(b.N*48, false, false)
	defer p.Clear()

	bump := newBump(p, 0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bump.Alloc(48, 8); err != nil {
			b.Fatal(err)
		}
	}
}
