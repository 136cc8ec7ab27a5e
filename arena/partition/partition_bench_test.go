package partition

import (
	"math/rand"
	"testing"
)

func benchInput(n int) []uint64 {
	rng := rand.New(rand.NewSource(1))
	items := make([]uint64, n)
	for i := range items {
		items[i] = rng.Uint64()
	}
	return items
}

// BenchmarkSlice_Parallel measures the full three-phase path.
func BenchmarkSlice_Parallel(b *testing.B) {
	const n = 1 << 20
	orig := benchInput(n)
	items := make([]uint64, n)
	pivot := uint64(1) << 63

	b.SetBytes(n * 8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(items, orig)
		Slice(items, 0, uint64(0),
			func(v *uint64) bool { return *v < pivot },
			func(acc *uint64, v *uint64) { *acc += *v },
			func(acc, other *uint64) { *acc += *other },
		)
	}
}

// BenchmarkSlice_Serial measures the single-worker baseline.
func BenchmarkSlice_Serial(b *testing.B) {
	const n = 1 << 20
	orig := benchInput(n)
	items := make([]uint64, n)
	pivot := uint64(1) << 63

	b.SetBytes(n * 8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(items, orig)
		Serial(items, uint64(0),
			func(v *uint64) bool { return *v < pivot },
			func(acc *uint64, v *uint64) { *acc += *v },
		)
	}
}
