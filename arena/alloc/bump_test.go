package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBump_FastPath verifies sequential bump allocation from one slab:
// back-to-back requests land at increasing, non-overlapping addresses.
func TestBump_FastPath(t *testing.T) {
	p := NewPool(nil, false)
	p.InitEstimate(1<<20, false, false)
	defer p.Clear()

	b := newBump(p, 0)
	prevEnd := uintptr(0)
	for i := 0; i < 100; i++ {
		buf, err := b.Alloc(48, 8)
		require.NoError(t, err)
		require.Len(t, buf, 48)
		start := uintptrOf(buf)
		assert.GreaterOrEqual(t, start, prevEnd)
		prevEnd = start + uintptr(len(buf))
	}
	assert.EqualValues(t, 100*48, b.UsedBytes())
}

// TestBump_AlignmentPadding verifies that a misaligned cursor is padded and
// the padding is charged to used bytes.
func TestBump_AlignmentPadding(t *testing.T) {
	p := NewPool(nil, false)
	p.InitEstimate(1<<20, false, false)
	defer p.Clear()

	b := newBump(p, 0)
	_, err := b.Alloc(1, 1)
	require.NoError(t, err)

	buf, err := b.Alloc(64, 64)
	require.NoError(t, err)
	assert.Zero(t, uintptrOf(buf)%64)
	assert.EqualValues(t, 128, b.UsedBytes(), "1 byte + 63 pad + 64")
}

// TestBump_Validation verifies argument checks.
func TestBump_Validation(t *testing.T) {
	p := NewPool(nil, false)
	defer p.Clear()

	b := newBump(p, 0)
	_, err := b.Alloc(16, 3)
	assert.ErrorIs(t, err, ErrBadAlign)
	_, err = b.Alloc(16, 128)
	assert.ErrorIs(t, err, ErrBadAlign)
	_, err = b.Alloc(0, 8)
	assert.ErrorIs(t, err, ErrNeedBytes)
}

// TestBump_OversizeEscape verifies that requests large relative to the slab
// bypass it: the slab cursor does not move and the region has exact length.
func TestBump_OversizeEscape(t *testing.T) {
	p := NewPool(nil, false)
	p.InitEstimate(1<<20, false, false)
	defer p.Clear()

	b := newBump(p, 0)
	_, err := b.Alloc(64, 8)
	require.NoError(t, err)
	curBefore := b.cur

	big := 2 * b.slabSize
	buf, err := b.Alloc(big, 8)
	require.NoError(t, err)
	assert.Len(t, buf, big)
	assert.Equal(t, curBefore, b.cur, "oversize requests must not consume the slab")

	// Small requests afterwards keep using the existing slab.
	small, err := b.Alloc(32, 8)
	require.NoError(t, err)
	slabStart := uintptrOf(b.buf)
	got := uintptrOf(small)
	assert.True(t, got >= slabStart && got < slabStart+uintptr(b.end),
		"small allocation must come from the live slab")
}

// TestBump_RefillAcrossSlabs verifies that a bump survives many slab refills
// and keeps its accounting consistent.
func TestBump_RefillAcrossSlabs(t *testing.T) {
	p := NewPool(nil, false)
	p.InitEstimate(1<<22, false, false)
	defer p.Clear()

	b := newBump(p, 0)
	var want int64
	for i := 0; i < 5000; i++ {
		buf, err := b.Alloc(96, 8)
		require.NoError(t, err)
		require.Len(t, buf, 96)
		want += 96
	}
	assert.EqualValues(t, want, b.UsedBytes())
	assert.GreaterOrEqual(t, b.WastedBytes(), int64(0))
}

// TestBump_Reset verifies that Reset wipes accounting but keeps the tuned
// slab size.
func TestBump_Reset(t *testing.T) {
	p := NewPool(nil, false)
	p.InitEstimate(1<<22, false, false)
	defer p.Clear()

	b := newBump(p, 0)
	for i := 0; i < 5000; i++ {
		_, err := b.Alloc(96, 8)
		require.NoError(t, err)
	}
	tuned := b.slabSize

	b.Reset()
	assert.Zero(t, b.UsedBytes())
	assert.Zero(t, b.WastedBytes())
	assert.Equal(t, tuned, b.slabSize)

	_, err := b.Alloc(32, 8)
	require.NoError(t, err)
}

// TestBumpPair_SeparateStreams verifies that the two streams of a pair use
// distinct allocators unless single mode collapses them.
func TestBumpPair_SeparateStreams(t *testing.T) {
	p := NewPool(nil, false)
	p.InitEstimate(1<<20, false, false)
	defer p.Clear()

	tp := newBumpPair(p, 0, false)
	assert.NotSame(t, tp.alloc0, tp.alloc1)

	single := newBumpPair(p, 0, true)
	assert.Same(t, single.alloc0, single.alloc1)

	b0, err := tp.Alloc0(64, 8)
	require.NoError(t, err)
	b1, err := tp.Alloc1(64, 8)
	require.NoError(t, err)
	assert.NotEqual(t, uintptrOf(b0), uintptrOf(b1))
}

// TestBumpPair_SingleModeAccounting verifies that single-mode pairs do not
// double-count the shared allocator.
func TestBumpPair_SingleModeAccounting(t *testing.T) {
	p := NewPool(nil, false)
	p.InitEstimate(1<<20, true, false)
	defer p.Clear()

	tp := p.Local(0)
	_, err := tp.Alloc0(100, 4)
	require.NoError(t, err)
	_, err = tp.Alloc1(100, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 200, tp.UsedBytes())
}
