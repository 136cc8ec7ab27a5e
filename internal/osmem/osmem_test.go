package osmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAlignedAlloc verifies base alignment across a range of alignments.
func TestAlignedAlloc(t *testing.T) {
	m := New(nil)
	for _, align := range []int{1, 8, 16, 64, 4096} {
		buf, err := m.AlignedAlloc(1000, align)
		require.NoError(t, err)
		require.Len(t, buf, 1000)
		addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
		assert.Zero(t, addr%uintptr(align), "align=%d", align)
	}
}

// TestAlignedAlloc_Validation covers the argument checks.
func TestAlignedAlloc_Validation(t *testing.T) {
	m := New(nil)
	_, err := m.AlignedAlloc(0, 64)
	assert.ErrorIs(t, err, ErrBadSize)
	_, err = m.AlignedAlloc(100, 3)
	assert.ErrorIs(t, err, ErrBadAlign)
}

// TestMapUnmap verifies the OS mapping round trip.
func TestMapUnmap(t *testing.T) {
	m := New(nil)
	buf, huge, err := m.Map(10 * PageSize)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(buf), 10*PageSize)

	// The mapping must be writable end to end.
	buf[0] = 1
	buf[len(buf)-1] = 2
	assert.EqualValues(t, 1, buf[0])

	require.NoError(t, m.Unmap(buf, huge))
}

// TestShrink verifies that shrinking keeps the used prefix intact and
// reports a page-rounded reservation.
func TestShrink(t *testing.T) {
	m := New(nil)
	buf, huge, err := m.Map(16 * PageSize)
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Unmap(buf, huge)) }()

	for i := 0; i < 2*PageSize; i++ {
		buf[i] = byte(i)
	}

	used := 2*PageSize - 100
	reserved, err := m.Shrink(buf, used, huge)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, reserved, used)
	assert.Zero(t, reserved%PageSize)
	assert.LessOrEqual(t, reserved, len(buf))

	for i := 0; i < used; i++ {
		require.EqualValues(t, byte(i), buf[i], "used prefix must survive shrink")
	}
}

// TestMonitorForwarding verifies monitor plumbing and the nil-monitor path.
func TestMonitorForwarding(t *testing.T) {
	var got int64
	var posts int
	m := New(func(delta int64, post bool) {
		got += delta
		if post {
			posts++
		}
	})
	m.MemoryMonitor(100, false)
	m.MemoryMonitor(-40, true)
	assert.EqualValues(t, 60, got)
	assert.Equal(t, 1, posts)

	// A nil monitor must not panic.
	New(nil).MemoryMonitor(5, false)
}
