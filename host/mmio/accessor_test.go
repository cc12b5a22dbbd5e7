package mmio

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softxhci/host/hal/sim"
	"github.com/ardnew/softxhci/pkg"
)

type testReg uint32

type testReg64 uint64

// failMapper refuses every mapping.
type failMapper struct{}

var errRefused = errors.New("refused")

func (failMapper) Map(uintptr, uintptr) (unsafe.Pointer, error) { return nil, errRefused }
func (failMapper) Unmap(unsafe.Pointer, uintptr) error          { return nil }

// shiftMapper maps correctly but offsets every pointer by 2 bytes.
type shiftMapper struct {
	*sim.Memory
}

func (m shiftMapper) Map(phys, size uintptr) (unsafe.Pointer, error) {
	p, err := m.Memory.Map(phys, size)
	if err != nil {
		return nil, err
	}
	return unsafe.Add(p, 2), nil
}

func (m shiftMapper) Unmap(virt unsafe.Pointer, size uintptr) error {
	return m.Memory.Unmap(unsafe.Add(virt, -2), size)
}

// stuckMapper is a shiftMapper whose Unmap always fails.
type stuckMapper struct {
	shiftMapper
}

func (stuckMapper) Unmap(unsafe.Pointer, uintptr) error { return errRefused }

// alignmentFault runs fn and returns the *pkg.AlignmentFault it panics with.
func alignmentFault(t *testing.T, fn func()) (fault *pkg.AlignmentFault) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected alignment fault panic")
		var ok bool
		fault, ok = r.(*pkg.AlignmentFault)
		require.True(t, ok, "panic value %v is not *pkg.AlignmentFault", r)
	}()
	fn()
	return nil
}

// =============================================================================
// Volatile Tests
// =============================================================================

func TestLoadStore(t *testing.T) {
	mem := sim.New(0x1000, 0x10)
	p, err := mem.Map(0x1000, 0x10)
	require.NoError(t, err)

	Store[testReg](p, 0xa5a5_5a5a)
	assert.Equal(t, uint32(0xa5a5_5a5a), mem.Load32(0x1000))
	assert.Equal(t, testReg(0xa5a5_5a5a), Load[testReg](p))

	p8 := unsafe.Add(p, 8)
	Store[testReg64](p8, 0x1122_3344_5566_7788)
	assert.Equal(t, uint64(0x1122_3344_5566_7788), mem.Load64(0x1008))
	assert.Equal(t, testReg64(0x1122_3344_5566_7788), Load[testReg64](p8))
}

// =============================================================================
// Scalar Accessor Tests
// =============================================================================

func TestReadOnly(t *testing.T) {
	mem := sim.New(0x1000, 0x100)
	mem.Store32(0x1004, 0x0400_0820)

	r, err := NewReadOnly[testReg](0x1004, mem)
	require.NoError(t, err)
	assert.Equal(t, testReg(0x0400_0820), r.Read())
	assert.Equal(t, uintptr(0x1004), r.Phys())

	// Reads are live, never cached.
	mem.Store32(0x1004, 0x1)
	assert.Equal(t, testReg(0x1), r.Read())

	require.NoError(t, r.Unmap())
	assert.Equal(t, 0, mem.Mapped())
	assert.NoError(t, r.Unmap(), "second Unmap is a no-op")
}

func TestReadWrite(t *testing.T) {
	mem := sim.New(0x1000, 0x100)

	r, err := NewReadWrite[testReg64](0x1018, mem)
	require.NoError(t, err)

	r.Write(0xdead_beef_0000_0001)
	assert.Equal(t, uint64(0xdead_beef_0000_0001), mem.Load64(0x1018))

	r.Update(func(v *testReg64) { *v |= 0x2 })
	assert.Equal(t, testReg64(0xdead_beef_0000_0003), r.Read())
}

func TestScalar_Misaligned(t *testing.T) {
	mem := sim.New(0x1000, 0x100)

	fault := alignmentFault(t, func() { _, _ = NewReadOnly[testReg](0x1002, mem) })
	assert.Equal(t, uintptr(0x1002), fault.Addr)
	assert.Equal(t, uintptr(4), fault.Align)
	assert.Equal(t, "mmio.testReg", fault.Register)

	fault = alignmentFault(t, func() { _, _ = NewReadWrite[testReg64](0x1004, mem) })
	assert.Equal(t, uintptr(8), fault.Align)

	assert.Equal(t, 0, mem.Mapped(), "no range mapped on fault")
}

func TestScalar_MapperError(t *testing.T) {
	_, err := NewReadOnly[testReg](0x1000, failMapper{})
	assert.ErrorIs(t, err, pkg.ErrMap)
	assert.ErrorIs(t, err, errRefused)

	mem := sim.New(0x1000, 0x10)
	_, err = NewReadWrite[testReg](0x2000, mem)
	assert.ErrorIs(t, err, pkg.ErrMap)
	assert.ErrorIs(t, err, pkg.ErrOutOfRange)
}

func TestScalar_MapperBreaksAlignment(t *testing.T) {
	mem := sim.New(0x1000, 0x100)

	fault := alignmentFault(t, func() { _, _ = NewReadOnly[testReg](0x1000, shiftMapper{mem}) })
	assert.Equal(t, uintptr(4), fault.Align)
	assert.Equal(t, 0, mem.Mapped(), "misaligned mapping released")
}

func TestScalar_MapperBreaksAlignment_UnmapFails(t *testing.T) {
	var buf bytes.Buffer
	original := pkg.DefaultLogger
	defer pkg.SetLogger(original)
	pkg.SetLogger(pkg.NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mem := sim.New(0x1000, 0x100)
	fault := alignmentFault(t, func() {
		_, _ = NewReadOnly[testReg](0x1000, stuckMapper{shiftMapper{mem}})
	})
	assert.Equal(t, uintptr(4), fault.Align)
	assert.Contains(t, buf.String(), "release of misaligned mapping failed")
	assert.Contains(t, buf.String(), "phys=0x1000")
	assert.Contains(t, buf.String(), "error=refused")
}

// =============================================================================
// Array Accessor Tests
// =============================================================================

func TestNewArray(t *testing.T) {
	mem := sim.New(0x1000, 0x200)

	a, err := NewArray[testReg](0x1100, 4, mem)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Len())

	for i := 0; i < 4; i++ {
		assert.Equal(t, testReg(0), a.Read(i), "fresh element %d", i)
		assert.Equal(t, uintptr(0x1100+4*i), a.Phys(i))
	}
}

func TestArray_ReadWrite(t *testing.T) {
	mem := sim.New(0x1000, 0x200)
	a, err := NewArray[testReg](0x1100, 4, mem)
	require.NoError(t, err)

	a.Write(2, 0x012c_0007)
	assert.Equal(t, uint32(0x012c_0007), mem.Load32(0x1108))
	assert.Equal(t, testReg(0x012c_0007), a.Read(2))

	for _, i := range []int{0, 1, 3} {
		assert.Equal(t, testReg(0), a.Read(i), "element %d disturbed", i)
	}

	// Hardware-side change is visible on the next read.
	mem.Store32(0x110c, 0x55)
	assert.Equal(t, testReg(0x55), a.Read(3))
}

func TestArray_Update(t *testing.T) {
	mem := sim.New(0x1000, 0x200)
	a, err := NewArray[testReg](0x1000, 8, mem)
	require.NoError(t, err)

	a.Write(5, 0xf0)
	a.Update(5, func(v *testReg) { *v = testReg(testTarget.Set(uint32(*v), 0x0f)) })
	assert.Equal(t, testReg(0x0f), a.Read(5))
}

func TestArray_IndexOutOfRange(t *testing.T) {
	mem := sim.New(0x1000, 0x200)
	a, err := NewArray[testReg](0x1100, 4, mem)
	require.NoError(t, err)

	for _, i := range []int{-1, 4, 5, 1 << 20} {
		assert.Panics(t, func() { a.Read(i) }, "Read(%d)", i)
		assert.Panics(t, func() { a.Write(i, 1) }, "Write(%d)", i)
		assert.Panics(t, func() { a.Update(i, func(*testReg) {}) }, "Update(%d)", i)
		assert.Panics(t, func() { a.Phys(i) }, "Phys(%d)", i)
	}

	// The word just past the array is untouched.
	assert.Equal(t, uint32(0), mem.Load32(0x1110))
}

func TestArray_Misaligned(t *testing.T) {
	mem := sim.New(0x1000, 0x200)

	var a *Array[testReg]
	fault := alignmentFault(t, func() { a, _ = NewArray[testReg](0x1101, 4, mem) })
	assert.Nil(t, a, "no accessor returned on fault")
	assert.Equal(t, uintptr(0x1101), fault.Addr)
	assert.ErrorIs(t, fault, pkg.ErrMisaligned)

	alignmentFault(t, func() { _, _ = NewArray[testReg64](0x1104, 2, mem) })
	alignmentFault(t, func() { _, _ = NewStridedArray[testReg](0x1100, 2, 6, mem) })
	assert.Equal(t, 0, mem.Mapped())
}

func TestArray_Empty(t *testing.T) {
	mem := sim.New(0x1000, 0x10)

	a, err := NewArray[testReg](0x1000, 0, mem)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, mem.Mapped())
	assert.Panics(t, func() { a.Read(0) })
	assert.NoError(t, a.Unmap())
}

func TestArray_NegativeLength(t *testing.T) {
	mem := sim.New(0x1000, 0x10)
	_, err := NewArray[testReg](0x1000, -1, mem)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestStridedArray_StrideTooSmall(t *testing.T) {
	mem := sim.New(0x1000, 0x100)
	_, err := NewStridedArray[testReg64](0x1000, 4, 4, mem)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestArray_MapperError(t *testing.T) {
	mem := sim.New(0x1000, 0x10)

	_, err := NewArray[testReg](0x1000, 8, mem) // 32 bytes in a 16-byte window
	assert.ErrorIs(t, err, pkg.ErrMap)
	assert.ErrorIs(t, err, pkg.ErrOutOfRange)
}

func TestStridedArray(t *testing.T) {
	mem := sim.New(0x1000, 0x100)

	// Four 16-byte register sets; address the second word of each.
	a, err := NewStridedArray[testReg](0x1004, 4, 0x10, mem)
	require.NoError(t, err)

	for i := 0; i < a.Len(); i++ {
		a.Write(i, testReg(i+1))
	}
	for i := 0; i < 4; i++ {
		assert.Equal(t, uint32(i+1), mem.Load32(uintptr(0x1004+0x10*i)))
		assert.Equal(t, uint32(0), mem.Load32(uintptr(0x1000+0x10*i)), "gap word %d", i)
		assert.Equal(t, uintptr(0x1004+0x10*i), a.Phys(i))
	}
}

func TestArray_All(t *testing.T) {
	mem := sim.New(0x1000, 0x100)
	a, err := NewArray[testReg](0x1000, 4, mem)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		a.Write(i, testReg(10*i))
	}

	var got []testReg
	for i, v := range a.All() {
		assert.Equal(t, testReg(10*i), v)
		got = append(got, v)
	}
	assert.Len(t, got, 4)

	n := 0
	for range a.All() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestArray_Unmap(t *testing.T) {
	mem := sim.New(0x1000, 0x100)
	a, err := NewArray[testReg](0x1000, 4, mem)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Mapped())

	require.NoError(t, a.Unmap())
	assert.Equal(t, 0, mem.Mapped())
	assert.Equal(t, 0, a.Len())
	assert.Panics(t, func() { a.Read(0) })
	assert.NoError(t, a.Unmap())
}

func TestArray_ConcurrentDistinctIndices(t *testing.T) {
	mem := sim.New(0x1000, 0x400)
	a, err := NewArray[testReg](0x1000, 64, mem)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < a.Len(); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				a.Update(i, func(v *testReg) { *v++ })
			}
		}(i)
	}
	wg.Wait()

	for i, v := range a.All() {
		assert.Equal(t, testReg(100), v, "element %d", i)
	}
}
