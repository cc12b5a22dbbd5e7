package xhci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softxhci/host/hal/sim"
	"github.com/ardnew/softxhci/host/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// =============================================================================
// Doorbell Register Tests
// =============================================================================

func TestDoorbell_ZeroValue(t *testing.T) {
	var r Doorbell
	assert.Equal(t, uint8(0), r.DoorbellTarget())
	assert.Equal(t, uint16(0), r.DoorbellStreamID())
	assert.Equal(t, "xhci.Doorbell{doorbell_target: 0, doorbell_stream_id: 0}", r.String())
}

func TestDoorbell_Fields(t *testing.T) {
	tests := []struct {
		name   string
		target uint8
		stream uint16
		raw    uint32
	}{
		{"target only", 7, 0, 0x0000_0007},
		{"stream only", 0, 300, 0x012c_0000},
		{"both", 7, 300, 0x012c_0007},
		{"max", 0xff, 0xffff, 0xffff_00ff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Doorbell
			r.SetDoorbellTarget(tt.target)
			r.SetDoorbellStreamID(tt.stream)
			assert.Equal(t, Doorbell(tt.raw), r)
			assert.Equal(t, tt.target, r.DoorbellTarget())
			assert.Equal(t, tt.stream, r.DoorbellStreamID())
		})
	}
}

func TestDoorbell_FieldIsolation(t *testing.T) {
	r := Doorbell(0xffff_ffff)
	r.SetDoorbellTarget(0)
	assert.Equal(t, Doorbell(0xffff_ff00), r, "reserved bits 8..15 and stream untouched")

	r = Doorbell(0x0000_ff00)
	r.SetDoorbellStreamID(0xabcd)
	assert.Equal(t, Doorbell(0xabcd_ff00), r)
}

// =============================================================================
// Doorbell Array Tests
// =============================================================================

// newDoorbellFixture returns a window at 0x1000 with HCSPARAMS1 reporting
// slots device slots and DBOFF holding dboff.
func newDoorbellFixture(t *testing.T, slots uint8, dboff uint32) (*sim.Memory, *Capability) {
	t.Helper()
	mem := sim.New(0x1000, 0x200)
	mem.Store32(0x1000+offHCSParams1, hcs1MaxSlots.Set(0, slots))
	mem.Store32(0x1000+offDBOff, dboff)

	c, err := NewCapability(0x1000, mem)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Unmap() })
	return mem, c
}

func TestNewDoorbells(t *testing.T) {
	mem, c := newDoorbellFixture(t, 4, 0x100)

	db, err := NewDoorbells(0x1000, c, mem)
	require.NoError(t, err)
	defer db.Unmap()

	require.Equal(t, 4, db.Len())
	assert.Equal(t, uintptr(0x1100), db.Phys(0))
	assert.Equal(t, uintptr(0x110c), db.Phys(3))

	db.Update(2, func(r *Doorbell) {
		r.SetDoorbellTarget(7)
		r.SetDoorbellStreamID(300)
	})

	assert.Equal(t, uint32(300<<16|7), mem.Load32(0x1108))
	for i, v := range db.All() {
		if i == 2 {
			assert.Equal(t, uint8(7), v.DoorbellTarget())
			assert.Equal(t, uint16(300), v.DoorbellStreamID())
			continue
		}
		assert.Equal(t, Doorbell(0), v, "doorbell %d", i)
	}

	assert.Panics(t, func() { db.Read(4) })
	assert.Panics(t, func() { db.Write(4, 0) })
}

func TestNewDoorbellArray_Misaligned(t *testing.T) {
	mem := sim.New(0x1000, 0x200)

	var db *mmio.Array[Doorbell]
	var fault *pkg.AlignmentFault
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			fault = r.(*pkg.AlignmentFault)
		}()
		db, _ = NewDoorbellArray(0x1000, 0x101, 4, mem)
	}()

	assert.Nil(t, db)
	assert.Equal(t, uintptr(0x1101), fault.Addr)
	assert.Equal(t, uintptr(4), fault.Align)
	assert.ErrorIs(t, fault, pkg.ErrMisaligned)
	assert.Equal(t, 0, mem.Mapped())
}

func TestNewDoorbells_ReservedOffsetBits(t *testing.T) {
	// DBOFF bits 0..1 are reserved; a controller setting them still
	// places the array on a dword boundary.
	mem, c := newDoorbellFixture(t, 2, 0x103)

	db, err := NewDoorbells(0x1000, c, mem)
	require.NoError(t, err)
	defer db.Unmap()
	assert.Equal(t, uintptr(0x1100), db.Phys(0))
}

func TestNewDoorbells_NoSlots(t *testing.T) {
	mem, c := newDoorbellFixture(t, 0, 0x100)

	db, err := NewDoorbells(0x1000, c, mem)
	require.NoError(t, err)
	assert.Equal(t, 0, db.Len())
	assert.Panics(t, func() { db.Read(0) })
}

func TestNewDoorbells_OutsideWindow(t *testing.T) {
	mem, c := newDoorbellFixture(t, 255, 0x100)

	_, err := NewDoorbells(0x1000, c, mem)
	assert.ErrorIs(t, err, pkg.ErrMap)
	assert.ErrorIs(t, err, pkg.ErrOutOfRange)
}
