package xhci

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softxhci/host/hal/sim"
	"github.com/ardnew/softxhci/pkg"
)

// =============================================================================
// Registers Tests
// =============================================================================

func TestNew(t *testing.T) {
	cfg := SimConfig{MaxSlots: 16, MaxPorts: 2, MaxIntrs: 2}
	mem, err := cfg.Memory()
	require.NoError(t, err)
	base := cfg.MMIOBase()

	r, err := New(base, mem)
	require.NoError(t, err)

	assert.Equal(t, base, r.Base)
	assert.Equal(t, 16, r.Doorbells.Len())
	assert.Equal(t, 2, r.Ports.Len())
	assert.Equal(t, 2, r.Runtime.Len())
	assert.Equal(t, base+DefaultSimDBOff, r.Doorbells.Phys(0))
	assert.True(t, r.Operational.USBSts.Read().HCHalted())

	// Ring the command doorbell.
	r.Doorbells.Write(0, 0)
	r.Doorbells.Update(1, func(d *Doorbell) { d.SetDoorbellTarget(1) })
	assert.Equal(t, uint32(1), mem.Load32(base+DefaultSimDBOff+4))

	require.NoError(t, r.Close())
	assert.Equal(t, 0, mem.Mapped())
	assert.NoError(t, r.Close(), "second Close returns the first result")
}

func TestNew_PartialFailure(t *testing.T) {
	cfg := SimConfig{Base: 0x1000, MaxSlots: 8, DBOff: 0x3000}
	full, err := cfg.Memory()
	require.NoError(t, err)

	// Copy the capability block into a window too small for the doorbells.
	mem := sim.New(0x1000, 0x2100)
	for off := uintptr(0); off < CapabilitySize; off += 4 {
		mem.Store32(0x1000+off, full.Load32(0x1000+off))
	}

	r, err := New(0x1000, mem)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, pkg.ErrMap)
	assert.ErrorIs(t, err, pkg.ErrOutOfRange)
	assert.Equal(t, 0, mem.Mapped(), "every mapping released")
}

// skewMapper shifts the mapping of one physical address by 2 bytes.
type skewMapper struct {
	*sim.Memory
	phys uintptr
}

func (m skewMapper) Map(phys, size uintptr) (unsafe.Pointer, error) {
	p, err := m.Memory.Map(phys, size)
	if err != nil || phys != m.phys {
		return p, err
	}
	return unsafe.Add(p, 2), nil
}

func (m skewMapper) Unmap(virt unsafe.Pointer, size uintptr) error {
	err := m.Memory.Unmap(virt, size)
	if errors.Is(err, pkg.ErrNotMapped) {
		return m.Memory.Unmap(unsafe.Add(virt, -2), size)
	}
	return err
}

// mustFault runs fn and returns the *pkg.AlignmentFault it panics with.
func mustFault(t *testing.T, fn func()) (fault *pkg.AlignmentFault) {
	t.Helper()
	defer func() {
		var ok bool
		fault, ok = recover().(*pkg.AlignmentFault)
		require.True(t, ok, "expected *pkg.AlignmentFault panic")
	}()
	fn()
	return nil
}

func TestNew_MisalignedOperational(t *testing.T) {
	var cfg SimConfig
	mem, err := cfg.Memory()
	require.NoError(t, err)
	base := cfg.MMIOBase()
	mem.Store32(base, 0x0110_0024)

	fault := mustFault(t, func() { _, _ = New(base, mem) })
	assert.Equal(t, "xhci.Operational", fault.Register)
	assert.Equal(t, base+0x24, fault.Addr)
	assert.Equal(t, uintptr(8), fault.Align)
	assert.Equal(t, 0, mem.Mapped(), "capability mappings released")
}

func TestNew_MapperBreaksAlignment(t *testing.T) {
	var cfg SimConfig
	mem, err := cfg.Memory()
	require.NoError(t, err)
	base := cfg.MMIOBase()

	// Every block maps before the doorbells fault.
	fault := mustFault(t, func() {
		_, _ = New(base, skewMapper{Memory: mem, phys: base + DefaultSimDBOff})
	})
	assert.Equal(t, "xhci.Doorbell", fault.Register)
	assert.Equal(t, 0, mem.Mapped(), "every mapping released")
}

func TestNew_ExactCounts(t *testing.T) {
	cfg := SimConfig{ExactCounts: true}
	mem, err := cfg.Memory()
	require.NoError(t, err)

	r, err := New(cfg.MMIOBase(), mem)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 0, r.Doorbells.Len())
	assert.Equal(t, 0, r.Ports.Len())
	assert.Equal(t, 0, r.Runtime.Len())
	assert.True(t, r.Operational.USBSts.Read().HCHalted())
}

// =============================================================================
// SimConfig Tests
// =============================================================================

func TestSimConfig_Defaults(t *testing.T) {
	var cfg SimConfig
	mem, err := cfg.Memory()
	require.NoError(t, err)

	c, err := NewCapability(cfg.MMIOBase(), mem)
	require.NoError(t, err)
	defer c.Unmap()

	assert.Equal(t, uint8(DefaultSimCapLength), c.CapLength.Read().Length())
	assert.Equal(t, uint16(DefaultSimHCIVersion), c.CapLength.Read().HCIVersion())
	hcs1 := c.HCSParams1.Read()
	assert.Equal(t, uint8(DefaultSimMaxSlots), hcs1.NumberOfDeviceSlots())
	assert.Equal(t, uint16(DefaultSimMaxIntrs), hcs1.NumberOfInterrupts())
	assert.Equal(t, uint8(DefaultSimMaxPorts), hcs1.NumberOfPorts())
	assert.Equal(t, uint32(DefaultSimDBOff), c.DBOff.Read().Offset())
	assert.Equal(t, uint32(DefaultSimRTSOff), c.RTSOff.Read().Offset())
}

func TestSimConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  SimConfig
	}{
		{"caplength below capability block", SimConfig{CapLength: 0x10}},
		{"caplength off qword boundary", SimConfig{CapLength: 0x24}},
		{"doorbells over ports", SimConfig{DBOff: 0x420}},
		{"runtime over operational", SimConfig{RTSOff: 0x20}},
		{"too many interrupters", SimConfig{MaxIntrs: 0x800}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Memory()
			assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
		})
	}
}
