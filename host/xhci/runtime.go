package xhci

import (
	"errors"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/host/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// Runtime register layout relative to the runtime base (xHCI 1.2 Section 5.5).
const (
	offMFIndex           = 0x00
	offInterrupterSets   = 0x20
	interrupterSetStride = 0x20

	offIMan   = 0x00
	offIMod   = 0x04
	offERSTSz = 0x08
	offERSTBA = 0x10
	offERDP   = 0x18
)

// =============================================================================
// MFINDEX
// =============================================================================

// MFIndex is the Microframe Index register.
type MFIndex uint32

var (
	mfIndex       = mmio.Field[uint32, uint16]{Name: "microframe_index", Lo: 0, Hi: 13, Access: mmio.AccessRO}
	mfIndexLayout = mmio.NewLayout[uint32]("xhci.MFIndex", mfIndex)
)

// Index returns the current microframe index in 125 us units.
func (r MFIndex) Index() uint16 { return mfIndex.Get(uint32(r)) }

// String enumerates every field.
func (r MFIndex) String() string { return mfIndexLayout.Format(uint32(r)) }

// =============================================================================
// IMAN
// =============================================================================

// IMan is the Interrupter Management register.
type IMan uint32

var (
	imanIP = mmio.Bit[uint32]{Name: "interrupt_pending", N: 0, Access: mmio.AccessRW1C}
	imanIE = mmio.Bit[uint32]{Name: "interrupt_enable", N: 1, Access: mmio.AccessRW}

	imanLayout = mmio.NewLayout[uint32]("xhci.IMan", imanIP, imanIE)
)

// InterruptPending reports whether the interrupt pending bit is set.
func (r IMan) InterruptPending() bool { return imanIP.Get(uint32(r)) }

// InterruptEnable reports whether the interrupt enable bit is set.
func (r IMan) InterruptEnable() bool { return imanIE.Get(uint32(r)) }

// ClearInterruptPending sets IP, which clears the pending interrupt when
// written.
func (r *IMan) ClearInterruptPending() { *r = IMan(imanIP.Set(uint32(*r), true)) }

// SetInterruptEnable sets IE.
func (r *IMan) SetInterruptEnable(v bool) { *r = IMan(imanIE.Set(uint32(*r), v)) }

// Preserved returns r with IP cleared, so that writing it back changes
// nothing.
func (r IMan) Preserved() IMan { return r & IMan(imanLayout.PreserveMask()) }

// String enumerates every field.
func (r IMan) String() string { return imanLayout.Format(uint32(r)) }

// =============================================================================
// IMOD
// =============================================================================

// IMod is the Interrupter Moderation register.
type IMod uint32

var (
	imodInterval = mmio.Field[uint32, uint16]{Name: "interrupt_moderation_interval", Lo: 0, Hi: 15, Access: mmio.AccessRW}
	imodCounter  = mmio.Field[uint32, uint16]{Name: "interrupt_moderation_counter", Lo: 16, Hi: 31, Access: mmio.AccessRW}

	imodLayout = mmio.NewLayout[uint32]("xhci.IMod", imodInterval, imodCounter)
)

// Interval returns the minimum inter-interrupt interval in 250 ns units.
func (r IMod) Interval() uint16 { return imodInterval.Get(uint32(r)) }

// Counter returns the moderation down-counter.
func (r IMod) Counter() uint16 { return imodCounter.Get(uint32(r)) }

// SetInterval sets the interrupt moderation interval field.
func (r *IMod) SetInterval(v uint16) { *r = IMod(imodInterval.Set(uint32(*r), v)) }

// SetCounter sets the interrupt moderation counter field.
func (r *IMod) SetCounter(v uint16) { *r = IMod(imodCounter.Set(uint32(*r), v)) }

// String enumerates every field.
func (r IMod) String() string { return imodLayout.Format(uint32(r)) }

// =============================================================================
// ERSTSZ
// =============================================================================

// ERSTSz is the Event Ring Segment Table Size register.
type ERSTSz uint32

var (
	erstSize     = mmio.Field[uint32, uint16]{Name: "event_ring_segment_table_size", Lo: 0, Hi: 15, Access: mmio.AccessRW}
	erstSzLayout = mmio.NewLayout[uint32]("xhci.ERSTSz", erstSize)
)

// Size returns the event ring segment table size field.
func (r ERSTSz) Size() uint16 { return erstSize.Get(uint32(r)) }

// SetSize sets the event ring segment table size field.
func (r *ERSTSz) SetSize(v uint16) { *r = ERSTSz(erstSize.Set(uint32(*r), v)) }

// String enumerates every field.
func (r ERSTSz) String() string { return erstSzLayout.Format(uint32(r)) }

// =============================================================================
// ERSTBA
// =============================================================================

// ERSTBA is the 64-bit Event Ring Segment Table Base Address register.
type ERSTBA uint64

var (
	erstbaPtr    = mmio.Field[uint64, uint64]{Name: "pointer", Lo: 6, Hi: 63, Access: mmio.AccessRW}
	erstbaLayout = mmio.NewLayout[uint64]("xhci.ERSTBA", erstbaPtr)
)

// Pointer returns the 64-byte aligned segment table address.
func (r ERSTBA) Pointer() uint64 { return erstbaPtr.Get(uint64(r)) << erstbaPtr.Lo }

// SetPointer sets the segment table address.
// It panics with a *pkg.AlignmentFault if p is not 64-byte aligned.
func (r *ERSTBA) SetPointer(p uint64) {
	checkPointer("xhci.ERSTBA", p, 64)
	*r = ERSTBA(erstbaPtr.Set(uint64(*r), p>>erstbaPtr.Lo))
}

// String enumerates every field.
func (r ERSTBA) String() string { return erstbaLayout.Format(uint64(r)) }

// =============================================================================
// ERDP
// =============================================================================

// ERDP is the 64-bit Event Ring Dequeue Pointer register.
type ERDP uint64

var (
	erdpDESI = mmio.Field[uint64, uint8]{Name: "dequeue_erst_segment_index", Lo: 0, Hi: 2, Access: mmio.AccessRW}
	erdpEHB  = mmio.Bit[uint64]{Name: "event_handler_busy", N: 3, Access: mmio.AccessRW1C}
	erdpPtr  = mmio.Field[uint64, uint64]{Name: "pointer", Lo: 4, Hi: 63, Access: mmio.AccessRW}

	erdpLayout = mmio.NewLayout[uint64]("xhci.ERDP", erdpDESI, erdpEHB, erdpPtr)
)

// DequeueSegmentIndex returns the dequeue ERST segment index field.
func (r ERDP) DequeueSegmentIndex() uint8 { return erdpDESI.Get(uint64(r)) }

// EventHandlerBusy reports whether the event handler busy bit is set.
func (r ERDP) EventHandlerBusy() bool { return erdpEHB.Get(uint64(r)) }

// SetDequeueSegmentIndex sets the dequeue ERST segment index field.
func (r *ERDP) SetDequeueSegmentIndex(v uint8) { *r = ERDP(erdpDESI.Set(uint64(*r), v)) }

// ClearEventHandlerBusy sets EHB, which clears it when written.
func (r *ERDP) ClearEventHandlerBusy() { *r = ERDP(erdpEHB.Set(uint64(*r), true)) }

// Pointer returns the 16-byte aligned dequeue pointer.
func (r ERDP) Pointer() uint64 { return erdpPtr.Get(uint64(r)) << erdpPtr.Lo }

// SetPointer sets the dequeue pointer.
// It panics with a *pkg.AlignmentFault if p is not 16-byte aligned.
func (r *ERDP) SetPointer(p uint64) {
	checkPointer("xhci.ERDP", p, 16)
	*r = ERDP(erdpPtr.Set(uint64(*r), p>>erdpPtr.Lo))
}

// String enumerates every field.
func (r ERDP) String() string { return erdpLayout.Format(uint64(r)) }

// =============================================================================
// Runtime Registers
// =============================================================================

// Runtime holds accessors for the runtime registers. The interrupter arrays
// are strided over the interrupter register sets; index i addresses
// interrupter i.
type Runtime struct {
	MFIndex *mmio.ReadOnly[MFIndex]
	IMan    *mmio.Array[IMan]
	IMod    *mmio.Array[IMod]
	ERSTSz  *mmio.Array[ERSTSz]
	ERSTBA  *mmio.Array[ERSTBA]
	ERDP    *mmio.Array[ERDP]
}

// RuntimeBase returns the physical address of the runtime registers.
func RuntimeBase(mmioBase uintptr, c *Capability) uintptr {
	return mmioBase + uintptr(c.RTSOff.Read().Offset())
}

// NewRuntime maps MFINDEX and the MaxIntrs interrupter register sets located
// by RTSOFF.
//
// NewRuntime panics with a *pkg.AlignmentFault if the runtime base is not
// 8-byte aligned. The caller must ensure only one Runtime exists per
// controller.
func NewRuntime(mmioBase uintptr, c *Capability, m hal.Mapper) (rt *Runtime, err error) {
	base := RuntimeBase(mmioBase, c)
	n := int(c.HCSParams1.Read().NumberOfInterrupts())
	sets := base + offInterrupterSets
	checkPointer("xhci.Runtime", uint64(base), 8)
	rt = new(Runtime)
	defer func() {
		if fault := recover(); fault != nil {
			_ = rt.Unmap()
			panic(fault)
		}
		if err != nil {
			_ = rt.Unmap()
			rt = nil
		}
	}()

	if rt.MFIndex, err = mmio.NewReadOnly[MFIndex](base+offMFIndex, m); err != nil {
		return
	}
	if rt.IMan, err = mmio.NewStridedArray[IMan](sets+offIMan, n, interrupterSetStride, m); err != nil {
		return
	}
	if rt.IMod, err = mmio.NewStridedArray[IMod](sets+offIMod, n, interrupterSetStride, m); err != nil {
		return
	}
	if rt.ERSTSz, err = mmio.NewStridedArray[ERSTSz](sets+offERSTSz, n, interrupterSetStride, m); err != nil {
		return
	}
	if rt.ERSTBA, err = mmio.NewStridedArray[ERSTBA](sets+offERSTBA, n, interrupterSetStride, m); err != nil {
		return
	}
	if rt.ERDP, err = mmio.NewStridedArray[ERDP](sets+offERDP, n, interrupterSetStride, m); err != nil {
		return
	}

	pkg.LogDebug(pkg.ComponentRegisters, "runtime registers mapped",
		pkg.Addr("base", base), "interrupters", n)
	return rt, nil
}

// Len returns the number of interrupters.
func (rt *Runtime) Len() int { return rt.IMan.Len() }

// Unmap releases every runtime register mapping.
func (rt *Runtime) Unmap() error {
	var errs []error
	for _, u := range []unmapper{rt.MFIndex, rt.IMan, rt.IMod, rt.ERSTSz, rt.ERSTBA, rt.ERDP} {
		errs = append(errs, u.Unmap())
	}
	return errors.Join(errs...)
}
