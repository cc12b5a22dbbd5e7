package xhci

import (
	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/host/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// Doorbell is one element of the Doorbell Array (xHCI 1.2 Section 5.6).
//
// The zero value is the reset state.
type Doorbell uint32

var (
	dbTarget   = mmio.Field[uint32, uint8]{Name: "doorbell_target", Lo: 0, Hi: 7, Access: mmio.AccessRW}
	dbStreamID = mmio.Field[uint32, uint16]{Name: "doorbell_stream_id", Lo: 16, Hi: 31, Access: mmio.AccessRW}

	doorbellLayout = mmio.NewLayout[uint32]("xhci.Doorbell", dbTarget, dbStreamID)
)

// DoorbellTarget returns the Doorbell Target field.
func (r Doorbell) DoorbellTarget() uint8 { return dbTarget.Get(uint32(r)) }

// SetDoorbellTarget sets the Doorbell Target field.
func (r *Doorbell) SetDoorbellTarget(v uint8) { *r = Doorbell(dbTarget.Set(uint32(*r), v)) }

// DoorbellStreamID returns the Doorbell Stream ID field.
func (r Doorbell) DoorbellStreamID() uint16 { return dbStreamID.Get(uint32(r)) }

// SetDoorbellStreamID sets the Doorbell Stream ID field.
func (r *Doorbell) SetDoorbellStreamID(v uint16) { *r = Doorbell(dbStreamID.Set(uint32(*r), v)) }

// String enumerates every field.
func (r Doorbell) String() string { return doorbellLayout.Format(uint32(r)) }

// NewDoorbellArray maps n doorbell registers starting offset bytes past
// mmioBase.
//
// NewDoorbellArray panics with a *pkg.AlignmentFault if mmioBase+offset is
// not 4-byte aligned.
//
// The caller must ensure that only one accessor to the Doorbell Array exists
// at a time. A second accessor is not detected and leads to conflicting
// doorbell writes.
func NewDoorbellArray(mmioBase, offset uintptr, n int, m hal.Mapper) (*mmio.Array[Doorbell], error) {
	base := mmioBase + offset
	pkg.LogDebug(pkg.ComponentRegisters, "doorbell array",
		pkg.Addr("base", base), "slots", n)
	return mmio.NewArray[Doorbell](base, n, m)
}

// NewDoorbells maps the Doorbell Array located by the capability registers:
// DBOFF gives its offset from mmioBase and HCSPARAMS1 the number of device
// slots. The capability registers are read once, here.
//
// Panics and ownership rules are those of NewDoorbellArray.
func NewDoorbells(mmioBase uintptr, c *Capability, m hal.Mapper) (*mmio.Array[Doorbell], error) {
	offset := uintptr(c.DBOff.Read().Offset())
	slots := int(c.HCSParams1.Read().NumberOfDeviceSlots())
	return NewDoorbellArray(mmioBase, offset, slots, m)
}
