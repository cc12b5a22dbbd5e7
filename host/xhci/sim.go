package xhci

import (
	"fmt"

	"github.com/ardnew/softxhci/host/hal/sim"
	"github.com/ardnew/softxhci/pkg"
)

// Defaults applied by SimConfig for zero fields.
const (
	DefaultSimBase       = 0xfe00_0000
	DefaultSimCapLength  = 0x20
	DefaultSimHCIVersion = 0x0110
	DefaultSimMaxSlots   = 32
	DefaultSimMaxIntrs   = 1
	DefaultSimMaxPorts   = 4
	DefaultSimRTSOff     = 0x2000
	DefaultSimDBOff      = 0x3000
)

// SimConfig describes a simulated controller: the capability register values
// and the physical window they live in. Zero fields take the DefaultSim
// values, except that the slot, port and interrupter counts are used as given
// when ExactCounts is set.
type SimConfig struct {
	Base       uintptr
	CapLength  uint8
	HCIVersion uint16
	MaxSlots   uint8
	MaxIntrs   uint16
	MaxPorts   uint8
	DBOff      uint32
	RTSOff     uint32
	HCCParams1 HCCParams1

	ExactCounts bool
}

func (c SimConfig) withDefaults() SimConfig {
	if c.Base == 0 {
		c.Base = DefaultSimBase
	}
	if c.CapLength == 0 {
		c.CapLength = DefaultSimCapLength
	}
	if c.HCIVersion == 0 {
		c.HCIVersion = DefaultSimHCIVersion
	}
	if c.DBOff == 0 {
		c.DBOff = DefaultSimDBOff
	}
	if c.RTSOff == 0 {
		c.RTSOff = DefaultSimRTSOff
	}
	if c.ExactCounts {
		return c
	}
	if c.MaxSlots == 0 {
		c.MaxSlots = DefaultSimMaxSlots
	}
	if c.MaxIntrs == 0 {
		c.MaxIntrs = DefaultSimMaxIntrs
	}
	if c.MaxPorts == 0 {
		c.MaxPorts = DefaultSimMaxPorts
	}
	return c
}

// region is a half-open byte range relative to the MMIO base.
type region struct {
	name       string
	start, end uintptr
}

// regions returns the register blocks the configuration places, in address
// order of declaration.
func (c SimConfig) regions() []region {
	op := uintptr(c.CapLength)
	ports := op + offPortSets
	rt := uintptr(c.RTSOff)
	db := uintptr(c.DBOff)
	return []region{
		{"capability", 0, CapabilitySize},
		{"operational", op, op + offConfig + 4},
		{"ports", ports, ports + portSetStride*uintptr(c.MaxPorts)},
		{"runtime", rt, rt + offInterrupterSets + interrupterSetStride*uintptr(c.MaxIntrs)},
		{"doorbells", db, db + 4*uintptr(c.MaxSlots)},
	}
}

// Memory builds a simulated physical window holding the configured register
// file in its reset state: capability registers encoded from c, PAGESIZE
// reporting 4 KiB pages and USBSTS reporting the controller halted.
//
// Memory returns an error wrapping pkg.ErrInvalidParameter if two register
// blocks overlap, a field does not fit its register, or CAPLENGTH would place
// the operational registers off a qword boundary.
func (c SimConfig) Memory() (*sim.Memory, error) {
	c = c.withDefaults()
	c.DBOff &= uint32(dbOffset.Mask())
	c.RTSOff &= uint32(rtsOffset.Mask())
	if c.MaxIntrs > uint16(hcs1MaxIntrs.Mask()>>hcs1MaxIntrs.Lo) {
		return nil, fmt.Errorf("%w: %d interrupters exceed HCSPARAMS1", pkg.ErrInvalidParameter, c.MaxIntrs)
	}
	if c.CapLength < CapabilitySize {
		return nil, fmt.Errorf("%w: caplength %#x below capability block size", pkg.ErrInvalidParameter, c.CapLength)
	}
	if c.CapLength%8 != 0 {
		return nil, fmt.Errorf("%w: caplength %#x not a multiple of 8", pkg.ErrInvalidParameter, c.CapLength)
	}

	rs := c.regions()
	var size uintptr
	for i, a := range rs {
		for _, b := range rs[i+1:] {
			if a.start < b.end && b.start < a.end && a.end > a.start && b.end > b.start {
				return nil, fmt.Errorf("%w: %s [%#x, %#x) overlaps %s [%#x, %#x)",
					pkg.ErrInvalidParameter, a.name, a.start, a.end, b.name, b.start, b.end)
			}
		}
		size = max(size, a.end)
	}

	mem := sim.New(c.Base, size)
	base := c.Base

	var capLen uint32
	capLen = capLength.Set(capLen, c.CapLength)
	capLen = capHCIVersion.Set(capLen, c.HCIVersion)
	mem.Store32(base+offCapLength, capLen)

	var hcs1 uint32
	hcs1 = hcs1MaxSlots.Set(hcs1, c.MaxSlots)
	hcs1 = hcs1MaxIntrs.Set(hcs1, c.MaxIntrs)
	hcs1 = hcs1MaxPorts.Set(hcs1, c.MaxPorts)
	mem.Store32(base+offHCSParams1, hcs1)

	mem.Store32(base+offHCCParams1, uint32(c.HCCParams1))
	mem.Store32(base+offDBOff, c.DBOff)
	mem.Store32(base+offRTSOff, c.RTSOff)

	op := base + uintptr(c.CapLength)
	mem.Store32(op+offUSBSts, uint32(stsHCH.Set(0, true)))
	mem.Store32(op+offPageSize, uint32(pageSizeBits.Set(0, 1)))

	pkg.LogDebug(pkg.ComponentMapper, "simulated controller",
		pkg.Addr("base", base), "size", size,
		"slots", c.MaxSlots, "ports", c.MaxPorts, "interrupters", c.MaxIntrs)
	return mem, nil
}

// MMIOBase returns the configured MMIO base, applying the default.
func (c SimConfig) MMIOBase() uintptr {
	return c.withDefaults().Base
}
