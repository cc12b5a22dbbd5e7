package xhci

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/host/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// unmapper is implemented by every accessor and register group.
type unmapper interface {
	Unmap() error
}

// checkPointer panics with a *pkg.AlignmentFault if p is not a multiple of
// align.
func checkPointer(register string, p uint64, align uintptr) {
	if p%uint64(align) == 0 {
		return
	}
	pkg.LogError(pkg.ComponentRegisters, "misaligned pointer",
		"register", register, pkg.Addr("addr", p), "align", align)
	panic(&pkg.AlignmentFault{Register: register, Addr: uintptr(p), Align: align})
}

// checkBlocks panics with a *pkg.AlignmentFault if a block located by c is
// misaligned. The port register sets share the alignment of the operational
// base.
func checkBlocks(mmioBase uintptr, c *Capability) {
	checkPointer("xhci.Operational", uint64(OperationalBase(mmioBase, c)), 8)
	checkPointer("xhci.Runtime", uint64(RuntimeBase(mmioBase, c)), 8)
	checkPointer("xhci.Doorbell", uint64(mmioBase)+uint64(c.DBOff.Read().Offset()), 4)
}

// Registers is the complete register map of one xHC.
//
// Registers owns every accessor it holds; the caller must not create other
// accessors for the same controller while it is open.
type Registers struct {
	Base        uintptr
	Capability  *Capability
	Operational *Operational
	Ports       *PortRegisterSets
	Runtime     *Runtime
	Doorbells   *mmio.Array[Doorbell]

	closeOnce sync.Once
	closeErr  error
}

// New maps the whole register file of the controller at mmioBase. The
// capability registers are mapped first and locate every other block.
//
// New panics with a *pkg.AlignmentFault if any block is misaligned. Every
// block base is checked before anything past the capability registers is
// mapped. On error or panic every mapping made so far is released.
func New(mmioBase uintptr, m hal.Mapper) (r *Registers, err error) {
	r = &Registers{Base: mmioBase}
	defer func() {
		if fault := recover(); fault != nil {
			_ = r.unmap()
			panic(fault)
		}
		if err != nil {
			_ = r.unmap()
			r = nil
		}
	}()

	if r.Capability, err = NewCapability(mmioBase, m); err != nil {
		return
	}
	checkBlocks(mmioBase, r.Capability)
	if r.Operational, err = NewOperational(mmioBase, r.Capability, m); err != nil {
		return
	}
	if r.Ports, err = NewPortRegisterSets(mmioBase, r.Capability, m); err != nil {
		return
	}
	if r.Runtime, err = NewRuntime(mmioBase, r.Capability, m); err != nil {
		return
	}
	if r.Doorbells, err = NewDoorbells(mmioBase, r.Capability, m); err != nil {
		return
	}

	hcs1 := r.Capability.HCSParams1.Read()
	pkg.LogInfo(pkg.ComponentRegisters, "register file mapped",
		pkg.Addr("base", mmioBase),
		"version", fmt.Sprintf("%#04x", r.Capability.CapLength.Read().HCIVersion()),
		"slots", hcs1.NumberOfDeviceSlots(),
		"ports", hcs1.NumberOfPorts(),
		"interrupters", hcs1.NumberOfInterrupts())
	return r, nil
}

// unmap releases every group in reverse order of mapping. Nil groups are
// skipped.
func (r *Registers) unmap() error {
	var errs []error
	if r.Doorbells != nil {
		errs = append(errs, r.Doorbells.Unmap())
	}
	if r.Runtime != nil {
		errs = append(errs, r.Runtime.Unmap())
	}
	if r.Ports != nil {
		errs = append(errs, r.Ports.Unmap())
	}
	if r.Operational != nil {
		errs = append(errs, r.Operational.Unmap())
	}
	if r.Capability != nil {
		errs = append(errs, r.Capability.Unmap())
	}
	return errors.Join(errs...)
}

// Close releases every mapping. Subsequent calls return the result of the
// first.
func (r *Registers) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.unmap()
		pkg.LogDebug(pkg.ComponentRegisters, "register file closed",
			pkg.Addr("base", r.Base))
	})
	return r.closeErr
}
