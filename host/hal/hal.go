package hal

import (
	"unsafe"
)

// Mapper translates a physical (or bus) address range into a range the
// running program can load from and store to.
//
// The register layer supplies only addresses and sizes; it never interprets
// the mapping strategy. A Mapper owns the lifetime of every range it returns:
// discarding an accessor does not unmap its range, only an explicit Unmap
// does.
//
// Implementations must preserve the low-order address bits of phys in the
// returned pointer, so that a naturally aligned register stays naturally
// aligned after mapping.
type Mapper interface {
	// Map makes size bytes starting at phys accessible and returns a pointer
	// to the byte at phys.
	Map(phys, size uintptr) (unsafe.Pointer, error)

	// Unmap releases a range previously returned by Map.
	Unmap(virt unsafe.Pointer, size uintptr) error
}

// Identity is a Mapper for environments where physical addresses are directly
// addressable, such as firmware or bare-metal targets with MMU identity maps.
//
// Identity must not be used from a hosted operating system process: the
// returned pointers refer to memory the process does not own.
type Identity struct{}

// Map returns phys as a pointer.
func (Identity) Map(phys, size uintptr) (unsafe.Pointer, error) {
	return unsafe.Pointer(phys), nil
}

// Unmap does nothing.
func (Identity) Unmap(unsafe.Pointer, uintptr) error {
	return nil
}

// Window describes a contiguous physical address range.
type Window struct {
	Base uintptr // First physical address
	Size uintptr // Length in bytes
}

// Contains reports whether [phys, phys+size) lies inside the window.
func (w Window) Contains(phys, size uintptr) bool {
	if phys < w.Base {
		return false
	}
	off := phys - w.Base
	return off <= w.Size && size <= w.Size-off
}

// End returns the first physical address past the window.
func (w Window) End() uintptr {
	return w.Base + w.Size
}
