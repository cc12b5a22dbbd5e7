// Package xhci defines the register file of an xHCI USB host controller.
//
// Each register is a named word type (Doorbell, PortSC, CRCR, ...) with an
// accessor method per field and a setter per writable field. The types carry
// no address; they are bound to hardware through the accessors of package
// mmio. The zero value of every register type is its reset state.
//
// The register file is located in two phases. NewCapability maps the
// capability block at the MMIO base. Its values then place everything else:
//
//	c, err := xhci.NewCapability(base, mapper)
//	db, err := xhci.NewDoorbells(base, c, mapper)    // base+DBOFF, MaxSlots entries
//	op, err := xhci.NewOperational(base, c, mapper)  // base+CAPLENGTH
//	ps, err := xhci.NewPortRegisterSets(base, c, mapper)
//	rt, err := xhci.NewRuntime(base, c, mapper)      // base+RTSOFF
//
// New does all of the above and returns a Registers that releases every
// mapping on Close.
//
// # Write-one registers
//
// USBSTS, PORTSC, IMAN and ERDP contain RW1C bits, and PORTSC and CRCR
// contain RW1S bits. Writing back a value just read from such a register
// acknowledges every pending change. Use Preserved where provided, or start
// from the zero value, and apply only the Clear or Set methods intended.
//
// # Ownership
//
// Every constructor hands out the only accessor for its range. The caller
// must not construct a second accessor for the same registers while the
// first is in use; this is not detected.
package xhci
