package pkg

import (
	"errors"
	"fmt"
)

// Register layer errors.
var (
	// ErrMisaligned indicates a register address that violates the
	// register's natural alignment. Returned by AlignmentFault.Unwrap.
	ErrMisaligned = errors.New("misaligned register address")

	// ErrMap indicates the address mapper could not map a register range.
	ErrMap = errors.New("register range not mappable")

	// ErrOutOfRange indicates an address range outside the mapper's window.
	ErrOutOfRange = errors.New("address out of range")

	// ErrNotMapped indicates an unmap of a range that is not mapped.
	ErrNotMapped = errors.New("range not mapped")

	// ErrClosed indicates use of a mapper after Close.
	ErrClosed = errors.New("mapper closed")

	// ErrNoController indicates no xHCI controller matched a query.
	ErrNoController = errors.New("no xHCI controller")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// AlignmentFault reports a register or register array whose base address is
// not a multiple of the register's width.
//
// Accessor factories panic with an *AlignmentFault: a misaligned register
// block means the controller and the driver disagree about the hardware
// layout, and no access through it can be trusted.
type AlignmentFault struct {
	Register string  // Register type name
	Addr     uintptr // Offending physical address
	Align    uintptr // Required alignment in bytes
}

// Error implements error.
func (f *AlignmentFault) Error() string {
	return fmt.Sprintf("%s: address %#x not aligned to %d bytes",
		f.Register, f.Addr, f.Align)
}

// Unwrap returns ErrMisaligned.
func (f *AlignmentFault) Unwrap() error {
	return ErrMisaligned
}
