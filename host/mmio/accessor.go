package mmio

import (
	"fmt"
	"iter"
	"unsafe"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/pkg"
)

// noCopy may be embedded into structs which must not be copied after first
// use. go vet's copylocks check reports copies of values containing it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// registerName returns the type name used in alignment faults and logs.
func registerName[T Word]() string {
	var v T
	return fmt.Sprintf("%T", v)
}

// checkAlign panics with an *AlignmentFault if addr is not a multiple of
// align.
func checkAlign(name string, addr, align uintptr) {
	if addr%align == 0 {
		return
	}
	fault := &pkg.AlignmentFault{Register: name, Addr: addr, Align: align}
	pkg.LogError(pkg.ComponentMMIO, "alignment fault",
		"register", name, pkg.Addr("addr", addr), "align", align)
	panic(fault)
}

// mapRange maps size bytes at phys and verifies the mapper kept the
// alignment of phys.
func mapRange(name string, m hal.Mapper, phys, size, align uintptr) (unsafe.Pointer, error) {
	p, err := m.Map(phys, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s at %#x (%d bytes): %w", pkg.ErrMap, name, phys, size, err)
	}
	if uintptr(p)%align != 0 {
		if err := m.Unmap(p, size); err != nil {
			pkg.LogWarn(pkg.ComponentMMIO, "release of misaligned mapping failed",
				"register", name, pkg.Addr("phys", phys), "error", err)
		}
		checkAlign(name, uintptr(p), align)
	}
	return p, nil
}

// =============================================================================
// Scalar Accessors
// =============================================================================

// register is the state shared by the scalar accessors.
type register[T Word] struct {
	_      noCopy
	ptr    unsafe.Pointer
	phys   uintptr
	mapper hal.Mapper
}

func newRegister[T Word](r *register[T], phys uintptr, m hal.Mapper) error {
	name := registerName[T]()
	size := sizeOf[T]()
	checkAlign(name, phys, size)
	p, err := mapRange(name, m, phys, size, size)
	if err != nil {
		return err
	}
	r.ptr, r.phys, r.mapper = p, phys, m
	pkg.LogDebug(pkg.ComponentMMIO, "register mapped",
		"register", name, pkg.Addr("phys", phys))
	return nil
}

// Read performs a volatile load of the register.
func (r *register[T]) Read() T {
	return Load[T](r.ptr)
}

// Phys returns the register's physical address.
func (r *register[T]) Phys() uintptr {
	return r.phys
}

// unmap releases the register's mapping.
func (r *register[T]) unmap() error {
	if r.ptr == nil {
		return nil
	}
	err := r.mapper.Unmap(r.ptr, sizeOf[T]())
	r.ptr = nil
	return err
}

// ReadOnly is an accessor for a single read-only register.
type ReadOnly[T Word] struct {
	register[T]
}

// NewReadOnly maps the register of type T at phys.
//
// NewReadOnly panics with a *pkg.AlignmentFault if phys is not a multiple of
// the size of T. It returns an error only if the mapper fails.
//
// The caller must ensure no other accessor covers the same address range for
// the lifetime of the returned accessor.
func NewReadOnly[T Word](phys uintptr, m hal.Mapper) (*ReadOnly[T], error) {
	r := new(ReadOnly[T])
	if err := newRegister(&r.register, phys, m); err != nil {
		return nil, err
	}
	return r, nil
}

// Unmap releases the register's mapping. The accessor must not be used
// afterward. Unmap of a nil accessor does nothing.
func (r *ReadOnly[T]) Unmap() error {
	if r == nil {
		return nil
	}
	return r.unmap()
}

// ReadWrite is an accessor for a single read-write register.
type ReadWrite[T Word] struct {
	register[T]
}

// NewReadWrite maps the register of type T at phys.
//
// NewReadWrite panics with a *pkg.AlignmentFault if phys is not a multiple of
// the size of T. It returns an error only if the mapper fails.
//
// The caller must ensure no other accessor covers the same address range for
// the lifetime of the returned accessor.
func NewReadWrite[T Word](phys uintptr, m hal.Mapper) (*ReadWrite[T], error) {
	r := new(ReadWrite[T])
	if err := newRegister(&r.register, phys, m); err != nil {
		return nil, err
	}
	return r, nil
}

// Write performs a volatile store of v to the register.
func (r *ReadWrite[T]) Write(v T) {
	Store(r.ptr, v)
}

// Update reads the register, applies f, and writes the result back as a
// whole word. Update is not atomic with respect to the hardware or other
// goroutines.
func (r *ReadWrite[T]) Update(f func(*T)) {
	v := r.Read()
	f(&v)
	r.Write(v)
}

// Unmap releases the register's mapping. The accessor must not be used
// afterward. Unmap of a nil accessor does nothing.
func (r *ReadWrite[T]) Unmap() error {
	if r == nil {
		return nil
	}
	return r.unmap()
}

// =============================================================================
// Array Accessor
// =============================================================================

// Array is a bounds-checked accessor for a sequence of registers of type T
// located at a fixed stride in physical memory.
//
// An Array is the only handle to its address range. It is handed out by
// pointer and must not be copied.
type Array[T Word] struct {
	_      noCopy
	base   unsafe.Pointer
	phys   uintptr
	n      int
	stride uintptr
	size   uintptr
	mapper hal.Mapper
}

// NewArray maps n contiguous registers of type T starting at phys.
//
// NewArray panics with a *pkg.AlignmentFault if phys is not a multiple of the
// size of T; no accessor is returned. It returns an error if n is negative or
// the mapper fails.
//
// The caller must ensure no other accessor covers the same address range for
// the lifetime of the returned accessor. Violating this is undetected and
// leads to conflicting hardware accesses.
func NewArray[T Word](phys uintptr, n int, m hal.Mapper) (*Array[T], error) {
	return NewStridedArray[T](phys, n, sizeOf[T](), m)
}

// NewStridedArray maps n registers of type T, the first at phys and each
// following one stride bytes after the previous. It serves registers that
// repeat inside larger register sets, such as PORTSC within the port
// register sets.
//
// NewStridedArray panics with a *pkg.AlignmentFault if phys or stride is not
// a multiple of the size of T, and returns an error if stride is smaller than
// T. Ownership rules are those of NewArray; for
// strided arrays they cover only the registers of type T, not the gaps.
func NewStridedArray[T Word](phys uintptr, n int, stride uintptr, m hal.Mapper) (*Array[T], error) {
	name := registerName[T]()
	size := sizeOf[T]()
	if n < 0 {
		return nil, fmt.Errorf("%w: %s array length %d", pkg.ErrInvalidParameter, name, n)
	}
	if stride < size {
		return nil, fmt.Errorf("%w: %s stride %d below register size %d",
			pkg.ErrInvalidParameter, name, stride, size)
	}
	checkAlign(name, phys, size)
	checkAlign(name, stride, size)

	a := &Array[T]{phys: phys, n: n, stride: stride, mapper: m}
	if n == 0 {
		pkg.LogDebug(pkg.ComponentMMIO, "empty array", "register", name,
			pkg.Addr("phys", phys))
		return a, nil
	}
	a.size = stride*uintptr(n-1) + size
	p, err := mapRange(name, m, phys, a.size, size)
	if err != nil {
		return nil, err
	}
	a.base = p
	pkg.LogDebug(pkg.ComponentMMIO, "array mapped", "register", name,
		pkg.Addr("phys", phys), "len", n, "stride", stride)
	return a, nil
}

// Len returns the number of elements.
func (a *Array[T]) Len() int {
	return a.n
}

// at returns a pointer to element i, panicking if i is out of range.
func (a *Array[T]) at(i int) unsafe.Pointer {
	if uint(i) >= uint(a.n) {
		panic(fmt.Sprintf("mmio: %s index %d out of range [0:%d]", registerName[T](), i, a.n))
	}
	return unsafe.Add(a.base, uintptr(i)*a.stride)
}

// Read performs a volatile load of element i.
// Read panics if i is out of range.
func (a *Array[T]) Read(i int) T {
	return Load[T](a.at(i))
}

// Write performs a volatile store of v to element i.
// Write panics if i is out of range.
func (a *Array[T]) Write(i int, v T) {
	Store(a.at(i), v)
}

// Update reads element i, applies f, and writes the result back as a whole
// word. Concurrent Updates of the same index must be serialized by the
// caller.
func (a *Array[T]) Update(i int, f func(*T)) {
	p := a.at(i)
	v := Load[T](p)
	f(&v)
	Store(p, v)
}

// Phys returns the physical address of element i.
// Phys panics if i is out of range.
func (a *Array[T]) Phys(i int) uintptr {
	a.at(i)
	return a.phys + uintptr(i)*a.stride
}

// All returns an iterator over index and current value of every element,
// reading each element once.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < a.n; i++ {
			if !yield(i, a.Read(i)) {
				return
			}
		}
	}
}

// Unmap releases the array's mapping. After Unmap the array has no elements.
// Unmap of a nil array does nothing.
func (a *Array[T]) Unmap() error {
	if a == nil {
		return nil
	}
	if a.base == nil {
		a.n = 0
		return nil
	}
	err := a.mapper.Unmap(a.base, a.size)
	a.base, a.n = nil, 0
	return err
}
