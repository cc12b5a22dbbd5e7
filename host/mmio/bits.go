package mmio

import (
	"unsafe"
)

// Word is the storage type of a memory-mapped register.
type Word interface {
	~uint32 | ~uint64
}

// Unsigned is the value type of a multi-bit register field.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Access describes how software may touch a register field.
type Access uint8

// Field access kinds (xHCI 1.2 Section 5.1.1).
const (
	AccessRO   Access = iota // Read-only, writes are ignored
	AccessRW                 // Read-write, value is stored as written
	AccessRW1C               // Write 1 to clear, writing 0 has no effect
	AccessRW1S               // Write 1 to set, writing 0 has no effect
	AccessWO                 // Write-only, reads return an undefined value
)

// String returns the access kind abbreviation used in xHCI register tables.
func (a Access) String() string {
	switch a {
	case AccessRO:
		return "RO"
	case AccessRW:
		return "RW"
	case AccessRW1C:
		return "RW1C"
	case AccessRW1S:
		return "RW1S"
	case AccessWO:
		return "WO"
	default:
		return "unknown"
	}
}

// Writable reports whether software writes change the field.
func (a Access) Writable() bool {
	return a != AccessRO
}

// Sticky reports whether writing the field's current value back has a side
// effect (RW1C and RW1S fields).
func (a Access) Sticky() bool {
	return a == AccessRW1C || a == AccessRW1S
}

// mask returns n low-order one bits.
func mask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<n - 1
}

// widthOf returns the width of W in bits.
func widthOf[W Word]() uint {
	var w W
	return uint(unsafe.Sizeof(w)) * 8
}

// FieldSpec is the untyped description of one register field.
type FieldSpec struct {
	Name   string
	Lo, Hi uint // Inclusive bit range
	Access Access
	Flag   bool // Single-bit boolean field

	// ValueBits is the width of the Go type holding the field value.
	// Zero means unchecked.
	ValueBits uint
}

// Width returns the number of bits in the field.
func (s FieldSpec) Width() uint {
	return s.Hi - s.Lo + 1
}

// bits returns the field's bits in position.
func (s FieldSpec) bits() uint64 {
	return mask(s.Width()) << s.Lo
}

// Specifier is implemented by field declarations that can describe themselves.
type Specifier interface {
	Spec() FieldSpec
}

// Field is a multi-bit field occupying bits [Lo, Hi] of a register word W,
// read and written as a value of type V.
//
// Get and Set are pure bit manipulations:
//
//	Get: (raw >> Lo) & mask(Hi-Lo+1)
//	Set: (raw &^ (mask(Hi-Lo+1) << Lo)) | ((v & mask(Hi-Lo+1)) << Lo)
//
// Set silently discards bits of v that do not fit the field, as the hardware
// does.
type Field[W Word, V Unsigned] struct {
	Name   string
	Lo, Hi uint
	Access Access
}

// Spec implements Specifier.
func (f Field[W, V]) Spec() FieldSpec {
	var v V
	return FieldSpec{
		Name:      f.Name,
		Lo:        f.Lo,
		Hi:        f.Hi,
		Access:    f.Access,
		ValueBits: uint(unsafe.Sizeof(v)) * 8,
	}
}

// Width returns the number of bits in the field.
func (f Field[W, V]) Width() uint {
	return f.Hi - f.Lo + 1
}

// Mask returns the field's bits in position.
func (f Field[W, V]) Mask() W {
	return W(mask(f.Width()) << f.Lo)
}

// Get extracts the field from raw.
func (f Field[W, V]) Get(raw W) V {
	return V((uint64(raw) >> f.Lo) & mask(f.Width()))
}

// Set returns raw with the field replaced by v.
func (f Field[W, V]) Set(raw W, v V) W {
	m := mask(f.Width())
	r := uint64(raw)&^(m<<f.Lo) | (uint64(v)&m)<<f.Lo
	return W(r)
}

// Bit is a single-bit boolean field at bit N of a register word W.
type Bit[W Word] struct {
	Name   string
	N      uint
	Access Access
}

// Spec implements Specifier.
func (b Bit[W]) Spec() FieldSpec {
	return FieldSpec{Name: b.Name, Lo: b.N, Hi: b.N, Access: b.Access, Flag: true, ValueBits: 1}
}

// Mask returns the bit in position.
func (b Bit[W]) Mask() W {
	return W(uint64(1) << b.N)
}

// Get reports whether the bit is set in raw.
func (b Bit[W]) Get(raw W) bool {
	return raw&b.Mask() != 0
}

// Set returns raw with the bit set to v.
func (b Bit[W]) Set(raw W, v bool) W {
	if v {
		return raw | b.Mask()
	}
	return raw &^ b.Mask()
}
