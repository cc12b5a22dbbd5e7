package mmio

import (
	"sync/atomic"
	"unsafe"
)

// sizeOf returns the size of W in bytes.
func sizeOf[W Word]() uintptr {
	var w W
	return unsafe.Sizeof(w)
}

// Load performs a volatile load of the register at p.
//
// Atomic loads are never elided, cached in registers, or reordered with
// other atomic operations by the Go compiler, which is the property MMIO
// requires. p must be naturally aligned for W.
func Load[W Word](p unsafe.Pointer) W {
	if sizeOf[W]() == 8 {
		return W(atomic.LoadUint64((*uint64)(p)))
	}
	return W(atomic.LoadUint32((*uint32)(p)))
}

// Store performs a volatile store of v to the register at p.
// p must be naturally aligned for W.
func Store[W Word](p unsafe.Pointer, v W) {
	if sizeOf[W]() == 8 {
		atomic.StoreUint64((*uint64)(p), uint64(v))
		return
	}
	atomic.StoreUint32((*uint32)(p), uint32(v))
}
