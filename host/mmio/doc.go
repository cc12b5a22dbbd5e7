// Package mmio provides typed, volatile access to memory-mapped registers.
//
// The package has two halves. The bit-field half ([Field], [Bit], [Layout])
// interprets a register word as named bit ranges with pure functions; it never
// touches memory. The accessor half ([ReadOnly], [ReadWrite], [Array]) binds a
// register type to a physical address through a hal.Mapper and performs every
// load and store as a single volatile access of the whole register word.
//
// # Declaring a register
//
//	type Doorbell uint32
//
//	var dbTarget = mmio.Field[uint32, uint8]{Name: "doorbell_target", Lo: 0, Hi: 7, Access: mmio.AccessRW}
//
//	func (r Doorbell) DoorbellTarget() uint8 { return dbTarget.Get(uint32(r)) }
//	func (r *Doorbell) SetDoorbellTarget(v uint8) { *r = Doorbell(dbTarget.Set(uint32(*r), v)) }
//
// # Accessing registers
//
//	db, err := mmio.NewArray[Doorbell](base, slots, mapper)
//	db.Update(2, func(r *Doorbell) { r.SetDoorbellTarget(7) })
//
// # Alignment
//
// Every factory checks that the physical base address is a multiple of the
// register width before it asks the mapper for anything. A misaligned base
// panics with a *pkg.AlignmentFault and returns no accessor.
//
// # Ownership
//
// An accessor is the sole owner of its address range. The caller must ensure
// that at most one accessor covers a given range at a time; the package does
// not detect violations. Accessors contain a no-copy marker and are only
// handed out by pointer.
//
// # Concurrency
//
// Each Read and Write is one atomic word access, so distinct elements of an
// Array, and distinct Reads and Writes of one element, may be issued from
// different goroutines. Update is a read-modify-write and must be serialized
// by the caller per element. Ordering relative to the device's internal
// processing is a protocol concern of the caller.
package mmio
