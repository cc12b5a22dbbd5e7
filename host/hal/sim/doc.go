// Package sim provides a simulated physical address space for the xHCI
// register layer.
//
// A [Memory] stands in for a controller's MMIO BAR. It implements hal.Mapper,
// so accessors built on it perform the same volatile loads and stores they
// would perform against hardware, and test fixtures can preload or inspect
// register words with [Memory.Load32], [Memory.Store32] and the 64-bit
// variants.
//
// # Usage
//
//	mem := sim.New(0x1000, 0x1000)
//	mem.Store32(0x1004, hcsparams1)
//	regs, err := xhci.New(0x1000, mem)
//
// # Thread Safety
//
// Map, Unmap and Mapped are safe for concurrent use. Fixture loads and stores
// are atomic.
package sim
