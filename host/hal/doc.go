// Package hal defines the address-mapping boundary between the xHCI register
// layer and the platform.
//
// The register layer never dereferences a physical address directly. It asks a
// [Mapper] to make a physical range accessible and then performs volatile
// loads and stores through the returned pointer. Platform code decides what
// "accessible" means:
//
//   - [Identity] for firmware and bare-metal targets
//   - sim.Memory for a simulated controller in ordinary Go memory
//   - linux.BAR for a PCI BAR mapped through sysfs
//   - linux.DevMem for page-granular /dev/mem windows
//
// # Implementing a Mapper
//
// To implement a Mapper for a new platform:
//  1. Return a pointer whose low-order bits match phys
//  2. Report ranges the platform cannot map with an error wrapping pkg.ErrMap
//     or pkg.ErrOutOfRange
//  3. Keep the backing memory alive until Unmap
package hal
