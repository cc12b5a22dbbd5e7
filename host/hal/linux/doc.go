// Package linux provides hal.Mapper implementations for Linux user space.
//
// BAR maps a PCI memory BAR once through its sysfs resource file
// (/sys/bus/pci/devices/<addr>/resource<N>) and serves register accessors
// as windows into that mapping. DevMem maps arbitrary physical ranges through
// /dev/mem, page by page. Both use mmap(2) from golang.org/x/sys/unix and need
// no cgo.
//
// Controllers scans sysfs for PCI functions with the xHCI class code and
// reports their addresses, IDs and resources:
//
//	ctrls, err := linux.Controllers()
//	bar, err := linux.OpenBAR(ctrls[0], 0)
//	defer bar.Close()
//	regs, err := xhci.New(bar.Window().Base, bar)
//
// # Requirements
//
// Mapping a BAR or /dev/mem requires root or CAP_SYS_RAWIO. A kernel driver
// bound to the controller (usually xhci_hcd) keeps driving it; reading
// registers is harmless, writing them is not. Kernels built with
// CONFIG_STRICT_DEVMEM refuse /dev/mem mappings of device memory claimed by a
// driver.
package linux
