package linux

// =============================================================================
// System Paths
// =============================================================================

// SysfsPCIPath is the base path for PCI functions in sysfs.
const SysfsPCIPath = "/sys/bus/pci/devices"

// DevMemPath is the physical memory device node.
const DevMemPath = "/dev/mem"

// =============================================================================
// PCI Class Codes
// =============================================================================

// PCI class code of a USB xHCI host controller: class 0x0c (serial bus),
// subclass 0x03 (USB), programming interface 0x30 (xHCI).
const (
	PCIClassSerialBus = 0x0c
	PCISubclassUSB    = 0x03
	PCIProgIfXHCI     = 0x30
	PCIClassXHCI      = PCIClassSerialBus<<16 | PCISubclassUSB<<8 | PCIProgIfXHCI
	PCIClassMask      = 0xffffff
)

// MaxBARs is the number of base address registers of a type 0 PCI function.
const MaxBARs = 6

// =============================================================================
// Resource Flags
// =============================================================================

// Resource flags as reported in the sysfs "resource" file
// (include/linux/ioport.h).
const (
	ResourceIO       = 0x00000100 // IORESOURCE_IO
	ResourceMem      = 0x00000200 // IORESOURCE_MEM
	ResourcePrefetch = 0x00002000 // IORESOURCE_PREFETCH
	ResourceMem64    = 0x00100000 // IORESOURCE_MEM_64
)
