//go:build linux

package linux

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/pkg"
)

// =============================================================================
// PCI Function Information
// =============================================================================

// Resource is one line of a PCI function's sysfs "resource" file.
type Resource struct {
	Index int
	Start uintptr
	End   uintptr // Inclusive
	Flags uint64
}

// Size returns the length of the resource in bytes, or 0 if it is unassigned.
func (r Resource) Size() uintptr {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// IsMem reports whether the resource is memory space.
func (r Resource) IsMem() bool {
	return r.Flags&ResourceMem != 0
}

// Window returns the physical range of the resource.
func (r Resource) Window() hal.Window {
	return hal.Window{Base: r.Start, Size: r.Size()}
}

// Controller describes an xHCI PCI function discovered via sysfs.
type Controller struct {
	Addr      string // Domain:bus:device.function, e.g. 0000:00:14.0
	Path      string // Directory in sysfs
	Vendor    uint16
	Device    uint16
	Class     uint32
	Driver    string // Bound kernel driver, empty if none
	Resources []Resource
}

// BAR returns the memory resource at index i.
func (c Controller) BAR(i int) (Resource, error) {
	for _, r := range c.Resources {
		if r.Index != i {
			continue
		}
		if !r.IsMem() || r.Size() == 0 {
			return Resource{}, fmt.Errorf("%w: %s BAR%d is not an assigned memory resource",
				pkg.ErrInvalidParameter, c.Addr, i)
		}
		return r, nil
	}
	return Resource{}, fmt.Errorf("%w: %s has no BAR%d", pkg.ErrInvalidParameter, c.Addr, i)
}

// =============================================================================
// Sysfs Parsing
// =============================================================================

// Controllers returns the xHCI controllers present in SysfsPCIPath.
func Controllers() ([]Controller, error) {
	return ScanControllers(SysfsPCIPath)
}

// ScanControllers returns the xHCI controllers in the PCI device directory
// root, sorted by address. Functions whose attributes cannot be read are
// skipped.
func ScanControllers(root string) ([]Controller, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var ctrls []Controller
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		class, err := readSysfsHexUint32(filepath.Join(path, "class"))
		if err != nil || class&PCIClassMask != PCIClassXHCI {
			continue
		}

		c, err := parseController(path)
		if err != nil {
			pkg.LogWarn(pkg.ComponentMapper, "skipping PCI function",
				"addr", entry.Name(), "error", err)
			continue
		}
		ctrls = append(ctrls, c)
	}

	sort.Slice(ctrls, func(i, j int) bool { return ctrls[i].Addr < ctrls[j].Addr })
	pkg.LogDebug(pkg.ComponentMapper, "scanned PCI functions",
		"root", root, "controllers", len(ctrls))
	return ctrls, nil
}

// FindController returns the xHCI controller at the given PCI address in root.
func FindController(root, addr string) (Controller, error) {
	ctrls, err := ScanControllers(root)
	if err != nil {
		return Controller{}, err
	}
	for _, c := range ctrls {
		if c.Addr == addr {
			return c, nil
		}
	}
	return Controller{}, fmt.Errorf("%w: %s", pkg.ErrNoController, addr)
}

// parseController reads the PCI function attributes in path.
func parseController(path string) (Controller, error) {
	c := Controller{
		Addr: filepath.Base(path),
		Path: path,
	}

	class, err := readSysfsHexUint32(filepath.Join(path, "class"))
	if err != nil {
		return c, err
	}
	c.Class = class

	vendor, err := readSysfsHexUint16(filepath.Join(path, "vendor"))
	if err != nil {
		return c, err
	}
	c.Vendor = vendor

	device, err := readSysfsHexUint16(filepath.Join(path, "device"))
	if err != nil {
		return c, err
	}
	c.Device = device

	if link, err := os.Readlink(filepath.Join(path, "driver")); err == nil {
		c.Driver = filepath.Base(link)
	}

	c.Resources, err = parseResources(filepath.Join(path, "resource"))
	if err != nil {
		return c, err
	}
	return c, nil
}

// parseResources parses a sysfs "resource" file: one line per resource of
// three hexadecimal values, start, end and flags.
func parseResources(path string) ([]Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var res []Resource
	s := bufio.NewScanner(f)
	for i := 0; s.Scan(); i++ {
		fields := strings.Fields(s.Text())
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: want 3 fields, got %d", path, i+1, len(fields))
		}
		var v [3]uint64
		for j, field := range fields {
			v[j], err = parseHex(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, i+1, err)
			}
		}
		res = append(res, Resource{
			Index: i,
			Start: uintptr(v[0]),
			End:   uintptr(v[1]),
			Flags: v[2],
		})
	}
	return res, s.Err()
}

// =============================================================================
// Sysfs Read Helpers
// =============================================================================

// readSysfsString reads a string from a sysfs attribute file.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseHex parses a hexadecimal value with an optional "0x" prefix.
func parseHex(s string, bitSize int) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, bitSize)
}

// readSysfsHex reads a hexadecimal value from a sysfs attribute file.
func readSysfsHex(path string, bitSize int) (uint64, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	return parseHex(s, bitSize)
}

// readSysfsHexUint16 reads a hexadecimal uint16 from a sysfs attribute file.
func readSysfsHexUint16(path string) (uint16, error) {
	v, err := readSysfsHex(path, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// readSysfsHexUint32 reads a hexadecimal uint32 from a sysfs attribute file.
func readSysfsHexUint32(path string) (uint32, error) {
	v, err := readSysfsHex(path, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
