//go:build linux

package pciid

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ardnew/softxhci/pkg"
)

// DefaultPaths lists the standard locations for the PCI ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/pci.ids",
	"/usr/share/misc/pci.ids",
	"/usr/share/pci.ids",
}

// Database caches vendor, device and class names from the PCI ID database.
type Database struct {
	vendors map[uint16]string // VID -> vendor name
	devices map[uint32]string // (VID<<16)|DID -> device name
	classes map[uint32]string // class<<16 | subclass<<8 | prog-if, see classKey
	loaded  bool
	mu      sync.RWMutex
	paths   []string
}

// New creates a database that searches the default paths.
func New() *Database {
	return NewWithPaths(DefaultPaths)
}

// NewWithPaths creates a database that searches the specified paths.
func NewWithPaths(paths []string) *Database {
	return &Database{
		vendors: make(map[uint16]string),
		devices: make(map[uint32]string),
		classes: make(map[uint32]string),
		paths:   paths,
	}
}

// Load parses the first database file found. Load is idempotent.
//
// Returns true if the database was loaded (or already loaded), false if no
// database file could be found.
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return len(db.vendors) > 0 || len(db.classes) > 0
	}
	db.loaded = true

	for _, path := range db.paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()
		db.parse(f)
		pkg.LogDebug(pkg.ComponentCLI, "pci.ids loaded", "path", path,
			"vendors", len(db.vendors), "devices", len(db.devices))
		return true
	}
	return false
}

// classKey packs a class, subclass and programming interface. The depth in
// bits 24..25 keeps a class apart from its subclass 00.
func classKey(depth int, class, sub, progIf uint8) uint32 {
	return uint32(depth)<<24 | uint32(class)<<16 | uint32(sub)<<8 | uint32(progIf)
}

// parse reads the pci.ids format. Vendor lines are "vvvv  name", device lines
// "\tdddd  name", subsystem lines "\t\tssss ssss  name" (ignored). The class
// section starts with "C cc  name", followed by "\tss  name" subclasses and
// "\t\tpp  name" programming interfaces.
func (db *Database) parse(r io.Reader) {
	scanner := bufio.NewScanner(r)
	var (
		vid      uint16
		inVendor bool
		inClass  bool
		class    uint8
		sub      uint8
		inSub    bool
	)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		switch {
		case strings.HasPrefix(line, "C "):
			id, name, ok := splitEntry(line[2:], 2)
			inVendor, inClass, inSub = false, ok, false
			if ok {
				class = uint8(id)
				db.classes[classKey(1, class, 0, 0)] = name
			}

		case strings.HasPrefix(line, "\t\t"):
			if !inClass || !inSub {
				continue
			}
			if id, name, ok := splitEntry(line[2:], 2); ok {
				db.classes[classKey(3, class, sub, uint8(id))] = name
			}

		case line[0] == '\t':
			switch {
			case inVendor:
				if id, name, ok := splitEntry(line[1:], 4); ok {
					db.devices[uint32(vid)<<16|uint32(id)] = name
				}
			case inClass:
				id, name, ok := splitEntry(line[1:], 2)
				inSub = ok
				if ok {
					sub = uint8(id)
					db.classes[classKey(2, class, sub, 0)] = name
				}
			}

		default:
			id, name, ok := splitEntry(line, 4)
			inVendor, inClass = ok, false
			if ok {
				vid = uint16(id)
				db.vendors[vid] = name
			}
		}
	}
}

// splitEntry splits "xxxx  name" into the hexadecimal ID of width digits and
// the name.
func splitEntry(s string, width int) (uint64, string, bool) {
	if len(s) < width+2 || s[width] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(s[:width], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return id, strings.TrimLeft(s[width:], " "), true
}

// LookupVendor returns the vendor name for vid, or "" if unknown.
func (db *Database) LookupVendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// LookupDevice returns the device name for vid and did, or "" if unknown.
func (db *Database) LookupDevice(vid, did uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.devices[uint32(vid)<<16|uint32(did)]
}

// LookupClass returns the most specific name known for a 24-bit class code
// (class, subclass, programming interface), or "" if the class is unknown.
func (db *Database) LookupClass(code uint32) string {
	class, sub, progIf := uint8(code>>16), uint8(code>>8), uint8(code)

	db.mu.RLock()
	defer db.mu.RUnlock()
	if name, ok := db.classes[classKey(3, class, sub, progIf)]; ok {
		return name
	}
	if name, ok := db.classes[classKey(2, class, sub, 0)]; ok {
		return name
	}
	return db.classes[classKey(1, class, 0, 0)]
}

// IsLoaded returns true if Load has been called.
func (db *Database) IsLoaded() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.loaded
}

// VendorCount returns the number of vendors in the database.
func (db *Database) VendorCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors)
}

// DeviceCount returns the number of devices in the database.
func (db *Database) DeviceCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.devices)
}
