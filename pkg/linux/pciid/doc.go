//go:build linux

// Package pciid looks up vendor, device and class names in the PCI ID
// database (pci.ids) shipped with pciutils.
//
// # Usage
//
//	db := pciid.New()
//	db.Load()
//
//	vendor := db.LookupVendor(0x8086)        // "Intel Corporation"
//	device := db.LookupDevice(0x8086, 0xa36d)
//	class := db.LookupClass(0x0c0330)         // "XHCI"
//
// # Database Locations
//
//   - /usr/share/hwdata/pci.ids
//   - /usr/share/misc/pci.ids
//   - /usr/share/pci.ids
//
// If no database file is found, lookups return empty strings.
//
// All methods are safe for concurrent use.
package pciid
