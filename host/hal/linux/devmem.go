//go:build linux

package linux

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/softxhci/pkg"
)

// DevMem maps physical memory through /dev/mem, one page-granular mapping per
// Map call. It is the mapper of last resort for controllers not exposed as
// PCI functions. DevMem is safe for concurrent use.
type DevMem struct {
	path     string
	f        *os.File
	pageSize uintptr

	mu   sync.Mutex
	live map[mapping][]byte
}

// OpenDevMem opens DevMemPath.
func OpenDevMem() (*DevMem, error) {
	return openDevMem(DevMemPath)
}

func openDevMem(path string) (*DevMem, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	return &DevMem{
		path:     path,
		f:        f,
		pageSize: uintptr(os.Getpagesize()),
		live:     make(map[mapping][]byte),
	}, nil
}

// Map implements hal.Mapper.
func (d *DevMem) Map(phys, size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-length mapping at %#x", pkg.ErrInvalidParameter, phys)
	}
	off := phys % d.pageSize
	start := phys - off
	length := (off + size + d.pageSize - 1) &^ (d.pageSize - 1)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrClosed, d.path)
	}

	mem, err := unix.Mmap(int(d.f.Fd()), int64(start), int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %#x (%d bytes): %w", start, length, err)
	}
	p := unsafe.Pointer(&mem[off])
	d.live[mapping{uintptr(p), size}] = mem

	pkg.LogDebug(pkg.ComponentMapper, "devmem map",
		pkg.Addr("phys", phys), "size", size, "pages", length/d.pageSize)
	return p, nil
}

// Unmap implements hal.Mapper.
func (d *DevMem) Unmap(virt unsafe.Pointer, size uintptr) error {
	key := mapping{uintptr(virt), size}

	d.mu.Lock()
	defer d.mu.Unlock()

	mem, ok := d.live[key]
	if !ok {
		return fmt.Errorf("%w: %#x (%d bytes)", pkg.ErrNotMapped, key.virt, size)
	}
	delete(d.live, key)
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("munmap %#x: %w", key.virt, err)
	}
	return nil
}

// Close releases every live mapping and closes the device.
func (d *DevMem) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}

	var errs []error
	for key, mem := range d.live {
		if err := unix.Munmap(mem); err != nil {
			errs = append(errs, fmt.Errorf("munmap %#x: %w", key.virt, err))
		}
	}
	clear(d.live)
	errs = append(errs, d.f.Close())
	d.f = nil
	return errors.Join(errs...)
}
