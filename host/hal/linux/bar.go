//go:build linux

package linux

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/pkg"
)

// BAR maps one PCI memory BAR through its sysfs resource file and serves
// hal.Mapper requests as windows into that single mapping.
//
// Physical addresses passed to Map are bus addresses inside the BAR, as
// reported by the sysfs "resource" file. BAR is safe for concurrent use.
type BAR struct {
	window hal.Window
	path   string

	mu   sync.Mutex
	mem  []byte
	live map[mapping]int
}

// mapping identifies one range handed out by Map.
type mapping struct {
	virt uintptr
	size uintptr
}

// OpenBAR maps memory BAR index of c read-write.
func OpenBAR(c Controller, index int) (*BAR, error) {
	r, err := c.BAR(index)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(c.Path, fmt.Sprintf("resource%d", index))
	return openResource(path, r.Window())
}

// openResource maps the file at path, which backs the physical range w.
func openResource(path string, w hal.Window) (*BAR, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mem, err := unix.Mmap(int(f.Fd()), 0, int(w.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	pkg.LogDebug(pkg.ComponentMapper, "BAR mapped", "path", path,
		pkg.Addr("base", w.Base), "size", w.Size)
	return &BAR{
		window: w,
		path:   path,
		mem:    mem,
		live:   make(map[mapping]int),
	}, nil
}

// Window returns the physical range of the BAR.
func (b *BAR) Window() hal.Window {
	return b.window
}

// Map implements hal.Mapper.
func (b *BAR) Map(phys, size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-length mapping at %#x", pkg.ErrInvalidParameter, phys)
	}
	if !b.window.Contains(phys, size) {
		return nil, fmt.Errorf("%w: [%#x, %#x) outside BAR [%#x, %#x)",
			pkg.ErrOutOfRange, phys, phys+size, b.window.Base, b.window.End())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mem == nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrClosed, b.path)
	}
	p := unsafe.Pointer(&b.mem[phys-b.window.Base])
	b.live[mapping{uintptr(p), size}]++
	return p, nil
}

// Unmap implements hal.Mapper. The BAR stays mapped until Close.
func (b *BAR) Unmap(virt unsafe.Pointer, size uintptr) error {
	key := mapping{uintptr(virt), size}

	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.live[key]
	if !ok {
		return fmt.Errorf("%w: %#x (%d bytes)", pkg.ErrNotMapped, key.virt, size)
	}
	if n == 1 {
		delete(b.live, key)
	} else {
		b.live[key] = n - 1
	}
	return nil
}

// Close unmaps the BAR. Accessors still holding windows into it must not be
// used afterward; Close logs a warning if any are live.
func (b *BAR) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mem == nil {
		return nil
	}
	if len(b.live) > 0 {
		pkg.LogWarn(pkg.ComponentMapper, "closing BAR with live mappings",
			"path", b.path, "mappings", len(b.live))
	}
	err := unix.Munmap(b.mem)
	b.mem = nil
	if err != nil {
		return fmt.Errorf("munmap %s: %w", b.path, err)
	}
	return nil
}
