package sim

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/pkg"
)

// mapping identifies one live range handed out by Map.
type mapping struct {
	virt uintptr
	size uintptr
}

// Memory is a simulated physical address window backed by ordinary Go
// memory. It implements hal.Mapper.
//
// The backing store is a []uint64, so every 8-byte aligned physical address
// maps to an 8-byte aligned pointer, and 32-bit and 64-bit atomic accesses
// through mapped pointers behave as they would on a real BAR.
type Memory struct {
	window hal.Window
	words  []uint64

	mu   sync.Mutex
	live map[mapping]int
}

// New creates a zero-filled window of size bytes starting at physical
// address base. Size is rounded up to a multiple of 8.
//
// New panics if base is not 8-byte aligned.
func New(base, size uintptr) *Memory {
	if base%8 != 0 {
		panic(fmt.Sprintf("sim: base %#x not 8-byte aligned", base))
	}
	n := (size + 7) / 8
	return &Memory{
		window: hal.Window{Base: base, Size: n * 8},
		words:  make([]uint64, n),
		live:   make(map[mapping]int),
	}
}

// Window returns the simulated physical range.
func (m *Memory) Window() hal.Window {
	return m.window
}

// ptr returns the backing address of phys. The caller has checked bounds.
func (m *Memory) ptr(phys uintptr) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(m.words)), phys-m.window.Base)
}

// Map implements hal.Mapper.
func (m *Memory) Map(phys, size uintptr) (unsafe.Pointer, error) {
	if !m.window.Contains(phys, size) {
		return nil, fmt.Errorf("%w: [%#x, %#x) outside [%#x, %#x)",
			pkg.ErrOutOfRange, phys, phys+size, m.window.Base, m.window.End())
	}
	p := m.ptr(phys)

	m.mu.Lock()
	m.live[mapping{uintptr(p), size}]++
	m.mu.Unlock()

	pkg.LogDebug(pkg.ComponentMapper, "sim map",
		pkg.Addr("phys", phys), "size", size)
	return p, nil
}

// Unmap implements hal.Mapper.
func (m *Memory) Unmap(virt unsafe.Pointer, size uintptr) error {
	key := mapping{uintptr(virt), size}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.live[key]
	if !ok {
		return fmt.Errorf("%w: %#x (%d bytes)", pkg.ErrNotMapped, key.virt, size)
	}
	if n == 1 {
		delete(m.live, key)
	} else {
		m.live[key] = n - 1
	}
	return nil
}

// Mapped returns the number of live mappings.
func (m *Memory) Mapped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.live {
		total += n
	}
	return total
}

// checkWord panics unless [phys, phys+size) is inside the window and
// naturally aligned. Fixture helpers treat violations as test bugs.
func (m *Memory) checkWord(phys, size uintptr) {
	if phys%size != 0 || !m.window.Contains(phys, size) {
		panic(fmt.Sprintf("sim: %d-byte access at %#x invalid for window [%#x, %#x)",
			size, phys, m.window.Base, m.window.End()))
	}
}

// Load32 atomically reads the 32-bit word at phys.
func (m *Memory) Load32(phys uintptr) uint32 {
	m.checkWord(phys, 4)
	return atomic.LoadUint32((*uint32)(m.ptr(phys)))
}

// Store32 atomically writes the 32-bit word at phys.
func (m *Memory) Store32(phys uintptr, v uint32) {
	m.checkWord(phys, 4)
	atomic.StoreUint32((*uint32)(m.ptr(phys)), v)
}

// Load64 atomically reads the 64-bit word at phys.
func (m *Memory) Load64(phys uintptr) uint64 {
	m.checkWord(phys, 8)
	return atomic.LoadUint64((*uint64)(m.ptr(phys)))
}

// Store64 atomically writes the 64-bit word at phys.
func (m *Memory) Store64(phys uintptr, v uint64) {
	m.checkWord(phys, 8)
	atomic.StoreUint64((*uint64)(m.ptr(phys)), v)
}
