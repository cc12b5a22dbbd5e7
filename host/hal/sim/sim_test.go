package sim

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/pkg"
)

// Memory must satisfy the mapper contract.
var _ hal.Mapper = (*Memory)(nil)

func TestNew(t *testing.T) {
	m := New(0x1000, 0x13)
	w := m.Window()
	if w.Base != 0x1000 {
		t.Errorf("Base = %#x, want 0x1000", w.Base)
	}
	if w.Size != 0x18 {
		t.Errorf("Size = %#x, want 0x18 (rounded to 8)", w.Size)
	}
}

func TestNew_MisalignedBase(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New() with misaligned base should panic")
		}
	}()
	New(0x1004, 0x100)
}

func TestMap_PreservesAlignment(t *testing.T) {
	m := New(0x1000, 0x200)

	for _, phys := range []uintptr{0x1000, 0x1004, 0x1008, 0x1100, 0x11f8} {
		p, err := m.Map(phys, 8)
		if err != nil {
			t.Fatalf("Map(%#x) error = %v", phys, err)
		}
		if uintptr(p)%8 != phys%8 {
			t.Errorf("Map(%#x) = %#x, low bits not preserved", phys, uintptr(p))
		}
		if err := m.Unmap(p, 8); err != nil {
			t.Errorf("Unmap() error = %v", err)
		}
	}
}

func TestMap_OutOfRange(t *testing.T) {
	m := New(0x1000, 0x100)

	tests := []struct {
		name string
		phys uintptr
		size uintptr
	}{
		{"below", 0x0ff0, 4},
		{"straddles end", 0x10fc, 8},
		{"past end", 0x1100, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Map(tt.phys, tt.size)
			if !errors.Is(err, pkg.ErrOutOfRange) {
				t.Errorf("Map(%#x, %d) error = %v, want ErrOutOfRange", tt.phys, tt.size, err)
			}
		})
	}
}

func TestMap_SharesStorage(t *testing.T) {
	m := New(0x1000, 0x100)
	m.Store32(0x1010, 0xcafef00d)

	p, err := m.Map(0x1010, 4)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if got := *(*uint32)(p); got != 0xcafef00d {
		t.Errorf("load through mapping = %#x, want 0xcafef00d", got)
	}

	*(*uint32)(p) = 0x12345678
	if got := m.Load32(0x1010); got != 0x12345678 {
		t.Errorf("Load32() = %#x, want 0x12345678", got)
	}
	_ = m.Unmap(p, 4)
}

func TestUnmap(t *testing.T) {
	m := New(0x1000, 0x100)

	p1, _ := m.Map(0x1000, 0x20)
	p2, _ := m.Map(0x1000, 0x20)
	if got := m.Mapped(); got != 2 {
		t.Errorf("Mapped() = %d, want 2", got)
	}

	if err := m.Unmap(p1, 0x20); err != nil {
		t.Errorf("Unmap() error = %v", err)
	}
	if err := m.Unmap(p2, 0x20); err != nil {
		t.Errorf("Unmap() error = %v", err)
	}
	if got := m.Mapped(); got != 0 {
		t.Errorf("Mapped() = %d, want 0", got)
	}

	if err := m.Unmap(p1, 0x20); !errors.Is(err, pkg.ErrNotMapped) {
		t.Errorf("double Unmap() error = %v, want ErrNotMapped", err)
	}
	if err := m.Unmap(unsafe.Pointer(&m.words[1]), 4); !errors.Is(err, pkg.ErrNotMapped) {
		t.Errorf("Unmap() of unmapped range error = %v, want ErrNotMapped", err)
	}
}

func TestLoadStore64(t *testing.T) {
	m := New(0x2000, 0x40)
	m.Store64(0x2018, 0x0123456789abcdef)

	if got := m.Load64(0x2018); got != 0x0123456789abcdef {
		t.Errorf("Load64() = %#x", got)
	}
	// Little-endian halves.
	if got := m.Load32(0x2018); got != 0x89abcdef {
		t.Errorf("Load32(lo) = %#x, want 0x89abcdef", got)
	}
	if got := m.Load32(0x201c); got != 0x01234567 {
		t.Errorf("Load32(hi) = %#x, want 0x01234567", got)
	}
}

func TestFixture_InvalidAccess(t *testing.T) {
	m := New(0x1000, 0x10)

	tests := []struct {
		name string
		fn   func()
	}{
		{"misaligned 32", func() { m.Load32(0x1002) }},
		{"misaligned 64", func() { m.Store64(0x1004, 0) }},
		{"out of range", func() { m.Store32(0x1010, 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}
