//go:build linux

package linux

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/pkg"
)

var (
	_ hal.Mapper = (*BAR)(nil)
	_ hal.Mapper = (*DevMem)(nil)
)

// =============================================================================
// BAR Tests
// =============================================================================

func openFakeBAR(t *testing.T) *BAR {
	t.Helper()
	root := writeFakeSysfs(t, fakeXHCI)
	c, err := FindController(root, fakeXHCI.addr)
	require.NoError(t, err)

	bar, err := OpenBAR(c, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bar.Close() })
	return bar
}

func TestOpenBAR(t *testing.T) {
	bar := openFakeBAR(t)
	w := bar.Window()
	assert.Equal(t, uintptr(0xfe200000), w.Base)
	assert.Equal(t, uintptr(0x10000), w.Size)
}

func TestOpenBAR_NotMemory(t *testing.T) {
	root := writeFakeSysfs(t, fakeXHCI)
	c, err := FindController(root, fakeXHCI.addr)
	require.NoError(t, err)

	_, err = OpenBAR(c, 2)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestBAR_MapWritesThrough(t *testing.T) {
	bar := openFakeBAR(t)

	p, err := bar.Map(0xfe200100, 16)
	require.NoError(t, err)
	assert.Zero(t, uintptr(p)%8, "page-aligned mapping keeps natural alignment")

	atomic.StoreUint32((*uint32)(p), 0x012c_0007)

	// The backing file sees the store.
	data, err := os.ReadFile(bar.path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x07, 0x00, 0x2c, 0x01}, data[0x100:0x104])

	require.NoError(t, bar.Unmap(p, 16))
	assert.ErrorIs(t, bar.Unmap(p, 16), pkg.ErrNotMapped)
}

func TestBAR_MapOutOfRange(t *testing.T) {
	bar := openFakeBAR(t)

	for _, r := range []struct{ phys, size uintptr }{
		{0xfe1ffffc, 4},
		{0xfe20fffc, 8},
		{0xfe210000, 4},
	} {
		_, err := bar.Map(r.phys, r.size)
		assert.ErrorIs(t, err, pkg.ErrOutOfRange, "Map(%#x, %d)", r.phys, r.size)
	}
}

func TestBAR_MapZeroLength(t *testing.T) {
	bar := openFakeBAR(t)

	for _, phys := range []uintptr{0xfe200000, 0xfe210000} {
		p, err := bar.Map(phys, 0)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
	}
}

func TestBAR_Close(t *testing.T) {
	bar := openFakeBAR(t)

	require.NoError(t, bar.Close())
	_, err := bar.Map(0xfe200000, 4)
	assert.ErrorIs(t, err, pkg.ErrClosed)
	assert.NoError(t, bar.Close())
}

// =============================================================================
// DevMem Tests
// =============================================================================

func TestDevMem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem")
	page := int64(os.Getpagesize())
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(4*page))
	require.NoError(t, f.Close())

	d, err := openDevMem(path)
	require.NoError(t, err)
	defer d.Close()

	// A range straddling a page boundary.
	phys := uintptr(page) + uintptr(page) - 4
	p, err := d.Map(phys, 8)
	require.NoError(t, err)
	atomic.StoreUint32((*uint32)(p), 0xcafe_f00d)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0d, 0xf0, 0xfe, 0xca}, data[phys:phys+4])

	require.NoError(t, d.Unmap(p, 8))
	assert.ErrorIs(t, d.Unmap(p, 8), pkg.ErrNotMapped)

	_, err = d.Map(0, 0)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestDevMem_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem")
	require.NoError(t, os.WriteFile(path, make([]byte, os.Getpagesize()), 0o600))

	d, err := openDevMem(path)
	require.NoError(t, err)
	_, err = d.Map(0x10, 4)
	require.NoError(t, err)

	require.NoError(t, d.Close(), "live mappings released")
	_, err = d.Map(0x10, 4)
	assert.ErrorIs(t, err, pkg.ErrClosed)
	assert.NoError(t, d.Close())
}
