package xhci

import (
	"errors"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/host/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// Operational register offsets from the operational base (xHCI 1.2 Section 5.4).
const (
	offUSBCmd   = 0x00
	offUSBSts   = 0x04
	offPageSize = 0x08
	offDNCtrl   = 0x14
	offCRCR     = 0x18
	offDCBAAP   = 0x30
	offConfig   = 0x38
)

// =============================================================================
// USBCMD
// =============================================================================

// USBCmd is the USB Command register.
type USBCmd uint32

var (
	cmdRS     = mmio.Bit[uint32]{Name: "run_stop", N: 0, Access: mmio.AccessRW}
	cmdHCRST  = mmio.Bit[uint32]{Name: "host_controller_reset", N: 1, Access: mmio.AccessRW}
	cmdINTE   = mmio.Bit[uint32]{Name: "interrupter_enable", N: 2, Access: mmio.AccessRW}
	cmdHSEE   = mmio.Bit[uint32]{Name: "host_system_error_enable", N: 3, Access: mmio.AccessRW}
	cmdLHCRST = mmio.Bit[uint32]{Name: "light_host_controller_reset", N: 7, Access: mmio.AccessRW}
	cmdCSS    = mmio.Bit[uint32]{Name: "controller_save_state", N: 8, Access: mmio.AccessRW}
	cmdCRS    = mmio.Bit[uint32]{Name: "controller_restore_state", N: 9, Access: mmio.AccessRW}
	cmdEWE    = mmio.Bit[uint32]{Name: "enable_wrap_event", N: 10, Access: mmio.AccessRW}
	cmdEU3S   = mmio.Bit[uint32]{Name: "enable_u3_mfindex_stop", N: 11, Access: mmio.AccessRW}
	cmdCME    = mmio.Bit[uint32]{Name: "cem_enable", N: 13, Access: mmio.AccessRW}
	cmdETE    = mmio.Bit[uint32]{Name: "extended_tbc_enable", N: 14, Access: mmio.AccessRW}
	cmdTSCEN  = mmio.Bit[uint32]{Name: "extended_tbc_trb_status_enable", N: 15, Access: mmio.AccessRW}
	cmdVTIOE  = mmio.Bit[uint32]{Name: "vtio_enable", N: 16, Access: mmio.AccessRW}

	usbCmdLayout = mmio.NewLayout[uint32]("xhci.USBCmd",
		cmdRS, cmdHCRST, cmdINTE, cmdHSEE, cmdLHCRST, cmdCSS, cmdCRS,
		cmdEWE, cmdEU3S, cmdCME, cmdETE, cmdTSCEN, cmdVTIOE)
)

// RunStop reports whether the run/stop bit is set.
func (r USBCmd) RunStop() bool { return cmdRS.Get(uint32(r)) }

// HostControllerReset reports whether the host controller reset bit is set.
func (r USBCmd) HostControllerReset() bool { return cmdHCRST.Get(uint32(r)) }

// InterrupterEnable reports whether the interrupter enable bit is set.
func (r USBCmd) InterrupterEnable() bool { return cmdINTE.Get(uint32(r)) }

// HostSystemErrorEnable reports whether the host system error enable bit is set.
func (r USBCmd) HostSystemErrorEnable() bool { return cmdHSEE.Get(uint32(r)) }

// LightHostControllerReset reports whether the light host controller reset bit is set.
func (r USBCmd) LightHostControllerReset() bool { return cmdLHCRST.Get(uint32(r)) }

// ControllerSaveState reports whether the controller save state bit is set.
func (r USBCmd) ControllerSaveState() bool { return cmdCSS.Get(uint32(r)) }

// ControllerRestoreState reports whether the controller restore state bit is set.
func (r USBCmd) ControllerRestoreState() bool { return cmdCRS.Get(uint32(r)) }

// EnableWrapEvent reports whether the enable wrap event bit is set.
func (r USBCmd) EnableWrapEvent() bool { return cmdEWE.Get(uint32(r)) }

// EnableU3MFINDEXStop reports whether the enable U3 MFINDEX stop bit is set.
func (r USBCmd) EnableU3MFINDEXStop() bool { return cmdEU3S.Get(uint32(r)) }

// CEMEnable reports whether the CEM enable bit is set.
func (r USBCmd) CEMEnable() bool { return cmdCME.Get(uint32(r)) }

// ExtendedTBCEnable reports whether the extended TBC enable bit is set.
func (r USBCmd) ExtendedTBCEnable() bool { return cmdETE.Get(uint32(r)) }

// ExtendedTBCStatusEnable reports whether the extended TBC TRB status enable bit is set.
func (r USBCmd) ExtendedTBCStatusEnable() bool { return cmdTSCEN.Get(uint32(r)) }

// VTIOEnable reports whether the VTIO enable bit is set.
func (r USBCmd) VTIOEnable() bool { return cmdVTIOE.Get(uint32(r)) }

// SetRunStop sets or clears the run/stop bit.
func (r *USBCmd) SetRunStop(v bool) { *r = USBCmd(cmdRS.Set(uint32(*r), v)) }

// SetHostControllerReset sets or clears the host controller reset bit.
func (r *USBCmd) SetHostControllerReset(v bool) { *r = USBCmd(cmdHCRST.Set(uint32(*r), v)) }

// SetInterrupterEnable sets or clears the interrupter enable bit.
func (r *USBCmd) SetInterrupterEnable(v bool) { *r = USBCmd(cmdINTE.Set(uint32(*r), v)) }

// SetHostSystemErrorEnable sets or clears the host system error enable bit.
func (r *USBCmd) SetHostSystemErrorEnable(v bool) { *r = USBCmd(cmdHSEE.Set(uint32(*r), v)) }

// SetLightHostControllerReset sets or clears the light host controller reset bit.
func (r *USBCmd) SetLightHostControllerReset(v bool) {
	*r = USBCmd(cmdLHCRST.Set(uint32(*r), v))
}

// SetControllerSaveState sets or clears the controller save state bit.
func (r *USBCmd) SetControllerSaveState(v bool) { *r = USBCmd(cmdCSS.Set(uint32(*r), v)) }

// SetControllerRestoreState sets or clears the controller restore state bit.
func (r *USBCmd) SetControllerRestoreState(v bool) { *r = USBCmd(cmdCRS.Set(uint32(*r), v)) }

// SetEnableWrapEvent sets or clears the enable wrap event bit.
func (r *USBCmd) SetEnableWrapEvent(v bool) { *r = USBCmd(cmdEWE.Set(uint32(*r), v)) }

// SetEnableU3MFINDEXStop sets or clears the enable U3 MFINDEX stop bit.
func (r *USBCmd) SetEnableU3MFINDEXStop(v bool) { *r = USBCmd(cmdEU3S.Set(uint32(*r), v)) }

// SetCEMEnable sets or clears the CEM enable bit.
func (r *USBCmd) SetCEMEnable(v bool) { *r = USBCmd(cmdCME.Set(uint32(*r), v)) }

// SetExtendedTBCEnable sets or clears the extended TBC enable bit.
func (r *USBCmd) SetExtendedTBCEnable(v bool) { *r = USBCmd(cmdETE.Set(uint32(*r), v)) }

// SetExtendedTBCStatusEnable sets or clears the extended TBC TRB status enable bit.
func (r *USBCmd) SetExtendedTBCStatusEnable(v bool) { *r = USBCmd(cmdTSCEN.Set(uint32(*r), v)) }

// SetVTIOEnable sets or clears the VTIO enable bit.
func (r *USBCmd) SetVTIOEnable(v bool) { *r = USBCmd(cmdVTIOE.Set(uint32(*r), v)) }

// String enumerates every field.
func (r USBCmd) String() string { return usbCmdLayout.Format(uint32(r)) }

// =============================================================================
// USBSTS
// =============================================================================

// USBSts is the USB Status register.
//
// The Clear methods set the bit whose write clears the corresponding
// condition. Write a value built from the zero USBSts with only the desired
// Clear methods applied; writing back a value read from the register clears
// every condition that was pending.
type USBSts uint32

var (
	stsHCH  = mmio.Bit[uint32]{Name: "hc_halted", N: 0, Access: mmio.AccessRO}
	stsHSE  = mmio.Bit[uint32]{Name: "host_system_error", N: 2, Access: mmio.AccessRW1C}
	stsEINT = mmio.Bit[uint32]{Name: "event_interrupt", N: 3, Access: mmio.AccessRW1C}
	stsPCD  = mmio.Bit[uint32]{Name: "port_change_detect", N: 4, Access: mmio.AccessRW1C}
	stsSSS  = mmio.Bit[uint32]{Name: "save_state_status", N: 8, Access: mmio.AccessRO}
	stsRSS  = mmio.Bit[uint32]{Name: "restore_state_status", N: 9, Access: mmio.AccessRO}
	stsSRE  = mmio.Bit[uint32]{Name: "save_restore_error", N: 10, Access: mmio.AccessRW1C}
	stsCNR  = mmio.Bit[uint32]{Name: "controller_not_ready", N: 11, Access: mmio.AccessRO}
	stsHCE  = mmio.Bit[uint32]{Name: "host_controller_error", N: 12, Access: mmio.AccessRO}

	usbStsLayout = mmio.NewLayout[uint32]("xhci.USBSts",
		stsHCH, stsHSE, stsEINT, stsPCD, stsSSS, stsRSS, stsSRE, stsCNR, stsHCE)
)

// HCHalted reports whether the HC halted bit is set.
func (r USBSts) HCHalted() bool { return stsHCH.Get(uint32(r)) }

// HostSystemError reports whether the host system error bit is set.
func (r USBSts) HostSystemError() bool { return stsHSE.Get(uint32(r)) }

// EventInterrupt reports whether the event interrupt bit is set.
func (r USBSts) EventInterrupt() bool { return stsEINT.Get(uint32(r)) }

// PortChangeDetect reports whether the port change detect bit is set.
func (r USBSts) PortChangeDetect() bool { return stsPCD.Get(uint32(r)) }

// SaveStateStatus reports whether the save state status bit is set.
func (r USBSts) SaveStateStatus() bool { return stsSSS.Get(uint32(r)) }

// RestoreStateStatus reports whether the restore state status bit is set.
func (r USBSts) RestoreStateStatus() bool { return stsRSS.Get(uint32(r)) }

// SaveRestoreError reports whether the save restore error bit is set.
func (r USBSts) SaveRestoreError() bool { return stsSRE.Get(uint32(r)) }

// ControllerNotReady reports whether the controller not ready bit is set.
func (r USBSts) ControllerNotReady() bool { return stsCNR.Get(uint32(r)) }

// HostControllerError reports whether the host controller error bit is set.
func (r USBSts) HostControllerError() bool { return stsHCE.Get(uint32(r)) }

// ClearHostSystemError sets the host system error bit to 1, which clears it when written.
func (r *USBSts) ClearHostSystemError() { *r = USBSts(stsHSE.Set(uint32(*r), true)) }

// ClearEventInterrupt sets the event interrupt bit to 1, which clears it when written.
func (r *USBSts) ClearEventInterrupt() { *r = USBSts(stsEINT.Set(uint32(*r), true)) }

// ClearPortChangeDetect sets the port change detect bit to 1, which clears it when written.
func (r *USBSts) ClearPortChangeDetect() { *r = USBSts(stsPCD.Set(uint32(*r), true)) }

// ClearSaveRestoreError sets the save restore error bit to 1, which clears it when written.
func (r *USBSts) ClearSaveRestoreError() { *r = USBSts(stsSRE.Set(uint32(*r), true)) }

// String enumerates every field.
func (r USBSts) String() string { return usbStsLayout.Format(uint32(r)) }

// =============================================================================
// PAGESIZE
// =============================================================================

// PageSize reports the page sizes the controller supports.
type PageSize uint32

var (
	pageSizeBits   = mmio.Field[uint32, uint16]{Name: "page_size", Lo: 0, Hi: 15, Access: mmio.AccessRO}
	pageSizeLayout = mmio.NewLayout[uint32]("xhci.PageSize", pageSizeBits)
)

// Get returns the raw bitmap: bit n set means 2^(n+12) byte pages are supported.
func (r PageSize) Get() uint16 { return pageSizeBits.Get(uint32(r)) }

// Bytes returns the smallest supported page size in bytes, or 0 if the
// bitmap is empty.
func (r PageSize) Bytes() uint32 {
	bits := r.Get()
	for n := uint(0); n < 16; n++ {
		if bits&(1<<n) != 0 {
			return 1 << (n + 12)
		}
	}
	return 0
}

// String enumerates every field.
func (r PageSize) String() string { return pageSizeLayout.Format(uint32(r)) }

// =============================================================================
// DNCTRL
// =============================================================================

// DNCtrl is the Device Notification Control register.
type DNCtrl uint32

var (
	dnNotification = mmio.Field[uint32, uint16]{Name: "notification_enable", Lo: 0, Hi: 15, Access: mmio.AccessRW}
	dnCtrlLayout   = mmio.NewLayout[uint32]("xhci.DNCtrl", dnNotification)
)

// NotificationEnable returns the N0-N15 enable bitmap.
func (r DNCtrl) NotificationEnable() uint16 { return dnNotification.Get(uint32(r)) }

// SetNotificationEnable sets the N0-N15 enable bitmap.
func (r *DNCtrl) SetNotificationEnable(v uint16) {
	*r = DNCtrl(dnNotification.Set(uint32(*r), v))
}

// String enumerates every field.
func (r DNCtrl) String() string { return dnCtrlLayout.Format(uint32(r)) }

// =============================================================================
// CRCR
// =============================================================================

// CRCR is the 64-bit Command Ring Control register.
type CRCR uint64

var (
	crcrRCS = mmio.Bit[uint64]{Name: "ring_cycle_state", N: 0, Access: mmio.AccessRW}
	crcrCS  = mmio.Bit[uint64]{Name: "command_stop", N: 1, Access: mmio.AccessRW1S}
	crcrCA  = mmio.Bit[uint64]{Name: "command_abort", N: 2, Access: mmio.AccessRW1S}
	crcrCRR = mmio.Bit[uint64]{Name: "command_ring_running", N: 3, Access: mmio.AccessRO}
	crcrPtr = mmio.Field[uint64, uint64]{Name: "command_ring_pointer", Lo: 6, Hi: 63, Access: mmio.AccessRW}

	crcrLayout = mmio.NewLayout[uint64]("xhci.CRCR", crcrRCS, crcrCS, crcrCA, crcrCRR, crcrPtr)
)

// RingCycleState reports whether the ring cycle state bit is set.
func (r CRCR) RingCycleState() bool { return crcrRCS.Get(uint64(r)) }

// CommandRingRunning reports whether the command ring running bit is set.
func (r CRCR) CommandRingRunning() bool { return crcrCRR.Get(uint64(r)) }

// SetRingCycleState sets RCS.
func (r *CRCR) SetRingCycleState(v bool) { *r = CRCR(crcrRCS.Set(uint64(*r), v)) }

// SetCommandStop sets CS, which stops the command ring when written.
func (r *CRCR) SetCommandStop() { *r = CRCR(crcrCS.Set(uint64(*r), true)) }

// SetCommandAbort sets CA, which aborts the running command when written.
func (r *CRCR) SetCommandAbort() { *r = CRCR(crcrCA.Set(uint64(*r), true)) }

// CommandRingPointer returns the 64-byte aligned command ring address.
func (r CRCR) CommandRingPointer() uint64 { return crcrPtr.Get(uint64(r)) << crcrPtr.Lo }

// SetCommandRingPointer sets the command ring address.
// It panics with a *pkg.AlignmentFault if p is not 64-byte aligned.
func (r *CRCR) SetCommandRingPointer(p uint64) {
	checkPointer("xhci.CRCR", p, 64)
	*r = CRCR(crcrPtr.Set(uint64(*r), p>>crcrPtr.Lo))
}

// String enumerates every field.
func (r CRCR) String() string { return crcrLayout.Format(uint64(r)) }

// =============================================================================
// DCBAAP
// =============================================================================

// DCBAAP is the 64-bit Device Context Base Address Array Pointer register.
type DCBAAP uint64

var (
	dcbaapPtr    = mmio.Field[uint64, uint64]{Name: "pointer", Lo: 6, Hi: 63, Access: mmio.AccessRW}
	dcbaapLayout = mmio.NewLayout[uint64]("xhci.DCBAAP", dcbaapPtr)
)

// Pointer returns the 64-byte aligned DCBAA address.
func (r DCBAAP) Pointer() uint64 { return dcbaapPtr.Get(uint64(r)) << dcbaapPtr.Lo }

// SetPointer sets the DCBAA address.
// It panics with a *pkg.AlignmentFault if p is not 64-byte aligned.
func (r *DCBAAP) SetPointer(p uint64) {
	checkPointer("xhci.DCBAAP", p, 64)
	*r = DCBAAP(dcbaapPtr.Set(uint64(*r), p>>dcbaapPtr.Lo))
}

// String enumerates every field.
func (r DCBAAP) String() string { return dcbaapLayout.Format(uint64(r)) }

// =============================================================================
// CONFIG
// =============================================================================

// Config is the Configure register.
type Config uint32

var (
	cfgMaxSlotsEn = mmio.Field[uint32, uint8]{Name: "max_device_slots_enabled", Lo: 0, Hi: 7, Access: mmio.AccessRW}
	cfgU3E        = mmio.Bit[uint32]{Name: "u3_entry_enable", N: 8, Access: mmio.AccessRW}
	cfgCIE        = mmio.Bit[uint32]{Name: "configuration_information_enable", N: 9, Access: mmio.AccessRW}

	configLayout = mmio.NewLayout[uint32]("xhci.Config", cfgMaxSlotsEn, cfgU3E, cfgCIE)
)

// MaxDeviceSlotsEnabled returns the max device slots enabled field.
func (r Config) MaxDeviceSlotsEnabled() uint8 { return cfgMaxSlotsEn.Get(uint32(r)) }

// U3EntryEnable reports whether the U3 entry enable bit is set.
func (r Config) U3EntryEnable() bool { return cfgU3E.Get(uint32(r)) }

// ConfigurationInformationEnable reports whether the configuration information enable bit is set.
func (r Config) ConfigurationInformationEnable() bool { return cfgCIE.Get(uint32(r)) }

// SetMaxDeviceSlotsEnabled sets the max device slots enabled field.
func (r *Config) SetMaxDeviceSlotsEnabled(v uint8) { *r = Config(cfgMaxSlotsEn.Set(uint32(*r), v)) }

// SetU3EntryEnable sets or clears the U3 entry enable bit.
func (r *Config) SetU3EntryEnable(v bool) { *r = Config(cfgU3E.Set(uint32(*r), v)) }

// SetConfigurationInformationEnable sets or clears the configuration information enable bit.
func (r *Config) SetConfigurationInformationEnable(v bool) {
	*r = Config(cfgCIE.Set(uint32(*r), v))
}

// String enumerates every field.
func (r Config) String() string { return configLayout.Format(uint32(r)) }

// =============================================================================
// Operational Registers
// =============================================================================

// Operational holds accessors for the operational registers, which start
// CAPLENGTH bytes past the MMIO base.
type Operational struct {
	USBCmd   *mmio.ReadWrite[USBCmd]
	USBSts   *mmio.ReadWrite[USBSts]
	PageSize *mmio.ReadOnly[PageSize]
	DNCtrl   *mmio.ReadWrite[DNCtrl]
	CRCR     *mmio.ReadWrite[CRCR]
	DCBAAP   *mmio.ReadWrite[DCBAAP]
	Config   *mmio.ReadWrite[Config]
}

// OperationalBase returns the physical address of the operational registers.
func OperationalBase(mmioBase uintptr, c *Capability) uintptr {
	return mmioBase + uintptr(c.CapLength.Read().Length())
}

// NewOperational maps the operational registers located by CAPLENGTH.
//
// NewOperational panics with a *pkg.AlignmentFault if the operational base is
// not 8-byte aligned, since CRCR and DCBAAP are 64-bit registers. The caller
// must ensure only one Operational exists per controller.
func NewOperational(mmioBase uintptr, c *Capability, m hal.Mapper) (op *Operational, err error) {
	base := OperationalBase(mmioBase, c)
	checkPointer("xhci.Operational", uint64(base), 8)
	op = new(Operational)
	defer func() {
		if fault := recover(); fault != nil {
			_ = op.Unmap()
			panic(fault)
		}
		if err != nil {
			_ = op.Unmap()
			op = nil
		}
	}()

	if op.USBCmd, err = mmio.NewReadWrite[USBCmd](base+offUSBCmd, m); err != nil {
		return
	}
	if op.USBSts, err = mmio.NewReadWrite[USBSts](base+offUSBSts, m); err != nil {
		return
	}
	if op.PageSize, err = mmio.NewReadOnly[PageSize](base+offPageSize, m); err != nil {
		return
	}
	if op.DNCtrl, err = mmio.NewReadWrite[DNCtrl](base+offDNCtrl, m); err != nil {
		return
	}
	if op.CRCR, err = mmio.NewReadWrite[CRCR](base+offCRCR, m); err != nil {
		return
	}
	if op.DCBAAP, err = mmio.NewReadWrite[DCBAAP](base+offDCBAAP, m); err != nil {
		return
	}
	if op.Config, err = mmio.NewReadWrite[Config](base+offConfig, m); err != nil {
		return
	}

	pkg.LogDebug(pkg.ComponentRegisters, "operational registers mapped",
		pkg.Addr("base", base))
	return op, nil
}

// Unmap releases every operational register mapping.
func (op *Operational) Unmap() error {
	var errs []error
	for _, u := range []unmapper{
		op.USBCmd, op.USBSts, op.PageSize, op.DNCtrl, op.CRCR, op.DCBAAP, op.Config,
	} {
		errs = append(errs, u.Unmap())
	}
	return errors.Join(errs...)
}
