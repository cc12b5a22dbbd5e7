package xhci

import (
	"errors"
	"fmt"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/host/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// Capability register offsets from the MMIO base (xHCI 1.2 Section 5.3).
const (
	offCapLength  = 0x00
	offHCSParams1 = 0x04
	offHCSParams2 = 0x08
	offHCSParams3 = 0x0c
	offHCCParams1 = 0x10
	offDBOff      = 0x14
	offRTSOff     = 0x18
	offHCCParams2 = 0x1c

	// CapabilitySize is the size of the capability register block read by
	// NewCapability.
	CapabilitySize = 0x20
)

// =============================================================================
// CAPLENGTH / HCIVERSION
// =============================================================================

// CapLength is the first capability dword: CAPLENGTH in the low byte and
// HCIVERSION in the high half.
type CapLength uint32

var (
	capLength     = mmio.Field[uint32, uint8]{Name: "caplength", Lo: 0, Hi: 7, Access: mmio.AccessRO}
	capHCIVersion = mmio.Field[uint32, uint16]{Name: "hciversion", Lo: 16, Hi: 31, Access: mmio.AccessRO}

	capLengthLayout = mmio.NewLayout[uint32]("xhci.CapLength", capLength, capHCIVersion)
)

// Length returns the offset of the operational registers from the MMIO base.
func (r CapLength) Length() uint8 { return capLength.Get(uint32(r)) }

// HCIVersion returns the BCD interface version, e.g. 0x0110 for 1.1.
func (r CapLength) HCIVersion() uint16 { return capHCIVersion.Get(uint32(r)) }

// String enumerates every field.
func (r CapLength) String() string { return capLengthLayout.Format(uint32(r)) }

// =============================================================================
// HCSPARAMS1
// =============================================================================

// HCSParams1 is Structural Parameters 1.
type HCSParams1 uint32

var (
	hcs1MaxSlots = mmio.Field[uint32, uint8]{Name: "number_of_device_slots", Lo: 0, Hi: 7, Access: mmio.AccessRO}
	hcs1MaxIntrs = mmio.Field[uint32, uint16]{Name: "number_of_interrupts", Lo: 8, Hi: 18, Access: mmio.AccessRO}
	hcs1MaxPorts = mmio.Field[uint32, uint8]{Name: "number_of_ports", Lo: 24, Hi: 31, Access: mmio.AccessRO}

	hcsParams1Layout = mmio.NewLayout[uint32]("xhci.HCSParams1", hcs1MaxSlots, hcs1MaxIntrs, hcs1MaxPorts)
)

// NumberOfDeviceSlots returns MaxSlots.
func (r HCSParams1) NumberOfDeviceSlots() uint8 { return hcs1MaxSlots.Get(uint32(r)) }

// NumberOfInterrupts returns MaxIntrs.
func (r HCSParams1) NumberOfInterrupts() uint16 { return hcs1MaxIntrs.Get(uint32(r)) }

// NumberOfPorts returns MaxPorts.
func (r HCSParams1) NumberOfPorts() uint8 { return hcs1MaxPorts.Get(uint32(r)) }

// String enumerates every field.
func (r HCSParams1) String() string { return hcsParams1Layout.Format(uint32(r)) }

// =============================================================================
// HCSPARAMS2
// =============================================================================

// HCSParams2 is Structural Parameters 2.
type HCSParams2 uint32

var (
	hcs2IST     = mmio.Field[uint32, uint8]{Name: "isochronous_scheduling_threshold", Lo: 0, Hi: 3, Access: mmio.AccessRO}
	hcs2ERSTMax = mmio.Field[uint32, uint8]{Name: "event_ring_segment_table_max", Lo: 4, Hi: 7, Access: mmio.AccessRO}
	hcs2SPBHi   = mmio.Field[uint32, uint8]{Name: "max_scratchpad_buffers_hi", Lo: 21, Hi: 25, Access: mmio.AccessRO}
	hcs2SPR     = mmio.Bit[uint32]{Name: "scratchpad_restore", N: 26, Access: mmio.AccessRO}
	hcs2SPBLo   = mmio.Field[uint32, uint8]{Name: "max_scratchpad_buffers_lo", Lo: 27, Hi: 31, Access: mmio.AccessRO}

	hcsParams2Layout = mmio.NewLayout[uint32]("xhci.HCSParams2", hcs2IST, hcs2ERSTMax, hcs2SPBHi, hcs2SPR, hcs2SPBLo)
)

// IsochronousSchedulingThreshold returns IST.
func (r HCSParams2) IsochronousSchedulingThreshold() uint8 { return hcs2IST.Get(uint32(r)) }

// EventRingSegmentTableMax returns ERST Max, the base-2 logarithm of the
// maximum Event Ring Segment Table size.
func (r HCSParams2) EventRingSegmentTableMax() uint8 { return hcs2ERSTMax.Get(uint32(r)) }

// MaxEventRingSegments returns 2^ERST Max.
func (r HCSParams2) MaxEventRingSegments() uint32 { return 1 << r.EventRingSegmentTableMax() }

// ScratchpadRestore returns SPR.
func (r HCSParams2) ScratchpadRestore() bool { return hcs2SPR.Get(uint32(r)) }

// MaxScratchpadBuffers combines the split Max Scratchpad Buffers fields.
func (r HCSParams2) MaxScratchpadBuffers() uint16 {
	return uint16(hcs2SPBHi.Get(uint32(r)))<<5 | uint16(hcs2SPBLo.Get(uint32(r)))
}

// String enumerates every field.
func (r HCSParams2) String() string { return hcsParams2Layout.Format(uint32(r)) }

// =============================================================================
// HCSPARAMS3
// =============================================================================

// HCSParams3 is Structural Parameters 3.
type HCSParams3 uint32

var (
	hcs3U1 = mmio.Field[uint32, uint8]{Name: "u1_device_exit_latency", Lo: 0, Hi: 7, Access: mmio.AccessRO}
	hcs3U2 = mmio.Field[uint32, uint16]{Name: "u2_device_exit_latency", Lo: 16, Hi: 31, Access: mmio.AccessRO}

	hcsParams3Layout = mmio.NewLayout[uint32]("xhci.HCSParams3", hcs3U1, hcs3U2)
)

// U1DeviceExitLatency returns the worst case U1 exit latency in microseconds.
func (r HCSParams3) U1DeviceExitLatency() uint8 { return hcs3U1.Get(uint32(r)) }

// U2DeviceExitLatency returns the worst case U2 exit latency in microseconds.
func (r HCSParams3) U2DeviceExitLatency() uint16 { return hcs3U2.Get(uint32(r)) }

// String enumerates every field.
func (r HCSParams3) String() string { return hcsParams3Layout.Format(uint32(r)) }

// =============================================================================
// HCCPARAMS1
// =============================================================================

// HCCParams1 is Capability Parameters 1.
type HCCParams1 uint32

var (
	hcc1AC64  = mmio.Bit[uint32]{Name: "addressing_64bit", N: 0, Access: mmio.AccessRO}
	hcc1BNC   = mmio.Bit[uint32]{Name: "bw_negotiation", N: 1, Access: mmio.AccessRO}
	hcc1CSZ   = mmio.Bit[uint32]{Name: "context_size", N: 2, Access: mmio.AccessRO}
	hcc1PPC   = mmio.Bit[uint32]{Name: "port_power_control", N: 3, Access: mmio.AccessRO}
	hcc1PIND  = mmio.Bit[uint32]{Name: "port_indicators", N: 4, Access: mmio.AccessRO}
	hcc1LHRC  = mmio.Bit[uint32]{Name: "light_hc_reset", N: 5, Access: mmio.AccessRO}
	hcc1LTC   = mmio.Bit[uint32]{Name: "latency_tolerance_messaging", N: 6, Access: mmio.AccessRO}
	hcc1NSS   = mmio.Bit[uint32]{Name: "no_secondary_sid", N: 7, Access: mmio.AccessRO}
	hcc1PAE   = mmio.Bit[uint32]{Name: "parse_all_event_data", N: 8, Access: mmio.AccessRO}
	hcc1SPC   = mmio.Bit[uint32]{Name: "stopped_short_packet", N: 9, Access: mmio.AccessRO}
	hcc1SEC   = mmio.Bit[uint32]{Name: "stopped_edtla", N: 10, Access: mmio.AccessRO}
	hcc1CFC   = mmio.Bit[uint32]{Name: "contiguous_frame_id", N: 11, Access: mmio.AccessRO}
	hcc1MaxPS = mmio.Field[uint32, uint8]{Name: "max_primary_stream_array_size", Lo: 12, Hi: 15, Access: mmio.AccessRO}
	hcc1XECP  = mmio.Field[uint32, uint16]{Name: "xhci_extended_capabilities_pointer", Lo: 16, Hi: 31, Access: mmio.AccessRO}

	hccParams1Layout = mmio.NewLayout[uint32]("xhci.HCCParams1",
		hcc1AC64, hcc1BNC, hcc1CSZ, hcc1PPC, hcc1PIND, hcc1LHRC, hcc1LTC, hcc1NSS,
		hcc1PAE, hcc1SPC, hcc1SEC, hcc1CFC, hcc1MaxPS, hcc1XECP)
)

// Addressing64Bit reports whether the 64-bit addressing capability bit is set.
func (r HCCParams1) Addressing64Bit() bool { return hcc1AC64.Get(uint32(r)) }

// BandwidthNegotiation reports whether the bw negotiation bit is set.
func (r HCCParams1) BandwidthNegotiation() bool { return hcc1BNC.Get(uint32(r)) }

// ContextSize reports whether the context size bit is set.
func (r HCCParams1) ContextSize() bool { return hcc1CSZ.Get(uint32(r)) }

// PortPowerControl reports whether the port power control bit is set.
func (r HCCParams1) PortPowerControl() bool { return hcc1PPC.Get(uint32(r)) }

// PortIndicators reports whether the port indicators bit is set.
func (r HCCParams1) PortIndicators() bool { return hcc1PIND.Get(uint32(r)) }

// LightHCResetCapability reports whether the light HC reset bit is set.
func (r HCCParams1) LightHCResetCapability() bool { return hcc1LHRC.Get(uint32(r)) }

// LatencyToleranceMessaging reports whether the latency tolerance messaging bit is set.
func (r HCCParams1) LatencyToleranceMessaging() bool { return hcc1LTC.Get(uint32(r)) }

// NoSecondarySIDSupport reports whether the no secondary SID bit is set.
func (r HCCParams1) NoSecondarySIDSupport() bool { return hcc1NSS.Get(uint32(r)) }

// ParseAllEventData reports whether the parse all event data bit is set.
func (r HCCParams1) ParseAllEventData() bool { return hcc1PAE.Get(uint32(r)) }

// StoppedShortPacket reports whether the stopped short packet bit is set.
func (r HCCParams1) StoppedShortPacket() bool { return hcc1SPC.Get(uint32(r)) }

// StoppedEDTLA reports whether the stopped EDTLA bit is set.
func (r HCCParams1) StoppedEDTLA() bool { return hcc1SEC.Get(uint32(r)) }

// ContiguousFrameID reports whether the contiguous frame ID bit is set.
func (r HCCParams1) ContiguousFrameID() bool { return hcc1CFC.Get(uint32(r)) }

// MaxPrimaryStreamArraySize returns MaxPSASize. The primary stream array
// holds 2^(MaxPSASize+1) entries; zero means streams are not supported.
func (r HCCParams1) MaxPrimaryStreamArraySize() uint8 { return hcc1MaxPS.Get(uint32(r)) }

// ExtendedCapabilitiesPointer returns xECP in dwords from the MMIO base.
// Zero means the controller has no extended capabilities.
func (r HCCParams1) ExtendedCapabilitiesPointer() uint16 { return hcc1XECP.Get(uint32(r)) }

// ContextBytes returns the size of device context data structures: 64 if
// ContextSize is set, 32 otherwise.
func (r HCCParams1) ContextBytes() int {
	if r.ContextSize() {
		return 64
	}
	return 32
}

// String enumerates every field.
func (r HCCParams1) String() string { return hccParams1Layout.Format(uint32(r)) }

// =============================================================================
// DBOFF / RTSOFF
// =============================================================================

// DBOff is the Doorbell Offset register.
type DBOff uint32

var dbOffset = mmio.Field[uint32, uint32]{Name: "doorbell_array_offset", Lo: 2, Hi: 31, Access: mmio.AccessRO}

// Offset returns the byte offset of the Doorbell Array from the MMIO base.
// The two reserved low-order bits read as zero.
func (r DBOff) Offset() uint32 { return dbOffset.Get(uint32(r)) << dbOffset.Lo }

// String reports the decoded offset.
func (r DBOff) String() string { return fmt.Sprintf("xhci.DBOff{offset: %#x}", r.Offset()) }

// RTSOff is the Runtime Register Space Offset register.
type RTSOff uint32

var rtsOffset = mmio.Field[uint32, uint32]{Name: "runtime_register_space_offset", Lo: 5, Hi: 31, Access: mmio.AccessRO}

// Offset returns the byte offset of the runtime registers from the MMIO base.
// The five reserved low-order bits read as zero.
func (r RTSOff) Offset() uint32 { return rtsOffset.Get(uint32(r)) << rtsOffset.Lo }

// String reports the decoded offset.
func (r RTSOff) String() string { return fmt.Sprintf("xhci.RTSOff{offset: %#x}", r.Offset()) }

// =============================================================================
// HCCPARAMS2
// =============================================================================

// HCCParams2 is Capability Parameters 2.
type HCCParams2 uint32

var (
	hcc2U3C    = mmio.Bit[uint32]{Name: "u3_entry", N: 0, Access: mmio.AccessRO}
	hcc2CMC    = mmio.Bit[uint32]{Name: "configure_endpoint_max_exit_latency_too_large", N: 1, Access: mmio.AccessRO}
	hcc2FSC    = mmio.Bit[uint32]{Name: "force_save_context", N: 2, Access: mmio.AccessRO}
	hcc2CTC    = mmio.Bit[uint32]{Name: "compliance_transition", N: 3, Access: mmio.AccessRO}
	hcc2LEC    = mmio.Bit[uint32]{Name: "large_esit_payload", N: 4, Access: mmio.AccessRO}
	hcc2CIC    = mmio.Bit[uint32]{Name: "configuration_information", N: 5, Access: mmio.AccessRO}
	hcc2ETC    = mmio.Bit[uint32]{Name: "extended_tbc", N: 6, Access: mmio.AccessRO}
	hcc2ETCTSC = mmio.Bit[uint32]{Name: "extended_tbc_trb_status", N: 7, Access: mmio.AccessRO}
	hcc2GSC    = mmio.Bit[uint32]{Name: "get_set_extended_property", N: 8, Access: mmio.AccessRO}
	hcc2VTC    = mmio.Bit[uint32]{Name: "virtualization_based_trusted_io", N: 9, Access: mmio.AccessRO}

	hccParams2Layout = mmio.NewLayout[uint32]("xhci.HCCParams2",
		hcc2U3C, hcc2CMC, hcc2FSC, hcc2CTC, hcc2LEC, hcc2CIC, hcc2ETC, hcc2ETCTSC, hcc2GSC, hcc2VTC)
)

// U3EntryCapability reports whether the U3 entry bit is set.
func (r HCCParams2) U3EntryCapability() bool { return hcc2U3C.Get(uint32(r)) }

// MaxExitLatencyTooLarge reports whether the configure endpoint max exit latency too large bit is set.
func (r HCCParams2) MaxExitLatencyTooLarge() bool { return hcc2CMC.Get(uint32(r)) }

// ForceSaveContext reports whether the force save context bit is set.
func (r HCCParams2) ForceSaveContext() bool { return hcc2FSC.Get(uint32(r)) }

// ComplianceTransition reports whether the compliance transition bit is set.
func (r HCCParams2) ComplianceTransition() bool { return hcc2CTC.Get(uint32(r)) }

// LargeESITPayload reports whether the large ESIT payload bit is set.
func (r HCCParams2) LargeESITPayload() bool { return hcc2LEC.Get(uint32(r)) }

// ConfigurationInformation reports whether the configuration information bit is set.
func (r HCCParams2) ConfigurationInformation() bool { return hcc2CIC.Get(uint32(r)) }

// ExtendedTBC reports whether the extended TBC bit is set.
func (r HCCParams2) ExtendedTBC() bool { return hcc2ETC.Get(uint32(r)) }

// ExtendedTBCTRBStatus reports whether the extended TBC TRB status bit is set.
func (r HCCParams2) ExtendedTBCTRBStatus() bool { return hcc2ETCTSC.Get(uint32(r)) }

// GetSetExtendedProperty reports whether the get set extended property bit is set.
func (r HCCParams2) GetSetExtendedProperty() bool { return hcc2GSC.Get(uint32(r)) }

// VirtualizationBasedTrustedIO reports whether the virtualization based trusted IO bit is set.
func (r HCCParams2) VirtualizationBasedTrustedIO() bool { return hcc2VTC.Get(uint32(r)) }

// String enumerates every field.
func (r HCCParams2) String() string { return hccParams2Layout.Format(uint32(r)) }

// =============================================================================
// Capability Registers
// =============================================================================

// Capability holds read-only accessors for the capability register block.
//
// Every Read is a volatile load of the live register. Values are reported
// as the controller presents them; Capability does not validate them.
type Capability struct {
	CapLength  *mmio.ReadOnly[CapLength]
	HCSParams1 *mmio.ReadOnly[HCSParams1]
	HCSParams2 *mmio.ReadOnly[HCSParams2]
	HCSParams3 *mmio.ReadOnly[HCSParams3]
	HCCParams1 *mmio.ReadOnly[HCCParams1]
	DBOff      *mmio.ReadOnly[DBOff]
	RTSOff     *mmio.ReadOnly[RTSOff]
	HCCParams2 *mmio.ReadOnly[HCCParams2]
}

// NewCapability maps the capability registers at mmioBase.
//
// NewCapability panics with a *pkg.AlignmentFault if mmioBase is not 4-byte
// aligned. It returns an error only if the mapper fails.
func NewCapability(mmioBase uintptr, m hal.Mapper) (c *Capability, err error) {
	c = new(Capability)
	defer func() {
		if fault := recover(); fault != nil {
			_ = c.Unmap()
			panic(fault)
		}
		if err != nil {
			_ = c.Unmap()
			c = nil
		}
	}()

	if c.CapLength, err = mmio.NewReadOnly[CapLength](mmioBase+offCapLength, m); err != nil {
		return
	}
	if c.HCSParams1, err = mmio.NewReadOnly[HCSParams1](mmioBase+offHCSParams1, m); err != nil {
		return
	}
	if c.HCSParams2, err = mmio.NewReadOnly[HCSParams2](mmioBase+offHCSParams2, m); err != nil {
		return
	}
	if c.HCSParams3, err = mmio.NewReadOnly[HCSParams3](mmioBase+offHCSParams3, m); err != nil {
		return
	}
	if c.HCCParams1, err = mmio.NewReadOnly[HCCParams1](mmioBase+offHCCParams1, m); err != nil {
		return
	}
	if c.DBOff, err = mmio.NewReadOnly[DBOff](mmioBase+offDBOff, m); err != nil {
		return
	}
	if c.RTSOff, err = mmio.NewReadOnly[RTSOff](mmioBase+offRTSOff, m); err != nil {
		return
	}
	if c.HCCParams2, err = mmio.NewReadOnly[HCCParams2](mmioBase+offHCCParams2, m); err != nil {
		return
	}

	pkg.LogDebug(pkg.ComponentCapability, "capability registers mapped",
		pkg.Addr("base", mmioBase))
	return c, nil
}

// Unmap releases every capability register mapping.
func (c *Capability) Unmap() error {
	var errs []error
	for _, u := range []unmapper{
		c.CapLength, c.HCSParams1, c.HCSParams2, c.HCSParams3,
		c.HCCParams1, c.DBOff, c.RTSOff, c.HCCParams2,
	} {
		errs = append(errs, u.Unmap())
	}
	return errors.Join(errs...)
}
