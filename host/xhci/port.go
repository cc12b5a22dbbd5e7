package xhci

import (
	"errors"
	"fmt"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/host/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// Port register set layout relative to the operational base
// (xHCI 1.2 Section 5.4.8).
const (
	offPortSets   = 0x400
	portSetStride = 0x10

	offPortSC    = 0x0
	offPortPMSC  = 0x4
	offPortLI    = 0x8
	offPortHLPMC = 0xc
)

// PortSpeed is the Protocol Speed ID reported in PORTSC. The values below are
// the defaults used when a controller declares no Protocol Speed ID table.
type PortSpeed uint8

const (
	SpeedUndefined       PortSpeed = 0
	SpeedFull            PortSpeed = 1
	SpeedLow             PortSpeed = 2
	SpeedHigh            PortSpeed = 3
	SpeedSuper           PortSpeed = 4
	SpeedSuperPlusGen2x1 PortSpeed = 5
	SpeedSuperPlusGen1x2 PortSpeed = 6
	SpeedSuperPlusGen2x2 PortSpeed = 7
)

// String returns a human-readable speed name.
func (s PortSpeed) String() string {
	switch s {
	case SpeedUndefined:
		return "undefined"
	case SpeedFull:
		return "full-speed"
	case SpeedLow:
		return "low-speed"
	case SpeedHigh:
		return "high-speed"
	case SpeedSuper:
		return "superspeed"
	case SpeedSuperPlusGen2x1:
		return "superspeed+ gen2x1"
	case SpeedSuperPlusGen1x2:
		return "superspeed+ gen1x2"
	case SpeedSuperPlusGen2x2:
		return "superspeed+ gen2x2"
	default:
		return fmt.Sprintf("psiv(%d)", uint8(s))
	}
}

// Port link states written to or read from PORTSC.PLS.
const (
	LinkStateU0         uint8 = 0
	LinkStateU1         uint8 = 1
	LinkStateU2         uint8 = 2
	LinkStateU3         uint8 = 3
	LinkStateDisabled   uint8 = 4
	LinkStateRxDetect   uint8 = 5
	LinkStateInactive   uint8 = 6
	LinkStatePolling    uint8 = 7
	LinkStateRecovery   uint8 = 8
	LinkStateHotReset   uint8 = 9
	LinkStateCompliance uint8 = 10
	LinkStateTestMode   uint8 = 11
	LinkStateResume     uint8 = 15
)

// =============================================================================
// PORTSC
// =============================================================================

// PortSC is the Port Status and Control register.
//
// PORTSC mixes RW, RW1C and RW1S bits. To change an RW field without side
// effects, start from Preserved, apply setters, and write the result.
type PortSC uint32

var (
	pscCCS   = mmio.Bit[uint32]{Name: "current_connect_status", N: 0, Access: mmio.AccessRO}
	pscPED   = mmio.Bit[uint32]{Name: "port_enabled_disabled", N: 1, Access: mmio.AccessRW1C}
	pscOCA   = mmio.Bit[uint32]{Name: "over_current_active", N: 3, Access: mmio.AccessRO}
	pscPR    = mmio.Bit[uint32]{Name: "port_reset", N: 4, Access: mmio.AccessRW1S}
	pscPLS   = mmio.Field[uint32, uint8]{Name: "port_link_state", Lo: 5, Hi: 8, Access: mmio.AccessRW}
	pscPP    = mmio.Bit[uint32]{Name: "port_power", N: 9, Access: mmio.AccessRW}
	pscSpeed = mmio.Field[uint32, uint8]{Name: "port_speed", Lo: 10, Hi: 13, Access: mmio.AccessRO}
	pscPIC   = mmio.Field[uint32, uint8]{Name: "port_indicator_control", Lo: 14, Hi: 15, Access: mmio.AccessRW}
	pscLWS   = mmio.Bit[uint32]{Name: "port_link_state_write_strobe", N: 16, Access: mmio.AccessRW}
	pscCSC   = mmio.Bit[uint32]{Name: "connect_status_change", N: 17, Access: mmio.AccessRW1C}
	pscPEC   = mmio.Bit[uint32]{Name: "port_enabled_disabled_change", N: 18, Access: mmio.AccessRW1C}
	pscWRC   = mmio.Bit[uint32]{Name: "warm_port_reset_change", N: 19, Access: mmio.AccessRW1C}
	pscOCC   = mmio.Bit[uint32]{Name: "over_current_change", N: 20, Access: mmio.AccessRW1C}
	pscPRC   = mmio.Bit[uint32]{Name: "port_reset_change", N: 21, Access: mmio.AccessRW1C}
	pscPLC   = mmio.Bit[uint32]{Name: "port_link_state_change", N: 22, Access: mmio.AccessRW1C}
	pscCEC   = mmio.Bit[uint32]{Name: "port_config_error_change", N: 23, Access: mmio.AccessRW1C}
	pscCAS   = mmio.Bit[uint32]{Name: "cold_attach_status", N: 24, Access: mmio.AccessRO}
	pscWCE   = mmio.Bit[uint32]{Name: "wake_on_connect_enable", N: 25, Access: mmio.AccessRW}
	pscWDE   = mmio.Bit[uint32]{Name: "wake_on_disconnect_enable", N: 26, Access: mmio.AccessRW}
	pscWOE   = mmio.Bit[uint32]{Name: "wake_on_over_current_enable", N: 27, Access: mmio.AccessRW}
	pscDR    = mmio.Bit[uint32]{Name: "device_removable", N: 30, Access: mmio.AccessRO}
	pscWPR   = mmio.Bit[uint32]{Name: "warm_port_reset", N: 31, Access: mmio.AccessRW1S}

	portSCLayout = mmio.NewLayout[uint32]("xhci.PortSC",
		pscCCS, pscPED, pscOCA, pscPR, pscPLS, pscPP, pscSpeed, pscPIC, pscLWS,
		pscCSC, pscPEC, pscWRC, pscOCC, pscPRC, pscPLC, pscCEC,
		pscCAS, pscWCE, pscWDE, pscWOE, pscDR, pscWPR)
)

// CurrentConnectStatus reports whether the current connect status bit is set.
func (r PortSC) CurrentConnectStatus() bool { return pscCCS.Get(uint32(r)) }

// PortEnabled reports whether the port enabled disabled bit is set.
func (r PortSC) PortEnabled() bool { return pscPED.Get(uint32(r)) }

// OverCurrentActive reports whether the over current active bit is set.
func (r PortSC) OverCurrentActive() bool { return pscOCA.Get(uint32(r)) }

// PortReset reports whether the port reset bit is set.
func (r PortSC) PortReset() bool { return pscPR.Get(uint32(r)) }

// PortLinkState returns the port link state field.
func (r PortSC) PortLinkState() uint8 { return pscPLS.Get(uint32(r)) }

// PortPower reports whether the port power bit is set.
func (r PortSC) PortPower() bool { return pscPP.Get(uint32(r)) }

// PortSpeed returns the port speed field.
func (r PortSC) PortSpeed() PortSpeed { return PortSpeed(pscSpeed.Get(uint32(r))) }

// PortIndicatorControl returns the port indicator control field.
func (r PortSC) PortIndicatorControl() uint8 { return pscPIC.Get(uint32(r)) }

// LinkStateWriteStrobe reports whether the port link state write strobe bit is set.
func (r PortSC) LinkStateWriteStrobe() bool { return pscLWS.Get(uint32(r)) }

// ConnectStatusChange reports whether the connect status change bit is set.
func (r PortSC) ConnectStatusChange() bool { return pscCSC.Get(uint32(r)) }

// PortEnabledChange reports whether the port enabled disabled change bit is set.
func (r PortSC) PortEnabledChange() bool { return pscPEC.Get(uint32(r)) }

// WarmPortResetChange reports whether the warm port reset change bit is set.
func (r PortSC) WarmPortResetChange() bool { return pscWRC.Get(uint32(r)) }

// OverCurrentChange reports whether the over current change bit is set.
func (r PortSC) OverCurrentChange() bool { return pscOCC.Get(uint32(r)) }

// PortResetChange reports whether the port reset change bit is set.
func (r PortSC) PortResetChange() bool { return pscPRC.Get(uint32(r)) }

// PortLinkStateChange reports whether the port link state change bit is set.
func (r PortSC) PortLinkStateChange() bool { return pscPLC.Get(uint32(r)) }

// PortConfigErrorChange reports whether the port config error change bit is set.
func (r PortSC) PortConfigErrorChange() bool { return pscCEC.Get(uint32(r)) }

// ColdAttachStatus reports whether the cold attach status bit is set.
func (r PortSC) ColdAttachStatus() bool { return pscCAS.Get(uint32(r)) }

// WakeOnConnectEnable reports whether the wake on connect enable bit is set.
func (r PortSC) WakeOnConnectEnable() bool { return pscWCE.Get(uint32(r)) }

// WakeOnDisconnectEnable reports whether the wake on disconnect enable bit is set.
func (r PortSC) WakeOnDisconnectEnable() bool { return pscWDE.Get(uint32(r)) }

// WakeOnOverCurrentEnable reports whether the wake on over current enable bit is set.
func (r PortSC) WakeOnOverCurrentEnable() bool { return pscWOE.Get(uint32(r)) }

// DeviceRemovable reports whether the device removable bit is set.
func (r PortSC) DeviceRemovable() bool { return pscDR.Get(uint32(r)) }

// WarmPortReset reports whether the warm port reset bit is set.
func (r PortSC) WarmPortReset() bool { return pscWPR.Get(uint32(r)) }

// Changes reports whether any change bit (CSC through CEC) is set.
func (r PortSC) Changes() bool {
	return uint32(r)&portSCChangeMask != 0
}

var portSCChangeMask = pscCSC.Mask() | pscPEC.Mask() | pscWRC.Mask() |
	pscOCC.Mask() | pscPRC.Mask() | pscPLC.Mask() | pscCEC.Mask()

// Preserved returns r with every RW1C and RW1S bit cleared, so that writing
// it back changes nothing.
func (r PortSC) Preserved() PortSC {
	return r & PortSC(portSCLayout.PreserveMask())
}

// DisablePort sets PED, which disables the port when written.
func (r *PortSC) DisablePort() { *r = PortSC(pscPED.Set(uint32(*r), true)) }

// SetPortReset sets PR, which starts a port reset when written.
func (r *PortSC) SetPortReset() { *r = PortSC(pscPR.Set(uint32(*r), true)) }

// SetWarmPortReset sets WPR, which starts a warm reset of a USB3 port.
func (r *PortSC) SetWarmPortReset() { *r = PortSC(pscWPR.Set(uint32(*r), true)) }

// SetPortLinkState sets PLS. The controller acts on it only together with
// SetLinkStateWriteStrobe(true).
func (r *PortSC) SetPortLinkState(v uint8) { *r = PortSC(pscPLS.Set(uint32(*r), v)) }

// SetPortPower sets or clears the port power bit.
func (r *PortSC) SetPortPower(v bool) { *r = PortSC(pscPP.Set(uint32(*r), v)) }

// SetPortIndicatorControl sets the port indicator control field.
func (r *PortSC) SetPortIndicatorControl(v uint8) { *r = PortSC(pscPIC.Set(uint32(*r), v)) }

// SetLinkStateWriteStrobe sets or clears the port link state write strobe bit.
func (r *PortSC) SetLinkStateWriteStrobe(v bool) { *r = PortSC(pscLWS.Set(uint32(*r), v)) }

// SetWakeOnConnectEnable sets or clears the wake on connect enable bit.
func (r *PortSC) SetWakeOnConnectEnable(v bool) { *r = PortSC(pscWCE.Set(uint32(*r), v)) }

// SetWakeOnDisconnectEnable sets or clears the wake on disconnect enable bit.
func (r *PortSC) SetWakeOnDisconnectEnable(v bool) {
	*r = PortSC(pscWDE.Set(uint32(*r), v))
}

// SetWakeOnOverCurrentEnable sets or clears the wake on over current enable bit.
func (r *PortSC) SetWakeOnOverCurrentEnable(v bool) {
	*r = PortSC(pscWOE.Set(uint32(*r), v))
}

// ClearConnectStatusChange sets the connect status change bit to 1, which clears it when written.
func (r *PortSC) ClearConnectStatusChange() { *r = PortSC(pscCSC.Set(uint32(*r), true)) }

// ClearPortEnabledChange sets the port enabled disabled change bit to 1, which clears it when written.
func (r *PortSC) ClearPortEnabledChange() { *r = PortSC(pscPEC.Set(uint32(*r), true)) }

// ClearWarmPortResetChange sets the warm port reset change bit to 1, which clears it when written.
func (r *PortSC) ClearWarmPortResetChange() { *r = PortSC(pscWRC.Set(uint32(*r), true)) }

// ClearOverCurrentChange sets the over current change bit to 1, which clears it when written.
func (r *PortSC) ClearOverCurrentChange() { *r = PortSC(pscOCC.Set(uint32(*r), true)) }

// ClearPortResetChange sets the port reset change bit to 1, which clears it when written.
func (r *PortSC) ClearPortResetChange() { *r = PortSC(pscPRC.Set(uint32(*r), true)) }

// ClearPortLinkStateChange sets the port link state change bit to 1, which clears it when written.
func (r *PortSC) ClearPortLinkStateChange() { *r = PortSC(pscPLC.Set(uint32(*r), true)) }

// ClearPortConfigErrorChange sets the port config error change bit to 1, which clears it when written.
func (r *PortSC) ClearPortConfigErrorChange() { *r = PortSC(pscCEC.Set(uint32(*r), true)) }

// String enumerates every field.
func (r PortSC) String() string { return portSCLayout.Format(uint32(r)) }

// =============================================================================
// PORTPMSC
// =============================================================================

// PortPMSC is the Port Power Management Status and Control register as laid
// out for USB3 ports. Use USB2 for the USB2 layout.
type PortPMSC uint32

var (
	pmscU1  = mmio.Field[uint32, uint8]{Name: "u1_timeout", Lo: 0, Hi: 7, Access: mmio.AccessRW}
	pmscU2  = mmio.Field[uint32, uint8]{Name: "u2_timeout", Lo: 8, Hi: 15, Access: mmio.AccessRW}
	pmscFLA = mmio.Bit[uint32]{Name: "force_link_pm_accept", N: 16, Access: mmio.AccessRW}

	portPMSCLayout = mmio.NewLayout[uint32]("xhci.PortPMSC", pmscU1, pmscU2, pmscFLA)
)

// U1Timeout returns the U1 timeout field.
func (r PortPMSC) U1Timeout() uint8 { return pmscU1.Get(uint32(r)) }

// U2Timeout returns the U2 timeout field.
func (r PortPMSC) U2Timeout() uint8 { return pmscU2.Get(uint32(r)) }

// ForceLinkPMAccept reports whether the force link PM accept bit is set.
func (r PortPMSC) ForceLinkPMAccept() bool { return pmscFLA.Get(uint32(r)) }

// SetU1Timeout sets the U1 timeout field.
func (r *PortPMSC) SetU1Timeout(v uint8) { *r = PortPMSC(pmscU1.Set(uint32(*r), v)) }

// SetU2Timeout sets the U2 timeout field.
func (r *PortPMSC) SetU2Timeout(v uint8) { *r = PortPMSC(pmscU2.Set(uint32(*r), v)) }

// SetForceLinkPMAccept sets or clears the force link PM accept bit.
func (r *PortPMSC) SetForceLinkPMAccept(v bool) {
	*r = PortPMSC(pmscFLA.Set(uint32(*r), v))
}

// USB2 reinterprets the register with the USB2 port layout.
func (r PortPMSC) USB2() PortPMSC2 { return PortPMSC2(r) }

// String enumerates every field.
func (r PortPMSC) String() string { return portPMSCLayout.Format(uint32(r)) }

// PortPMSC2 is PORTPMSC as laid out for USB2 ports.
type PortPMSC2 uint32

var (
	pmsc2L1S  = mmio.Field[uint32, uint8]{Name: "l1_status", Lo: 0, Hi: 2, Access: mmio.AccessRO}
	pmsc2RWE  = mmio.Bit[uint32]{Name: "remote_wake_enable", N: 3, Access: mmio.AccessRW}
	pmsc2BESL = mmio.Field[uint32, uint8]{Name: "best_effort_service_latency", Lo: 4, Hi: 7, Access: mmio.AccessRW}
	pmsc2Slot = mmio.Field[uint32, uint8]{Name: "l1_device_slot", Lo: 8, Hi: 15, Access: mmio.AccessRW}
	pmsc2HLE  = mmio.Bit[uint32]{Name: "hardware_lpm_enable", N: 16, Access: mmio.AccessRW}
	pmsc2Test = mmio.Field[uint32, uint8]{Name: "port_test_control", Lo: 28, Hi: 31, Access: mmio.AccessRW}

	portPMSC2Layout = mmio.NewLayout[uint32]("xhci.PortPMSC2",
		pmsc2L1S, pmsc2RWE, pmsc2BESL, pmsc2Slot, pmsc2HLE, pmsc2Test)
)

// L1Status returns the L1 status field.
func (r PortPMSC2) L1Status() uint8 { return pmsc2L1S.Get(uint32(r)) }

// RemoteWakeEnable reports whether the remote wake enable bit is set.
func (r PortPMSC2) RemoteWakeEnable() bool { return pmsc2RWE.Get(uint32(r)) }

// BestEffortServiceLatency returns the best effort service latency field.
func (r PortPMSC2) BestEffortServiceLatency() uint8 { return pmsc2BESL.Get(uint32(r)) }

// L1DeviceSlot returns the L1 device slot field.
func (r PortPMSC2) L1DeviceSlot() uint8 { return pmsc2Slot.Get(uint32(r)) }

// HardwareLPMEnable reports whether the hardware LPM enable bit is set.
func (r PortPMSC2) HardwareLPMEnable() bool { return pmsc2HLE.Get(uint32(r)) }

// PortTestControl returns the port test control field.
func (r PortPMSC2) PortTestControl() uint8 { return pmsc2Test.Get(uint32(r)) }

// SetRemoteWakeEnable sets or clears the remote wake enable bit.
func (r *PortPMSC2) SetRemoteWakeEnable(v bool) { *r = PortPMSC2(pmsc2RWE.Set(uint32(*r), v)) }

// SetBestEffortServiceLatency sets the best effort service latency field.
func (r *PortPMSC2) SetBestEffortServiceLatency(v uint8) {
	*r = PortPMSC2(pmsc2BESL.Set(uint32(*r), v))
}

// SetL1DeviceSlot sets the L1 device slot field.
func (r *PortPMSC2) SetL1DeviceSlot(v uint8) { *r = PortPMSC2(pmsc2Slot.Set(uint32(*r), v)) }

// SetHardwareLPMEnable sets or clears the hardware LPM enable bit.
func (r *PortPMSC2) SetHardwareLPMEnable(v bool) { *r = PortPMSC2(pmsc2HLE.Set(uint32(*r), v)) }

// SetPortTestControl sets the port test control field.
func (r *PortPMSC2) SetPortTestControl(v uint8) { *r = PortPMSC2(pmsc2Test.Set(uint32(*r), v)) }

// USB3 reinterprets the register with the USB3 port layout.
func (r PortPMSC2) USB3() PortPMSC { return PortPMSC(r) }

// String enumerates every field.
func (r PortPMSC2) String() string { return portPMSC2Layout.Format(uint32(r)) }

// =============================================================================
// PORTLI
// =============================================================================

// PortLI is the Port Link Info register.
type PortLI uint32

var (
	liErrors = mmio.Field[uint32, uint16]{Name: "link_error_count", Lo: 0, Hi: 15, Access: mmio.AccessRW}
	liRLC    = mmio.Field[uint32, uint8]{Name: "rx_lane_count", Lo: 16, Hi: 19, Access: mmio.AccessRO}
	liTLC    = mmio.Field[uint32, uint8]{Name: "tx_lane_count", Lo: 20, Hi: 23, Access: mmio.AccessRO}

	portLILayout = mmio.NewLayout[uint32]("xhci.PortLI", liErrors, liRLC, liTLC)
)

// LinkErrorCount returns the link error count field.
func (r PortLI) LinkErrorCount() uint16 { return liErrors.Get(uint32(r)) }

// RxLaneCount returns the RX lane count field.
func (r PortLI) RxLaneCount() uint8 { return liRLC.Get(uint32(r)) }

// TxLaneCount returns the TX lane count field.
func (r PortLI) TxLaneCount() uint8 { return liTLC.Get(uint32(r)) }

// SetLinkErrorCount sets the link error count field.
func (r *PortLI) SetLinkErrorCount(v uint16) { *r = PortLI(liErrors.Set(uint32(*r), v)) }

// String enumerates every field.
func (r PortLI) String() string { return portLILayout.Format(uint32(r)) }

// =============================================================================
// PORTHLPMC
// =============================================================================

// PortHLPMC is the Port Hardware LPM Control register of USB2 ports.
type PortHLPMC uint32

var (
	hlpmcHIRDM = mmio.Field[uint32, uint8]{Name: "host_initiated_resume_duration_mode", Lo: 0, Hi: 1, Access: mmio.AccessRW}
	hlpmcL1Tmo = mmio.Field[uint32, uint8]{Name: "l1_timeout", Lo: 2, Hi: 9, Access: mmio.AccessRW}
	hlpmcBESLD = mmio.Field[uint32, uint8]{Name: "best_effort_service_latency_deep", Lo: 10, Hi: 13, Access: mmio.AccessRW}

	portHLPMCLayout = mmio.NewLayout[uint32]("xhci.PortHLPMC", hlpmcHIRDM, hlpmcL1Tmo, hlpmcBESLD)
)

// HostInitiatedResumeDurationMode returns the host initiated resume duration mode field.
func (r PortHLPMC) HostInitiatedResumeDurationMode() uint8 { return hlpmcHIRDM.Get(uint32(r)) }

// L1Timeout returns the L1 timeout field.
func (r PortHLPMC) L1Timeout() uint8 { return hlpmcL1Tmo.Get(uint32(r)) }

// BestEffortServiceLatencyDeep returns the best effort service latency deep field.
func (r PortHLPMC) BestEffortServiceLatencyDeep() uint8 { return hlpmcBESLD.Get(uint32(r)) }

// SetHostInitiatedResumeDurationMode sets the host initiated resume duration mode field.
func (r *PortHLPMC) SetHostInitiatedResumeDurationMode(v uint8) {
	*r = PortHLPMC(hlpmcHIRDM.Set(uint32(*r), v))
}

// SetL1Timeout sets the L1 timeout field.
func (r *PortHLPMC) SetL1Timeout(v uint8) { *r = PortHLPMC(hlpmcL1Tmo.Set(uint32(*r), v)) }

// SetBestEffortServiceLatencyDeep sets the best effort service latency deep field.
func (r *PortHLPMC) SetBestEffortServiceLatencyDeep(v uint8) {
	*r = PortHLPMC(hlpmcBESLD.Set(uint32(*r), v))
}

// String enumerates every field.
func (r PortHLPMC) String() string { return portHLPMCLayout.Format(uint32(r)) }

// =============================================================================
// Port Register Sets
// =============================================================================

// PortRegisterSets holds strided array accessors over the port register
// sets. Index i addresses port number i+1.
type PortRegisterSets struct {
	PortSC    *mmio.Array[PortSC]
	PortPMSC  *mmio.Array[PortPMSC]
	PortLI    *mmio.Array[PortLI]
	PortHLPMC *mmio.Array[PortHLPMC]
}

// NewPortRegisterSets maps the MaxPorts port register sets that follow the
// operational registers.
//
// NewPortRegisterSets panics with a *pkg.AlignmentFault if the operational
// base is not 4-byte aligned. The caller must ensure only one
// PortRegisterSets exists per controller.
func NewPortRegisterSets(mmioBase uintptr, c *Capability, m hal.Mapper) (p *PortRegisterSets, err error) {
	base := OperationalBase(mmioBase, c) + offPortSets
	n := int(c.HCSParams1.Read().NumberOfPorts())
	p = new(PortRegisterSets)
	defer func() {
		if fault := recover(); fault != nil {
			_ = p.Unmap()
			panic(fault)
		}
		if err != nil {
			_ = p.Unmap()
			p = nil
		}
	}()

	if p.PortSC, err = mmio.NewStridedArray[PortSC](base+offPortSC, n, portSetStride, m); err != nil {
		return
	}
	if p.PortPMSC, err = mmio.NewStridedArray[PortPMSC](base+offPortPMSC, n, portSetStride, m); err != nil {
		return
	}
	if p.PortLI, err = mmio.NewStridedArray[PortLI](base+offPortLI, n, portSetStride, m); err != nil {
		return
	}
	if p.PortHLPMC, err = mmio.NewStridedArray[PortHLPMC](base+offPortHLPMC, n, portSetStride, m); err != nil {
		return
	}

	pkg.LogDebug(pkg.ComponentRegisters, "port register sets mapped",
		pkg.Addr("base", base), "ports", n)
	return p, nil
}

// Len returns the number of ports.
func (p *PortRegisterSets) Len() int { return p.PortSC.Len() }

// Unmap releases every port register mapping.
func (p *PortRegisterSets) Unmap() error {
	var errs []error
	for _, u := range []unmapper{p.PortSC, p.PortPMSC, p.PortLI, p.PortHLPMC} {
		errs = append(errs, u.Unmap())
	}
	return errors.Join(errs...)
}
