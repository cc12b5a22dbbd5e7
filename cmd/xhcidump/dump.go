package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ardnew/softxhci/host/xhci"
)

// sections selects the optional parts of a dump.
type sections struct {
	ports     bool
	doorbells bool
}

// dump writes the register file to w, one register per line.
func dump(w io.Writer, r *xhci.Registers, s sections) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	c := r.Capability
	fmt.Fprintf(tw, "capability @ %#x\n", r.Base)
	fmt.Fprintf(tw, "  CAPLENGTH\t%v\n", c.CapLength.Read())
	fmt.Fprintf(tw, "  HCSPARAMS1\t%v\n", c.HCSParams1.Read())
	fmt.Fprintf(tw, "  HCSPARAMS2\t%v\n", c.HCSParams2.Read())
	fmt.Fprintf(tw, "  HCSPARAMS3\t%v\n", c.HCSParams3.Read())
	fmt.Fprintf(tw, "  HCCPARAMS1\t%v\n", c.HCCParams1.Read())
	fmt.Fprintf(tw, "  DBOFF\t%v\n", c.DBOff.Read())
	fmt.Fprintf(tw, "  RTSOFF\t%v\n", c.RTSOff.Read())
	fmt.Fprintf(tw, "  HCCPARAMS2\t%v\n", c.HCCParams2.Read())

	op := r.Operational
	fmt.Fprintf(tw, "operational @ %#x\n", op.USBCmd.Phys())
	fmt.Fprintf(tw, "  USBCMD\t%v\n", op.USBCmd.Read())
	fmt.Fprintf(tw, "  USBSTS\t%v\n", op.USBSts.Read())
	fmt.Fprintf(tw, "  PAGESIZE\t%v\n", op.PageSize.Read())
	fmt.Fprintf(tw, "  DNCTRL\t%v\n", op.DNCtrl.Read())
	fmt.Fprintf(tw, "  CRCR\t%v\n", op.CRCR.Read())
	fmt.Fprintf(tw, "  DCBAAP\t%v\n", op.DCBAAP.Read())
	fmt.Fprintf(tw, "  CONFIG\t%v\n", op.Config.Read())

	rt := r.Runtime
	fmt.Fprintf(tw, "runtime @ %#x\n", rt.MFIndex.Phys())
	fmt.Fprintf(tw, "  MFINDEX\t%v\n", rt.MFIndex.Read())
	for i, iman := range rt.IMan.All() {
		fmt.Fprintf(tw, "  interrupter %d\t%v\n", i, iman)
		fmt.Fprintf(tw, "\t%v\n", rt.IMod.Read(i))
		fmt.Fprintf(tw, "\t%v\n", rt.ERSTSz.Read(i))
		fmt.Fprintf(tw, "\t%v\n", rt.ERSTBA.Read(i))
		fmt.Fprintf(tw, "\t%v\n", rt.ERDP.Read(i))
	}

	if s.ports {
		fmt.Fprintf(tw, "ports (%d)\n", r.Ports.Len())
		for i, sc := range r.Ports.PortSC.All() {
			fmt.Fprintf(tw, "  port %d\t%s\t%v\n", i+1, sc.PortSpeed(), sc)
		}
	}

	if s.doorbells {
		fmt.Fprintf(tw, "doorbells (%d)\n", r.Doorbells.Len())
		for i, db := range r.Doorbells.All() {
			fmt.Fprintf(tw, "  %d\t%#x\t%v\n", i, r.Doorbells.Phys(i), db)
		}
	}

	return tw.Flush()
}
