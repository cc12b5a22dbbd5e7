//go:build linux

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ardnew/softxhci/host/hal/linux"
	"github.com/ardnew/softxhci/host/xhci"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/pkg/linux/pciid"
)

func platformCommands() []*cobra.Command {
	return []*cobra.Command{newListCommand(), newDumpCommand()}
}

func newListCommand() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List xHCI controllers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrls, err := linux.ScanControllers(root)
			if err != nil {
				return err
			}
			db := pciid.New()
			if !db.Load() {
				pkg.LogDebug(pkg.ComponentCLI, "pci.ids not found, printing numeric IDs")
			}
			return listControllers(cmd.OutOrStdout(), ctrls, db)
		},
	}
	cmd.Flags().StringVar(&root, "sysfs", linux.SysfsPCIPath, "PCI device directory")
	return cmd
}

// listControllers writes one line per controller to w.
func listControllers(w io.Writer, ctrls []linux.Controller, db *pciid.Database) error {
	if len(ctrls) == 0 {
		_, err := fmt.Fprintln(w, "no xHCI controllers found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tID\tDRIVER\tBAR0\tNAME")
	for _, c := range ctrls {
		bar := "-"
		if r, err := c.BAR(0); err == nil {
			bar = fmt.Sprintf("%#x+%#x", r.Start, r.Size())
		}
		driver := c.Driver
		if driver == "" {
			driver = "-"
		}
		fmt.Fprintf(tw, "%s\t%04x:%04x\t%s\t%s\t%s\n",
			c.Addr, c.Vendor, c.Device, driver, bar, controllerName(c, db))
	}
	return tw.Flush()
}

// controllerName joins the known vendor, device and class names of c.
func controllerName(c linux.Controller, db *pciid.Database) string {
	vendor := db.LookupVendor(c.Vendor)
	device := db.LookupDevice(c.Vendor, c.Device)
	switch {
	case vendor != "" && device != "":
		return vendor + " " + device
	case vendor != "":
		return vendor
	}
	if class := db.LookupClass(c.Class); class != "" {
		return class
	}
	return "xHCI controller"
}

func newDumpCommand() *cobra.Command {
	var (
		root string
		sec  sections
	)

	cmd := &cobra.Command{
		Use:   "dump <pci-address>",
		Short: "Dump the registers of a controller",
		Long: `Map BAR0 of the xHCI controller at the given PCI address and print its
register file. Reading registers has no side effects on the controller.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := linux.FindController(root, args[0])
			if err != nil {
				return err
			}
			bar, err := linux.OpenBAR(c, 0)
			if err != nil {
				return fmt.Errorf("open %s BAR0: %w", c.Addr, err)
			}
			defer bar.Close()

			regs, err := xhci.New(bar.Window().Base, bar)
			if err != nil {
				return err
			}
			defer regs.Close()

			return dump(cmd.OutOrStdout(), regs, sec)
		},
	}

	f := cmd.Flags()
	f.StringVar(&root, "sysfs", linux.SysfsPCIPath, "PCI device directory")
	f.BoolVar(&sec.ports, "ports", false, "Print port registers")
	f.BoolVar(&sec.doorbells, "doorbells", false, "Print doorbell registers")
	return cmd
}
