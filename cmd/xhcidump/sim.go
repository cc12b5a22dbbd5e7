package main

import (
	"github.com/spf13/cobra"

	"github.com/ardnew/softxhci/host/xhci"
	"github.com/ardnew/softxhci/pkg"
)

func newSimCommand() *cobra.Command {
	var (
		cfg = xhci.SimConfig{ExactCounts: true}
		sec = sections{ports: true, doorbells: true}
	)

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Dump a simulated controller",
		Long: `Build a controller register file in memory from the given capability
values and dump it. Exercises discovery and mapping without hardware.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mem, err := cfg.Memory()
			if err != nil {
				return err
			}
			regs, err := xhci.New(cfg.MMIOBase(), mem)
			if err != nil {
				return err
			}
			defer regs.Close()

			pkg.LogInfo(pkg.ComponentCLI, "dumping simulated controller",
				"slots", cfg.MaxSlots, "ports", cfg.MaxPorts)
			return dump(cmd.OutOrStdout(), regs, sec)
		},
	}

	f := cmd.Flags()
	f.Uint8Var(&cfg.MaxSlots, "slots", xhci.DefaultSimMaxSlots, "Number of device slots")
	f.Uint8Var(&cfg.MaxPorts, "ports", xhci.DefaultSimMaxPorts, "Number of root hub ports")
	f.Uint16Var(&cfg.MaxIntrs, "interrupters", xhci.DefaultSimMaxIntrs, "Number of interrupters")
	f.Uint32Var(&cfg.DBOff, "dboff", xhci.DefaultSimDBOff, "Doorbell array offset from the MMIO base")
	f.Uint32Var(&cfg.RTSOff, "rtsoff", xhci.DefaultSimRTSOff, "Runtime register offset from the MMIO base")
	f.BoolVar(&sec.ports, "show-ports", true, "Print port registers")
	f.BoolVar(&sec.doorbells, "show-doorbells", true, "Print doorbell registers")
	return cmd
}
