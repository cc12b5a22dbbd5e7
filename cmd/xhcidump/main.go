// Command xhcidump prints the register file of an xHCI host controller.
//
// Usage:
//
//	xhcidump list
//	xhcidump dump 0000:00:14.0 [--ports] [--doorbells]
//	xhcidump sim [--slots N] [--ports N] [--dboff OFF]
//
// The list and dump subcommands read PCI functions through Linux sysfs and
// need root to map BAR0. The sim subcommand builds a simulated controller in
// memory and dumps it, which needs no hardware.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ardnew/softxhci/pkg"
)

// options holds the global flags.
type options struct {
	logLevel  string
	logFormat string
}

func newRootCommand() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:           "xhcidump",
		Short:         "Print xHCI host controller registers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(opts)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Minimum log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log output format (text, json)")

	root.AddCommand(newSimCommand())
	root.AddCommand(platformCommands()...)
	return root
}

// configureLogging applies the global logging flags.
func configureLogging(opts options) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("%w: log level %q", pkg.ErrInvalidParameter, opts.logLevel)
	}
	if opts.logFormat != "text" && opts.logFormat != "json" {
		return fmt.Errorf("%w: log format %q", pkg.ErrInvalidParameter, opts.logFormat)
	}
	pkg.SetLogLevel(level)
	pkg.SetLogFormat(pkg.ParseLogFormat(opts.logFormat))
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		pkg.LogError(pkg.ComponentCLI, "command failed", "error", err)
		fmt.Fprintln(os.Stderr, "xhcidump:", err)
		os.Exit(1)
	}
}
