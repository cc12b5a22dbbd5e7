//go:build !linux

package main

import "github.com/spf13/cobra"

// platformCommands returns no hardware commands outside Linux.
func platformCommands() []*cobra.Command {
	return nil
}
