package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmstead/vmstead/internal/registry"
)

var runMemory int

var runCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Start a machine",
	Long: `Start a machine detached from this command.

The machine keeps running after vmstead exits. Console output goes to
console.log in the machine directory. Starting an already running machine
is an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRegistry()
		if err != nil {
			return err
		}

		if err := r.Run(registry.RunOptions{Name: args[0], MemoryMB: runMemory}); err != nil {
			return err
		}

		fmt.Printf("✓ Machine '%s' started\n", args[0])
		return nil
	},
}

var (
	installMedia  string
	installMemory int
)

var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Start a machine booted from an install medium",
	Long: `Start a machine with an install medium attached and boot from it.

Use this once to install an operating system onto the machine's disk, then
plain run afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRegistry()
		if err != nil {
			return err
		}

		if err := r.Install(args[0], installMedia, installMemory); err != nil {
			return err
		}

		fmt.Printf("✓ Machine '%s' started from %s\n", args[0], installMedia)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a running machine",
	Long: `Ask a running machine's process to shut down.

The signal requests a graceful shutdown; the guest may take a moment to
act on it. Stopping a machine that is not running is an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRegistry()
		if err != nil {
			return err
		}

		if err := r.Stop(args[0]); err != nil {
			return err
		}

		fmt.Printf("✓ Machine '%s' stop requested\n", args[0])
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state <name>",
	Short: "Show a machine's runtime state",
	Long: `Show whether a machine is running or stopped.

The state is read from the OS process table at the moment of the call,
never from cached records.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRegistry()
		if err != nil {
			return err
		}

		st, err := r.State(args[0])
		if err != nil {
			return err
		}

		fmt.Println(st)
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runMemory, "memory", 0, fmt.Sprintf("guest memory in MB (default %d)", registry.DefaultMemoryMB))

	installCmd.Flags().StringVar(&installMedia, "media", "", "path to the install medium, e.g. an OS ISO (required)")
	installCmd.Flags().IntVar(&installMemory, "memory", 0, fmt.Sprintf("guest memory in MB (default %d)", registry.DefaultMemoryMB))
	_ = installCmd.MarkFlagRequired("media")
}
