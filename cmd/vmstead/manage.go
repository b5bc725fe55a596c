package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmstead/vmstead/api/v1alpha1"
)

var deletePreserveDisk bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stopped machine",
	Long: `Delete a machine and release its slot.

A running machine is refused; stop it first. With --preserve-disk, the disk
image is moved to <namespace>/<name>.qcow2 before the machine directory is
removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRegistry()
		if err != nil {
			return err
		}

		if err := r.Delete(args[0], deletePreserveDisk); err != nil {
			return err
		}

		fmt.Printf("✓ Machine '%s' deleted\n", args[0])
		return nil
	},
}

var modifyNetwork string

var modifyCmd = &cobra.Command{
	Use:   "modify <name>",
	Short: "Change a stopped machine's settings",
	Long: `Change a machine's network mode.

The machine must be stopped; the new mode takes effect on the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := v1alpha1.ParseNetworkMode(modifyNetwork)
		if err != nil {
			return err
		}

		r, err := newRegistry()
		if err != nil {
			return err
		}

		m, err := r.Modify(args[0], mode)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Machine '%s' network mode set to %s\n", m.Metadata.Name, m.Spec.NetworkMode)
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&deletePreserveDisk, "preserve-disk", false, "keep the disk image in the namespace root")

	modifyCmd.Flags().StringVar(&modifyNetwork, "network", "", "new network mode: nat, bridge, or none (required)")
	_ = modifyCmd.MarkFlagRequired("network")
}
