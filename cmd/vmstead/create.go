package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmstead/vmstead/api/v1alpha1"
	"github.com/vmstead/vmstead/internal/registry"
)

var (
	createSize     string
	createNetwork  string
	createUserData string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new machine",
	Long: `Create a new machine in the namespace.

The machine gets the smallest free slot, a MAC address derived from it, and
a fresh qcow2 disk of the requested size. With --user-data, a cloud-init
NoCloud seed image is generated and attached on every run.

Creation is atomic: if any step fails, nothing of the machine remains.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sizeMB, err := v1alpha1.ParseSizeMB(createSize)
		if err != nil {
			return err
		}
		mode, err := v1alpha1.ParseNetworkMode(createNetwork)
		if err != nil {
			return err
		}

		var userData []byte
		if createUserData != "" {
			userData, err = os.ReadFile(createUserData)
			if err != nil {
				return fmt.Errorf("failed to read user-data file: %w", err)
			}
		}

		r, err := newRegistry()
		if err != nil {
			return err
		}

		m, err := r.Create(registry.CreateOptions{
			Name:        args[0],
			DiskSizeMB:  sizeMB,
			NetworkMode: mode,
			UserData:    userData,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✓ Machine '%s' created (slot %d, mac %s)\n", m.Metadata.Name, m.Spec.Slot, m.Spec.MACAddress)
		return nil
	},
}

var cloneCmd = &cobra.Command{
	Use:   "clone <source> <name>",
	Short: "Clone a stopped machine",
	Long: `Clone a stopped machine under a new name.

The clone copies the disk content and settings but gets its own slot, MAC
address, and instance identity. A machine with cloud-init user-data gets a
regenerated seed, so the clone provisions as a new host on first boot.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRegistry()
		if err != nil {
			return err
		}

		m, err := r.Clone(args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("✓ Machine '%s' cloned to '%s' (slot %d, mac %s)\n", args[0], m.Metadata.Name, m.Spec.Slot, m.Spec.MACAddress)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createSize, "size", "", "disk size with M or G suffix, e.g. 8G (required)")
	createCmd.Flags().StringVar(&createNetwork, "network", string(v1alpha1.NetworkNAT), "network mode: nat, bridge, or none")
	createCmd.Flags().StringVar(&createUserData, "user-data", "", "cloud-init user-data file to bake into a seed image")
	_ = createCmd.MarkFlagRequired("size")
}
