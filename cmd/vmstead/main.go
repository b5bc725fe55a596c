package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/vmstead/vmstead/internal/config"
	"github.com/vmstead/vmstead/internal/hypervisor"
	"github.com/vmstead/vmstead/internal/identity"
	"github.com/vmstead/vmstead/internal/network"
	"github.com/vmstead/vmstead/internal/registry"
	"github.com/vmstead/vmstead/internal/status"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "vmstead",
	Short: "Vmstead - per-user virtual machine registry",
	Long: `Vmstead manages a per-user registry of QEMU virtual machines.

Each user owns a namespace directory holding one subdirectory per machine
with its record, disk image, and console log. There is no daemon: machines
run as independent OS processes, and their state is read back from the
process table on every invocation.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	asUser       string
	outputFormat string
	noHeaders    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&asUser, "as", "", "operate on another user's namespace (default: current user)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(modifyCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(stopCmd)
}

// newRegistry builds the registry for the effective user from the host
// configuration.
func newRegistry() (*registry.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	name := asUser
	if name == "" {
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve current user: %w", err)
		}
		name = u.Username
	}

	return registry.New(cfg, name), nil
}

// exitCode maps an operation failure to the documented exit code table.
func exitCode(err error) int {
	switch {
	case err == nil:
		return status.ExitOK
	case errors.Is(err, registry.ErrNamespaceUnavailable):
		return status.ExitNamespace
	case errors.Is(err, registry.ErrNameConflict), errors.Is(err, registry.ErrMachineNotFound):
		return status.ExitNameConflict
	case errors.Is(err, identity.ErrCapacityExceeded):
		return status.ExitCapacityExceeded
	case errors.Is(err, registry.ErrMachineBusy):
		return status.ExitBusy
	case errors.Is(err, hypervisor.ErrNotRunning):
		return status.ExitNotRunning
	case errors.Is(err, network.ErrHelperUnprivileged):
		return status.ExitHelperUnprivileged
	case errors.Is(err, hypervisor.ErrLaunchFailed):
		return status.ExitLaunchFailed
	default:
		return status.ExitFailure
	}
}
