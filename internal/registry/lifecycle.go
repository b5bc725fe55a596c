package registry

import (
	"fmt"
	"log"
	"os"

	"github.com/vmstead/vmstead/internal/hypervisor"
	"github.com/vmstead/vmstead/internal/network"
	"github.com/vmstead/vmstead/internal/status"
)

// DefaultMemoryMB is the guest memory size when the user does not choose one.
const DefaultMemoryMB = 2048

// RunOptions carries the per-launch choices for run and install.
type RunOptions struct {
	// Name is the machine to launch.
	Name string

	// MemoryMB is the guest memory size; DefaultMemoryMB when zero.
	MemoryMB int

	// MediaPath, when set, attaches an install medium and boots from it.
	MediaPath string
}

// Run launches a stopped machine detached from the calling process.
//
// The launch is re-checked under the namespace lock: two racing run commands
// for the same machine resolve to one launch and one ErrMachineBusy.
func (r *Registry) Run(opts RunOptions) error {
	if opts.MediaPath != "" {
		if _, err := os.Stat(opts.MediaPath); err != nil {
			return fmt.Errorf("install medium %s: %w", opts.MediaPath, err)
		}
	}

	if err := r.ensureNamespace(); err != nil {
		return err
	}
	lk, err := r.lock()
	if err != nil {
		return err
	}
	defer func() {
		_ = lk.Unlock()
	}()

	m, err := r.load(opts.Name)
	if err != nil {
		return err
	}

	st, err := r.sup.State(r.diskPath(opts.Name))
	if err != nil {
		return err
	}
	if st == status.StateRunning {
		return fmt.Errorf("%w: %s", ErrMachineBusy, opts.Name)
	}

	netSpec, err := network.LaunchArgs(m.Spec.NetworkMode, m.Spec.MACAddress, r.cfg.BridgeName, r.cfg.BridgeHelper)
	if err != nil {
		return err
	}

	memory := opts.MemoryMB
	if memory == 0 {
		memory = DefaultMemoryMB
	}

	spec := hypervisor.LaunchSpec{
		Name:        opts.Name,
		UID:         m.Metadata.UID,
		DiskPath:    r.diskPath(opts.Name),
		MemoryMB:    memory,
		Net:         netSpec,
		MediaPath:   opts.MediaPath,
		ConsolePath: r.consolePath(opts.Name),
	}
	if m.Spec.SeedISO {
		spec.SeedPath = r.seedPath(opts.Name)
	}

	if opts.MediaPath != "" {
		log.Printf("Starting machine '%s' (%dMB, %s network) from install medium %s...",
			opts.Name, memory, m.Spec.NetworkMode, opts.MediaPath)
	} else {
		log.Printf("Starting machine '%s' (%dMB, %s network)...", opts.Name, memory, m.Spec.NetworkMode)
	}
	return r.sup.Start(spec)
}

// Install launches a stopped machine booted from an install medium. It is
// Run with a medium attached; the medium must already exist on the host.
func (r *Registry) Install(name, mediaPath string, memoryMB int) error {
	if mediaPath == "" {
		return fmt.Errorf("install medium is required")
	}
	return r.Run(RunOptions{Name: name, MemoryMB: memoryMB, MediaPath: mediaPath})
}

// Stop asks the machine's process to shut down. The guest may take a while
// to act on it; Stop returns once the signal is delivered.
func (r *Registry) Stop(name string) error {
	if err := r.ensureNamespace(); err != nil {
		return err
	}

	if _, err := r.load(name); err != nil {
		return err
	}

	log.Printf("Stopping machine '%s'...", name)
	return r.sup.Stop(r.diskPath(name))
}

// State reports the machine's current runtime state, derived from the
// process table at the moment of the call.
func (r *Registry) State(name string) (status.RuntimeState, error) {
	if err := r.ensureNamespace(); err != nil {
		return status.StateStopped, err
	}

	if _, err := r.load(name); err != nil {
		return status.StateStopped, err
	}
	return r.sup.State(r.diskPath(name))
}
