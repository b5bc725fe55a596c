package registry

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vmstead/vmstead/api/v1alpha1"
	"github.com/vmstead/vmstead/internal/cloudinit"
	"github.com/vmstead/vmstead/internal/identity"
	"github.com/vmstead/vmstead/internal/metadata"
)

// CreateOptions carries the user's choices for a new machine.
type CreateOptions struct {
	// Name is the machine name, also its directory name.
	Name string

	// DiskSizeMB is the virtual disk size.
	DiskSizeMB int64

	// NetworkMode selects the NIC wiring used on every run.
	NetworkMode v1alpha1.NetworkMode

	// UserData, when non-nil, is verbatim cloud-init user-data; a NoCloud
	// seed image is generated and attached on every run.
	UserData []byte
}

// Create registers a new machine: allocates a slot, derives its identity,
// creates its disk and optional seed image, and persists the record.
//
// Creation is all or nothing. If any step fails after the machine directory
// appears, the directory and everything in it are removed, releasing the
// slot (slots are derived from surviving records, so removal is the release).
func (r *Registry) Create(opts CreateOptions) (*v1alpha1.Machine, error) {
	if err := v1alpha1.ValidateName(opts.Name); err != nil {
		return nil, err
	}
	if opts.DiskSizeMB <= 0 {
		return nil, fmt.Errorf("disk size must be > 0, got %d MB", opts.DiskSizeMB)
	}
	if _, err := v1alpha1.ParseNetworkMode(string(opts.NetworkMode)); err != nil {
		return nil, err
	}

	if err := r.ensureNamespace(); err != nil {
		return nil, err
	}
	lk, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lk.Unlock()
	}()

	machineDir := r.machineDir(opts.Name)
	if _, err := os.Stat(machineDir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrNameConflict, opts.Name)
	}

	used, err := r.usedSlots()
	if err != nil {
		return nil, err
	}
	slot, err := identity.Allocate(used)
	if err != nil {
		return nil, err
	}

	mac, err := identity.MAC(slot)
	if err != nil {
		return nil, err
	}

	m := v1alpha1.NewMachine(opts.Name)
	m.Metadata.UID = identity.NewUID()
	m.Metadata.CreationTimestamp = v1alpha1.Time{Time: time.Now().UTC()}
	m.Spec = v1alpha1.MachineSpec{
		Slot:        slot,
		DiskSizeMB:  opts.DiskSizeMB,
		NetworkMode: opts.NetworkMode,
		MACAddress:  mac,
		SeedISO:     opts.UserData != nil,
	}

	log.Printf("Creating machine '%s' (slot %d, mac %s)...", opts.Name, slot, mac)
	if err := os.Mkdir(machineDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create machine directory: %w", err)
	}

	var createErr error
	defer func() {
		if createErr != nil {
			log.Printf("Creation failed, rolling back machine '%s'...", opts.Name)
			if err := os.RemoveAll(machineDir); err != nil {
				log.Printf("Warning: rollback left partial state in %s: %v", machineDir, err)
			}
		}
	}()

	log.Printf("Creating disk image (%dMB)...", opts.DiskSizeMB)
	if createErr = r.disks.Create(r.diskPath(opts.Name), opts.DiskSizeMB); createErr != nil {
		return nil, createErr
	}

	if opts.UserData != nil {
		log.Printf("Generating cloud-init seed image...")
		if createErr = os.WriteFile(r.userDataPath(opts.Name), opts.UserData, 0o644); createErr != nil {
			return nil, fmt.Errorf("failed to store user-data: %w", createErr)
		}
		if createErr = cloudinit.WriteSeed(r.seedPath(opts.Name), m.Metadata.UID, opts.Name, opts.UserData); createErr != nil {
			return nil, createErr
		}
	}

	if createErr = metadata.Store(machineDir, m); createErr != nil {
		return nil, createErr
	}

	return m, nil
}
