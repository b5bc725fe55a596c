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
	"github.com/vmstead/vmstead/internal/status"
)

// Clone registers a new machine as a copy of an existing stopped one. The
// clone gets its own slot, MAC, and UID; only the disk content (and the
// cloud-init user-data, if any) carries over. A fresh UID means the clone's
// seed has a new instance-id, so cloud-init provisions it as a new host.
//
// Like Create, cloning rolls the new directory back completely on failure.
func (r *Registry) Clone(srcName, dstName string) (*v1alpha1.Machine, error) {
	if err := v1alpha1.ValidateName(dstName); err != nil {
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

	src, err := r.load(srcName)
	if err != nil {
		return nil, err
	}

	st, err := r.sup.State(r.diskPath(srcName))
	if err != nil {
		return nil, err
	}
	if st == status.StateRunning {
		return nil, fmt.Errorf("%w: stop '%s' before cloning it", ErrMachineBusy, srcName)
	}

	dstDir := r.machineDir(dstName)
	if _, err := os.Stat(dstDir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrNameConflict, dstName)
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

	m := v1alpha1.NewMachine(dstName)
	m.Metadata.UID = identity.NewUID()
	m.Metadata.CreationTimestamp = v1alpha1.Time{Time: time.Now().UTC()}
	m.Spec = v1alpha1.MachineSpec{
		Slot:        slot,
		DiskSizeMB:  src.Spec.DiskSizeMB,
		NetworkMode: src.Spec.NetworkMode,
		MACAddress:  mac,
		SeedISO:     src.Spec.SeedISO,
	}

	log.Printf("Cloning machine '%s' to '%s' (slot %d, mac %s)...", srcName, dstName, slot, mac)
	if err := os.Mkdir(dstDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create machine directory: %w", err)
	}

	var cloneErr error
	defer func() {
		if cloneErr != nil {
			log.Printf("Clone failed, rolling back machine '%s'...", dstName)
			if err := os.RemoveAll(dstDir); err != nil {
				log.Printf("Warning: rollback left partial state in %s: %v", dstDir, err)
			}
		}
	}()

	log.Printf("Copying disk image...")
	if cloneErr = r.disks.Clone(r.diskPath(srcName), r.diskPath(dstName)); cloneErr != nil {
		return nil, cloneErr
	}

	if src.Spec.SeedISO {
		log.Printf("Regenerating cloud-init seed image...")
		userData, err := os.ReadFile(r.userDataPath(srcName))
		if err != nil {
			cloneErr = fmt.Errorf("failed to read user-data of '%s': %w", srcName, err)
			return nil, cloneErr
		}
		if cloneErr = os.WriteFile(r.userDataPath(dstName), userData, 0o644); cloneErr != nil {
			return nil, fmt.Errorf("failed to store user-data: %w", cloneErr)
		}
		if cloneErr = cloudinit.WriteSeed(r.seedPath(dstName), m.Metadata.UID, dstName, userData); cloneErr != nil {
			return nil, cloneErr
		}
	}

	if cloneErr = metadata.Store(dstDir, m); cloneErr != nil {
		return nil, cloneErr
	}

	return m, nil
}
