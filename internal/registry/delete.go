package registry

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/vmstead/vmstead/internal/disk"
	"github.com/vmstead/vmstead/internal/metadata"
	"github.com/vmstead/vmstead/internal/status"
)

// Delete removes a machine and everything in its directory, releasing its
// slot. A running machine is refused; stop it first.
//
// With preserveDisk, the disk image is moved out of the machine directory to
// <namespace>/<name>.qcow2 before the directory is removed, so the data
// survives the registration.
func (r *Registry) Delete(name string, preserveDisk bool) error {
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

	if _, err := r.load(name); err != nil {
		return err
	}

	st, err := r.sup.State(r.diskPath(name))
	if err != nil {
		return err
	}
	if st == status.StateRunning {
		return fmt.Errorf("%w: stop '%s' before deleting it", ErrMachineBusy, name)
	}

	if preserveDisk {
		kept := filepath.Join(r.dir, name+".qcow2")
		if _, err := os.Stat(kept); err == nil {
			return fmt.Errorf("cannot preserve disk: %s already exists", kept)
		}
		log.Printf("Preserving disk image as %s...", kept)
		if err := os.Rename(r.diskPath(name), kept); err != nil {
			return fmt.Errorf("failed to preserve disk image: %w", err)
		}
	}

	log.Printf("Deleting machine '%s'...", name)

	// The record goes first: a delete interrupted past this point leaves a
	// directory the scanner ignores, so the slot is already released.
	if err := metadata.Delete(r.machineDir(name)); err != nil {
		return err
	}

	if !preserveDisk {
		if err := r.disks.Delete(r.diskPath(name)); err != nil && !errors.Is(err, disk.ErrNotFound) {
			return err
		}
	}

	if err := os.RemoveAll(r.machineDir(name)); err != nil {
		return fmt.Errorf("failed to delete machine directory: %w", err)
	}
	return nil
}
