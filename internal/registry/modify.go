package registry

import (
	"fmt"
	"log"

	"github.com/vmstead/vmstead/api/v1alpha1"
	"github.com/vmstead/vmstead/internal/metadata"
	"github.com/vmstead/vmstead/internal/status"
)

// Modify changes a machine's network mode. The machine must be stopped: the
// mode only takes effect at launch, and changing it under a live process
// would make the record lie about the running NIC.
func (r *Registry) Modify(name string, mode v1alpha1.NetworkMode) (*v1alpha1.Machine, error) {
	if _, err := v1alpha1.ParseNetworkMode(string(mode)); err != nil {
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

	m, err := r.load(name)
	if err != nil {
		return nil, err
	}

	st, err := r.sup.State(r.diskPath(name))
	if err != nil {
		return nil, err
	}
	if st == status.StateRunning {
		return nil, fmt.Errorf("%w: stop '%s' before modifying it", ErrMachineBusy, name)
	}

	if m.Spec.NetworkMode == mode {
		return m, nil
	}

	log.Printf("Changing network mode of '%s': %s -> %s", name, m.Spec.NetworkMode, mode)
	m.Spec.NetworkMode = mode
	if err := metadata.Store(r.machineDir(name), m); err != nil {
		return nil, err
	}
	return m, nil
}
