package registry

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/vmstead/vmstead/api/v1alpha1"
	"github.com/vmstead/vmstead/internal/metadata"
	"github.com/vmstead/vmstead/internal/status"
)

// MachineInfo is one row of a namespace listing: the persisted record
// joined with the runtime state observed at listing time.
type MachineInfo struct {
	Name       string               `json:"name" yaml:"name"`
	Slot       int                  `json:"slot" yaml:"slot"`
	State      status.RuntimeState  `json:"state" yaml:"state"`
	DiskSizeMB int64                `json:"diskSizeMB" yaml:"diskSizeMB"`
	Network    v1alpha1.NetworkMode `json:"network" yaml:"network"`
	MAC        string               `json:"mac" yaml:"mac"`
}

// List returns every machine in the namespace, ordered by slot.
//
// Directories without a readable record are skipped with a warning rather
// than failing the whole listing; one corrupt record must not hide the rest.
func (r *Registry) List() ([]MachineInfo, error) {
	if err := r.ensureNamespace(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan namespace %s: %w", r.dir, err)
	}

	infos := make([]MachineInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.dir, entry.Name())
		if !metadata.Exists(dir) {
			continue
		}

		m, err := metadata.Load(dir)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", entry.Name(), err)
			continue
		}

		st, err := r.sup.State(r.diskPath(m.Metadata.Name))
		if err != nil {
			return nil, err
		}

		infos = append(infos, MachineInfo{
			Name:       m.Metadata.Name,
			Slot:       m.Spec.Slot,
			State:      st,
			DiskSizeMB: m.Spec.DiskSizeMB,
			Network:    m.Spec.NetworkMode,
			MAC:        m.Spec.MACAddress,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Slot < infos[j].Slot })
	return infos, nil
}

// Get returns the listing row for one machine.
func (r *Registry) Get(name string) (MachineInfo, error) {
	if err := r.ensureNamespace(); err != nil {
		return MachineInfo{}, err
	}

	m, err := r.load(name)
	if err != nil {
		return MachineInfo{}, err
	}
	st, err := r.sup.State(r.diskPath(name))
	if err != nil {
		return MachineInfo{}, err
	}

	return MachineInfo{
		Name:       m.Metadata.Name,
		Slot:       m.Spec.Slot,
		State:      st,
		DiskSizeMB: m.Spec.DiskSizeMB,
		Network:    m.Spec.NetworkMode,
		MAC:        m.Spec.MACAddress,
	}, nil
}
