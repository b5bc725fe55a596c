// Package metadata persists Machine records as YAML files in machine
// directories. The write is atomic (temp file plus rename within the same
// directory), so a visible record is always a complete record.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vmstead/vmstead/api/v1alpha1"
)

// MachineFile is the record file name inside each machine directory.
const MachineFile = "machine.yaml"

// ErrNoRecord means the directory holds no (readable) machine record.
var ErrNoRecord = errors.New("no machine record")

// Store writes the record into dir atomically, bumping its generation.
func Store(dir string, m *v1alpha1.Machine) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid record: %w", err)
	}
	m.Metadata.Generation++

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal machine record: %w", err)
	}

	tmp := filepath.Join(dir, "."+MachineFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write machine record: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, MachineFile)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit machine record: %w", err)
	}
	return nil
}

// Load reads and validates the record from dir.
func Load(dir string) (*v1alpha1.Machine, error) {
	data, err := os.ReadFile(filepath.Join(dir, MachineFile))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w in %s", ErrNoRecord, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read machine record in %s: %w", dir, err)
	}

	var m v1alpha1.Machine
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse machine record in %s: %w", dir, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine record in %s: %w", dir, err)
	}
	return &m, nil
}

// Exists reports whether dir holds a record file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, MachineFile))
	return err == nil
}

// Delete removes the record file from dir.
func Delete(dir string) error {
	err := os.Remove(filepath.Join(dir, MachineFile))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w in %s", ErrNoRecord, dir)
	}
	if err != nil {
		return fmt.Errorf("failed to delete machine record in %s: %w", dir, err)
	}
	return nil
}
