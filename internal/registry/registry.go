// Package registry implements the per-user machine registry and its
// lifecycle operations.
//
// A registry is one user's namespace directory: one subdirectory per machine
// holding the machine record, its disk image, and optional seed and console
// files. The directory tree is the only store; there is no daemon and no
// database. Mutating operations serialize against each other with an
// advisory lock file in the namespace directory, and runtime state is always
// re-derived from the OS process table rather than trusted from disk.
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/vmstead/vmstead/api/v1alpha1"
	"github.com/vmstead/vmstead/internal/config"
	"github.com/vmstead/vmstead/internal/disk"
	"github.com/vmstead/vmstead/internal/hypervisor"
	"github.com/vmstead/vmstead/internal/metadata"
	"github.com/vmstead/vmstead/internal/status"
)

// LockFileName is the advisory lock file serializing mutations within one
// namespace.
const LockFileName = ".vmstead.lock"

// diskManager covers the disk image operations the registry needs.
// Satisfied by *disk.Manager in production, mocked in tests.
type diskManager interface {
	Create(path string, sizeMB int64) error
	Clone(src, dst string) error
	Delete(path string) error
}

// machineSupervisor covers the process lifecycle operations the registry
// needs. Satisfied by *hypervisor.Supervisor in production, mocked in tests.
type machineSupervisor interface {
	Start(spec hypervisor.LaunchSpec) error
	State(diskPath string) (status.RuntimeState, error)
	Stop(diskPath string) error
}

// Registry is one user's view of their machine namespace.
type Registry struct {
	cfg   *config.Config
	user  string
	dir   string
	disks diskManager
	sup   machineSupervisor
}

// New returns a Registry over the given user's namespace.
func New(cfg *config.Config, user string) *Registry {
	return newWithDeps(cfg, user, disk.NewManager(cfg.Imager), hypervisor.New(cfg.Hypervisor))
}

// newWithDeps builds a Registry with injected dependencies for testing.
func newWithDeps(cfg *config.Config, user string, disks diskManager, sup machineSupervisor) *Registry {
	return &Registry{
		cfg:   cfg,
		user:  user,
		dir:   cfg.NamespaceDir(user),
		disks: disks,
		sup:   sup,
	}
}

// Dir returns the namespace directory this registry operates on.
func (r *Registry) Dir() string {
	return r.dir
}

// ensureNamespace verifies the user's namespace directory exists. The
// directory is provisioned by an administrator; its absence means this user
// is not set up for vmstead at all.
func (r *Registry) ensureNamespace() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s does not exist (ask an administrator to provision it)", ErrNamespaceUnavailable, r.dir)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNamespaceUnavailable, r.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNamespaceUnavailable, r.dir)
	}
	return nil
}

// lock takes the namespace's advisory lock, blocking until it is held.
// Callers must Unlock the returned lock.
func (r *Registry) lock() (*flock.Flock, error) {
	l := flock.New(filepath.Join(r.dir, LockFileName))
	if err := l.Lock(); err != nil {
		return nil, fmt.Errorf("%w: failed to lock namespace: %v", ErrNamespaceUnavailable, err)
	}
	return l, nil
}

// machineDir returns the directory for a machine name.
func (r *Registry) machineDir(name string) string {
	return filepath.Join(r.dir, name)
}

func (r *Registry) diskPath(name string) string {
	return filepath.Join(r.dir, name, v1alpha1.DiskFileName)
}

func (r *Registry) seedPath(name string) string {
	return filepath.Join(r.dir, name, v1alpha1.SeedFileName)
}

func (r *Registry) consolePath(name string) string {
	return filepath.Join(r.dir, name, v1alpha1.ConsoleFileName)
}

func (r *Registry) userDataPath(name string) string {
	return filepath.Join(r.dir, name, v1alpha1.UserDataFileName)
}

// load reads a machine record, mapping a missing record to ErrMachineNotFound.
func (r *Registry) load(name string) (*v1alpha1.Machine, error) {
	if err := v1alpha1.ValidateName(name); err != nil {
		return nil, err
	}
	m, err := metadata.Load(r.machineDir(name))
	if err != nil {
		if !metadata.Exists(r.machineDir(name)) {
			return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, name)
		}
		return nil, err
	}
	return m, nil
}

// usedSlots collects every slot currently claimed by a machine record in the
// namespace. Directories without a readable record do not claim a slot.
func (r *Registry) usedSlots() (map[int]bool, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan namespace %s: %w", r.dir, err)
	}

	used := make(map[int]bool)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := metadata.Load(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			continue
		}
		used[m.Spec.Slot] = true
	}
	return used, nil
}
