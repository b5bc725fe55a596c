package registry

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/vmstead/vmstead/internal/config"
	"github.com/vmstead/vmstead/internal/disk"
	"github.com/vmstead/vmstead/internal/hypervisor"
	"github.com/vmstead/vmstead/internal/status"
)

// mockDiskManager is a mock implementation of the diskManager interface.
type mockDiskManager struct {
	mu sync.Mutex

	// Configurable behavior
	createFunc func(path string, sizeMB int64) error
	cloneFunc  func(src, dst string) error
	deleteFunc func(path string) error

	// Call tracking
	createCalls []string
	cloneCalls  [][2]string
	deleteCalls []string
}

// newMockDiskManager returns a mock whose operations touch real files, so
// path-level behavior (preserve-disk renames, rollback checks) stays honest.
func newMockDiskManager() *mockDiskManager {
	m := &mockDiskManager{}
	m.createFunc = func(path string, sizeMB int64) error {
		return os.WriteFile(path, []byte("qcow2-stub"), 0o644)
	}
	m.cloneFunc = func(src, dst string) error {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0o644)
	}
	m.deleteFunc = func(path string) error {
		err := os.Remove(path)
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", disk.ErrNotFound, path)
		}
		return err
	}
	return m
}

func (m *mockDiskManager) Create(path string, sizeMB int64) error {
	m.mu.Lock()
	m.createCalls = append(m.createCalls, path)
	m.mu.Unlock()
	return m.createFunc(path, sizeMB)
}

func (m *mockDiskManager) Clone(src, dst string) error {
	m.mu.Lock()
	m.cloneCalls = append(m.cloneCalls, [2]string{src, dst})
	m.mu.Unlock()
	return m.cloneFunc(src, dst)
}

func (m *mockDiskManager) Delete(path string) error {
	m.mu.Lock()
	m.deleteCalls = append(m.deleteCalls, path)
	m.mu.Unlock()
	return m.deleteFunc(path)
}

// mockSupervisor is a mock implementation of the machineSupervisor
// interface. It tracks "running" machines by disk path, the same identity
// the real supervisor derives from the process table.
type mockSupervisor struct {
	mu sync.Mutex

	running map[string]bool

	// Configurable behavior; nil means the built-in running-set behavior.
	startFunc func(spec hypervisor.LaunchSpec) error
	stateFunc func(diskPath string) (status.RuntimeState, error)
	stopFunc  func(diskPath string) error

	// Call tracking
	startCalls []hypervisor.LaunchSpec
	stopCalls  []string
}

func newMockSupervisor() *mockSupervisor {
	return &mockSupervisor{running: map[string]bool{}}
}

func (m *mockSupervisor) setRunning(diskPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[diskPath] = true
}

func (m *mockSupervisor) Start(spec hypervisor.LaunchSpec) error {
	m.mu.Lock()
	m.startCalls = append(m.startCalls, spec)
	m.mu.Unlock()
	if m.startFunc != nil {
		return m.startFunc(spec)
	}
	m.setRunning(spec.DiskPath)
	return nil
}

func (m *mockSupervisor) State(diskPath string) (status.RuntimeState, error) {
	if m.stateFunc != nil {
		return m.stateFunc(diskPath)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[diskPath] {
		return status.StateRunning, nil
	}
	return status.StateStopped, nil
}

func (m *mockSupervisor) Stop(diskPath string) error {
	m.mu.Lock()
	m.stopCalls = append(m.stopCalls, diskPath)
	m.mu.Unlock()
	if m.stopFunc != nil {
		return m.stopFunc(diskPath)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running[diskPath] {
		return hypervisor.ErrNotRunning
	}
	delete(m.running, diskPath)
	return nil
}

// newTestRegistry builds a registry over a provisioned temp namespace with
// mocked disk and supervisor dependencies.
func newTestRegistry(t *testing.T) (*Registry, *mockDiskManager, *mockSupervisor) {
	t.Helper()

	cfg := config.Default()
	cfg.NamespaceRoot = t.TempDir()

	if err := os.Mkdir(cfg.NamespaceDir("alice"), 0o755); err != nil {
		t.Fatalf("provision namespace: %v", err)
	}

	disks := newMockDiskManager()
	sup := newMockSupervisor()
	return newWithDeps(cfg, "alice", disks, sup), disks, sup
}
