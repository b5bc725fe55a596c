package registry

import (
	"errors"
	"testing"

	"github.com/vmstead/vmstead/api/v1alpha1"
	"github.com/vmstead/vmstead/internal/metadata"
)

func TestModify(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	m, err := r.Modify("web", v1alpha1.NetworkBridge)
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if m.Spec.NetworkMode != v1alpha1.NetworkBridge {
		t.Errorf("NetworkMode = %s, want bridge", m.Spec.NetworkMode)
	}

	got, err := metadata.Load(r.machineDir("web"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Spec.NetworkMode != v1alpha1.NetworkBridge {
		t.Error("mode change not persisted")
	}
	if got.Metadata.Generation != 2 {
		t.Errorf("Generation = %d, want 2", got.Metadata.Generation)
	}

	// MAC is identity, not wiring; it never changes with the mode.
	if got.Spec.MACAddress != m.Spec.MACAddress {
		t.Error("MAC changed across modify")
	}
}

func TestModifyNoop(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := r.Modify("web", v1alpha1.NetworkNAT); err != nil {
		t.Fatalf("Modify: %v", err)
	}

	got, err := metadata.Load(r.machineDir("web"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Metadata.Generation != 1 {
		t.Errorf("no-op modify bumped generation to %d", got.Metadata.Generation)
	}
}

func TestModifyRunning(t *testing.T) {
	r, _, sup := newTestRegistry(t)

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sup.setRunning(r.diskPath("web"))

	_, err := r.Modify("web", v1alpha1.NetworkNone)
	if !errors.Is(err, ErrMachineBusy) {
		t.Fatalf("expected ErrMachineBusy, got %v", err)
	}
}

func TestModifyInvalidMode(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	if _, err := r.Modify("web", "tap"); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestModifyMissing(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.Modify("ghost", v1alpha1.NetworkNone)
	if !errors.Is(err, ErrMachineNotFound) {
		t.Fatalf("expected ErrMachineNotFound, got %v", err)
	}
}
