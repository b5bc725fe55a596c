package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmstead/vmstead/api/v1alpha1"
)

func TestDelete(t *testing.T) {
	r, disks, _ := newTestRegistry(t)

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.Delete("web", false); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(r.machineDir("web")); !os.IsNotExist(err) {
		t.Error("machine directory survived delete")
	}

	// The image is removed through the disk manager, not swept up as a
	// plain file.
	if len(disks.deleteCalls) != 1 || disks.deleteCalls[0] != r.diskPath("web") {
		t.Errorf("disk delete calls = %v, want [%s]", disks.deleteCalls, r.diskPath("web"))
	}
}

func TestDeleteReleasesSlot(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	for _, name := range []string{"a", "b", "c"} {
		if _, err := r.Create(CreateOptions{Name: name, DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNone}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	if err := r.Delete("b", false); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Slot 1 was freed and is the smallest hole.
	m, err := r.Create(CreateOptions{Name: "d", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNone})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Spec.Slot != 1 {
		t.Errorf("slot after delete = %d, want 1", m.Spec.Slot)
	}
}

func TestDeletePreserveDisk(t *testing.T) {
	r, disks, _ := newTestRegistry(t)

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.Delete("web", true); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	kept := filepath.Join(r.Dir(), "web.qcow2")
	if _, err := os.Stat(kept); err != nil {
		t.Errorf("preserved disk missing: %v", err)
	}
	if _, err := os.Stat(r.machineDir("web")); !os.IsNotExist(err) {
		t.Error("machine directory survived delete")
	}
	if len(disks.deleteCalls) != 0 {
		t.Errorf("preserved disk was handed to the disk manager: %v", disks.deleteCalls)
	}
}

func TestDeletePreserveDiskCollision(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	kept := filepath.Join(r.Dir(), "web.qcow2")
	if err := os.WriteFile(kept, []byte("previous"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := r.Delete("web", true); err == nil {
		t.Fatal("expected error when preserve target exists")
	}
	// The machine must survive a refused delete intact.
	if _, err := r.Get("web"); err != nil {
		t.Errorf("machine damaged by refused delete: %v", err)
	}
}

func TestDeleteRunning(t *testing.T) {
	r, _, sup := newTestRegistry(t)

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sup.setRunning(r.diskPath("web"))

	err := r.Delete("web", false)
	if !errors.Is(err, ErrMachineBusy) {
		t.Fatalf("expected ErrMachineBusy, got %v", err)
	}
	if _, err := os.Stat(r.machineDir("web")); err != nil {
		t.Error("running machine was deleted anyway")
	}
}

func TestDeleteMissing(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	err := r.Delete("ghost", false)
	if !errors.Is(err, ErrMachineNotFound) {
		t.Fatalf("expected ErrMachineNotFound, got %v", err)
	}
}
