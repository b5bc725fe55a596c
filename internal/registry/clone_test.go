package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmstead/vmstead/api/v1alpha1"
	"github.com/vmstead/vmstead/internal/metadata"
)

func TestClone(t *testing.T) {
	r, disks, _ := newTestRegistry(t)

	src, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 4096, NetworkMode: v1alpha1.NetworkBridge})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	clone, err := r.Clone("web", "web2")
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	if clone.Spec.Slot == src.Spec.Slot {
		t.Error("clone shares a slot with its source")
	}
	if clone.Metadata.UID == src.Metadata.UID {
		t.Error("clone shares a UID with its source")
	}
	if clone.Spec.MACAddress == src.Spec.MACAddress {
		t.Error("clone shares a MAC with its source")
	}
	if clone.Spec.DiskSizeMB != src.Spec.DiskSizeMB {
		t.Errorf("clone disk size = %d, want %d", clone.Spec.DiskSizeMB, src.Spec.DiskSizeMB)
	}
	if clone.Spec.NetworkMode != v1alpha1.NetworkBridge {
		t.Errorf("clone network mode = %s, want bridge", clone.Spec.NetworkMode)
	}

	if len(disks.cloneCalls) != 1 {
		t.Fatalf("disk clone calls = %v", disks.cloneCalls)
	}
	if disks.cloneCalls[0] != [2]string{r.diskPath("web"), r.diskPath("web2")} {
		t.Errorf("disk clone paths = %v", disks.cloneCalls[0])
	}
}

func TestCloneRegeneratesSeed(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	userData := []byte("#cloud-config\npackages: [nginx]\n")

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT, UserData: userData}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	clone, err := r.Clone("web", "web2")
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if !clone.Spec.SeedISO {
		t.Error("clone lost the SeedISO flag")
	}

	srcSeed, err := os.ReadFile(r.seedPath("web"))
	if err != nil {
		t.Fatalf("read source seed: %v", err)
	}
	dstSeed, err := os.ReadFile(r.seedPath("web2"))
	if err != nil {
		t.Fatalf("read clone seed: %v", err)
	}
	// The seed is rebuilt under the clone's UID and hostname, so the bytes
	// must differ even though the user-data is identical.
	if string(srcSeed) == string(dstSeed) {
		t.Error("clone seed is byte-identical to source; instance-id was not refreshed")
	}

	kept, err := os.ReadFile(r.userDataPath("web2"))
	if err != nil {
		t.Fatalf("clone user-data missing: %v", err)
	}
	if string(kept) != string(userData) {
		t.Errorf("clone user-data not carried verbatim: %q", kept)
	}
}

func TestCloneRunningSource(t *testing.T) {
	r, _, sup := newTestRegistry(t)

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sup.setRunning(r.diskPath("web"))

	_, err := r.Clone("web", "web2")
	if !errors.Is(err, ErrMachineBusy) {
		t.Fatalf("expected ErrMachineBusy, got %v", err)
	}
	if _, err := os.Stat(r.machineDir("web2")); !os.IsNotExist(err) {
		t.Error("refused clone left a machine directory behind")
	}
}

func TestCloneMissingSource(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.Clone("ghost", "web2")
	if !errors.Is(err, ErrMachineNotFound) {
		t.Fatalf("expected ErrMachineNotFound, got %v", err)
	}
}

func TestCloneNameConflict(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	for _, name := range []string{"web", "web2"} {
		if _, err := r.Create(CreateOptions{Name: name, DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	_, err := r.Clone("web", "web2")
	if !errors.Is(err, ErrNameConflict) {
		t.Fatalf("expected ErrNameConflict, got %v", err)
	}
}

func TestCloneRollbackOnDiskFailure(t *testing.T) {
	r, disks, _ := newTestRegistry(t)

	if _, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	disks.cloneFunc = func(src, dst string) error {
		return errors.New("qemu-img exploded")
	}

	if _, err := r.Clone("web", "web2"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(r.machineDir("web2")); !os.IsNotExist(err) {
		t.Error("machine directory survived a failed clone")
	}
}

func TestCloneRollbackOnRecordWriteFailure(t *testing.T) {
	r, disks, _ := newTestRegistry(t)

	src, err := r.Create(CreateOptions{Name: "web", DiskSizeMB: 1024, NetworkMode: v1alpha1.NetworkNAT})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Copy the disk for real, then wedge the clone's record write by
	// squatting on its target path, so the rollback must clean up an
	// already-copied image.
	defaultClone := newMockDiskManager().cloneFunc
	disks.cloneFunc = func(srcPath, dstPath string) error {
		if err := defaultClone(srcPath, dstPath); err != nil {
			return err
		}
		return os.Mkdir(filepath.Join(filepath.Dir(dstPath), metadata.MachineFile), 0o755)
	}

	if _, err := r.Clone("web", "web2"); err == nil {
		t.Fatal("expected error")
	}

	if _, err := os.Stat(r.diskPath("web2")); !os.IsNotExist(err) {
		t.Error("orphaned disk image survived a failed clone")
	}
	if _, err := os.Stat(r.machineDir("web2")); !os.IsNotExist(err) {
		t.Error("machine directory survived a failed clone")
	}

	// The slot the failed clone briefly held goes to the next machine.
	disks.cloneFunc = defaultClone
	clone, err := r.Clone("web", "web3")
	if err != nil {
		t.Fatalf("Clone after rollback: %v", err)
	}
	if clone.Spec.Slot != src.Spec.Slot+1 {
		t.Errorf("slot after rollback = %d, want %d", clone.Spec.Slot, src.Spec.Slot+1)
	}
}
