// Package disk manages virtual disk image files with qemu-img.
//
// NOTE: This implementation shells out to qemu-img and uses direct
// filesystem operations. Disk operations are pure filesystem work with no
// dependency on a machine's running state; the registry enforces the
// not-running precondition before calling in here.
package disk

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

var (
	// ErrCreateFailed covers a pre-existing target path and imager errors
	// (insufficient space, invalid size).
	ErrCreateFailed = errors.New("disk create failed")

	// ErrCloneFailed covers imager errors while copying an image.
	ErrCloneFailed = errors.New("disk clone failed")

	// ErrNotFound is returned by Delete when the image is absent. Callers
	// doing best-effort cleanup treat it as non-fatal.
	ErrNotFound = errors.New("disk image not found")
)

// Manager wraps the disk image tool.
type Manager struct {
	imager string
}

// NewManager returns a Manager invoking the given imager binary
// (normally qemu-img).
func NewManager(imager string) *Manager {
	return &Manager{imager: imager}
}

// Create provisions a new sparse qcow2 image of sizeMB megabytes at path.
// The path must not already exist.
func (m *Manager) Create(path string, sizeMB int64) error {
	if sizeMB <= 0 {
		return fmt.Errorf("%w: size must be > 0, got %d", ErrCreateFailed, sizeMB)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrCreateFailed, path)
	}

	cmd := exec.Command(m.imager, "create", "-f", "qcow2", path, fmt.Sprintf("%dM", sizeMB))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s: %v\nOutput: %s", ErrCreateFailed, path, err, string(output))
	}
	return nil
}

// Clone produces an independent full copy of src at dst. The copy shares no
// backing file with the source, so later writes to either side never affect
// the other.
func (m *Manager) Clone(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: source %s: %v", ErrCloneFailed, src, err)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrCloneFailed, dst)
	}

	cmd := exec.Command(m.imager, "convert", "-f", "qcow2", "-O", "qcow2", src, dst)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s -> %s: %v\nOutput: %s", ErrCloneFailed, src, dst, err, string(output))
	}
	return nil
}

// Delete removes the image file at path.
func (m *Manager) Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to delete disk image %s: %w", path, err)
	}
	return nil
}
