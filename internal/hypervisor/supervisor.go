// Package hypervisor launches and supervises the hypervisor process for a
// machine.
//
// There is no daemon and no trusted PID file: a launched hypervisor is a
// fully independent OS process, and liveness is re-derived on demand by
// scanning the process table for an invocation that carries the machine's
// disk image argument. A crash of the invoking command never takes a
// running machine down with it.
package hypervisor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vmstead/vmstead/internal/network"
	"github.com/vmstead/vmstead/internal/status"
)

var (
	// ErrLaunchFailed means the hypervisor binary is missing, rejected its
	// arguments, or exited during startup.
	ErrLaunchFailed = errors.New("hypervisor launch failed")

	// ErrNotRunning is returned by Stop when no process owns the machine.
	ErrNotRunning = errors.New("machine is not running")
)

// launchGrace is how long a freshly started hypervisor must survive before
// the launch counts as successful. Argument rejections surface within this
// window; anything later is the guest's own business.
const launchGrace = 500 * time.Millisecond

// Supervisor starts, finds, and stops hypervisor processes.
type Supervisor struct {
	// Binary is the hypervisor executable.
	Binary string

	// ProcDir is the process table root, normally /proc. Overridable for
	// tests.
	ProcDir string

	// Grace overrides launchGrace when non-zero.
	Grace time.Duration
}

// New returns a Supervisor for the given hypervisor binary.
func New(binary string) *Supervisor {
	return &Supervisor{Binary: binary, ProcDir: "/proc"}
}

// LaunchSpec carries everything needed to start one machine.
type LaunchSpec struct {
	Name        string
	UID         string
	DiskPath    string
	MemoryMB    int
	Net         network.Spec
	MediaPath   string // install medium; empty for a plain run
	SeedPath    string // cloud-init seed image; empty if none
	ConsolePath string // receives hypervisor stdout/stderr
}

// DriveArg is the exact argument naming a machine's disk on the hypervisor
// command line. It doubles as the machine's process-table identity, so
// BuildArgs and FindPID must agree on it.
func DriveArg(diskPath string) string {
	return fmt.Sprintf("file=%s,format=qcow2,if=virtio", diskPath)
}

// BuildArgs assembles the hypervisor argument list for a launch.
func (s *Supervisor) BuildArgs(spec LaunchSpec) []string {
	args := []string{
		"-name", fmt.Sprintf("guest=%s,process=vmstead-%s", spec.Name, spec.Name),
		"-uuid", spec.UID,
		"-m", strconv.Itoa(spec.MemoryMB),
		"-drive", DriveArg(spec.DiskPath),
		"-display", "none",
	}
	if spec.SeedPath != "" {
		args = append(args, "-drive", fmt.Sprintf("file=%s,format=raw,if=virtio,readonly=on", spec.SeedPath))
	}
	if spec.MediaPath != "" {
		// Install mode: attach the medium read-only and boot from it.
		args = append(args, "-cdrom", spec.MediaPath, "-boot", "d")
	}
	args = append(args, spec.Net.Args...)
	return args
}

// Start launches the hypervisor detached from the invoking command.
//
// The child gets its own session (Setsid), so it keeps running after this
// process exits, and its output goes to the machine's console log. Start
// waits a short grace period: a process that dies within it is reported as
// a launch failure, with bridge-helper privilege failures classified
// separately from everything else.
func (s *Supervisor) Start(spec LaunchSpec) error {
	console, err := os.OpenFile(spec.ConsolePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open console log %s: %w", spec.ConsolePath, err)
	}
	defer func() {
		_ = console.Close()
	}()

	var stderrBuf bytes.Buffer
	cmd := exec.Command(s.Binary, s.BuildArgs(spec)...)
	cmd.Stdout = console
	cmd.Stderr = io.MultiWriter(console, &stderrBuf)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLaunchFailed, s.Binary, err)
	}

	// Reap the child if it exits early; otherwise the goroutine idles
	// until our own process ends, and the detached child lives on.
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	grace := s.Grace
	if grace == 0 {
		grace = launchGrace
	}

	select {
	case waitErr := <-done:
		launchErr := fmt.Errorf("%w: hypervisor exited during startup (%v)\nOutput: %s",
			ErrLaunchFailed, waitErr, stderrBuf.String())
		return network.ClassifyLaunchError(spec.Net.Mode, stderrBuf.String(), launchErr)
	case <-time.After(grace):
		return nil
	}
}

// FindPID scans the process table for a hypervisor invocation carrying this
// machine's disk argument. The match is against a whole argv field, never a
// substring, so unrelated processes mentioning the path elsewhere are safe.
func (s *Supervisor) FindPID(diskPath string) (int, bool, error) {
	entries, err := os.ReadDir(s.ProcDir)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read process table %s: %w", s.ProcDir, err)
	}

	want := DriveArg(diskPath)
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.ProcDir, entry.Name(), "cmdline"))
		if err != nil {
			// Process exited between the scan and the read, or it
			// belongs to another user. Either way it is not ours.
			continue
		}

		for _, arg := range strings.Split(string(data), "\x00") {
			if arg == want {
				return pid, true, nil
			}
		}
	}
	return 0, false, nil
}

// State reports whether a live process owns the machine's disk.
func (s *Supervisor) State(diskPath string) (status.RuntimeState, error) {
	_, found, err := s.FindPID(diskPath)
	if err != nil {
		return status.StateStopped, err
	}
	if found {
		return status.StateRunning, nil
	}
	return status.StateStopped, nil
}

// Stop sends a graceful termination request to the machine's process.
//
// Best-effort by design: the host-side process is signaled, but whether the
// guest inside shuts down cleanly is beyond this layer.
func (s *Supervisor) Stop(diskPath string) error {
	pid, found, err := s.FindPID(diskPath)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotRunning
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			// Exited between scan and signal.
			return ErrNotRunning
		}
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}
	return nil
}
