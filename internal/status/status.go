// Package status defines the runtime state model and the stable exit code
// table for the vmstead CLI.
package status

// RuntimeState is the live running/stopped status of a machine. It is always
// computed from the OS process table, never cached in the record.
type RuntimeState string

const (
	// StateRunning means a live hypervisor process owns the machine's disk.
	StateRunning RuntimeState = "running"
	// StateStopped means no matching process exists.
	StateStopped RuntimeState = "stopped"
)

// Exit codes reported by the CLI. These are stable and documented; scripts
// may rely on them.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitNamespace          = 2
	ExitNameConflict       = 3
	ExitCapacityExceeded   = 4
	ExitBusy               = 5
	ExitNotRunning         = 6
	ExitLaunchFailed       = 7
	ExitHelperUnprivileged = 8
)
