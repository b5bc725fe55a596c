package registry

import "errors"

var (
	// ErrNamespaceUnavailable means the user's namespace directory is
	// missing or cannot be used.
	ErrNamespaceUnavailable = errors.New("namespace unavailable")

	// ErrNameConflict means a machine with the requested name already
	// exists in the namespace.
	ErrNameConflict = errors.New("machine name already in use")

	// ErrMachineNotFound means no machine record exists under that name.
	ErrMachineNotFound = errors.New("machine not found")

	// ErrMachineBusy means the operation requires the machine to be
	// stopped but a live process owns it.
	ErrMachineBusy = errors.New("machine is running")
)
