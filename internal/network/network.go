// Package network translates a machine's network mode into hypervisor
// launch arguments.
//
// It performs no process or device management itself: bridge/tap plumbing
// at the kernel level belongs to the privileged helper binary. Whether that
// helper actually holds CAP_NET_ADMIN is discovered by attempting the
// launch and classifying the failure, never by a pre-check; capability
// state is external and can change between a check and the launch.
package network

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vmstead/vmstead/api/v1alpha1"
)

// ErrHelperUnprivileged means the bridge helper ran but lacked the
// network-admin capability. It is distinct from a generic launch failure so
// the user gets an actionable message about the capability grant.
var ErrHelperUnprivileged = errors.New("bridge helper lacks CAP_NET_ADMIN")

// Spec describes how the supervisor must wire a machine's virtual NIC.
type Spec struct {
	// Mode is carried along so launch failures can be classified.
	Mode v1alpha1.NetworkMode

	// Args are the hypervisor arguments implementing the mode.
	Args []string
}

// LaunchArgs resolves a network mode and MAC into a launch Spec.
//
//   - nat: user-mode networking, no privileged setup, outbound only.
//   - bridge: attach to the host bridge through the helper binary.
//   - none: no NIC.
func LaunchArgs(mode v1alpha1.NetworkMode, mac, bridge, helper string) (Spec, error) {
	switch mode {
	case v1alpha1.NetworkNAT:
		return Spec{
			Mode: mode,
			Args: []string{
				"-netdev", "user,id=net0",
				"-device", fmt.Sprintf("virtio-net-pci,netdev=net0,mac=%s", mac),
			},
		}, nil
	case v1alpha1.NetworkBridge:
		return Spec{
			Mode: mode,
			Args: []string{
				"-netdev", fmt.Sprintf("bridge,id=net0,br=%s,helper=%s", bridge, helper),
				"-device", fmt.Sprintf("virtio-net-pci,netdev=net0,mac=%s", mac),
			},
		}, nil
	case v1alpha1.NetworkNone:
		return Spec{Mode: mode, Args: []string{"-nic", "none"}}, nil
	default:
		return Spec{}, fmt.Errorf("invalid network mode %q", mode)
	}
}

// helperDenied are stderr fragments the bridge helper or the hypervisor
// emits when the helper is present but unprivileged.
var helperDenied = []string{
	"operation not permitted",
	"permission denied",
	"failed to create tun device",
	"bridge helper failed",
	"access denied by acl file",
}

// ClassifyLaunchError upgrades a launch failure to ErrHelperUnprivileged
// when the mode is bridge and the hypervisor's stderr shows a privilege
// failure from the helper. Any other failure is returned unchanged.
func ClassifyLaunchError(mode v1alpha1.NetworkMode, stderr string, launchErr error) error {
	if launchErr == nil || mode != v1alpha1.NetworkBridge {
		return launchErr
	}

	lower := strings.ToLower(stderr)
	for _, marker := range helperDenied {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: grant it with: setcap cap_net_admin+ep <helper> (stderr: %s)",
				ErrHelperUnprivileged, strings.TrimSpace(stderr))
		}
	}
	return launchErr
}
