package v1alpha1

import (
	"fmt"
	"regexp"
)

const (
	// GroupName is the API group for vmstead resources.
	GroupName = "vmstead.dev"

	// Version is the API version.
	Version = "v1alpha1"

	// MachineKind is the kind string for Machine records.
	MachineKind = "Machine"

	// SlotMax is the highest slot number a namespace can hand out.
	// Slots are the scarce per-user resource: [0, SlotMax].
	SlotMax = 255
)

// NetworkMode selects how a machine's virtual NIC is wired on launch.
type NetworkMode string

const (
	// NetworkNAT is isolated user-mode networking, outbound only.
	NetworkNAT NetworkMode = "nat"
	// NetworkBridge attaches the NIC to a host bridge via the privileged helper.
	NetworkBridge NetworkMode = "bridge"
	// NetworkNone attaches no NIC at all.
	NetworkNone NetworkMode = "none"
)

// ParseNetworkMode validates a user-supplied network mode string.
func ParseNetworkMode(s string) (NetworkMode, error) {
	switch NetworkMode(s) {
	case NetworkNAT, NetworkBridge, NetworkNone:
		return NetworkMode(s), nil
	default:
		return "", fmt.Errorf("invalid network mode %q (valid modes: nat, bridge, none)", s)
	}
}

// Machine is the persisted record for one virtual machine. One record lives
// in each machine directory under a user's namespace as machine.yaml.
//
// Runtime state and memory size are deliberately absent: liveness is always
// re-derived from the OS process table, and memory is chosen fresh at each run.
type Machine struct {
	TypeMeta `yaml:",inline"`

	Metadata ObjectMeta `json:"metadata" yaml:"metadata"`

	Spec MachineSpec `json:"spec" yaml:"spec"`
}

// MachineSpec is the immutable-ish portion of a machine record.
// Only NetworkMode may change after creation (via modify).
type MachineSpec struct {
	// Slot is the machine's identity within its namespace, in [0, SlotMax].
	Slot int `json:"slot" yaml:"slot"`

	// DiskSizeMB is the virtual disk size requested at creation.
	DiskSizeMB int64 `json:"diskSizeMB" yaml:"diskSizeMB"`

	// NetworkMode is one of nat, bridge, none.
	NetworkMode NetworkMode `json:"networkMode" yaml:"networkMode"`

	// MACAddress is derived from the slot plus random bytes at creation.
	// Collisions between machines are possible and accepted; see identity.MAC.
	MACAddress string `json:"macAddress" yaml:"macAddress"`

	// SeedISO records whether a cloud-init seed image was generated at
	// creation and should be attached on run.
	SeedISO bool `json:"seedISO,omitempty" yaml:"seedISO,omitempty"`
}

// NewMachine returns a Machine with TypeMeta populated for this API version.
func NewMachine(name string) *Machine {
	return &Machine{
		TypeMeta: TypeMeta{
			Kind:       MachineKind,
			APIVersion: GroupName + "/" + Version,
		},
		Metadata: ObjectMeta{Name: name},
	}
}

// namePattern matches machine names: must start and end with a lowercase
// alphanumeric and may contain hyphens and underscores in between.
var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]*[a-z0-9])?$`)

// ValidateName checks a machine name against the naming rules.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name must start and end with lowercase alphanumeric characters and contain only alphanumeric, hyphens, or underscores, got %q", name)
	}
	return nil
}

// Validate checks the record for structural errors.
func (m *Machine) Validate() error {
	expectedAPIVersion := GroupName + "/" + Version
	if m.APIVersion != expectedAPIVersion {
		return fmt.Errorf("unsupported apiVersion: %s (expected: %s)", m.APIVersion, expectedAPIVersion)
	}
	if m.Kind != MachineKind {
		return fmt.Errorf("unsupported kind: %s (expected: %s)", m.Kind, MachineKind)
	}
	if err := ValidateName(m.Metadata.Name); err != nil {
		return err
	}
	if m.Spec.Slot < 0 || m.Spec.Slot > SlotMax {
		return fmt.Errorf("slot must be in [0, %d], got %d", SlotMax, m.Spec.Slot)
	}
	if m.Spec.DiskSizeMB <= 0 {
		return fmt.Errorf("diskSizeMB must be > 0, got %d", m.Spec.DiskSizeMB)
	}
	if _, err := ParseNetworkMode(string(m.Spec.NetworkMode)); err != nil {
		return err
	}
	if m.Spec.MACAddress == "" {
		return fmt.Errorf("macAddress is required")
	}
	return nil
}
