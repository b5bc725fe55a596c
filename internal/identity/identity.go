// Package identity manages machine identities within a namespace: the
// bounded slot space, the MAC address derived from a slot, and the SMBIOS
// UUID handed to the hypervisor.
//
// Persistence of a chosen identity is the registry's job; nothing here
// touches the filesystem.
package identity

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vmstead/vmstead/api/v1alpha1"
)

// ErrCapacityExceeded is returned by Allocate when all slots in
// [0, v1alpha1.SlotMax] are taken.
var ErrCapacityExceeded = errors.New("namespace slot capacity exceeded")

// Allocate picks the smallest free slot given the set of slots already in
// use. Deleted machines free their slot, so the smallest-free policy reuses
// holes rather than growing past the bound.
func Allocate(used map[int]bool) (int, error) {
	for slot := 0; slot <= v1alpha1.SlotMax; slot++ {
		if !used[slot] {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("%w: all %d slots in use", ErrCapacityExceeded, v1alpha1.SlotMax+1)
}

// MAC derives a MAC address from a slot: the 52:54 locally-administered
// unicast prefix, the slot byte, then three random bytes.
//
// The random tail means two machines can collide on a MAC. That is accepted
// behavior, deliberately not tightened into a deterministic or
// registry-checked scheme.
func MAC(slot int) (string, error) {
	if slot < 0 || slot > v1alpha1.SlotMax {
		return "", fmt.Errorf("slot must be in [0, %d], got %d", v1alpha1.SlotMax, slot)
	}

	var tail [3]byte
	if _, err := rand.Read(tail[:]); err != nil {
		return "", fmt.Errorf("failed to generate MAC suffix: %w", err)
	}

	return fmt.Sprintf("52:54:%02x:%02x:%02x:%02x", slot, tail[0], tail[1], tail[2]), nil
}

// NewUID returns a fresh UUID string for a machine record. It is also passed
// to the hypervisor as the guest's SMBIOS UUID.
func NewUID() string {
	return uuid.NewString()
}
