package v1alpha1

import (
	"fmt"
	"strconv"
	"strings"
)

// File names inside a machine directory. The directory name is the machine
// name, so these stay constant per machine.
const (
	// DiskFileName is the machine's virtual disk image.
	DiskFileName = "disk.qcow2"

	// SeedFileName is the optional cloud-init seed image.
	SeedFileName = "seed.iso"

	// ConsoleFileName receives the hypervisor's stdout/stderr.
	ConsoleFileName = "console.log"

	// UserDataFileName keeps the cloud-init user-data supplied at creation.
	// Clones read it to rebuild their own seed under a fresh instance ID.
	UserDataFileName = "user-data"
)

// ParseSizeMB parses a size argument with an optional M or G suffix into
// megabytes. A bare number is taken as megabytes.
//
// Examples: "512M" → 512, "8G" → 8192, "2048" → 2048.
func ParseSizeMB(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("size is required")
	}

	multiplier := int64(1)
	num := s
	switch {
	case strings.HasSuffix(s, "G"), strings.HasSuffix(s, "g"):
		multiplier = 1024
		num = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		num = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be > 0, got %q", s)
	}
	return n * multiplier, nil
}
