// Package config provides tool-level configuration for vmstead.
//
// Configuration is host-wide and read-only from the tool's perspective:
// the administrator provisions /etc/vmstead/config.yaml (or points
// VMSTEAD_CONFIG elsewhere); absent a file, built-in defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the host-wide configuration file lives.
	DefaultPath = "/etc/vmstead/config.yaml"

	// EnvConfigPath overrides DefaultPath when set.
	EnvConfigPath = "VMSTEAD_CONFIG"
)

// Config holds the paths and names the tool depends on. All fields have
// working defaults for a stock Linux/KVM host.
type Config struct {
	// NamespaceRoot is the directory holding one subdirectory per user.
	// The per-user directories are provisioned externally; vmstead never
	// creates them.
	NamespaceRoot string `yaml:"namespace_root"`

	// Hypervisor is the hypervisor binary invoked for run/install.
	Hypervisor string `yaml:"hypervisor"`

	// Imager is the disk image tool used for create/clone.
	Imager string `yaml:"imager"`

	// BridgeName is the host bridge device used for bridge networking.
	BridgeName string `yaml:"bridge_name"`

	// BridgeHelper is the privileged helper binary that attaches a tap
	// device to the bridge. It must carry CAP_NET_ADMIN.
	BridgeHelper string `yaml:"bridge_helper"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		NamespaceRoot: "/opt/VMs",
		Hypervisor:    "qemu-system-x86_64",
		Imager:        "qemu-img",
		BridgeName:    "br0",
		BridgeHelper:  "/usr/lib/qemu/qemu-bridge-helper",
	}
}

// Load reads the configuration file, falling back to defaults when the file
// does not exist. A present-but-unreadable or invalid file is an error.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = DefaultPath
	}
	return LoadFromFile(path)
}

// LoadFromFile reads the configuration from an explicit path. Missing files
// yield defaults; anything else that fails is surfaced.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if c.NamespaceRoot == "" {
		return fmt.Errorf("namespace_root is required")
	}
	if !filepath.IsAbs(c.NamespaceRoot) {
		return fmt.Errorf("namespace_root must be an absolute path, got %q", c.NamespaceRoot)
	}
	if c.Hypervisor == "" {
		return fmt.Errorf("hypervisor is required")
	}
	if c.Imager == "" {
		return fmt.Errorf("imager is required")
	}
	if c.BridgeName == "" {
		return fmt.Errorf("bridge_name is required")
	}
	if c.BridgeHelper == "" {
		return fmt.Errorf("bridge_helper is required")
	}
	return nil
}

// NamespaceDir returns the namespace directory for a user.
func (c *Config) NamespaceDir(user string) string {
	return filepath.Join(c.NamespaceRoot, user)
}
