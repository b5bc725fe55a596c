// Package cloudinit builds NoCloud seed images for first-boot provisioning.
//
// The seed is a small ISO9660 volume labeled CIDATA holding meta-data and
// user-data, attached to the machine as a read-only disk. The user-data
// content is taken verbatim from the caller; only meta-data is generated
// here.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kdomanski/iso9660"
	"gopkg.in/yaml.v3"
)

// VolumeLabel is required by the NoCloud datasource and must be uppercase.
const VolumeLabel = "CIDATA"

// MetaData is the generated meta-data document.
//
// The instance-id is the machine's UID, not its name: cloud-init re-runs
// first-boot provisioning when the instance-id changes, so a machine that is
// deleted and recreated (or cloned) under the same name still provisions
// fresh.
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// GenerateSeed builds the seed ISO in memory.
func GenerateSeed(instanceID, hostname string, userData []byte) ([]byte, error) {
	if instanceID == "" {
		return nil, fmt.Errorf("instance ID cannot be empty")
	}
	if hostname == "" {
		return nil, fmt.Errorf("hostname cannot be empty")
	}

	meta, err := yaml.Marshal(MetaData{InstanceID: instanceID, LocalHostname: hostname})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal meta-data: %w", err)
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		_ = writer.Cleanup()
	}()

	if err := writer.AddFile(bytes.NewReader(meta), "meta-data"); err != nil {
		return nil, fmt.Errorf("failed to add meta-data: %w", err)
	}
	if err := writer.AddFile(bytes.NewReader(userData), "user-data"); err != nil {
		return nil, fmt.Errorf("failed to add user-data: %w", err)
	}

	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, VolumeLabel); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteSeed builds the seed ISO and writes it to path atomically.
func WriteSeed(path, instanceID, hostname string, userData []byte) error {
	data, err := GenerateSeed(instanceID, hostname, userData)
	if err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write seed image: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit seed image: %w", err)
	}
	return nil
}
