package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vmstead/vmstead/internal/registry"
)

// YAMLFormatter formats listings as YAML.
type YAMLFormatter struct{}

// FormatMachine formats a single row as YAML.
func (f *YAMLFormatter) FormatMachine(info registry.MachineInfo) (string, error) {
	data, err := yaml.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to marshal machine to YAML: %w", err)
	}
	return string(data), nil
}

// FormatMachineList formats a listing as a YAML stream, one document per
// machine.
func (f *YAMLFormatter) FormatMachineList(infos []registry.MachineInfo) (string, error) {
	if len(infos) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	for i, info := range infos {
		data, err := yaml.Marshal(info)
		if err != nil {
			return "", fmt.Errorf("failed to marshal machine %s to YAML: %w", info.Name, err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}
	return buf.String(), nil
}
