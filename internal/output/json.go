package output

import (
	"encoding/json"
	"fmt"

	"github.com/vmstead/vmstead/internal/registry"
)

// JSONFormatter formats listings as JSON.
type JSONFormatter struct{}

// FormatMachine formats a single row as JSON.
func (f *JSONFormatter) FormatMachine(info registry.MachineInfo) (string, error) {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal machine to JSON: %w", err)
	}
	return string(data) + "\n", nil
}

// FormatMachineList formats a listing as a JSON array.
func (f *JSONFormatter) FormatMachineList(infos []registry.MachineInfo) (string, error) {
	if len(infos) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal machine list to JSON: %w", err)
	}
	return string(data) + "\n", nil
}
