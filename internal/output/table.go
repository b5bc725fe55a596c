package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/vmstead/vmstead/internal/registry"
)

// TableFormatter formats listings as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatMachine formats a single row as a one-line table.
func (f *TableFormatter) FormatMachine(info registry.MachineInfo) (string, error) {
	return f.FormatMachineList([]registry.MachineInfo{info})
}

// FormatMachineList formats a namespace listing as a table.
func (f *TableFormatter) FormatMachineList(infos []registry.MachineInfo) (string, error) {
	if len(infos) == 0 {
		return "No machines found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tSLOT\tSTATE\tDISK\tNETWORK\tMAC")
	}

	for _, info := range infos {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			info.Name, info.Slot, info.State, formatDiskSize(info.DiskSizeMB), info.Network, info.MAC)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// formatDiskSize renders a megabyte count the way users wrote it: whole
// gigabytes collapse to a G suffix, everything else stays in M.
func formatDiskSize(sizeMB int64) string {
	if sizeMB >= 1024 && sizeMB%1024 == 0 {
		return fmt.Sprintf("%dG", sizeMB/1024)
	}
	return fmt.Sprintf("%dM", sizeMB)
}
