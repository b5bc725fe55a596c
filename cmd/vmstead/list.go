package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmstead/vmstead/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List machines in the namespace",
	Long: `List every machine in the namespace with its slot, runtime state,
disk size, network mode, and MAC address.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML stream, one document per machine
  -o json   JSON array`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		r, err := newRegistry()
		if err != nil {
			return err
		}

		infos, err := r.List()
		if err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatMachineList(infos)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&outputFormat, "output", "o", string(output.FormatTable), "output format: table, yaml, or json")
	listCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "omit the header row in table output")
}
