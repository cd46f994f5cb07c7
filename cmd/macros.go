package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/engine"
)

var macrosCmd = &cobra.Command{
	Use:   "macros <file> [name]",
	Short: "List macros or show one macro's details",
	Long: `Inspect the VBA project embedded in a workbook.

Without a name, lists every macro with its kind, module, size, and a
source excerpt. With a name, shows that macro only; the name must match
exactly. A workbook without a project yields an empty list.

Examples:
  xlsm macros tooling.xlsm
  xlsm macros tooling.xlsm RefreshReport`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMacros,
}

func init() {
	rootCmd.AddCommand(macrosCmd)
}

func runMacros(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if len(args) == 2 {
		return dispatch(engine.OpMacroDetails, map[string]any{
			"path": args[0], "macro_name": args[1],
		})
	}
	return dispatch(engine.OpListMacros, map[string]any{"path": args[0]})
}
