package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/engine"
)

var (
	readStart string
	readEnd   string
)

var readCmd = &cobra.Command{
	Use:   "read <file> <sheet> [flags]",
	Short: "Read cell values from a worksheet range",
	Long: `Read a rectangular block of cell values.

The range is given as a start cell plus an optional end cell. An omitted
end cell reads the single start cell. --start also accepts a full range
expression, including a sheet qualifier.

Examples:
  xlsm read report.xlsm Data
  xlsm read report.xlsm Data -s B2 -e D10
  xlsm read report.xlsm Data -s "Data!B2:D10"`,
	Args: cobra.ExactArgs(2),
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringVarP(&readStart, "start", "s", "", `Start cell or full range expression (default "A1")`)
	readCmd.Flags().StringVarP(&readEnd, "end", "e", "", "End cell")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return dispatch(engine.OpReadData, map[string]any{
		"path":       args[0],
		"sheet":      args[1],
		"start_cell": readStart,
		"end_cell":   readEnd,
	})
}
