package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/engine"
)

var writeStart string

var writeCmd = &cobra.Command{
	Use:   "write <file> <sheet> [rows-json] [flags]",
	Short: "Write a block of rows into a worksheet",
	Long: `Write a rectangular block of values anchored at --start.

Rows are a JSON array of arrays. Pass them as the third argument or on
stdin. Strings that look like numbers, booleans, or ISO dates are stored
as the typed value; null clears the cell. The workbook is saved only
when at least one row is given.

Examples:
  xlsm write report.xlsm Data '[[1,"a"],[2,"b"]]'
  xlsm write report.xlsm Data -s B2 '[["2024-01-31",true]]'
  cat rows.json | xlsm write report.xlsm Data`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringVarP(&writeStart, "start", "s", "A1", "Anchor cell for the top-left of the block")
	rootCmd.AddCommand(writeCmd)
}

func parseRows(src []byte) ([][]any, error) {
	var rows [][]any
	if err := json.Unmarshal(src, &rows); err != nil {
		return nil, fmt.Errorf("invalid rows JSON: %w", err)
	}
	return rows, nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	var src []byte
	if len(args) == 3 {
		src = []byte(args[2])
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading rows from stdin: %w", err)
		}
		src = b
	}
	rows, err := parseRows(src)
	if err != nil {
		return err
	}

	return dispatch(engine.OpWriteData, map[string]any{
		"path":       args[0],
		"sheet":      args[1],
		"start_cell": writeStart,
		"rows":       rows,
	})
}
