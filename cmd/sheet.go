package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/engine"
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Worksheet commands",
	Long: `Manage the worksheets of a workbook.

Commands:
  add  Create a worksheet, optionally at a position.
  rm   Delete a worksheet (the last sheet cannot be deleted).
  mv   Rename a worksheet.
  cp   Duplicate a worksheet under a new name.

Examples:
  xlsm sheet add report.xlsm Data
  xlsm sheet add report.xlsm Summary --index 0
  xlsm sheet mv report.xlsm Sheet1 Raw
  xlsm sheet cp report.xlsm Raw Backup
  xlsm sheet rm report.xlsm Backup`,
}

var sheetAddIndex int

var sheetAddCmd = &cobra.Command{
	Use:   "add <file> <name> [flags]",
	Short: "Create a worksheet",
	Args:  cobra.ExactArgs(2),
	RunE:  runSheetAdd,
}

var sheetRmCmd = &cobra.Command{
	Use:   "rm <file> <name>",
	Short: "Delete a worksheet",
	Args:  cobra.ExactArgs(2),
	RunE:  runSheetRm,
}

var sheetMvCmd = &cobra.Command{
	Use:   "mv <file> <old-name> <new-name>",
	Short: "Rename a worksheet",
	Args:  cobra.ExactArgs(3),
	RunE:  runSheetMv,
}

var sheetCpCmd = &cobra.Command{
	Use:   "cp <file> <source> <target>",
	Short: "Duplicate a worksheet",
	Args:  cobra.ExactArgs(3),
	RunE:  runSheetCp,
}

func init() {
	sheetAddCmd.Flags().IntVar(&sheetAddIndex, "index", -1, "Zero-based position for the new sheet (default: append)")
	sheetCmd.AddCommand(sheetAddCmd, sheetRmCmd, sheetMvCmd, sheetCpCmd)
	rootCmd.AddCommand(sheetCmd)
}

func runSheetAdd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	params := map[string]any{"path": args[0], "name": args[1]}
	if sheetAddIndex >= 0 {
		params["index"] = sheetAddIndex
	}
	return dispatch(engine.OpCreateWorksheet, params)
}

func runSheetRm(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return dispatch(engine.OpDeleteWorksheet, map[string]any{"path": args[0], "name": args[1]})
}

func runSheetMv(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return dispatch(engine.OpRenameWorksheet, map[string]any{
		"path": args[0], "old_name": args[1], "new_name": args[2],
	})
}

func runSheetCp(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return dispatch(engine.OpCopyWorksheet, map[string]any{
		"path": args[0], "source": args[1], "target": args[2],
	})
}
