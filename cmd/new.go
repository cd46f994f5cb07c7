package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/engine"
)

var (
	newMacros    bool
	newOverwrite bool
)

var newCmd = &cobra.Command{
	Use:   "new <file> [flags]",
	Short: "Create a new workbook",
	Long: `Create an empty workbook with a single default sheet.

The extension is normalized to match the container variant: with
--macros the file becomes .xlsm, without it .xlsx. Template extensions
(.xltx, .xltm, .xlam) are kept as given.

Examples:
  xlsm new report.xlsx
  xlsm new tooling.xlsm --macros
  xlsm new report.xlsx --overwrite`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().BoolVar(&newMacros, "macros", false, "Create a macro-enabled workbook")
	newCmd.Flags().BoolVar(&newOverwrite, "overwrite", false, "Replace an existing file")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return dispatch(engine.OpCreateWorkbook, map[string]any{
		"path":          args[0],
		"enable_macros": newMacros,
		"overwrite":     newOverwrite,
	})
}
