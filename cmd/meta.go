package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/engine"
)

var metaCmd = &cobra.Command{
	Use:   "meta <file>",
	Short: "Show workbook metadata",
	Long: `Report sheet names, the container variant, and the macro count
without touching cell data.`,
	Args: cobra.ExactArgs(1),
	RunE: runMeta,
}

func init() {
	rootCmd.AddCommand(metaCmd)
}

func runMeta(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return dispatch(engine.OpMetadata, map[string]any{"path": args[0]})
}
