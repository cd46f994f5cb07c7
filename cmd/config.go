package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/config"
)

var (
	configSetRoot    string
	configSetExcerpt int
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage persisted configuration",
	Long: `Read and write the config file that backs the --root and
--excerpt-lines defaults.

The file lives under $XLSM_CONFIG_DIR, then $XDG_CONFIG_HOME/xlsm, then
~/.config/xlsm. Flags and environment variables always take precedence
over stored values.

Commands:
  show   Print the stored configuration.
  set    Update one or more fields and save.
  unset  Delete the config file.

Examples:
  xlsm config set --root /srv/books
  xlsm config set --excerpt-lines 25
  xlsm config show
  xlsm config unset`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [flags]",
	Short: "Update stored configuration fields",
	Args:  cobra.NoArgs,
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset",
	Short: "Delete the config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigUnset,
}

func init() {
	configSetCmd.Flags().StringVar(&configSetRoot, "root", "", "Directory workbook paths are confined to")
	configSetCmd.Flags().IntVar(&configSetExcerpt, "excerpt-lines", 0, "Source lines per macro excerpt")
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return jsonPrint(cfg)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if !cmd.Flags().Changed("root") && !cmd.Flags().Changed("excerpt-lines") {
		return fmt.Errorf("nothing to set: pass --root and/or --excerpt-lines")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("root") {
		cfg.Root = configSetRoot
	}
	if cmd.Flags().Changed("excerpt-lines") {
		cfg.ExcerptLines = configSetExcerpt
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return jsonPrint(cfg)
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if err := config.Delete(); err != nil {
		return fmt.Errorf("deleting config: %w", err)
	}
	return nil
}
