package cmd

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/config"
	"github.com/xlsmtools/xlsm-cli/engine"
	"github.com/xlsmtools/xlsm-cli/workbook"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	logLevel     string
	rootDir      string
	excerptLines int
)

var rootCmd = &cobra.Command{
	Use:           "xlsm",
	Short:         "xlsm — workbook manipulation tools for agents",
	Version:       Version,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error (logs go to stderr)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Confine workbook paths to this directory (env: XLSM_ROOT)")
	rootCmd.PersistentFlags().IntVar(&excerptLines, "excerpt-lines", 0, "Source lines per macro excerpt (env: XLSM_EXCERPT_LINES)")
}

func resolveLogger() *slog.Logger {
	level := slog.LevelWarn
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveStoreConfig layers flags over environment over the config
// file, most specific wins.
func resolveStoreConfig() workbook.Config {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Config{}
	}
	out := workbook.Config{Root: cfg.Root, ExcerptLines: cfg.ExcerptLines}
	if v := os.Getenv("XLSM_ROOT"); v != "" {
		out.Root = v
	}
	if v := os.Getenv("XLSM_EXCERPT_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.ExcerptLines = n
		}
	}
	if rootDir != "" {
		out.Root = rootDir
	}
	if excerptLines > 0 {
		out.ExcerptLines = excerptLines
	}
	return out
}

func newEngine() *engine.Engine {
	return engine.New(workbook.NewStore(resolveStoreConfig()), resolveLogger())
}

// dispatch runs a single operation and prints its result envelope.
func dispatch(op string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return printResult(newEngine().Dispatch(engine.Request{Op: op, Params: raw}))
}

func Execute() error {
	return rootCmd.Execute()
}
