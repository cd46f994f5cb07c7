package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xlsmtools/xlsm-cli/engine"
)

var (
	formatStart     string
	formatEnd       string
	formatSpecJSON  string
	formatBold      bool
	formatItalic    bool
	formatUnderline bool
	formatFontSize  float64
	formatFontColor string
	formatFill      string
	formatBorder    string
	formatBorderCol string
	formatNumFmt    string
	formatHAlign    string
	formatVAlign    string
	formatWrap      bool
)

var formatCmd = &cobra.Command{
	Use:   "format <file> <sheet> [flags]",
	Short: "Apply formatting to a worksheet range",
	Long: `Apply one or more style axes to a cell range.

Each axis (font, fill, border, number format, alignment) is applied
independently; axes not mentioned are left untouched, so formatting a
range bold does not clear an earlier number format.

Use --spec to pass the full style as JSON; --spec is mutually exclusive
with the individual axis flags.

Examples:
  xlsm format report.xlsm Data -s A1 -e D1 --bold --fill-color FFFF00
  xlsm format report.xlsm Data -s B2:B100 --number-format "#,##0.00"
  xlsm format report.xlsm Data -s A1 --spec '{"font":{"bold":true,"size":14}}'`,
	Args: cobra.ExactArgs(2),
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().StringVarP(&formatStart, "start", "s", "A1", "Start cell or full range expression")
	formatCmd.Flags().StringVarP(&formatEnd, "end", "e", "", "End cell")
	formatCmd.Flags().StringVar(&formatSpecJSON, "spec", "", "Full style spec as JSON")
	formatCmd.Flags().BoolVar(&formatBold, "bold", false, "Bold font")
	formatCmd.Flags().BoolVar(&formatItalic, "italic", false, "Italic font")
	formatCmd.Flags().BoolVar(&formatUnderline, "underline", false, "Underlined font")
	formatCmd.Flags().Float64Var(&formatFontSize, "font-size", 0, "Font size in points")
	formatCmd.Flags().StringVar(&formatFontColor, "font-color", "", "Font color (RRGGBB)")
	formatCmd.Flags().StringVar(&formatFill, "fill-color", "", "Solid fill color (RRGGBB)")
	formatCmd.Flags().StringVar(&formatBorder, "border-style", "", "Border style (thin, medium, thick, dashed, dotted, double, hair)")
	formatCmd.Flags().StringVar(&formatBorderCol, "border-color", "", "Border color (RRGGBB)")
	formatCmd.Flags().StringVar(&formatNumFmt, "number-format", "", `Excel number format, e.g. "#,##0.00"`)
	formatCmd.Flags().StringVar(&formatHAlign, "halign", "", "Horizontal alignment (left, center, right)")
	formatCmd.Flags().StringVar(&formatVAlign, "valign", "", "Vertical alignment (top, center, bottom)")
	formatCmd.Flags().BoolVar(&formatWrap, "wrap", false, "Wrap text")
	rootCmd.AddCommand(formatCmd)
}

// buildFormatSpec assembles a style spec from the axis flags, or decodes
// --spec when given.
func buildFormatSpec() (engine.FormatSpec, error) {
	var spec engine.FormatSpec
	if formatSpecJSON != "" {
		dec := json.NewDecoder(strings.NewReader(formatSpecJSON))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return spec, fmt.Errorf("invalid --spec JSON: %w", err)
		}
		return spec, nil
	}
	if formatBold || formatItalic || formatUnderline || formatFontSize > 0 || formatFontColor != "" {
		spec.Font = &engine.FontSpec{
			Bold:      formatBold,
			Italic:    formatItalic,
			Underline: formatUnderline,
			Size:      formatFontSize,
			Color:     formatFontColor,
		}
	}
	if formatFill != "" {
		spec.Fill = &engine.FillSpec{Color: formatFill}
	}
	if formatBorder != "" || formatBorderCol != "" {
		spec.Border = &engine.BorderSpec{Style: formatBorder, Color: formatBorderCol}
	}
	if formatNumFmt != "" {
		f := formatNumFmt
		spec.NumberFormat = &f
	}
	if formatHAlign != "" || formatVAlign != "" || formatWrap {
		spec.Alignment = &engine.AlignmentSpec{
			Horizontal: formatHAlign,
			Vertical:   formatVAlign,
			WrapText:   formatWrap,
		}
	}
	return spec, nil
}

func runFormat(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if formatSpecJSON != "" {
		for _, name := range axisFlagNames {
			if cmd.Flags().Changed(name) {
				return fmt.Errorf("--spec and --%s are mutually exclusive", name)
			}
		}
	}
	spec, err := buildFormatSpec()
	if err != nil {
		return err
	}
	return dispatch(engine.OpFormatRange, map[string]any{
		"path":       args[0],
		"sheet":      args[1],
		"start_cell": formatStart,
		"end_cell":   formatEnd,
		"spec":       spec,
	})
}

var axisFlagNames = []string{
	"bold", "italic", "underline", "font-size", "font-color",
	"fill-color", "border-style", "border-color", "number-format",
	"halign", "valign", "wrap",
}
