package workbook

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/xlsmtools/xlsm-cli/engine"
	"github.com/xlsmtools/xlsm-cli/internal"
)

// borderStyles maps border style names to excelize style indexes.
var borderStyles = map[string]int{
	"thin":   1,
	"medium": 2,
	"dashed": 3,
	"dotted": 4,
	"thick":  5,
	"double": 6,
	"hair":   7,
}

var borderSides = []string{"left", "right", "top", "bottom"}

// ApplyStyle applies the present axes of spec uniformly to every cell
// in r. Axes absent from spec leave the existing formatting untouched,
// so the merge happens per cell against its current style.
func (b *Book) ApplyStyle(sheet string, r internal.Range, spec engine.FormatSpec) error {
	if err := b.requireSheet(sheet); err != nil {
		return err
	}
	if spec.Empty() {
		return nil
	}

	for row := r.StartRow; row <= r.EndRow; row++ {
		for col := r.StartCol; col <= r.EndCol; col++ {
			cell := internal.CellName(row, col)
			if err := b.styleCell(sheet, cell, spec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Book) styleCell(sheet, cell string, spec engine.FormatSpec) error {
	styleID, err := b.f.GetCellStyle(sheet, cell)
	if err != nil {
		return engine.Wrap(engine.KindInternal, err, "reading style of "+cell)
	}
	current, err := b.f.GetStyle(styleID)
	if err != nil || current == nil {
		current = &excelize.Style{}
	}

	merged := *current
	applySpec(&merged, spec)

	newID, err := b.f.NewStyle(&merged)
	if err != nil {
		return engine.Wrap(engine.KindInvalidParameter, err, "building style")
	}
	if err := b.f.SetCellStyle(sheet, cell, cell, newID); err != nil {
		return engine.Wrap(engine.KindInternal, err, "styling cell "+cell)
	}
	return nil
}

// applySpec overlays the present axes of spec onto st.
func applySpec(st *excelize.Style, spec engine.FormatSpec) {
	if f := spec.Font; f != nil {
		font := excelize.Font{}
		if st.Font != nil {
			font = *st.Font
		}
		font.Bold = f.Bold
		font.Italic = f.Italic
		if f.Underline {
			font.Underline = "single"
		} else {
			font.Underline = ""
		}
		if f.Size > 0 {
			font.Size = f.Size
		}
		if f.Color != "" {
			font.Color = normColor(f.Color)
		}
		st.Font = &font
	}

	if f := spec.Fill; f != nil && f.Color != "" {
		st.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1, // solid
			Color:   []string{normColor(f.Color)},
		}
	}

	if bd := spec.Border; bd != nil {
		style := borderStyles[strings.ToLower(bd.Style)]
		if style == 0 {
			style = borderStyles["thin"]
		}
		color := "000000"
		if bd.Color != "" {
			color = normColor(bd.Color)
		}
		borders := make([]excelize.Border, 0, len(borderSides))
		for _, side := range borderSides {
			borders = append(borders, excelize.Border{Type: side, Style: style, Color: color})
		}
		st.Border = borders
	}

	if spec.NumberFormat != nil {
		format := *spec.NumberFormat
		st.CustomNumFmt = &format
	}

	if a := spec.Alignment; a != nil {
		alignment := excelize.Alignment{}
		if st.Alignment != nil {
			alignment = *st.Alignment
		}
		if a.Horizontal != "" {
			alignment.Horizontal = strings.ToLower(a.Horizontal)
		}
		if a.Vertical != "" {
			alignment.Vertical = strings.ToLower(a.Vertical)
		}
		alignment.WrapText = a.WrapText
		st.Alignment = &alignment
	}
}

// normColor accepts "#RRGGBB" or "RRGGBB" and returns the uppercase
// hex form excelize expects.
func normColor(c string) string {
	return strings.ToUpper(strings.TrimPrefix(c, "#"))
}
