package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/xlsmtools/xlsm-cli/engine"
	"github.com/xlsmtools/xlsm-cli/internal"
)

// dateLayouts are the string forms coerced to a date/time cell value.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ReadRange reads r from sheet row-major. Cells beyond the populated
// extent read as nil.
func (b *Book) ReadRange(sheet string, r internal.Range) ([][]any, error) {
	if err := b.requireSheet(sheet); err != nil {
		return nil, err
	}

	rows := make([][]any, 0, r.Rows())
	for row := r.StartRow; row <= r.EndRow; row++ {
		line := make([]any, 0, r.Cols())
		for col := r.StartCol; col <= r.EndCol; col++ {
			v, err := b.readCell(sheet, internal.CellName(row, col))
			if err != nil {
				return nil, err
			}
			line = append(line, v)
		}
		rows = append(rows, line)
	}
	return rows, nil
}

// readCell maps one stored cell to its tagged value: nil, float64,
// bool, time.Time or string. Formula cells yield the cached result.
func (b *Book) readCell(sheet, cell string) (any, error) {
	raw, err := b.f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, engine.Wrap(engine.KindInternal, err, "reading cell "+cell)
	}
	if raw == "" {
		return nil, nil
	}

	cellType, err := b.f.GetCellType(sheet, cell)
	if err != nil {
		return nil, engine.Wrap(engine.KindInternal, err, "reading cell "+cell)
	}

	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeInlineString, excelize.CellTypeSharedString:
		return raw, nil
	case excelize.CellTypeDate:
		// ISO 8601 stored dates
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts, nil
			}
		}
		return raw, nil
	default:
		// Number cells carry no type attribute; formula cells carry
		// their cached result. A date-formatted number is a serial
		// date and reads back as a time value.
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			if b.isDateStyled(sheet, cell) {
				if ts, err := excelize.ExcelDateToTime(f, false); err == nil {
					return ts, nil
				}
			}
			return f, nil
		}
		return raw, nil
	}
}

// isDateStyled reports whether the cell's number format renders its
// numeric value as a date, time or duration.
func (b *Book) isDateStyled(sheet, cell string) bool {
	styleID, err := b.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false
	}
	st, err := b.f.GetStyle(styleID)
	if err != nil || st == nil {
		return false
	}
	if st.CustomNumFmt != nil {
		return strings.ContainsAny(strings.ToLower(*st.CustomNumFmt), "ymdhs")
	}
	return isDateFmtID(st.NumFmt)
}

// isDateFmtID covers the built-in number formats Excel renders as
// dates, times or durations.
func isDateFmtID(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// WriteRows writes rows starting at (startRow, startCol), coercing each
// input to the narrowest matching cell value and overwriting
// unconditionally. Empty input succeeds and writes nothing.
func (b *Book) WriteRows(sheet string, startRow, startCol int, rows [][]any) error {
	if err := b.requireSheet(sheet); err != nil {
		return err
	}

	for i, row := range rows {
		for j, v := range row {
			cell := internal.CellName(startRow+i, startCol+j)
			if err := b.f.SetCellValue(sheet, cell, Coerce(v)); err != nil {
				return engine.Wrap(engine.KindInternal, err, "writing cell "+cell)
			}
		}
	}
	return nil
}

// Coerce maps a loosely typed input value to the narrowest matching
// cell value: number, then boolean, then date/time, then text. Nil and
// empty strings clear the cell.
func Coerce(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, float64, float32, int, int32, int64, time.Time:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		switch strings.ToLower(s) {
		case "true":
			return true
		case "false":
			return false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}
