package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// cellRefRe matches a cell reference like A1, $B$2, AA100
var cellRefRe = regexp.MustCompile(`^\$?([A-Z]+)\$?([0-9]+)$`)

// Range is a rectangular block of cells in 1-indexed row/column
// coordinates with StartRow<=EndRow and StartCol<=EndCol after
// normalization. A single cell is a degenerate range with equal corners.
type Range struct {
	StartRow, StartCol int
	EndRow, EndCol     int
}

// Single reports whether the range covers exactly one cell.
func (r Range) Single() bool {
	return r.StartRow == r.EndRow && r.StartCol == r.EndCol
}

// Rows returns the number of rows the range spans.
func (r Range) Rows() int { return r.EndRow - r.StartRow + 1 }

// Cols returns the number of columns the range spans.
func (r Range) Cols() int { return r.EndCol - r.StartCol + 1 }

// ParseCell parses a single cell reference like "C10" and returns its
// 1-indexed row and column. Column letters are case-insensitive and $
// anchors are tolerated.
func ParseCell(ref string) (row, col int, err error) {
	m := cellRefRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(ref)))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	col = letterToCol(m[1])
	row, err = strconv.Atoi(m[2])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	return row, col, nil
}

// ParseRange parses an address like "Sheet1!A1:Z50", "A1:B2" or "A1" and
// returns the sheet qualifier (empty when absent) and the normalized
// range. Reversed bounds are re-ordered per axis rather than rejected,
// matching spreadsheet UI behavior.
func ParseRange(address string) (sheet string, r Range, err error) {
	rangePart := address
	if sheetPart, rest, hasSheet := strings.Cut(address, "!"); hasSheet {
		// Remove surrounding quotes from sheet name
		sheet = strings.Trim(sheetPart, "'")
		rangePart = rest
	}

	fromRef, toRef, hasColon := strings.Cut(rangePart, ":")
	if !hasColon {
		toRef = "" // single cell
	}

	r, err = ParseSpan(fromRef, toRef)
	if err != nil {
		return "", Range{}, err
	}
	return sheet, r, nil
}

// ParseSpan builds a normalized Range from a start and end cell
// reference. An empty end yields the degenerate single-cell range at
// start.
func ParseSpan(start, end string) (Range, error) {
	startRow, startCol, err := ParseCell(start)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start of range: %w", err)
	}
	if strings.TrimSpace(end) == "" {
		return Range{StartRow: startRow, StartCol: startCol, EndRow: startRow, EndCol: startCol}, nil
	}
	endRow, endCol, err := ParseCell(end)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end of range: %w", err)
	}

	// Normalize order per axis independently
	if startRow > endRow {
		startRow, endRow = endRow, startRow
	}
	if startCol > endCol {
		startCol, endCol = endCol, startCol
	}

	return Range{StartRow: startRow, StartCol: startCol, EndRow: endRow, EndCol: endCol}, nil
}

// ColToLetter converts a 1-indexed column number to Excel letter(s)
func ColToLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// CellName builds a reference like "C5" from 1-indexed coordinates.
func CellName(row, col int) string {
	return ColToLetter(col) + strconv.Itoa(row)
}

// FormatRange renders a normalized range back to "A1:Z50" form, or a
// bare "A1" for a single cell.
func FormatRange(r Range) string {
	from := CellName(r.StartRow, r.StartCol)
	to := CellName(r.EndRow, r.EndCol)
	if from == to {
		return from
	}
	return from + ":" + to
}

// FormatAddress builds an address string like "Sheet1!A1:Z50"
func FormatAddress(sheet string, r Range) string {
	return sheet + "!" + FormatRange(r)
}

func letterToCol(letters string) int {
	col := 0
	for _, c := range letters {
		col = col*26 + int(c-'A'+1)
	}
	return col
}
