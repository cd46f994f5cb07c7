package engine

import (
	"github.com/xlsmtools/xlsm-cli/internal"
	"github.com/xlsmtools/xlsm-cli/vba"
)

// Store opens and creates workbook resources identified by file path.
// Implementations hold no state across calls; every operation is a
// complete open-modify-save cycle.
type Store interface {
	// Open loads an existing workbook. A missing path reports
	// KindFileNotFound, an unrecognizable container KindInvalidFormat.
	Open(path string) (Book, error)

	// Create builds a new workbook at path. The enableMacros flag
	// selects the macro-enabled container variant. An existing path
	// reports KindAlreadyExists unless overwrite is set. The new
	// workbook is not persisted until Save is called.
	Create(path string, enableMacros, overwrite bool) (Book, error)
}

// Book is one exclusively owned in-memory workbook representation,
// valid for the duration of a single operation. Implementations report
// failures as *Error with the most specific applicable kind.
type Book interface {
	Path() string
	MacroEnabled() bool

	// Sheets returns sheet names in the workbook's stored order.
	// Name matching follows Excel and is case-insensitive: "data"
	// beside "Data" is a duplicate.
	Sheets() []string
	// AddSheet inserts a sheet at index, clamped to [0, count].
	// A negative index appends.
	AddSheet(name string, index int) error
	DeleteSheet(name string) error
	RenameSheet(oldName, newName string) error
	CopySheet(source, target string) error

	// ReadRange reads a rectangular range row-major. Cells beyond the
	// populated extent read as nil, not as an error.
	ReadRange(sheet string, r internal.Range) ([][]any, error)
	// WriteRows writes rows starting at (startRow, startCol), growing
	// the sheet's extent as needed and overwriting unconditionally.
	WriteRows(sheet string, startRow, startCol int, rows [][]any) error
	// ApplyStyle applies the present axes of spec uniformly to r.
	ApplyStyle(sheet string, r internal.Range, spec FormatSpec) error

	// Macros enumerates the embedded macro project. A workbook without
	// a project yields an empty slice, never an error.
	Macros() ([]vba.Entry, error)

	// Save persists the representation back to Path atomically.
	Save() error
	// Close releases the representation without persisting.
	Close() error
}
