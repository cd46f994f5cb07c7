// Package workbook implements the engine's Store and Book contracts on
// top of excelize. Every Book is a complete in-memory copy of one
// workbook file, owned for the duration of a single operation and
// persisted back atomically.
package workbook

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/xlsmtools/xlsm-cli/engine"
	"github.com/xlsmtools/xlsm-cli/internal"
	"github.com/xlsmtools/xlsm-cli/vba"
)

// Config tunes the store.
type Config struct {
	// Root confines workbook paths to a directory tree. Empty means
	// no confinement.
	Root string
	// ExcerptLines caps macro source excerpts. Zero means the vba
	// package default.
	ExcerptLines int
}

// Store opens and creates workbook files. It is stateless: no handle
// or cache survives an operation.
type Store struct {
	cfg Config
}

// NewStore builds a Store with the given configuration.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Book is one open workbook representation.
type Book struct {
	path         string
	macroEnabled bool
	f            *excelize.File
	excerptLines int
}

var _ engine.Store = (*Store)(nil)
var _ engine.Book = (*Book)(nil)

// confine rejects paths that escape the configured root.
func (s *Store) confine(path string) error {
	if s.cfg.Root == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return engine.Wrap(engine.KindInvalidParameter, err, "resolving workbook path")
	}
	root, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		return engine.Wrap(engine.KindInvalidParameter, err, "resolving root path")
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return engine.Errf(engine.KindInvalidParameter, "workbook path %s is outside the configured root", path)
	}
	return nil
}

// Open loads the workbook at path.
func (s *Store) Open(path string) (engine.Book, error) {
	if err := s.confine(path); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, engine.Errf(engine.KindFileNotFound, "workbook %s does not exist", path)
		}
		return nil, engine.Wrap(engine.KindIO, err, "stat workbook")
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, engine.Wrap(engine.KindInvalidFormat, err, "not a recognizable workbook")
	}

	return &Book{
		path:         path,
		macroEnabled: detectMacroEnabled(path),
		f:            f,
		excerptLines: s.cfg.ExcerptLines,
	}, nil
}

// Create builds a new workbook at path. The extension is normalized to
// match the requested container variant, so creating "book.xlsx" with
// macros enabled yields "book.xlsm".
func (s *Store) Create(path string, enableMacros, overwrite bool) (engine.Book, error) {
	path = internal.NormalizeExtension(path, enableMacros)
	if err := s.confine(path); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return nil, engine.Errf(engine.KindAlreadyExists, "workbook %s already exists", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, engine.Wrap(engine.KindIO, err, "creating workbook directory")
		}
	}

	f := excelize.NewFile()
	f.Path = path

	return &Book{
		path:         path,
		macroEnabled: enableMacros,
		f:            f,
		excerptLines: s.cfg.ExcerptLines,
	}, nil
}

// detectMacroEnabled reports the container variant, preferring the
// extension and falling back to probing for an embedded project.
func detectMacroEnabled(path string) bool {
	if internal.IsMacroExtension(filepath.Ext(path)) {
		return true
	}
	has, err := vba.HasProject(path)
	return err == nil && has
}

func (b *Book) Path() string { return b.path }

func (b *Book) MacroEnabled() bool { return b.macroEnabled }

// Sheets returns sheet names in stored order.
func (b *Book) Sheets() []string {
	return b.f.GetSheetList()
}

// Macros enumerates the embedded project of the on-disk file. A book
// that has never been saved has no project to report.
func (b *Book) Macros() ([]vba.Entry, error) {
	if _, err := os.Stat(b.path); err != nil {
		return []vba.Entry{}, nil
	}
	entries, err := vba.List(b.path, vba.Options{ExcerptLines: b.excerptLines})
	if err != nil {
		return nil, engine.Wrap(engine.KindInvalidFormat, err, "reading macro project")
	}
	return entries, nil
}

// Save persists the workbook back to its path. The file is written to a
// temporary sibling first and moved into place, so a failed save leaves
// the original untouched.
func (b *Book) Save() error {
	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, ".xlsm-*"+filepath.Ext(b.path))
	if err != nil {
		return engine.Wrap(engine.KindIO, err, "creating temporary workbook")
	}
	tmpName := tmp.Name()

	if _, err := b.f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return engine.Wrap(engine.KindIO, err, "writing workbook")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return engine.Wrap(engine.KindIO, err, "writing workbook")
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return engine.Wrap(engine.KindIO, err, "replacing workbook")
	}
	return nil
}

// Close releases the in-memory representation without persisting.
func (b *Book) Close() error {
	return b.f.Close()
}

// sheetIndex returns the stored index of a sheet, or -1.
func (b *Book) sheetIndex(name string) int {
	idx, err := b.f.GetSheetIndex(name)
	if err != nil {
		return -1
	}
	return idx
}

// requireSheet fails with the sheet-not-found kind unless name exists.
func (b *Book) requireSheet(name string) error {
	if b.sheetIndex(name) < 0 {
		return engine.Errf(engine.KindSheetNotFound, "sheet %q does not exist", name)
	}
	return nil
}
