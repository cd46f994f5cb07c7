package workbook

import (
	"github.com/xlsmtools/xlsm-cli/engine"
)

// AddSheet creates a sheet named name at the given position. The index
// is clamped to [0, count]; a negative index appends. Name matching
// follows Excel and is case-insensitive, so "data" beside "Data" is
// rejected as a duplicate.
func (b *Book) AddSheet(name string, index int) error {
	if b.sheetIndex(name) >= 0 {
		return engine.Errf(engine.KindDuplicateSheet, "sheet %q already exists", name)
	}

	if _, err := b.f.NewSheet(name); err != nil {
		return engine.Wrap(engine.KindInvalidParameter, err, "invalid sheet name")
	}
	if index < 0 {
		return nil
	}

	list := b.f.GetSheetList()
	if index >= len(list)-1 {
		return nil // appended position already matches
	}
	// NewSheet appends; move the new sheet back to the requested slot.
	if err := b.f.MoveSheet(name, list[index]); err != nil {
		return engine.Wrap(engine.KindInternal, err, "repositioning sheet")
	}
	return nil
}

// DeleteSheet removes a sheet. A workbook always retains at least one
// sheet.
func (b *Book) DeleteSheet(name string) error {
	if err := b.requireSheet(name); err != nil {
		return err
	}
	if len(b.f.GetSheetList()) == 1 {
		return engine.Errf(engine.KindLastSheet, "cannot delete the only sheet %q", name)
	}
	if err := b.f.DeleteSheet(name); err != nil {
		return engine.Wrap(engine.KindInternal, err, "deleting sheet")
	}
	return nil
}

// RenameSheet renames oldName to newName.
func (b *Book) RenameSheet(oldName, newName string) error {
	if err := b.requireSheet(oldName); err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	if b.sheetIndex(newName) >= 0 {
		return engine.Errf(engine.KindDuplicateSheet, "sheet %q already exists", newName)
	}
	if err := b.f.SetSheetName(oldName, newName); err != nil {
		return engine.Wrap(engine.KindInvalidParameter, err, "renaming sheet")
	}
	return nil
}

// CopySheet duplicates source into a new sheet named target.
func (b *Book) CopySheet(source, target string) error {
	if err := b.requireSheet(source); err != nil {
		return err
	}
	if b.sheetIndex(target) >= 0 {
		return engine.Errf(engine.KindDuplicateSheet, "sheet %q already exists", target)
	}

	from := b.sheetIndex(source)
	to, err := b.f.NewSheet(target)
	if err != nil {
		return engine.Wrap(engine.KindInvalidParameter, err, "invalid sheet name")
	}
	if err := b.f.CopySheet(from, to); err != nil {
		return engine.Wrap(engine.KindInternal, err, "copying sheet")
	}
	return nil
}
