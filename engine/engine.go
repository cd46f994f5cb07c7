// Package engine is the workbook manipulation core: it maps an
// operation name plus loosely typed parameters onto a single
// open-modify-save cycle against a workbook file and wraps the outcome
// in a uniform result envelope. The engine is transport-agnostic and
// codec-agnostic; file access goes through the Store contract.
package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xlsmtools/xlsm-cli/internal"
	"github.com/xlsmtools/xlsm-cli/vba"
)

// Operation names of the exposed surface.
const (
	OpReadData        = "read_data_from_excel"
	OpWriteData       = "write_data_to_excel"
	OpCreateWorkbook  = "create_new_workbook"
	OpCreateWorksheet = "create_new_worksheet"
	OpDeleteWorksheet = "delete_worksheet"
	OpRenameWorksheet = "rename_worksheet"
	OpCopyWorksheet   = "copy_worksheet"
	OpMetadata        = "get_workbook_metadata"
	OpListMacros      = "list_macros_in_workbook"
	OpMacroDetails    = "get_macro_details"
	OpFormatRange     = "format_cell_range"
)

// Operations lists every operation name the engine accepts.
func Operations() []string {
	return []string{
		OpReadData, OpWriteData, OpCreateWorkbook, OpCreateWorksheet,
		OpDeleteWorksheet, OpRenameWorksheet, OpCopyWorksheet,
		OpMetadata, OpListMacros, OpMacroDetails, OpFormatRange,
	}
}

// Engine dispatches operation requests against a Store.
type Engine struct {
	store Store
	log   *slog.Logger
	locks pathLocks
}

// New builds an Engine. A nil logger disables logging.
func New(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{store: store, log: logger}
}

// Dispatch runs one request to completion and returns its envelope.
// Component failures come back as classified error envelopes; anything
// unanticipated is caught here and reported as an internal error rather
// than crashing the channel.
func (e *Engine) Dispatch(req Request) Result {
	res := e.run(req)
	res.ID = req.ID
	if res.Status == StatusError {
		e.log.Warn("operation failed", "op", req.Op, "kind", res.Error.Kind, "error", res.Error.Message)
	} else {
		e.log.Debug("operation completed", "op", req.Op)
	}
	return res
}

func (e *Engine) run(req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("operation panic", "op", req.Op, "panic", fmt.Sprint(r))
			res = fail(Errf(KindInternal, "internal failure while handling %s", req.Op))
		}
	}()

	switch req.Op {
	case OpReadData:
		return e.readData(req.Params)
	case OpWriteData:
		return e.writeData(req.Params)
	case OpCreateWorkbook:
		return e.createWorkbook(req.Params)
	case OpCreateWorksheet:
		return e.createWorksheet(req.Params)
	case OpDeleteWorksheet:
		return e.deleteWorksheet(req.Params)
	case OpRenameWorksheet:
		return e.renameWorksheet(req.Params)
	case OpCopyWorksheet:
		return e.copyWorksheet(req.Params)
	case OpMetadata:
		return e.metadata(req.Params)
	case OpListMacros:
		return e.listMacros(req.Params)
	case OpMacroDetails:
		return e.macroDetails(req.Params)
	case OpFormatRange:
		return e.formatRange(req.Params)
	default:
		return fail(Errf(KindUnknownOperation, "unknown operation %q", req.Op))
	}
}

func ok(data any) Result {
	return Result{Status: StatusSuccess, Data: data}
}

func fail(err error) Result {
	return Result{
		Status: StatusError,
		Error:  &ErrorInfo{Kind: string(KindOf(err)), Message: err.Error()},
	}
}

// decodeParams strictly decodes the request parameters; unknown or
// mistyped fields are rejected before any file is touched.
func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return Errf(KindInvalidParameter, "malformed parameters: %v", err)
	}
	return nil
}

// resolveRange turns start/end cell strings into a normalized range.
// start may itself be a full range expression ("A1:B2", "Data!A1:B2")
// when end is empty; a sheet qualifier must then agree with the sheet
// parameter.
func resolveRange(sheet, start, end string) (internal.Range, error) {
	if end == "" && strings.ContainsAny(start, "!:") {
		qualifier, r, err := internal.ParseRange(start)
		if err != nil {
			return internal.Range{}, Wrap(KindInvalidRange, err, "invalid range")
		}
		if qualifier != "" && qualifier != sheet {
			return internal.Range{}, Errf(KindInvalidRange, "range is qualified with sheet %q but sheet %q was requested", qualifier, sheet)
		}
		return r, nil
	}
	r, err := internal.ParseSpan(start, end)
	if err != nil {
		return internal.Range{}, Wrap(KindInvalidRange, err, "invalid range")
	}
	return r, nil
}

type readDataParams struct {
	Path      string `json:"path"`
	Sheet     string `json:"sheet"`
	StartCell string `json:"start_cell,omitempty"`
	EndCell   string `json:"end_cell,omitempty"`
}

type readDataPayload struct {
	Sheet string  `json:"sheet"`
	Range string  `json:"range"`
	Rows  [][]any `json:"rows"`
}

func (e *Engine) readData(raw json.RawMessage) Result {
	var p readDataParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" || p.Sheet == "" {
		return fail(Errf(KindInvalidParameter, "path and sheet are required"))
	}
	if p.StartCell == "" {
		p.StartCell = "A1"
	}
	r, err := resolveRange(p.Sheet, p.StartCell, p.EndCell)
	if err != nil {
		return fail(err)
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	rows, err := book.ReadRange(p.Sheet, r)
	if err != nil {
		return fail(err)
	}
	return ok(readDataPayload{Sheet: p.Sheet, Range: internal.FormatRange(r), Rows: rows})
}

type writeDataParams struct {
	Path      string  `json:"path"`
	Sheet     string  `json:"sheet"`
	StartCell string  `json:"start_cell,omitempty"`
	Rows      [][]any `json:"rows"`
}

type writeDataPayload struct {
	Sheet        string `json:"sheet"`
	Range        string `json:"range"`
	RowsWritten  int    `json:"rows_written"`
	CellsWritten int    `json:"cells_written"`
}

func (e *Engine) writeData(raw json.RawMessage) Result {
	var p writeDataParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" || p.Sheet == "" {
		return fail(Errf(KindInvalidParameter, "path and sheet are required"))
	}
	if p.StartCell == "" {
		p.StartCell = "A1"
	}
	startRow, startCol, err := internal.ParseCell(p.StartCell)
	if err != nil {
		return fail(Wrap(KindInvalidRange, err, "invalid start cell"))
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	if err := book.WriteRows(p.Sheet, startRow, startCol, p.Rows); err != nil {
		return fail(err)
	}

	cells := 0
	maxCols := 0
	for _, row := range p.Rows {
		cells += len(row)
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	written := internal.Range{StartRow: startRow, StartCol: startCol, EndRow: startRow, EndCol: startCol}
	if len(p.Rows) > 0 && maxCols > 0 {
		written.EndRow = startRow + len(p.Rows) - 1
		written.EndCol = startCol + maxCols - 1
	}

	if len(p.Rows) > 0 {
		if err := book.Save(); err != nil {
			return fail(err)
		}
	}
	return ok(writeDataPayload{
		Sheet:        p.Sheet,
		Range:        internal.FormatRange(written),
		RowsWritten:  len(p.Rows),
		CellsWritten: cells,
	})
}

type createWorkbookParams struct {
	Path         string `json:"path"`
	EnableMacros bool   `json:"enable_macros,omitempty"`
	Overwrite    bool   `json:"overwrite,omitempty"`
}

type createWorkbookPayload struct {
	Path         string   `json:"path"`
	MacroEnabled bool     `json:"macro_enabled"`
	SheetNames   []string `json:"sheet_names"`
}

func (e *Engine) createWorkbook(raw json.RawMessage) Result {
	var p createWorkbookParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" {
		return fail(Errf(KindInvalidParameter, "path is required"))
	}
	// Lock on the path Create will actually use, so an operation
	// addressing the normalized name serializes against this one.
	path := internal.NormalizeExtension(p.Path, p.EnableMacros)

	defer e.lock(path)()
	book, err := e.store.Create(path, p.EnableMacros, p.Overwrite)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	if err := book.Save(); err != nil {
		return fail(err)
	}
	return ok(createWorkbookPayload{
		Path:         book.Path(),
		MacroEnabled: book.MacroEnabled(),
		SheetNames:   book.Sheets(),
	})
}

type createWorksheetParams struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Index *int   `json:"index,omitempty"`
}

type sheetListPayload struct {
	Sheet      string   `json:"sheet"`
	SheetNames []string `json:"sheet_names"`
}

func (e *Engine) createWorksheet(raw json.RawMessage) Result {
	var p createWorksheetParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" || p.Name == "" {
		return fail(Errf(KindInvalidParameter, "path and name are required"))
	}
	index := -1
	if p.Index != nil {
		index = *p.Index
		if index < 0 {
			index = 0
		}
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	if err := book.AddSheet(p.Name, index); err != nil {
		return fail(err)
	}
	if err := book.Save(); err != nil {
		return fail(err)
	}
	return ok(sheetListPayload{Sheet: p.Name, SheetNames: book.Sheets()})
}

type deleteWorksheetParams struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

func (e *Engine) deleteWorksheet(raw json.RawMessage) Result {
	var p deleteWorksheetParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" || p.Name == "" {
		return fail(Errf(KindInvalidParameter, "path and name are required"))
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	if err := book.DeleteSheet(p.Name); err != nil {
		return fail(err)
	}
	if err := book.Save(); err != nil {
		return fail(err)
	}
	return ok(sheetListPayload{Sheet: p.Name, SheetNames: book.Sheets()})
}

type renameWorksheetParams struct {
	Path    string `json:"path"`
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

func (e *Engine) renameWorksheet(raw json.RawMessage) Result {
	var p renameWorksheetParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" || p.OldName == "" || p.NewName == "" {
		return fail(Errf(KindInvalidParameter, "path, old_name and new_name are required"))
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	if err := book.RenameSheet(p.OldName, p.NewName); err != nil {
		return fail(err)
	}
	if err := book.Save(); err != nil {
		return fail(err)
	}
	return ok(sheetListPayload{Sheet: p.NewName, SheetNames: book.Sheets()})
}

type copyWorksheetParams struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func (e *Engine) copyWorksheet(raw json.RawMessage) Result {
	var p copyWorksheetParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" || p.Source == "" || p.Target == "" {
		return fail(Errf(KindInvalidParameter, "path, source and target are required"))
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	if err := book.CopySheet(p.Source, p.Target); err != nil {
		return fail(err)
	}
	if err := book.Save(); err != nil {
		return fail(err)
	}
	return ok(sheetListPayload{Sheet: p.Target, SheetNames: book.Sheets()})
}

type pathParams struct {
	Path string `json:"path"`
}

func (e *Engine) metadata(raw json.RawMessage) Result {
	var p pathParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" {
		return fail(Errf(KindInvalidParameter, "path is required"))
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	macros, err := book.Macros()
	if err != nil {
		return fail(err)
	}
	return ok(Metadata{
		SheetNames:   book.Sheets(),
		MacroEnabled: book.MacroEnabled(),
		MacroCount:   len(macros),
	})
}

type listMacrosPayload struct {
	Macros []vba.Entry `json:"macros"`
	Count  int         `json:"count"`
}

func (e *Engine) listMacros(raw json.RawMessage) Result {
	var p pathParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" {
		return fail(Errf(KindInvalidParameter, "path is required"))
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	macros, err := book.Macros()
	if err != nil {
		return fail(err)
	}
	return ok(listMacrosPayload{Macros: macros, Count: len(macros)})
}

type macroDetailsParams struct {
	Path      string `json:"path"`
	MacroName string `json:"macro_name"`
}

func (e *Engine) macroDetails(raw json.RawMessage) Result {
	var p macroDetailsParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" || p.MacroName == "" {
		return fail(Errf(KindInvalidParameter, "path and macro_name are required"))
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	macros, err := book.Macros()
	if err != nil {
		return fail(err)
	}
	for _, m := range macros {
		if m.Name == p.MacroName {
			return ok(m)
		}
	}
	return fail(Errf(KindMacroNotFound, "macro %q not found in workbook", p.MacroName))
}

type formatRangeParams struct {
	Path      string     `json:"path"`
	Sheet     string     `json:"sheet"`
	StartCell string     `json:"start_cell"`
	EndCell   string     `json:"end_cell,omitempty"`
	Spec      FormatSpec `json:"spec"`
}

type formatRangePayload struct {
	Sheet string `json:"sheet"`
	Range string `json:"range"`
	Cells int    `json:"cells"`
}

func (e *Engine) formatRange(raw json.RawMessage) Result {
	var p formatRangeParams
	if err := decodeParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Path == "" || p.Sheet == "" || p.StartCell == "" {
		return fail(Errf(KindInvalidParameter, "path, sheet and start_cell are required"))
	}
	r, err := resolveRange(p.Sheet, p.StartCell, p.EndCell)
	if err != nil {
		return fail(err)
	}

	defer e.lock(p.Path)()
	book, err := e.store.Open(p.Path)
	if err != nil {
		return fail(err)
	}
	defer book.Close()

	if err := book.ApplyStyle(p.Sheet, r, p.Spec); err != nil {
		return fail(err)
	}
	if !p.Spec.Empty() {
		if err := book.Save(); err != nil {
			return fail(err)
		}
	}
	return ok(formatRangePayload{
		Sheet: p.Sheet,
		Range: internal.FormatRange(r),
		Cells: r.Rows() * r.Cols(),
	})
}
