package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlsmtools/xlsm-cli/internal"
	"github.com/xlsmtools/xlsm-cli/vba"
)

// fakeStore keeps "on-disk" workbook state in memory. Open hands out a
// working copy; only Save publishes mutations back, mirroring the
// open-modify-save contract.
type fakeStore struct {
	books   map[string]*fakeBook
	saves   []string // paths persisted via Save, in order
	openErr error
	panicOn string // op trigger: panic when opening this path
}

func newFakeStore() *fakeStore {
	return &fakeStore{books: map[string]*fakeBook{}}
}

// seed registers a saved workbook with the given sheets.
func (s *fakeStore) seed(path string, macroEnabled bool, sheets ...string) *fakeBook {
	b := &fakeBook{
		store:        s,
		path:         path,
		macroEnabled: macroEnabled,
		sheets:       append([]string{}, sheets...),
		cells:        map[string]map[[2]int]any{},
		macros:       []vba.Entry{},
	}
	s.books[path] = b
	return b
}

func (s *fakeStore) Open(path string) (Book, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	if path == s.panicOn {
		panic("codec exploded")
	}
	b, ok := s.books[path]
	if !ok {
		return nil, Errf(KindFileNotFound, "workbook %s does not exist", path)
	}
	return b.clone(), nil
}

func (s *fakeStore) Create(path string, enableMacros, overwrite bool) (Book, error) {
	if _, ok := s.books[path]; ok && !overwrite {
		return nil, Errf(KindAlreadyExists, "workbook %s already exists", path)
	}
	return &fakeBook{
		store:        s,
		path:         path,
		macroEnabled: enableMacros,
		sheets:       []string{"Sheet1"},
		cells:        map[string]map[[2]int]any{},
		macros:       []vba.Entry{},
	}, nil
}

type fakeBook struct {
	store        *fakeStore
	path         string
	macroEnabled bool
	sheets       []string
	cells        map[string]map[[2]int]any
	styled       []string // FormatRange of each ApplyStyle call
	macros       []vba.Entry
	macroErr     error
	saveErr      error
	closed       bool
}

func (b *fakeBook) clone() *fakeBook {
	c := &fakeBook{
		store:        b.store,
		path:         b.path,
		macroEnabled: b.macroEnabled,
		sheets:       append([]string{}, b.sheets...),
		cells:        map[string]map[[2]int]any{},
		styled:       append([]string{}, b.styled...),
		macros:       append([]vba.Entry{}, b.macros...),
		macroErr:     b.macroErr,
		saveErr:      b.saveErr,
	}
	for sheet, m := range b.cells {
		c.cells[sheet] = map[[2]int]any{}
		for k, v := range m {
			c.cells[sheet][k] = v
		}
	}
	return c
}

func (b *fakeBook) Path() string       { return b.path }
func (b *fakeBook) MacroEnabled() bool { return b.macroEnabled }
func (b *fakeBook) Sheets() []string   { return append([]string{}, b.sheets...) }

// indexOf matches names the way Excel does, case-insensitively.
func (b *fakeBook) indexOf(name string) int {
	for i, s := range b.sheets {
		if strings.EqualFold(s, name) {
			return i
		}
	}
	return -1
}

func (b *fakeBook) AddSheet(name string, index int) error {
	if b.indexOf(name) >= 0 {
		return Errf(KindDuplicateSheet, "sheet %q already exists", name)
	}
	if index < 0 || index >= len(b.sheets) {
		b.sheets = append(b.sheets, name)
		return nil
	}
	b.sheets = append(b.sheets[:index], append([]string{name}, b.sheets[index:]...)...)
	return nil
}

func (b *fakeBook) DeleteSheet(name string) error {
	i := b.indexOf(name)
	if i < 0 {
		return Errf(KindSheetNotFound, "sheet %q does not exist", name)
	}
	if len(b.sheets) == 1 {
		return Errf(KindLastSheet, "cannot delete the only sheet %q", name)
	}
	b.sheets = append(b.sheets[:i], b.sheets[i+1:]...)
	return nil
}

func (b *fakeBook) RenameSheet(oldName, newName string) error {
	i := b.indexOf(oldName)
	if i < 0 {
		return Errf(KindSheetNotFound, "sheet %q does not exist", oldName)
	}
	if b.indexOf(newName) >= 0 {
		return Errf(KindDuplicateSheet, "sheet %q already exists", newName)
	}
	b.sheets[i] = newName
	return nil
}

func (b *fakeBook) CopySheet(source, target string) error {
	if b.indexOf(source) < 0 {
		return Errf(KindSheetNotFound, "sheet %q does not exist", source)
	}
	if b.indexOf(target) >= 0 {
		return Errf(KindDuplicateSheet, "sheet %q already exists", target)
	}
	b.sheets = append(b.sheets, target)
	return nil
}

func (b *fakeBook) ReadRange(sheet string, r internal.Range) ([][]any, error) {
	if b.indexOf(sheet) < 0 {
		return nil, Errf(KindSheetNotFound, "sheet %q does not exist", sheet)
	}
	rows := make([][]any, 0, r.Rows())
	for row := r.StartRow; row <= r.EndRow; row++ {
		line := make([]any, 0, r.Cols())
		for col := r.StartCol; col <= r.EndCol; col++ {
			line = append(line, b.cells[sheet][[2]int{row, col}])
		}
		rows = append(rows, line)
	}
	return rows, nil
}

func (b *fakeBook) WriteRows(sheet string, startRow, startCol int, rows [][]any) error {
	if b.indexOf(sheet) < 0 {
		return Errf(KindSheetNotFound, "sheet %q does not exist", sheet)
	}
	if b.cells[sheet] == nil {
		b.cells[sheet] = map[[2]int]any{}
	}
	for i, row := range rows {
		for j, v := range row {
			b.cells[sheet][[2]int{startRow + i, startCol + j}] = v
		}
	}
	return nil
}

func (b *fakeBook) ApplyStyle(sheet string, r internal.Range, spec FormatSpec) error {
	if b.indexOf(sheet) < 0 {
		return Errf(KindSheetNotFound, "sheet %q does not exist", sheet)
	}
	if spec.Empty() {
		return nil
	}
	b.styled = append(b.styled, internal.FormatRange(r))
	return nil
}

func (b *fakeBook) Macros() ([]vba.Entry, error) {
	if b.macroErr != nil {
		return nil, b.macroErr
	}
	return b.macros, nil
}

func (b *fakeBook) Save() error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.store.saves = append(b.store.saves, b.path)
	b.store.books[b.path] = b.clone()
	return nil
}

func (b *fakeBook) Close() error {
	b.closed = true
	return nil
}

func dispatch(t *testing.T, e *Engine, op string, params any) Result {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return e.Dispatch(Request{Op: op, Params: raw})
}

func requireErrorKind(t *testing.T, res Result, kind Kind) {
	t.Helper()
	require.Equal(t, StatusError, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, string(kind), res.Error.Kind)
	assert.Nil(t, res.Data)
}

func TestDispatchUnknownOperation(t *testing.T) {
	e := New(newFakeStore(), nil)
	res := e.Dispatch(Request{Op: "explode_workbook"})
	requireErrorKind(t, res, KindUnknownOperation)
}

func TestDispatchMalformedParams(t *testing.T) {
	store := newFakeStore()
	e := New(store, nil)

	// wrong type
	res := e.Dispatch(Request{Op: OpReadData, Params: json.RawMessage(`{"path":42}`)})
	requireErrorKind(t, res, KindInvalidParameter)

	// unknown field
	res = e.Dispatch(Request{Op: OpReadData, Params: json.RawMessage(`{"path":"a.xlsx","sheet":"S","shhet":"S"}`)})
	requireErrorKind(t, res, KindInvalidParameter)

	// missing required parameter
	res = dispatch(t, e, OpWriteData, map[string]any{"path": "a.xlsx"})
	requireErrorKind(t, res, KindInvalidParameter)
}

func TestReadMissingFile(t *testing.T) {
	e := New(newFakeStore(), nil)
	res := dispatch(t, e, OpReadData, map[string]any{
		"path": "missing.xlsx", "sheet": "Sheet1", "start_cell": "A1",
	})
	requireErrorKind(t, res, KindFileNotFound)
}

func TestWriteThenReadConsistency(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsm", true, "Sheet", "Data")
	e := New(store, nil)

	rows := [][]any{{float64(1), "a"}, {float64(2), "b"}}
	res := dispatch(t, e, OpWriteData, map[string]any{
		"path": "book.xlsm", "sheet": "Data", "start_cell": "A1", "rows": rows,
	})
	require.Equal(t, StatusSuccess, res.Status, "write failed: %+v", res.Error)
	payload := res.Data.(writeDataPayload)
	assert.Equal(t, "A1:B2", payload.Range)
	assert.Equal(t, 2, payload.RowsWritten)
	assert.Equal(t, 4, payload.CellsWritten)

	res = dispatch(t, e, OpReadData, map[string]any{
		"path": "book.xlsm", "sheet": "Data", "start_cell": "A1", "end_cell": "B2",
	})
	require.Equal(t, StatusSuccess, res.Status)
	read := res.Data.(readDataPayload)
	assert.Equal(t, rows, read.Rows)
}

func TestWriteEmptyRowsIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1")
	e := New(store, nil)

	res := dispatch(t, e, OpWriteData, map[string]any{
		"path": "book.xlsx", "sheet": "Sheet1", "rows": [][]any{},
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 0, res.Data.(writeDataPayload).RowsWritten)
	assert.Empty(t, store.saves, "no-op write must not persist")
}

func TestWriteToMissingSheet(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1")
	e := New(store, nil)

	res := dispatch(t, e, OpWriteData, map[string]any{
		"path": "book.xlsx", "sheet": "Nope", "rows": [][]any{{"x"}},
	})
	requireErrorKind(t, res, KindSheetNotFound)
}

func TestReadBeyondExtentIsEmpty(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1")
	e := New(store, nil)

	res := dispatch(t, e, OpReadData, map[string]any{
		"path": "book.xlsx", "sheet": "Sheet1", "start_cell": "Z90", "end_cell": "AA91",
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, [][]any{{nil, nil}, {nil, nil}}, res.Data.(readDataPayload).Rows)
}

func TestInvalidRange(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1")
	e := New(store, nil)

	res := dispatch(t, e, OpReadData, map[string]any{
		"path": "book.xlsx", "sheet": "Sheet1", "start_cell": "1A",
	})
	requireErrorKind(t, res, KindInvalidRange)

	// a sheet qualifier that contradicts the sheet parameter
	res = dispatch(t, e, OpReadData, map[string]any{
		"path": "book.xlsx", "sheet": "Sheet1", "start_cell": "Other!A1:B2",
	})
	requireErrorKind(t, res, KindInvalidRange)
}

func TestRangeExpressionInStartCell(t *testing.T) {
	store := newFakeStore()
	b := store.seed("book.xlsx", false, "Sheet1")
	b.cells["Sheet1"] = map[[2]int]any{{1, 1}: "x", {2, 2}: "y"}
	e := New(store, nil)

	res := dispatch(t, e, OpReadData, map[string]any{
		"path": "book.xlsx", "sheet": "Sheet1", "start_cell": "Sheet1!B2:A1",
	})
	require.Equal(t, StatusSuccess, res.Status)
	read := res.Data.(readDataPayload)
	assert.Equal(t, "A1:B2", read.Range)
	assert.Equal(t, [][]any{{"x", nil}, {nil, "y"}}, read.Rows)
}

func TestCreateWorkbook(t *testing.T) {
	store := newFakeStore()
	e := New(store, nil)

	res := dispatch(t, e, OpCreateWorkbook, map[string]any{
		"path": "new.xlsm", "enable_macros": true,
	})
	require.Equal(t, StatusSuccess, res.Status)
	payload := res.Data.(createWorkbookPayload)
	assert.True(t, payload.MacroEnabled)
	assert.Equal(t, []string{"Sheet1"}, payload.SheetNames)
	require.Contains(t, store.books, "new.xlsm")

	// creating again without overwrite must fail
	res = dispatch(t, e, OpCreateWorkbook, map[string]any{
		"path": "new.xlsm", "enable_macros": true,
	})
	requireErrorKind(t, res, KindAlreadyExists)

	res = dispatch(t, e, OpCreateWorkbook, map[string]any{
		"path": "new.xlsm", "enable_macros": true, "overwrite": true,
	})
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestCreateWorkbookLocksNormalizedPath(t *testing.T) {
	store := newFakeStore()
	e := New(store, nil)

	// the store sees the extension-normalized path, so the dispatcher's
	// path lock and a later operation on "race.xlsm" share one key
	res := dispatch(t, e, OpCreateWorkbook, map[string]any{
		"path": "race.xlsx", "enable_macros": true,
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "race.xlsm", res.Data.(createWorkbookPayload).Path)
	require.Contains(t, store.books, "race.xlsm")

	res = dispatch(t, e, OpMetadata, map[string]any{"path": "race.xlsm"})
	require.Equal(t, StatusSuccess, res.Status)
}

func TestCreateWorksheet(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1", "Last")
	e := New(store, nil)

	res := dispatch(t, e, OpCreateWorksheet, map[string]any{
		"path": "book.xlsx", "name": "Middle", "index": 1,
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"Sheet1", "Middle", "Last"}, res.Data.(sheetListPayload).SheetNames)
	assert.Equal(t, []string{"Sheet1", "Middle", "Last"}, store.books["book.xlsx"].sheets)
}

func TestCreateDuplicateWorksheetLeavesDiskUnchanged(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1", "Data")
	e := New(store, nil)

	res := dispatch(t, e, OpCreateWorksheet, map[string]any{
		"path": "book.xlsx", "name": "Data",
	})
	requireErrorKind(t, res, KindDuplicateSheet)
	assert.Equal(t, []string{"Sheet1", "Data"}, store.books["book.xlsx"].sheets)
	assert.Empty(t, store.saves)
}

func TestDeleteRestoresOriginalOrder(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "A", "B", "C")
	e := New(store, nil)

	res := dispatch(t, e, OpCreateWorksheet, map[string]any{"path": "book.xlsx", "name": "X", "index": 1})
	require.Equal(t, StatusSuccess, res.Status)

	res = dispatch(t, e, OpDeleteWorksheet, map[string]any{"path": "book.xlsx", "name": "X"})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"A", "B", "C"}, store.books["book.xlsx"].sheets)
}

func TestDeleteLastSheet(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Only")
	e := New(store, nil)

	res := dispatch(t, e, OpDeleteWorksheet, map[string]any{"path": "book.xlsx", "name": "Only"})
	requireErrorKind(t, res, KindLastSheet)
}

func TestRenameWorksheet(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1", "Data")
	e := New(store, nil)

	res := dispatch(t, e, OpRenameWorksheet, map[string]any{
		"path": "book.xlsx", "old_name": "Nope", "new_name": "X",
	})
	requireErrorKind(t, res, KindSheetNotFound)

	res = dispatch(t, e, OpRenameWorksheet, map[string]any{
		"path": "book.xlsx", "old_name": "Data", "new_name": "Sheet1",
	})
	requireErrorKind(t, res, KindDuplicateSheet)

	res = dispatch(t, e, OpRenameWorksheet, map[string]any{
		"path": "book.xlsx", "old_name": "Data", "new_name": "Facts",
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"Sheet1", "Facts"}, store.books["book.xlsx"].sheets)
}

func TestMetadata(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsm", true, "Sheet", "Data")
	e := New(store, nil)

	res := dispatch(t, e, OpMetadata, map[string]any{"path": "book.xlsm"})
	require.Equal(t, StatusSuccess, res.Status)
	meta := res.Data.(Metadata)
	assert.Equal(t, []string{"Sheet", "Data"}, meta.SheetNames)
	assert.True(t, meta.MacroEnabled)
	assert.Equal(t, 0, meta.MacroCount)
}

func TestListMacrosEmpty(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1")
	e := New(store, nil)

	res := dispatch(t, e, OpListMacros, map[string]any{"path": "book.xlsx"})
	require.Equal(t, StatusSuccess, res.Status)
	payload := res.Data.(listMacrosPayload)
	assert.NotNil(t, payload.Macros)
	assert.Empty(t, payload.Macros)
}

func TestMacroDetails(t *testing.T) {
	store := newFakeStore()
	b := store.seed("book.xlsm", true, "Sheet1")
	b.macros = []vba.Entry{{Name: "Hello", Kind: "Sub", Module: "Module1", Size: 128}}
	e := New(store, nil)

	res := dispatch(t, e, OpMacroDetails, map[string]any{"path": "book.xlsm", "macro_name": "Hello"})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Module1", res.Data.(vba.Entry).Module)

	res = dispatch(t, e, OpMacroDetails, map[string]any{"path": "book.xlsm", "macro_name": "Nope"})
	requireErrorKind(t, res, KindMacroNotFound)
}

func TestFormatRange(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1")
	e := New(store, nil)

	res := dispatch(t, e, OpFormatRange, map[string]any{
		"path": "book.xlsx", "sheet": "Sheet1", "start_cell": "A1", "end_cell": "B2",
		"spec": map[string]any{"font": map[string]any{"bold": true}},
	})
	require.Equal(t, StatusSuccess, res.Status)
	payload := res.Data.(formatRangePayload)
	assert.Equal(t, "A1:B2", payload.Range)
	assert.Equal(t, 4, payload.Cells)
	assert.Equal(t, []string{"A1:B2"}, store.books["book.xlsx"].styled)
}

func TestFormatEmptySpecIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.seed("book.xlsx", false, "Sheet1")
	e := New(store, nil)

	res := dispatch(t, e, OpFormatRange, map[string]any{
		"path": "book.xlsx", "sheet": "Sheet1", "start_cell": "A1",
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Empty(t, store.saves)
	assert.Empty(t, store.books["book.xlsx"].styled)
}

func TestPanicBecomesInternalError(t *testing.T) {
	store := newFakeStore()
	store.panicOn = "boom.xlsx"
	e := New(store, nil)

	res := dispatch(t, e, OpMetadata, map[string]any{"path": "boom.xlsx"})
	requireErrorKind(t, res, KindInternal)
}

func TestDispatchEchoesRequestID(t *testing.T) {
	e := New(newFakeStore(), nil)
	res := e.Dispatch(Request{ID: json.RawMessage(`7`), Op: "nope"})
	assert.Equal(t, json.RawMessage(`7`), res.ID)
}
