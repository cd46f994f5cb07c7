package engine

import "encoding/json"

// Request is one decoded operation request from the transport layer.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ErrorInfo is the error half of the result envelope.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result is the uniform envelope returned for every operation.
type Result struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Status string          `json:"status"`
	Data   any             `json:"data"`
	Error  *ErrorInfo      `json:"error"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metadata describes a workbook without exposing its contents.
type Metadata struct {
	SheetNames   []string `json:"sheet_names"`
	MacroEnabled bool     `json:"macro_enabled"`
	MacroCount   int      `json:"macro_count"`
}

// FontSpec is the font axis of a FormatSpec.
type FontSpec struct {
	Bold      bool    `json:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Underline bool    `json:"underline,omitempty"`
	Size      float64 `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// FillSpec is the fill axis of a FormatSpec.
type FillSpec struct {
	Color string `json:"color"`
}

// BorderSpec is the border axis of a FormatSpec.
type BorderSpec struct {
	Style string `json:"style,omitempty"`
	Color string `json:"color,omitempty"`
}

// AlignmentSpec is the alignment axis of a FormatSpec.
type AlignmentSpec struct {
	Horizontal string `json:"horizontal,omitempty"`
	Vertical   string `json:"vertical,omitempty"`
	WrapText   bool   `json:"wrap_text,omitempty"`
}

// FormatSpec enumerates independent, optional style axes. A nil axis
// leaves that aspect of the target cells untouched.
type FormatSpec struct {
	Font         *FontSpec      `json:"font,omitempty"`
	Fill         *FillSpec      `json:"fill,omitempty"`
	Border       *BorderSpec    `json:"border,omitempty"`
	NumberFormat *string        `json:"number_format,omitempty"`
	Alignment    *AlignmentSpec `json:"alignment,omitempty"`
}

// Empty reports whether no axis is set.
func (s FormatSpec) Empty() bool {
	return s.Font == nil && s.Fill == nil && s.Border == nil &&
		s.NumberFormat == nil && s.Alignment == nil
}
