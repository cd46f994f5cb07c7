package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure. Kinds are stable wire values:
// they appear verbatim in the error half of the result envelope.
type Kind string

const (
	KindUnknownOperation Kind = "UnknownOperationError"
	KindInvalidParameter Kind = "InvalidParameterError"
	KindInvalidRange     Kind = "InvalidRangeError"
	KindFileNotFound     Kind = "FileNotFoundError"
	KindInvalidFormat    Kind = "InvalidFormatError"
	KindAlreadyExists    Kind = "AlreadyExistsError"
	KindSheetNotFound    Kind = "SheetNotFoundError"
	KindDuplicateSheet   Kind = "DuplicateSheetError"
	KindLastSheet        Kind = "LastSheetError"
	KindMacroNotFound    Kind = "MacroNotFoundError"
	KindIO               Kind = "IOError"
	KindInternal         Kind = "InternalError"
)

// Error is a classified operation failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds a classified error from a format string.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
