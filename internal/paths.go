package internal

import (
	"path/filepath"
	"strings"
)

// macroExtensions are the container variants that carry a macro project.
var macroExtensions = map[string]bool{
	".xlsm": true,
	".xltm": true,
	".xlam": true,
}

// IsMacroExtension reports whether ext names a macro-capable container.
func IsMacroExtension(ext string) bool {
	return macroExtensions[strings.ToLower(ext)]
}

// NormalizeExtension forces a workbook file extension to agree with the
// macro-enabled flag, keeping macro-capable template extensions as-is.
// Creating "book.xlsx" with macros enabled yields "book.xlsm".
func NormalizeExtension(path string, enableMacros bool) string {
	ext := strings.ToLower(filepath.Ext(path))
	if enableMacros {
		if macroExtensions[ext] {
			return path
		}
		return strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsm"
	}
	if ext == ".xlsx" || ext == ".xltx" {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsx"
}
