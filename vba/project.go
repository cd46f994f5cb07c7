// Package vba enumerates the macro project embedded in a macro-enabled
// workbook. It reads module metadata and source text straight out of
// the xl/vbaProject.bin OLE compound file; nothing is ever executed or
// modified.
package vba

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/richardlehane/mscfb"
)

// DefaultExcerptLines is the number of source lines included in an
// Entry's excerpt when the caller does not override it.
const DefaultExcerptLines = 10

// projectPart is where the OOXML package stores the macro project.
const projectPart = "xl/vbaProject.bin"

// Entry describes one macro procedure (or, when source text cannot be
// recovered, one module) of the embedded project.
type Entry struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`   // "Sub", "Function" or "Module"
	Module  string `json:"module"` // module the procedure lives in
	Size    int64  `json:"size"`   // stored module stream size in bytes
	Excerpt string `json:"excerpt,omitempty"`
}

// Options tunes project enumeration.
type Options struct {
	// ExcerptLines caps the excerpt length per entry.
	// Zero means DefaultExcerptLines.
	ExcerptLines int
}

// procRe matches a VBA procedure declaration at the start of a line.
var procRe = regexp.MustCompile(`(?mi)^[ \t]*(?:Public[ \t]+|Private[ \t]+|Friend[ \t]+)?(?:Static[ \t]+)?(Sub|Function)[ \t]+([A-Za-z_][A-Za-z0-9_]*)`)

// List enumerates macro entries in the workbook at path. A workbook
// without an embedded project yields an empty slice, not an error.
func List(path string, opts Options) ([]Entry, error) {
	excerptLines := opts.ExcerptLines
	if excerptLines <= 0 {
		excerptLines = DefaultExcerptLines
	}

	project, err := readProjectPart(path)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return []Entry{}, nil
	}

	streams, err := readStreams(project)
	if err != nil {
		return nil, fmt.Errorf("parsing vba project: %w", err)
	}

	modules, dirErr := parseDirStream(streams["dir"])

	entries := []Entry{}
	if dirErr != nil || len(modules) == 0 {
		// Without a readable dir stream the source text offsets are
		// unknown; fall back to listing the module streams themselves.
		for name, data := range streams {
			if isMetadataStream(name) {
				continue
			}
			entries = append(entries, Entry{
				Name:   name,
				Kind:   "Module",
				Module: name,
				Size:   int64(len(data)),
			})
		}
		sortEntries(entries)
		return entries, nil
	}

	for _, mod := range modules {
		data, ok := streams[mod.streamName]
		if !ok {
			data, ok = streams[mod.name]
		}
		if !ok {
			continue
		}
		size := int64(len(data))

		var src string
		if mod.offset >= 0 && int(mod.offset) < len(data) {
			if text, err := decompress(data[mod.offset:]); err == nil {
				src = string(text)
			}
		}
		if src == "" {
			entries = append(entries, Entry{Name: mod.name, Kind: "Module", Module: mod.name, Size: size})
			continue
		}

		found := false
		for _, m := range procRe.FindAllStringSubmatchIndex(src, -1) {
			kind := src[m[2]:m[3]]
			name := src[m[4]:m[5]]
			entries = append(entries, Entry{
				Name:    name,
				Kind:    normalizeKind(kind),
				Module:  mod.name,
				Size:    size,
				Excerpt: excerpt(src[m[0]:], excerptLines),
			})
			found = true
		}
		if !found {
			// Source recovered but no procedures declared (e.g. a
			// declarations-only module).
			entries = append(entries, Entry{
				Name:    mod.name,
				Kind:    "Module",
				Module:  mod.name,
				Size:    size,
				Excerpt: excerpt(src, excerptLines),
			})
		}
	}
	sortEntries(entries)
	return entries, nil
}

// HasProject reports whether the workbook at path embeds a macro
// project, regardless of its file extension.
func HasProject(path string) (bool, error) {
	data, err := readProjectPart(path)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

// readProjectPart extracts xl/vbaProject.bin from the OOXML package.
// Returns (nil, nil) when the part is absent.
func readProjectPart(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook container: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != projectPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", projectPart, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", projectPart, err)
		}
		return data, nil
	}
	return nil, nil
}

// readStreams loads every stream of the compound file, keyed by stream
// name. Names collide only across storages we do not care about.
func readStreams(project []byte) (map[string][]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(project))
	if err != nil {
		return nil, err
	}
	streams := make(map[string][]byte)
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Size == 0 {
			continue
		}
		buf := make([]byte, entry.Size)
		n, _ := entry.Read(buf)
		streams[entry.Name] = buf[:n]
	}
	return streams, nil
}

// module carries what the dir stream records about one code module.
type module struct {
	name       string
	streamName string
	offset     int32
}

// Record ids of the MS-OVBA dir stream.
const (
	recProjectVersion = 0x0009
	recTerminator     = 0x0010
	recModuleName     = 0x0019
	recStreamName     = 0x001A
	recModuleOffset   = 0x0031
)

// parseDirStream decompresses the dir stream and walks its records to
// map each module to the offset of its source text.
func parseDirStream(data []byte) ([]module, error) {
	if data == nil {
		return nil, fmt.Errorf("no dir stream")
	}
	dir, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompressing dir stream: %w", err)
	}

	var modules []module
	var cur *module

	i := 0
	for i+6 <= len(dir) {
		id := binary.LittleEndian.Uint16(dir[i:])
		size := int(binary.LittleEndian.Uint32(dir[i+2:]))
		i += 6
		if id == recTerminator {
			break
		}
		// PROJECTVERSION declares a size of 4 but carries 6 data bytes.
		if id == recProjectVersion {
			size = 6
		}
		if i+size > len(dir) {
			break
		}
		body := dir[i : i+size]
		i += size

		switch id {
		case recModuleName:
			if cur != nil {
				modules = append(modules, *cur)
			}
			cur = &module{name: string(body), offset: -1}
		case recStreamName:
			if cur != nil {
				cur.streamName = string(body)
			}
		case recModuleOffset:
			if cur != nil && len(body) >= 4 {
				cur.offset = int32(binary.LittleEndian.Uint32(body))
			}
		}
	}
	if cur != nil {
		modules = append(modules, *cur)
	}
	return modules, nil
}

// isMetadataStream filters the project bookkeeping streams out of the
// module fallback listing.
func isMetadataStream(name string) bool {
	switch name {
	case "dir", "PROJECT", "PROJECTwm", "PROJECTlk", "_VBA_PROJECT":
		return true
	}
	return strings.HasPrefix(name, "__SRP_")
}

func normalizeKind(kind string) string {
	if strings.EqualFold(kind, "function") {
		return "Function"
	}
	return "Sub"
}

// excerpt returns up to n lines of src with trailing whitespace trimmed.
func excerpt(src string, n int) string {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\n")
}

// sortEntries orders by module name, preserving declaration order
// within a module.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Module != entries[j].Module {
			return entries[i].Module < entries[j].Module
		}
		return false
	})
}
