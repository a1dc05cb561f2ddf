package dispatch

import (
	"log"
	"os"
	"strings"

	"parsergen/internal/attrs"
	"parsergen/internal/emit"
	"parsergen/internal/gerrors"
)

// resolveFileHeader resolves the root-scoped fileHeader attribute: its
// value is tried first as a path to a header-template file; if reading
// it fails (missing, a directory, not a path at all), the failure is
// logged as a HeaderPathError and the attribute's literal value is used
// verbatim as the header text instead (spec.md's "malformed file-header
// path" edge case — never fatal).
func resolveFileHeader(res *attrs.Resolver, runID string) string {
	raw := attrs.String(res, "", "fileHeader", "")
	if raw == "" {
		return ""
	}
	contents, err := os.ReadFile(raw)
	if err != nil {
		herr := &gerrors.HeaderPathError{Path: raw, Err: err}
		log.Printf("parsergen[%s]: %v, falling back to literal header", runID, herr)
		return raw
	}
	return string(contents)
}

// emitFileHeader writes header as a block of line comments, one per
// line of the (possibly multi-line) header text, followed by a blank
// line. A blank header is a no-op.
func emitFileHeader(buf *emit.Buffer, header string) {
	if header == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(header, "\n"), "\n") {
		buf.Emit("// " + line)
	}
	buf.EmitBlank()
}
