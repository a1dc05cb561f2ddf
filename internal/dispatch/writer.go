package dispatch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileUnitWriter opens each unit as "<Dir>/<unitName>.java", creating
// Dir if it doesn't already exist. This is the writer cmd/parsergen
// uses for real generation.
type FileUnitWriter struct {
	Dir string
}

// Open implements UnitWriter.
func (f FileUnitWriter) Open(unitName string) (io.WriteCloser, error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("dispatch: failed to create output directory %s: %w", f.Dir, err)
	}
	path := filepath.Join(f.Dir, sanitizeUnitName(unitName)+".java")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to open %s: %w", path, err)
	}
	return file, nil
}

// sanitizeUnitName keeps only the last dotted segment of a
// fully-qualified parserClass-style unit name as the file stem (e.g.
// "com.example.gen.ExprParser" -> "ExprParser"), matching how
// fully-qualified Java class names map onto source file names.
func sanitizeUnitName(unitName string) string {
	if i := strings.LastIndex(unitName, "."); i >= 0 {
		return unitName[i+1:]
	}
	return unitName
}

// nopCloser adapts an io.Writer with no Close of its own.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// MemoryUnitWriter collects every unit's output in memory, keyed by
// unit name, for --dry-run: every component still runs, nothing
// reaches disk.
type MemoryUnitWriter struct {
	Contents map[string]*strings.Builder
}

// NewMemoryUnitWriter returns an empty MemoryUnitWriter.
func NewMemoryUnitWriter() *MemoryUnitWriter {
	return &MemoryUnitWriter{Contents: make(map[string]*strings.Builder)}
}

// Open implements UnitWriter.
func (m *MemoryUnitWriter) Open(unitName string) (io.WriteCloser, error) {
	sb := &strings.Builder{}
	m.Contents[unitName] = sb
	return nopCloser{sb}, nil
}
