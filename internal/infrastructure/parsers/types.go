package parsers

import (
	"context"
	"io"
)

// Table is a parsed tabular dataset. Every row has exactly len(Columns)
// cells; absent values are empty strings.
type Table struct {
	Columns     []string
	Rows        [][]string
	TotalRows   int
	SkippedRows int
	Format      string
}

// ColumnIndex returns the position of a column, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of every cell in the named column
func (t *Table) Column(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values
}

// AddColumn appends a column; values must have one entry per row
func (t *Table) AddColumn(name string, values []string) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		t.Rows[i] = append(t.Rows[i], v)
	}
}

// FileParser is the interface all parsers must implement
type FileParser interface {
	// Parse reads and parses the file from the given path
	Parse(ctx context.Context, filePath string) (*Table, error)

	// ParseReader reads and parses from an io.Reader
	ParseReader(ctx context.Context, r io.Reader) (*Table, error)

	// SupportedFormats returns the file extensions this parser supports
	SupportedFormats() []string
}

// ParserConfig holds configuration for all parsers
type ParserConfig struct {
	// MaxRowsInMemory is the initial row capacity
	MaxRowsInMemory int

	// SkipEmptyRows determines if empty rows should be skipped
	SkipEmptyRows bool

	// TrimWhitespace determines if cell values should be trimmed
	TrimWhitespace bool

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64

	// Sheet selects the workbook sheet to read; empty means the first one
	Sheet string
}

// DefaultParserConfig returns sensible defaults
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		MaxRowsInMemory: 10000,
		SkipEmptyRows:   true,
		TrimWhitespace:  true,
		MaxFileSize:     500 * 1024 * 1024, // 500 MB
	}
}
