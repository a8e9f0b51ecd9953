package parsers

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
)

// ParserFactory dispatches files to a parser by extension
type ParserFactory struct {
	byExt map[string]FileParser
}

// NewParserFactory wires the CSV, TSV, Excel, JSON and JSONL parsers
func NewParserFactory(config *ParserConfig) *ParserFactory {
	if config == nil {
		config = DefaultParserConfig()
	}

	f := &ParserFactory{byExt: make(map[string]FileParser)}
	for _, p := range []FileParser{
		NewCSVParser(config),
		NewTSVParser(config),
		NewExcelParser(config),
		NewJSONParser(config),
		NewJSONLParser(config),
	} {
		for _, ext := range p.SupportedFormats() {
			f.byExt[canonicalExt(ext)] = p
		}
	}
	return f
}

// canonicalExt lowercases ext and adds the leading dot
func canonicalExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return ext
}

// For returns the parser for an extension such as ".csv" or "CSV"
func (f *ParserFactory) For(ext string) (FileParser, error) {
	p, ok := f.byExt[canonicalExt(ext)]
	if !ok {
		return nil, apperrors.UnsupportedFormat(ext).WithDetails("supported", f.Extensions())
	}
	return p, nil
}

// IsSupported reports whether an extension has a parser
func (f *ParserFactory) IsSupported(ext string) bool {
	_, ok := f.byExt[canonicalExt(ext)]
	return ok
}

// ParseFile parses filePath with the parser for its extension
func (f *ParserFactory) ParseFile(ctx context.Context, filePath string) (*Table, error) {
	p, err := f.For(filepath.Ext(filePath))
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, filePath)
}

// Extensions lists the supported extensions in order
func (f *ParserFactory) Extensions() []string {
	exts := make([]string, 0, len(f.byExt))
	for ext := range f.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
