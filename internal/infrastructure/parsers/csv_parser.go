package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// CSVParser parses delimited text files
type CSVParser struct {
	config     *ParserConfig
	comma      rune
	format     string
	extensions []string
}

// NewCSVParser creates a new comma-separated parser
func NewCSVParser(config *ParserConfig) *CSVParser {
	return newDelimitedParser(config, ',', "CSV", ".csv")
}

// NewTSVParser creates a new tab-separated parser
func NewTSVParser(config *ParserConfig) *CSVParser {
	return newDelimitedParser(config, '\t', "TSV", ".tsv", ".tab")
}

func newDelimitedParser(config *ParserConfig, comma rune, format string, extensions ...string) *CSVParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &CSVParser{
		config:     config,
		comma:      comma,
		format:     format,
		extensions: extensions,
	}
}

// Parse reads and parses a delimited file from disk
func (p *CSVParser) Parse(ctx context.Context, filePath string) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", p.format, err)
	}
	defer file.Close()

	if err := checkFileSize(file, p.config.MaxFileSize); err != nil {
		return nil, err
	}

	return p.ParseReader(ctx, file)
}

// ParseReader reads and parses delimited data from an io.Reader
func (p *CSVParser) ParseReader(ctx context.Context, r io.Reader) (*Table, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = p.comma
	csvReader.TrimLeadingSpace = p.config.TrimWhitespace
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields per record

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", p.format, err)
	}

	table := &Table{
		Columns: normalizeHeader(header, p.config.TrimWhitespace),
		Rows:    make([][]string, 0, p.config.MaxRowsInMemory),
		Format:  p.format,
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		table.TotalRows++
		if err != nil {
			// Skip malformed rows but continue parsing
			table.SkippedRows++
			continue
		}

		if p.config.SkipEmptyRows && isEmptyRow(row) {
			table.SkippedRows++
			continue
		}

		table.Rows = append(table.Rows, normalizeRow(row, len(table.Columns), p.config.TrimWhitespace))
	}

	return table, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *CSVParser) SupportedFormats() []string {
	return p.extensions
}
