package parsers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

const excelFormat = "XLSX"

// ExcelParser reads one sheet of an .xlsx or .xlsm workbook
type ExcelParser struct {
	config *ParserConfig
}

// NewExcelParser creates a new Excel parser
func NewExcelParser(config *ParserConfig) *ExcelParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &ExcelParser{config: config}
}

// Parse opens filePath after checking its size
func (p *ExcelParser) Parse(ctx context.Context, filePath string) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	if err := checkFileSize(file, p.config.MaxFileSize); err != nil {
		return nil, err
	}
	return p.ParseReader(ctx, file)
}

func (p *ExcelParser) sheet(f *excelize.File) (string, error) {
	if p.config.Sheet == "" {
		if name := f.GetSheetName(0); name != "" {
			return name, nil
		}
		return "", fmt.Errorf("workbook has no sheets")
	}
	if idx, err := f.GetSheetIndex(p.config.Sheet); err != nil || idx < 0 {
		return "", fmt.Errorf("sheet %q not found, workbook has %v", p.config.Sheet, f.GetSheetList())
	}
	return p.config.Sheet, nil
}

// ParseReader streams the selected sheet row by row. The first row is the header.
func (p *ExcelParser) ParseReader(ctx context.Context, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer f.Close()

	name, err := p.sheet(f)
	if err != nil {
		return nil, err
	}

	rows, err := f.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	defer rows.Close()

	table := &Table{Columns: []string{}, Rows: [][]string{}, Format: excelFormat}
	header := true

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d of sheet %s: %w", table.TotalRows+1, name, err)
		}

		if header {
			table.Columns = normalizeHeader(cells, p.config.TrimWhitespace)
			header = false
			continue
		}

		table.TotalRows++
		if p.config.SkipEmptyRows && isEmptyRow(cells) {
			table.SkippedRows++
			continue
		}
		table.Rows = append(table.Rows, normalizeRow(cells, len(table.Columns), p.config.TrimWhitespace))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate sheet %s: %w", name, err)
	}

	return table, nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *ExcelParser) SupportedFormats() []string {
	return []string{".xlsx", ".xlsm"}
}
