package parsers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// objectCollector accumulates decoded objects and the union of their keys in
// first-seen order
type objectCollector struct {
	columns []string
	index   map[string]int
	objects []map[string]interface{}
}

func newObjectCollector() *objectCollector {
	return &objectCollector{index: make(map[string]int)}
}

func (c *objectCollector) add(keys []string, values map[string]interface{}) {
	for _, key := range keys {
		if _, ok := c.index[key]; !ok {
			c.index[key] = len(c.columns)
			c.columns = append(c.columns, key)
		}
	}
	c.objects = append(c.objects, values)
}

func (c *objectCollector) table(format string, total, skipped int) *Table {
	rows := make([][]string, len(c.objects))
	for i, obj := range c.objects {
		row := make([]string, len(c.columns))
		for j, col := range c.columns {
			row[j] = FormatCell(obj[col])
		}
		rows[i] = row
	}
	columns := c.columns
	if columns == nil {
		columns = []string{}
	}
	return &Table{
		Columns:     columns,
		Rows:        rows,
		TotalRows:   total,
		SkippedRows: skipped,
		Format:      format,
	}
}

// decodeObject reads one JSON object from dec, keeping key order
func decodeObject(dec *json.Decoder) ([]string, map[string]interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	values := make(map[string]interface{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = value
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// JSONParser parses a JSON array of objects, or a single object
type JSONParser struct {
	config *ParserConfig
}

// NewJSONParser creates a new JSON parser
func NewJSONParser(config *ParserConfig) *JSONParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &JSONParser{
		config: config,
	}
}

// Parse reads and parses a JSON file from disk
func (p *JSONParser) Parse(ctx context.Context, filePath string) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	if err := checkFileSize(file, p.config.MaxFileSize); err != nil {
		return nil, err
	}

	return p.ParseReader(ctx, file)
}

// ParseReader reads and parses JSON data from an io.Reader
func (p *JSONParser) ParseReader(ctx context.Context, r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	collector := newObjectCollector()

	if len(trimmed) > 0 && trimmed[0] == '{' {
		keys, values, err := decodeObject(json.NewDecoder(bytes.NewReader(trimmed)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode JSON object: %w", err)
		}
		collector.add(keys, values)
		return collector.table("JSON", 1, 0), nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("JSON dataset must be an array of objects")
	}

	total, skipped := 0, 0
	for decoder.More() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		keys, values, err := decodeObject(decoder)
		if err != nil {
			return nil, fmt.Errorf("failed to decode JSON record %d: %w", total, err)
		}
		total++
		if p.config.SkipEmptyRows && len(keys) == 0 {
			skipped++
			continue
		}
		collector.add(keys, values)
	}

	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("failed to read closing bracket: %w", err)
	}

	return collector.table("JSON", total, skipped), nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *JSONParser) SupportedFormats() []string {
	return []string{".json"}
}

// JSONLParser parses newline-delimited JSON
type JSONLParser struct {
	config *ParserConfig
}

// NewJSONLParser creates a new JSONL parser
func NewJSONLParser(config *ParserConfig) *JSONLParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &JSONLParser{
		config: config,
	}
}

// Parse reads and parses a JSONL file from disk
func (p *JSONLParser) Parse(ctx context.Context, filePath string) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	if err := checkFileSize(file, p.config.MaxFileSize); err != nil {
		return nil, err
	}

	return p.ParseReader(ctx, file)
}

// ParseReader reads and parses JSONL data from an io.Reader. Blank and
// malformed lines are counted as skipped.
func (p *JSONLParser) ParseReader(ctx context.Context, r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	// max 1MB per line
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	collector := newObjectCollector()
	total, skipped := 0, 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		total++

		if len(line) == 0 {
			skipped++
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		keys, values, err := decodeObject(dec)
		if err != nil {
			skipped++
			continue
		}

		if p.config.SkipEmptyRows && len(keys) == 0 {
			skipped++
			continue
		}

		collector.add(keys, values)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSONL stream: %w", err)
	}

	return collector.table("JSONL", total, skipped), nil
}

// SupportedFormats returns the file extensions this parser supports
func (p *JSONLParser) SupportedFormats() []string {
	return []string{".jsonl", ".ndjson"}
}
