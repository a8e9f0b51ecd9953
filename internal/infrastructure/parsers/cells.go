package parsers

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FormatCell renders a decoded JSON value as a table cell. Numbers use the
// shortest decimal form, null becomes the empty cell and nested arrays or
// objects keep their JSON encoding.
func FormatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	}
}

// isEmptyRow checks if a row contains only empty strings
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeRow pads or truncates a row to width cells
func normalizeRow(row []string, width int, trim bool) []string {
	out := make([]string, width)
	for i := 0; i < width && i < len(row); i++ {
		value := row[i]
		if trim {
			value = strings.TrimSpace(value)
		}
		out[i] = value
	}
	return out
}

// normalizeHeader trims names and fills blanks with positional names
func normalizeHeader(header []string, trim bool) []string {
	out := make([]string, len(header))
	for i, name := range header {
		if trim {
			name = strings.TrimSpace(name)
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		out[i] = name
	}
	return out
}

func checkFileSize(file *os.File, limit int64) error {
	if limit <= 0 {
		return nil
	}
	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() > limit {
		return fmt.Errorf("file size %d exceeds maximum %d", stat.Size(), limit)
	}
	return nil
}
