package ml

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// FeatureKind describes how a column is turned into a number
type FeatureKind string

const (
	FeatureNumeric     FeatureKind = "numeric"
	FeatureCategorical FeatureKind = "categorical"
)

// missingCode is the encoded value of an absent or unseen category
const missingCode = -1

// FeatureEncoder encodes a single column
type FeatureEncoder struct {
	Name       string      `json:"name"`
	Kind       FeatureKind `json:"kind"`
	Mean       float64     `json:"mean,omitempty"`
	Categories []string    `json:"categories,omitempty"`

	index map[string]int
}

// Encoder turns string cells into a dense float matrix. A column is numeric
// when every non-empty cell parses as a float; missing numeric cells take the
// column mean. Other columns get one integer code per distinct value.
type Encoder struct {
	Features []FeatureEncoder `json:"features"`
}

func parseNumber(cell string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FitEncoder learns an encoder from feature columns
func FitEncoder(columns []string, rows [][]string) *Encoder {
	enc := &Encoder{Features: make([]FeatureEncoder, len(columns))}

	for j, name := range columns {
		values := make([]float64, 0, len(rows))
		numeric := true
		for _, row := range rows {
			cell := strings.TrimSpace(row[j])
			if cell == "" {
				continue
			}
			v, ok := parseNumber(cell)
			if !ok {
				numeric = false
				break
			}
			values = append(values, v)
		}

		if numeric {
			mean := 0.0
			if len(values) > 0 {
				mean = stat.Mean(values, nil)
			}
			enc.Features[j] = FeatureEncoder{Name: name, Kind: FeatureNumeric, Mean: mean}
			continue
		}

		fe := FeatureEncoder{Name: name, Kind: FeatureCategorical}
		fe.index = make(map[string]int)
		for _, row := range rows {
			cell := strings.TrimSpace(row[j])
			if cell == "" {
				continue
			}
			if _, ok := fe.index[cell]; !ok {
				fe.index[cell] = len(fe.Categories)
				fe.Categories = append(fe.Categories, cell)
			}
		}
		enc.Features[j] = fe
	}

	return enc
}

// buildIndex restores the category lookup after decoding
func (e *Encoder) buildIndex() {
	for j := range e.Features {
		f := &e.Features[j]
		f.index = make(map[string]int, len(f.Categories))
		for i, c := range f.Categories {
			f.index[c] = i
		}
	}
}

// Names returns the feature column names in order
func (e *Encoder) Names() []string {
	names := make([]string, len(e.Features))
	for i, f := range e.Features {
		names[i] = f.Name
	}
	return names
}

func (f *FeatureEncoder) encode(cell string) float64 {
	cell = strings.TrimSpace(cell)
	switch f.Kind {
	case FeatureNumeric:
		if v, ok := parseNumber(cell); ok {
			return v
		}
		return f.Mean
	default:
		if code, ok := f.index[cell]; ok {
			return float64(code)
		}
		return missingCode
	}
}

// Transform encodes rows laid out in the encoder's column order
func (e *Encoder) Transform(rows [][]string) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		vec := make([]float64, len(e.Features))
		for j := range e.Features {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			vec[j] = e.Features[j].encode(cell)
		}
		out[i] = vec
	}
	return out
}

// TransformRecord encodes a keyed record; absent keys are treated as missing
func (e *Encoder) TransformRecord(record map[string]string) []float64 {
	vec := make([]float64, len(e.Features))
	for j := range e.Features {
		vec[j] = e.Features[j].encode(record[e.Features[j].Name])
	}
	return vec
}
