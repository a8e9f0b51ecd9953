package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
)

// FormatVersion is bumped whenever the serialized model layout changes
const FormatVersion = 1

// Options configures Train
type Options struct {
	Forest ForestParams
	// Seed drives the train/test split and the forest. Nil picks a random seed.
	Seed *int64
}

// Model bundles everything needed to predict from raw string cells
type Model struct {
	FormatVersion int       `json:"format_version"`
	Target        string    `json:"target"`
	Classes       []string  `json:"classes"`
	Encoder       *Encoder  `json:"encoder"`
	Forest        *Forest   `json:"forest"`
	Accuracy      float64   `json:"accuracy"`
	TrainRows     int       `json:"train_rows"`
	TestRows      int       `json:"test_rows"`
	TrainedAt     time.Time `json:"trained_at"`
}

// Features returns the feature column names the model expects
func (m *Model) Features() []string {
	return m.Encoder.Names()
}

// Train fits a forest on a table whose last column is the target. Rows
// must already have non-empty targets and there must be at least two of them.
func Train(columns []string, rows [][]string, opts Options) (*Model, error) {
	if len(columns) < 2 {
		return nil, ErrNoFeatures
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("need at least 2 labeled rows, got %d", len(rows))
	}

	seed := time.Now().UnixNano()
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	targetIdx := len(columns) - 1
	featureCols := columns[:targetIdx]

	features := make([][]string, len(rows))
	labels := make([]string, len(rows))
	for i, row := range rows {
		features[i] = row[:targetIdx]
		labels[i] = strings.TrimSpace(row[targetIdx])
	}

	classes := distinctSorted(labels)
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}

	trainIdx, testIdx := TrainTestSplit(len(rows), TestFraction, rng)

	trainFeatures := pick(features, trainIdx)
	encoder := FitEncoder(featureCols, trainFeatures)
	xTrain := encoder.Transform(trainFeatures)
	yTrain := make([]int, len(trainIdx))
	for i, r := range trainIdx {
		yTrain[i] = classIndex[labels[r]]
	}

	params := opts.Forest
	params.Seed = rng.Int63()
	forest := NewForest(params)
	if err := forest.Fit(xTrain, yTrain, len(classes)); err != nil {
		return nil, fmt.Errorf("forest fit failed: %w", err)
	}

	xTest := encoder.Transform(pick(features, testIdx))
	predicted := make([]int, len(testIdx))
	expected := make([]int, len(testIdx))
	for i, r := range testIdx {
		predicted[i] = forest.Predict(xTest[i])
		expected[i] = classIndex[labels[r]]
	}

	return &Model{
		FormatVersion: FormatVersion,
		Target:        columns[targetIdx],
		Classes:       classes,
		Encoder:       encoder,
		Forest:        forest,
		Accuracy:      Accuracy(predicted, expected),
		TrainRows:     len(trainIdx),
		TestRows:      len(testIdx),
		TrainedAt:     time.Now().UTC(),
	}, nil
}

// Predict returns the class label for one record keyed by feature name
func (m *Model) Predict(record map[string]string) (string, error) {
	if m.Forest == nil || len(m.Forest.Trees) == 0 {
		return "", errors.New("model is not fitted")
	}
	class := m.Forest.Predict(m.Encoder.TransformRecord(record))
	if class < 0 || class >= len(m.Classes) {
		return "", fmt.Errorf("predicted class %d out of range", class)
	}
	return m.Classes[class], nil
}

// Marshal serializes the model
func (m *Model) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalModel restores a model written by Marshal
func UnmarshalModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if m.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported model format version %d", m.FormatVersion)
	}
	if m.Encoder == nil || m.Forest == nil {
		return nil, errors.New("model file is incomplete")
	}
	m.Encoder.buildIndex()
	return &m, nil
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func pick(rows [][]string, idx []int) [][]string {
	out := make([][]string, len(idx))
	for i, r := range idx {
		out[i] = rows[r]
	}
	return out
}
