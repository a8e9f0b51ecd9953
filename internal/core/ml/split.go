package ml

import (
	"math"
	"math/rand"
)

// TestFraction is the share of rows held out for evaluation
const TestFraction = 0.2

// TrainTestSplit shuffles row indices and holds out ceil(n*testFraction) of
// them, keeping at least one row on each side when n >= 2
func TrainTestSplit(n int, testFraction float64, rng *rand.Rand) (train, test []int) {
	if n == 0 {
		return nil, nil
	}
	perm := rng.Perm(n)
	if n == 1 {
		return perm, nil
	}

	testSize := int(math.Ceil(float64(n) * testFraction))
	if testSize < 1 {
		testSize = 1
	}
	if testSize > n-1 {
		testSize = n - 1
	}

	return perm[testSize:], perm[:testSize]
}

// Accuracy is the share of predictions equal to the expected labels
func Accuracy(predicted, expected []int) float64 {
	if len(expected) == 0 {
		return 0
	}
	correct := 0
	for i := range expected {
		if i < len(predicted) && predicted[i] == expected[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(expected))
}
