package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// ForestParams configures a random forest
type ForestParams struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"` // 0 = unlimited
	MinSamplesSplit int   `json:"min_samples_split"`
	Seed            int64 `json:"seed"`
}

// DefaultForestParams mirrors a stock random forest: 100 fully grown trees
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:           100,
		MinSamplesSplit: 2,
	}
}

// TreeNode is one node of a flattened decision tree
type TreeNode struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Class     int     `json:"class"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

// Tree is a CART classification tree; node 0 is the root
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Predict walks the tree for one sample
func (t *Tree) Predict(x []float64) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Class
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a bagged ensemble of gini trees with sqrt(features) sampled per split
type Forest struct {
	Params   ForestParams `json:"params"`
	NClasses int          `json:"n_classes"`
	Trees    []Tree       `json:"trees"`
}

// NewForest creates an unfitted forest
func NewForest(params ForestParams) *Forest {
	if params.Trees <= 0 {
		params.Trees = DefaultForestParams().Trees
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	return &Forest{Params: params}
}

var (
	ErrEmptyTrainingSet = errors.New("training set is empty")
	ErrNoFeatures       = errors.New("training set has no features")
)

// Fit grows the forest. Trees are built concurrently; each tree draws its own
// seed from Params.Seed so results do not depend on scheduling.
func (f *Forest) Fit(x [][]float64, y []int, nClasses int) error {
	if len(x) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return fmt.Errorf("feature rows (%d) and labels (%d) differ", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return ErrNoFeatures
	}
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
	}
	for i, label := range y {
		if label < 0 || label >= nClasses {
			return fmt.Errorf("label %d at row %d outside [0,%d)", label, i, nClasses)
		}
	}

	seeder := rand.New(rand.NewSource(f.Params.Seed))
	seeds := make([]int64, f.Params.Trees)
	for i := range seeds {
		seeds[i] = seeder.Int63()
	}

	maxFeatures := int(math.Max(1, math.Floor(math.Sqrt(float64(width)))))
	trees := make([]Tree, f.Params.Trees)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[t]))
			sample := make([]int, len(x))
			for i := range sample {
				sample[i] = rng.Intn(len(x))
			}
			b := &treeBuilder{
				x:           x,
				y:           y,
				nClasses:    nClasses,
				maxFeatures: maxFeatures,
				maxDepth:    f.Params.MaxDepth,
				minSplit:    f.Params.MinSamplesSplit,
				rng:         rng,
			}
			b.build(sample, 0)
			trees[t] = Tree{Nodes: b.nodes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.NClasses = nClasses
	f.Trees = trees
	return nil
}

// Votes returns the per-class vote counts for one sample
func (f *Forest) Votes(x []float64) []float64 {
	votes := make([]float64, f.NClasses)
	for i := range f.Trees {
		votes[f.Trees[i].Predict(x)]++
	}
	return votes
}

// Predict returns the majority class; ties go to the lowest class index
func (f *Forest) Predict(x []float64) int {
	return floats.MaxIdx(f.Votes(x))
}

type treeBuilder struct {
	x           [][]float64
	y           []int
	nClasses    int
	maxFeatures int
	maxDepth    int
	minSplit    int
	rng         *rand.Rand
	nodes       []TreeNode
}

func (b *treeBuilder) counts(idx []int) []float64 {
	c := make([]float64, b.nClasses)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{})

	counts := b.counts(idx)
	majority := floats.MaxIdx(counts)
	parentGini := gini(counts, float64(len(idx)))

	if parentGini == 0 || len(idx) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		b.nodes[id] = TreeNode{Leaf: true, Class: majority}
		return id
	}

	feature, threshold, ok := b.bestSplit(idx, counts, parentGini)
	if !ok {
		b.nodes[id] = TreeNode{Leaf: true, Class: majority}
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		b.nodes[id] = TreeNode{Leaf: true, Class: majority}
		return id
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = TreeNode{Class: majority, Feature: feature, Threshold: threshold, Left: l, Right: r}
	return id
}

// bestSplit examines maxFeatures random features, continuing past that
// budget only while no valid split has been found
func (b *treeBuilder) bestSplit(idx []int, counts []float64, parentGini float64) (int, float64, bool) {
	n := float64(len(idx))
	bestImpurity := parentGini
	bestFeature, bestThreshold := -1, 0.0

	sorted := make([]int, len(idx))
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)

	for visited, feature := range b.rng.Perm(len(b.x[0])) {
		if visited >= b.maxFeatures && bestFeature >= 0 {
			break
		}

		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool {
			return b.x[sorted[a]][feature] < b.x[sorted[c]][feature]
		})

		for k := range leftCounts {
			leftCounts[k] = 0
		}
		copy(rightCounts, counts)

		for k := 0; k < len(sorted)-1; k++ {
			label := b.y[sorted[k]]
			leftCounts[label]++
			rightCounts[label]--

			cur, next := b.x[sorted[k]][feature], b.x[sorted[k+1]][feature]
			if cur == next {
				continue
			}

			nLeft := float64(k + 1)
			nRight := n - nLeft
			impurity := (nLeft*gini(leftCounts, nLeft) + nRight*gini(rightCounts, nRight)) / n
			if impurity < bestImpurity-1e-12 {
				bestImpurity = impurity
				bestFeature = feature
				bestThreshold = cur + (next-cur)/2
				// adjacent floats: the midpoint rounds to next
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}
