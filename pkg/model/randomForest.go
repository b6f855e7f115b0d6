package model

import (
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"
)

// MaxFeaturesAll makes every tree consider all features at each split.
const MaxFeaturesAll = -1

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => sqrt(p), MaxFeaturesAll => p
	Criterion       string
	Bootstrap       bool
	RandomState     int64
	Workers         int // 0 => GOMAXPROCS

	// Internal state
	Trees       []*DecisionTreeClassifier
	nFeatures   int
	importances []float64
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesSplit = n }
}
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesLeaf = n }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestCriterion(c string) RandomForestOption {
	return func(rf *RandomForest) { rf.Criterion = c }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}
func WithWorkers(n int) RandomForestOption { return func(rf *RandomForest) { rf.Workers = n } }

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Criterion:       "gini",
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// featuresPerSplit resolves MaxFeatures against p features.
func (rf *RandomForest) featuresPerSplit(p int) int {
	switch {
	case rf.MaxFeatures == MaxFeaturesAll || rf.MaxFeatures >= p:
		return 0
	case rf.MaxFeatures > 0:
		return rf.MaxFeatures
	}
	k := int(math.Sqrt(float64(p)))
	if k < 1 {
		k = 1
	}
	return k
}

// Fit trains the random forest.
// Trees are fitted concurrently; each tree draws its bootstrap sample and
// feature subsets from its own source seeded with RandomState+index, so
// the fitted forest does not depend on scheduling.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("randomforest: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("randomforest: X and y length mismatch")
	}
	if rf.NEstimators < 1 {
		return errors.New("randomforest: NEstimators must be positive")
	}
	rf.nFeatures = len(X[0])
	k := rf.featuresPerSplit(rf.nFeatures)

	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	sem := make(chan struct{}, workers)

	trees := make([]*DecisionTreeClassifier, rf.NEstimators)
	var wg sync.WaitGroup
	errCh := make(chan error, rf.NEstimators)

	for i := 0; i < rf.NEstimators; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			seed := rf.RandomState + int64(idx)
			treeRand := rand.New(rand.NewSource(seed))

			// Bootstrap sampling: an index slice, not a copy of the data.
			sampleIndices := make([]int, n)
			for j := 0; j < n; j++ {
				if rf.Bootstrap {
					sampleIndices[j] = treeRand.Intn(n)
				} else {
					sampleIndices[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithCriterion(rf.Criterion),
				WithMaxFeatures(k),
				WithRandomState(seed),
			)
			if err := tree.FitSubset(X, y, sampleIndices); err != nil {
				errCh <- err
				return
			}
			trees[idx] = tree
		}(i)
	}
	wg.Wait()
	close(errCh)

	// Check for any errors from goroutines.
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	rf.Trees = trees

	rf.importances = make([]float64, rf.nFeatures)
	for _, t := range rf.Trees {
		for j, v := range t.FeatureImportances() {
			rf.importances[j] += v
		}
	}
	total := 0.0
	for _, v := range rf.importances {
		total += v
	}
	if total > 0 {
		for j := range rf.importances {
			rf.importances[j] /= total
		}
	}
	return nil
}

// PredictProba returns the mean P(y=1) over all trees for each row.
// Rows are split between workers; tree order within a row is fixed.
func (rf *RandomForest) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(rf.Trees) == 0 || len(X) == 0 {
		return out
	}
	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(X) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(X); start += chunk {
		end := start + chunk
		if end > len(X) {
			end = len(X)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			rows := X[lo:hi]
			sums := make([]float64, len(rows))
			for _, t := range rf.Trees {
				for i, p := range t.PredictProba(rows) {
					sums[i] += p
				}
			}
			for i := range sums {
				out[lo+i] = sums[i] / float64(len(rf.Trees))
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

// Predict thresholds PredictProba at 0.5.
func (rf *RandomForest) Predict(X [][]float64) []int {
	return BinaryPredFromProba(rf.PredictProba(X), 0.5)
}

// FeatureImportances returns the mean decrease in impurity per feature,
// averaged over trees and normalized to sum to 1.
func (rf *RandomForest) FeatureImportances() []float64 {
	return append([]float64(nil), rf.importances...)
}
