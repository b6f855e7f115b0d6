package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => number of features to sample when looking for split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for randomness (feature subsampling)

	// internals
	root        *dtNode
	classes     []int // sorted unique class labels (order used by probas)
	nFeatures   int
	importances []float64
}

// dtNode holds a node in the tree.
type dtNode struct {
	// internal node fields
	isLeaf    bool
	feature   int
	threshold float64 // x <= threshold => left
	nanLeft   bool    // missing values follow the left branch
	left      *dtNode
	right     *dtNode

	// leaf data
	n      int
	probas []float64 // probability distribution across classes (aligned with tree.classes)
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:            0, // 0 => no explicit max (stopping by other criteria)
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Criterion:           "gini",
		MaxFeatures:         0,
		MinImpurityDecrease: 0.0,
		RandomState:         time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API
// ---------------------------

// Fit trains the decision tree on X (n x p) and y (n labels as ints).
// Missing values must be math.NaN().
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitSubset(X, y, idx)
}

// FitSubset trains on the rows of X listed in idx. Indices may repeat,
// which is how bootstrap samples are passed without copying rows.
// The class set is taken from all of y, so every tree of a forest
// reports probabilities over the same classes.
func (t *DecisionTreeClassifier) FitSubset(X [][]float64, y []int, idx []int) error {
	if len(X) == 0 {
		return errors.New("dtree: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("dtree: X and y length mismatch")
	}
	if len(idx) == 0 {
		return errors.New("dtree: empty sample")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("dtree: inconsistent number of features in X rows")
		}
	}
	for _, i := range idx {
		if i < 0 || i >= n {
			return errors.New("dtree: sample index out of range")
		}
	}

	// collect classes in sorted order
	classMap := map[int]struct{}{}
	for _, lab := range y {
		classMap[lab] = struct{}{}
	}
	t.classes = t.classes[:0]
	for lab := range classMap {
		t.classes = append(t.classes, lab)
	}
	sort.Ints(t.classes)

	yIdx := make([]int, n)
	for i, lab := range y {
		yIdx[i] = classIndex(lab, t.classes)
	}

	t.nFeatures = p
	t.importances = make([]float64, p)
	rnd := rand.New(rand.NewSource(t.RandomState))

	b := &builder{tree: t, X: X, y: yIdx, nClasses: len(t.classes), rnd: rnd}
	t.root = b.build(append([]int(nil), idx...), 0)

	total := 0.0
	for _, v := range t.importances {
		total += v
	}
	if total > 0 {
		for j := range t.importances {
			t.importances[j] /= total
		}
	}
	return nil
}

// Classes returns the class labels in probability order.
func (t *DecisionTreeClassifier) Classes() []int { return append([]int(nil), t.classes...) }

// Predict returns the most probable class label for each row.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i := range X {
		probs := t.predictProbaSingle(X[i])
		out[i] = t.classes[argmaxFloat(probs)]
	}
	return out
}

// PredictDistribution returns the per-class probability vectors for rows in X.
func (t *DecisionTreeClassifier) PredictDistribution(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])
	}
	return out
}

// PredictProba returns P(y=1) for each row. It is 0 when class 1 was never seen.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) []float64 {
	pos := -1
	for i, c := range t.classes {
		if c == 1 {
			pos = i
		}
	}
	out := make([]float64, len(X))
	if pos < 0 {
		return out
	}
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])[pos]
	}
	return out
}

// FeatureImportances returns the normalized total impurity decrease
// contributed by each feature.
func (t *DecisionTreeClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), t.importances...)
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

// splitResult holds the best split found for one feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	nanLeft   bool
}

// pair is a value and its original row index.
type pair struct {
	v float64
	i int
}

type builder struct {
	tree     *DecisionTreeClassifier
	X        [][]float64
	y        []int // class index per row
	nClasses int
	rnd      *rand.Rand
}

func (b *builder) impurity(counts []int) float64 {
	if b.tree.Criterion == "entropy" {
		return entropyFromCounts(counts)
	}
	return giniFromCounts(counts)
}

func (b *builder) leaf(node *dtNode, counts []int) *dtNode {
	node.isLeaf = true
	node.probas = countsToProbas(counts)
	return node
}

func (b *builder) build(idx []int, depth int) *dtNode {
	t := b.tree
	node := &dtNode{n: len(idx)}

	counts := make([]int, b.nClasses)
	for _, ii := range idx {
		counts[b.y[ii]]++
	}
	// make leaf if pure, too few samples or depth reached
	if isPure(counts) || len(idx) < t.MinSamplesSplit || len(idx) < 2*max(t.MinSamplesLeaf, 1) {
		return b.leaf(node, counts)
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return b.leaf(node, counts)
	}

	// determine features to try
	p := t.nFeatures
	featIndices := make([]int, p)
	for j := 0; j < p; j++ {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + b.rnd.Intn(p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
	}

	parentImpurity := b.impurity(counts)
	best := splitResult{feature: -1}
	for _, f := range featIndices {
		r := b.bestSplitForFeature(idx, f, counts, parentImpurity)
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}

	if best.feature == -1 || best.gain <= t.MinImpurityDecrease {
		return b.leaf(node, counts)
	}

	leftIdx := make([]int, 0, len(idx))
	rightIdx := make([]int, 0, len(idx))
	for _, ii := range idx {
		v := b.X[ii][best.feature]
		if (math.IsNaN(v) && best.nanLeft) || v <= best.threshold {
			leftIdx = append(leftIdx, ii)
		} else {
			rightIdx = append(rightIdx, ii)
		}
	}

	t.importances[best.feature] += float64(len(idx)) * best.gain

	node.feature = best.feature
	node.threshold = best.threshold
	node.nanLeft = best.nanLeft
	node.left = b.build(leftIdx, depth+1)
	node.right = b.build(rightIdx, depth+1)
	return node
}

// bestSplitForFeature scans the sorted values of feature f once, moving
// samples from the right side to the left and keeping class counts
// incrementally. Missing values are tried on both sides.
func (b *builder) bestSplitForFeature(idx []int, f int, counts []int, parentImpurity float64) splitResult {
	result := splitResult{feature: -1}
	minLeaf := max(b.tree.MinSamplesLeaf, 1)

	valid := make([]pair, 0, len(idx))
	nanCounts := make([]int, b.nClasses)
	nNaN := 0
	for _, ii := range idx {
		v := b.X[ii][f]
		if math.IsNaN(v) {
			nanCounts[b.y[ii]]++
			nNaN++
			continue
		}
		valid = append(valid, pair{v, ii})
	}
	if len(valid) < 2 {
		return result
	}
	sort.Slice(valid, func(a, c int) bool { return valid[a].v < valid[c].v })

	left := make([]int, b.nClasses)
	right := make([]int, b.nClasses)
	for k := range counts {
		right[k] = counts[k] - nanCounts[k]
	}
	withNaN := make([]int, b.nClasses)
	total := float64(len(idx))

	gainOf := func(l, r []int, nl, nr int) float64 {
		return parentImpurity - (float64(nl)/total)*b.impurity(l) - (float64(nr)/total)*b.impurity(r)
	}

	for s := 1; s < len(valid); s++ {
		c := b.y[valid[s-1].i]
		left[c]++
		right[c]--
		if valid[s].v == valid[s-1].v {
			continue
		}
		thr := (valid[s-1].v + valid[s].v) / 2.0
		if thr >= valid[s].v {
			thr = valid[s-1].v
		}
		nl, nr := s, len(valid)-s

		// NaNs on the left
		if nl+nNaN >= minLeaf && nr >= minLeaf {
			for k := range withNaN {
				withNaN[k] = left[k] + nanCounts[k]
			}
			if g := gainOf(withNaN, right, nl+nNaN, nr); g > result.gain {
				result = splitResult{gain: g, feature: f, threshold: thr, nanLeft: true}
			}
		}
		if nNaN == 0 {
			continue
		}
		// NaNs on the right
		if nl >= minLeaf && nr+nNaN >= minLeaf {
			for k := range withNaN {
				withNaN[k] = right[k] + nanCounts[k]
			}
			if g := gainOf(left, withNaN, nl, nr+nNaN); g > result.gain {
				result = splitResult{gain: g, feature: f, threshold: thr, nanLeft: false}
			}
		}
	}
	return result
}

// ---------------------------
// Prediction helper
// ---------------------------

func (t *DecisionTreeClassifier) predictProbaSingle(x []float64) []float64 {
	if t.root == nil {
		p := make([]float64, len(t.classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	node := t.root
	for !node.isLeaf {
		val := x[node.feature]
		if (math.IsNaN(val) && node.nanLeft) || val <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.probas
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}

// classIndex returns index of label in classes slice.
func classIndex(label int, classes []int) int {
	for i, v := range classes {
		if v == label {
			return i
		}
	}
	return 0
}
