package loader

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit splits row indices so each label keeps its share in
// both parts. Each class contributes round(count*testRatio) rows to test,
// and at least one row to each side when it has two or more rows.
// The result is fully determined by seed.
func StratifiedSplit(y []int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, errors.New("loader: test ratio must be in (0, 1)")
	}
	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	labels := make([]int, 0, len(byClass))
	for label := range byClass {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	rnd := rand.New(rand.NewSource(seed))
	for _, label := range labels {
		rows := byClass[label]
		rnd.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		nTest := int(math.Round(float64(len(rows)) * testRatio))
		if len(rows) >= 2 {
			nTest = max(1, min(nTest, len(rows)-1))
		}
		test = append(test, rows[:nTest]...)
		train = append(train, rows[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// KFoldSplit shuffles n row indices with seed and deals them into k folds.
// Fold sizes differ by at most one.
func KFoldSplit(n, k int, seed int64) [][]int {
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	return folds
}
