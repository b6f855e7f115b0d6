package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is the describe() view of a numeric column.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	Max   float64 `json:"max"`
}

// DropNaN returns a copy of x without NaN values.
func DropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Std computes the population standard deviation of a slice.
func Std(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(x, nil)
	return std
}

// MinMax returns the minimum and maximum values in the slice.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return floats.Min(x), floats.Max(x)
}

// Median returns the median value of the slice (allocates a copy).
func Median(x []float64) float64 {
	return Percentile(x, 50)
}

// Percentile returns the p-th percentile value of the slice (0 <= p <= 100),
// linearly interpolated between closest ranks.
func Percentile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	if p <= 0 {
		return cp[0]
	}
	if p >= 100 {
		return cp[n-1]
	}
	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

// Mode returns the most frequent value in the slice. Ties go to the smallest value.
func Mode(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	cp := make([]float64, len(x))
	copy(cp, x)
	sort.Float64s(cp)
	mode, best, run := cp[0], 0, 0
	for i := range cp {
		if i > 0 && cp[i] == cp[i-1] {
			run++
		} else {
			run = 1
		}
		if run > best {
			mode, best = cp[i], run
		}
	}
	return mode
}

// ModeString returns the most frequent string. Ties go to the lexically smallest value.
func ModeString(x []string) string {
	counts := make(map[string]int)
	for _, v := range x {
		counts[v]++
	}
	best, bestCount := "", 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

// Correlation computes the Pearson correlation coefficient between two slices.
// Constant inputs yield 0 rather than NaN.
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) != len(x) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// Describe summarizes x, ignoring NaN entries.
func Describe(x []float64) Summary {
	vals := DropNaN(x)
	if len(vals) == 0 {
		return Summary{}
	}
	sort.Float64s(vals)
	return Summary{
		Count: len(vals),
		Mean:  stat.Mean(vals, nil),
		Std:   sampleStd(vals),
		Min:   vals[0],
		P25:   Percentile(vals, 25),
		P50:   Percentile(vals, 50),
		P75:   Percentile(vals, 75),
		Max:   vals[len(vals)-1],
	}
}

func sampleStd(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// GroupMean averages values per group key. Keys come back sorted.
func GroupMean(values []float64, groups []string) (keys []string, means []float64) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sums[groups[i]] += v
		counts[groups[i]]++
	}
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	means = make([]float64, len(keys))
	for i, k := range keys {
		means[i] = sums[k] / float64(counts[k])
	}
	return keys, means
}
