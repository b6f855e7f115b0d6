package model

import "sort"

// Classifier is a binary classifier over a numeric feature matrix.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	PredictProba(X [][]float64) []float64 // returns p(y=1) for each row
}

// Importancer is implemented by classifiers that can rank their input features.
type Importancer interface {
	FeatureImportances() []float64
}

// Importance pairs a feature name with its weight.
type Importance struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// RankImportances pairs names with weights, sorted by decreasing weight
// (ties by name), keeping at most top entries. top <= 0 keeps all.
func RankImportances(names []string, weights []float64, top int) []Importance {
	out := make([]Importance, 0, len(weights))
	for j, w := range weights {
		if j < len(names) {
			out = append(out, Importance{Feature: names[j], Weight: w})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Weight != out[b].Weight {
			return out[a].Weight > out[b].Weight
		}
		return out[a].Feature < out[b].Feature
	})
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

var (
	_ Classifier  = (*DecisionTreeClassifier)(nil)
	_ Classifier  = (*RandomForest)(nil)
	_ Classifier  = (*LogisticRegression)(nil)
	_ Importancer = (*RandomForest)(nil)
	_ Importancer = (*DecisionTreeClassifier)(nil)
	_ Importancer = (*LogisticRegression)(nil)
)
