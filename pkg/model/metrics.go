package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Classification metrics (binary, labels 0/1)

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

func BinaryPredFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out
}

func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	cm := NewConfusionMatrix(yTrue, yPred)
	if cm.TP+cm.FP > 0 {
		prec = float64(cm.TP) / float64(cm.TP+cm.FP)
	}
	if cm.TP+cm.FN > 0 {
		rec = float64(cm.TP) / float64(cm.TP+cm.FN)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ConfusionMatrix counts binary outcomes with 1 as the positive class.
type ConfusionMatrix struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

func NewConfusionMatrix(yTrue, yPred []int) ConfusionMatrix {
	var cm ConfusionMatrix
	for i := range yTrue {
		switch {
		case yTrue[i] == 1 && yPred[i] == 1:
			cm.TP++
		case yTrue[i] == 0 && yPred[i] == 1:
			cm.FP++
		case yTrue[i] == 1 && yPred[i] == 0:
			cm.FN++
		default:
			cm.TN++
		}
	}
	return cm
}

// ROCAUC is the area under the ROC curve of proba against yTrue.
// It returns 0.5 when only one class is present.
func ROCAUC(yTrue []int, proba []float64) float64 {
	n := len(yTrue)
	pos := 0
	for _, v := range yTrue {
		if v == 1 {
			pos++
		}
	}
	if n == 0 || pos == 0 || pos == n {
		return 0.5
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return proba[order[a]] < proba[order[b]] })
	scores := make([]float64, n)
	classes := make([]bool, n)
	for k, i := range order {
		scores[k] = proba[i]
		classes[k] = yTrue[i] == 1
	}
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// BrierScore is the mean squared difference between proba and the 0/1 outcome.
func BrierScore(yTrue []int, proba []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		d := proba[i] - float64(yTrue[i])
		s += d * d
	}
	return s / float64(len(yTrue))
}

// LogLoss is the mean binary cross-entropy of proba against yTrue.
func LogLoss(yTrue []int, proba []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	const eps = 1e-15
	s := 0.0
	for i := range yTrue {
		p := math.Min(math.Max(proba[i], eps), 1-eps)
		if yTrue[i] == 1 {
			s -= math.Log(p)
		} else {
			s -= math.Log(1 - p)
		}
	}
	return s / float64(len(yTrue))
}

// Scores bundles the metrics reported for one classifier.
type Scores struct {
	Accuracy  float64         `json:"accuracy"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1"`
	ROCAUC    float64         `json:"roc_auc"`
	Brier     float64         `json:"brier"`
	LogLoss   float64         `json:"log_loss"`
	Confusion ConfusionMatrix `json:"confusion"`
}

// Score computes all metrics, labelling rows with proba >= threshold as positive.
func Score(yTrue []int, proba []float64, threshold float64) Scores {
	pred := BinaryPredFromProba(proba, threshold)
	prec, rec, f1 := PrecisionRecallF1(yTrue, pred)
	return Scores{
		Accuracy:  Accuracy(yTrue, pred),
		Precision: prec,
		Recall:    rec,
		F1:        f1,
		ROCAUC:    ROCAUC(yTrue, proba),
		Brier:     BrierScore(yTrue, proba),
		LogLoss:   LogLoss(yTrue, proba),
		Confusion: NewConfusionMatrix(yTrue, pred),
	}
}
