package model

import (
	"errors"
	"math/rand"
	"runtime"
	"sync"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/nn"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/optim"
)

// LogisticRegression (binary) with sigmoid.
// This struct holds the model parameters and hyperparameters for training.
type LogisticRegression struct {
	W           []float64 // weights
	b           float64   // bias
	Lr          float64
	Epochs      int
	BatchSize   int // 0 => full batch
	WeightDecay float64
	RandomState int64

	// Loss holds the training loss after each epoch.
	Loss []float64
}

// NewLogisticRegression initializes a new Logistic Regression model.
// Weights are sized on the first call to Fit.
func NewLogisticRegression(lr float64, epochs int, batchSize int) *LogisticRegression {
	return &LogisticRegression{
		Lr:          lr,
		Epochs:      epochs,
		BatchSize:   batchSize,
		WeightDecay: 1e-4,
		RandomState: 42,
	}
}

// PredictProba returns the probability scores (between 0 and 1) for each input row in X.
// It uses goroutines to parallelize the prediction process for efficiency.
func (m *LogisticRegression) PredictProba(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	out := make([]float64, len(X))
	var wg sync.WaitGroup

	// Determine the number of workers based on available CPU cores.
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if end > len(X) {
			end = len(X)
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				sum := m.b
				for j, v := range X[i] {
					if j < len(m.W) {
						sum += m.W[j] * v
					}
				}
				out[i] = nn.Sigmoid(sum)
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

// Predict returns the class labels (0 or 1) based on a 0.5 probability threshold.
func (m *LogisticRegression) Predict(X [][]float64) []int {
	return BinaryPredFromProba(m.PredictProba(X), 0.5)
}

// Fit trains the model with mini-batch gradient descent on the BCE loss.
// Batches are drawn from a permutation seeded with RandomState, so
// repeated fits on the same data give the same weights.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("logistic: empty X")
	}
	if len(X) != len(y) {
		return errors.New("logistic: X and y length mismatch")
	}
	p := len(X[0])
	m.W = make([]float64, p)
	m.b = 0
	m.Loss = m.Loss[:0]

	target := make([]float64, len(y))
	for i, v := range y {
		if v != 0 && v != 1 {
			return errors.New("logistic: labels must be 0 or 1")
		}
		target[i] = float64(v)
	}

	batch := m.BatchSize
	if batch <= 0 || batch > len(X) {
		batch = len(X)
	}
	opt := &optim.SGD{LearningRate: m.Lr, WeightDecay: m.WeightDecay}
	rnd := rand.New(rand.NewSource(m.RandomState))

	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}
	bx := make([][]float64, 0, batch)
	by := make([]float64, 0, batch)

	for ep := 0; ep < m.Epochs; ep++ {
		if batch < len(X) {
			rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		epochLoss := 0.0
		for start := 0; start < len(order); start += batch {
			end := start + batch
			if end > len(order) {
				end = len(order)
			}
			bx, by = bx[:0], by[:0]
			for _, i := range order[start:end] {
				if len(X[i]) != p {
					return errors.New("logistic: inconsistent number of features in X rows")
				}
				bx = append(bx, X[i])
				by = append(by, target[i])
			}

			// Forward pass
			prob := m.PredictProba(bx)
			loss, dy := nn.BCE(by, prob)
			epochLoss += loss * float64(len(bx))

			// Backward pass
			gW := make([]float64, p)
			gb := 0.0
			for i, row := range bx {
				d := dy[i]
				for j, xij := range row {
					gW[j] += d * xij
				}
				gb += d
			}

			opt.Step(m.W, gW)
			m.b -= m.Lr * gb
		}
		m.Loss = append(m.Loss, epochLoss/float64(len(X)))
	}
	return nil
}

// FeatureImportances returns |w_j| normalized to sum to 1. On standardized
// inputs this ranks features by the size of their effect on the log-odds.
func (m *LogisticRegression) FeatureImportances() []float64 {
	out := make([]float64, len(m.W))
	total := 0.0
	for j, w := range m.W {
		if w < 0 {
			w = -w
		}
		out[j] = w
		total += w
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}
