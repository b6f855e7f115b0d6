package nn

import "math"

// eps keeps log() away from zero.
const eps = 1e-12

// BCE is the mean binary cross-entropy and its gradient with respect to
// the predicted probabilities, already divided by the batch size.
func BCE(yTrue, yPred []float64) (float64, []float64) {
	n := len(yTrue)
	if n == 0 {
		return 0, nil
	}
	s := 0.0
	grad := make([]float64, n)

	for i := range n {
		p := math.Min(math.Max(yPred[i], eps), 1-eps)
		y := yTrue[i]
		s += -(y*math.Log(p) + (1-y)*math.Log(1-p))
		grad[i] = (p - y) / float64(n)
	}
	return s / float64(n), grad
}
