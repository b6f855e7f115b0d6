package nn

import "math"

// Sigmoid is the logistic function. Large negative inputs are evaluated
// through exp(x) so the result never overflows.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

func SigmoidPrime(x float64) float64 { s := Sigmoid(x); return s * (1 - s) }
