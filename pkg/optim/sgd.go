package optim

// SGD is plain gradient descent with optional L2 weight decay.
type SGD struct {
	LearningRate float64
	WeightDecay  float64
}

func NewSGD(lr float64) *SGD { return &SGD{LearningRate: lr} }

// Step updates weights in place. Weight decay adds WeightDecay*w to each gradient.
func (o *SGD) Step(weights, grads []float64) {
	for i := range weights {
		g := grads[i] + o.WeightDecay*weights[i]
		weights[i] -= o.LearningRate * g
	}
}
