package neuralnet

type ActivationFunction interface {
	Activate(x float64) float64
	Derivative(x float64) float64
}

// ReLU is the only activation dense layers use.
type ReLU struct{}

func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative is taken with respect to the pre-activation z; zero at z == 0.
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}
