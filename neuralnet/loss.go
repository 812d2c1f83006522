package neuralnet

import "math"

// Epsilon bounds activations away from 0 and 1 before taking logarithms.
const Epsilon = 1e-12

// LossFunction defines the interface for computing loss and its gradient.
type LossFunction interface {
	// Compute returns the loss value given the model output and one-hot target.
	Compute(output []float64, target []float64) float64
	// Gradient returns the gradient of the loss with respect to the output layer pre-activation.
	Gradient(output []float64, target []float64) []float64
}

// BinaryCrossEntropy sums per-unit binary cross-entropy over the output units.
type BinaryCrossEntropy struct{}

// Compute returns the clamped binary cross-entropy.
func (ce BinaryCrossEntropy) Compute(output []float64, target []float64) float64 {
	mustSameLen("loss output", len(output), len(target))
	var loss float64
	for i := range output {
		a := clamp(output[i], Epsilon, 1-Epsilon)
		na := clamp(1-a, Epsilon, 1-Epsilon)
		loss -= target[i]*math.Log(a) + (1-target[i])*math.Log(na)
	}
	return loss
}

// Gradient returns output - target, assuming output already approximates a per-unit probability.
func (ce BinaryCrossEntropy) Gradient(output []float64, target []float64) []float64 {
	mustSameLen("loss output", len(output), len(target))
	grad := make([]float64, len(output))
	for i := range output {
		grad[i] = output[i] - target[i]
	}
	return grad
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
