package neuralnet

import "gonum.org/v1/gonum/floats"

// MomentumCoefficient is fixed for every layer.
const MomentumCoefficient = 0.9

// Optimizer applies an accumulated gradient to a flat parameter slice.
type Optimizer interface {
	Step(param, velocity, gradient []float64, learningRate float64)
}

// Momentum implements SGD with classical momentum:
//
//	velocity = coefficient*velocity + learningRate*gradient
//	param   -= velocity
type Momentum struct {
	Coefficient float64
}

// Step updates velocity and param in place. The gradient is left untouched.
func (o Momentum) Step(param, velocity, gradient []float64, learningRate float64) {
	mustSameLen("momentum velocity", len(velocity), len(param))
	mustSameLen("momentum gradient", len(gradient), len(param))
	floats.Scale(o.Coefficient, velocity)
	floats.AddScaled(velocity, learningRate, gradient)
	floats.Sub(param, velocity)
}
