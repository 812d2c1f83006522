package neuralnet

import "testing"

func TestMomentumFirstStepIsPlainGradient(t *testing.T) {
	param := []float64{1.0, -2.0, 0.5}
	velocity := make([]float64, 3)
	gradient := []float64{0.2, -0.4, 0.3}
	const lr = 0.05

	Momentum{Coefficient: MomentumCoefficient}.Step(param, velocity, gradient, lr)

	for i := range velocity {
		if velocity[i] != lr*gradient[i] {
			t.Errorf("velocity[%d] = %v; want exactly %v", i, velocity[i], lr*gradient[i])
		}
	}
	wantParam := []float64{1.0 - lr*0.2, -2.0 - lr*-0.4, 0.5 - lr*0.3}
	for i := range param {
		if !floatEquals(param[i], wantParam[i], 1e-15) {
			t.Errorf("param[%d] = %v; want %v", i, param[i], wantParam[i])
		}
	}
	if gradient[0] != 0.2 {
		t.Error("Step modified the gradient")
	}
}

func TestMomentumAccumulatesVelocity(t *testing.T) {
	param := []float64{0}
	velocity := []float64{0}
	gradient := []float64{1}
	opt := Momentum{Coefficient: MomentumCoefficient}

	opt.Step(param, velocity, gradient, 0.1)
	opt.Step(param, velocity, gradient, 0.1)

	if want := 0.9*0.1 + 0.1; !floatEquals(velocity[0], want, 1e-12) {
		t.Errorf("velocity after two steps = %v; want %v", velocity[0], want)
	}
	if want := -(0.1 + 0.19); !floatEquals(param[0], want, 1e-12) {
		t.Errorf("param after two steps = %v; want %v", param[0], want)
	}
}

func TestMomentumPanicsOnLengthMismatch(t *testing.T) {
	defer expectDimensionPanic(t)
	Momentum{Coefficient: 0.9}.Step(make([]float64, 2), make([]float64, 3), make([]float64, 2), 0.1)
}
