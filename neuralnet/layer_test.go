package neuralnet

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
)

// Helper function for comparing floats with a tolerance
func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func expectDimensionPanic(t *testing.T) {
	t.Helper()
	r := recover()
	if r == nil {
		t.Fatal("expected a dimension panic")
	}
	err, ok := r.(error)
	if !ok || !errors.Is(err, ErrDimension) {
		t.Fatalf("panic value %v; want ErrDimension", r)
	}
}

func mustLayer(t *testing.T, in, out int, weights [][]float64, biases []float64) *DenseLayer {
	t.Helper()
	l, err := NewDenseLayerFrom(in, out, weights, biases)
	if err != nil {
		t.Fatalf("NewDenseLayerFrom: %v", err)
	}
	return l
}

func TestZeroLayerForwardIsZero(t *testing.T) {
	l := mustLayer(t, 3, 2, [][]float64{{0, 0, 0}, {0, 0, 0}}, []float64{0, 0})
	rec := l.Forward([]float64{4, -1, 9})
	for j, v := range rec.Output {
		if v != 0 {
			t.Errorf("Output[%d] = %v; want 0", j, v)
		}
	}
}

func TestForwardComputesAffineReLU(t *testing.T) {
	l := mustLayer(t, 2, 3, [][]float64{{1, 2}, {-1, 0.5}, {0, 0}}, []float64{0.5, 0, -1})
	rec := l.Forward([]float64{1, 2})
	wantZ := []float64{5.5, 0, -1}
	wantOut := []float64{5.5, 0, 0}
	for j := range wantZ {
		if !floatEquals(rec.Z[j], wantZ[j], 1e-12) {
			t.Errorf("Z[%d] = %v; want %v", j, rec.Z[j], wantZ[j])
		}
		if !floatEquals(rec.Output[j], wantOut[j], 1e-12) {
			t.Errorf("Output[%d] = %v; want %v", j, rec.Output[j], wantOut[j])
		}
	}
}

func TestForwardRejectsWrongInputLength(t *testing.T) {
	defer expectDimensionPanic(t)
	NewDenseLayer(rand.New(rand.NewSource(1)), 3, 2).Forward([]float64{1, 2})
}

func TestHiddenNodeValuesGatesOnZ(t *testing.T) {
	hidden := mustLayer(t, 1, 2, [][]float64{{1}, {-1}}, []float64{0, 0})
	next := mustLayer(t, 2, 1, [][]float64{{3, 4}}, []float64{0})
	rec := hidden.Forward([]float64{2})
	nv := hidden.HiddenNodeValues(rec, next, []float64{0.5})
	if nv[0] != 1.5 {
		t.Errorf("active unit node value = %v; want 1.5", nv[0])
	}
	if nv[1] != 0 {
		t.Errorf("inactive unit node value = %v; want 0", nv[1])
	}
}

func TestHiddenNodeValuesRejectsUnchainedLayer(t *testing.T) {
	hidden := mustLayer(t, 1, 2, [][]float64{{1}, {1}}, []float64{0, 0})
	next := mustLayer(t, 3, 1, [][]float64{{1, 1, 1}}, []float64{0})
	rec := hidden.Forward([]float64{1})
	defer expectDimensionPanic(t)
	hidden.HiddenNodeValues(rec, next, []float64{1})
}

func TestGradientsAccumulateUntilCleared(t *testing.T) {
	l := mustLayer(t, 2, 1, [][]float64{{1, 1}}, []float64{0})
	rec := l.Forward([]float64{2, 3})
	l.AccumulateGradients(rec, []float64{0.5})
	l.AccumulateGradients(rec, []float64{0.5})

	if got := l.BiasGradient()[0]; got != 1 {
		t.Errorf("bias gradient = %v; want 1", got)
	}
	if got := l.WeightGradient()[0]; got[0] != 2 || got[1] != 3 {
		t.Errorf("weight gradient = %v; want [2 3]", got)
	}

	l.ApplyGradients(0.1)
	if got := l.BiasGradient()[0]; got != 1 {
		t.Errorf("ApplyGradients cleared the bias gradient: %v", got)
	}

	l.ClearGradients()
	if got := l.BiasGradient()[0]; got != 0 {
		t.Errorf("bias gradient after clear = %v; want 0", got)
	}
	if got := l.WeightGradient()[0]; got[0] != 0 || got[1] != 0 {
		t.Errorf("weight gradient after clear = %v; want [0 0]", got)
	}
}

func TestApplyGradientsFirstStepVelocity(t *testing.T) {
	l := mustLayer(t, 2, 2, [][]float64{{0.1, 0.2}, {0.3, 0.4}}, []float64{0.5, 0.6})
	rec := l.Forward([]float64{1, -2})
	l.AccumulateGradients(rec, []float64{0.7, -0.3})
	const lr = 0.01
	l.ApplyGradients(lr)

	grad, vel := l.WeightGradient(), l.WeightVelocity()
	for j := range grad {
		for i := range grad[j] {
			if vel[j][i] != lr*grad[j][i] {
				t.Errorf("weight velocity[%d][%d] = %v; want %v", j, i, vel[j][i], lr*grad[j][i])
			}
		}
	}
	for j, g := range l.BiasGradient() {
		if v := l.BiasVelocity()[j]; v != lr*g {
			t.Errorf("bias velocity[%d] = %v; want %v", j, v, lr*g)
		}
	}
	if got := l.Biases()[0]; !floatEquals(got, 0.5-lr*0.7, 1e-15) {
		t.Errorf("bias[0] = %v; want %v", got, 0.5-lr*0.7)
	}
}

func TestHeInitialization(t *testing.T) {
	const in, out = 200, 100
	l := NewDenseLayer(rand.New(rand.NewSource(42)), in, out)
	var sum, sq float64
	for _, row := range l.Weights() {
		for _, w := range row {
			sum += w
			sq += w * w
		}
	}
	n := float64(in * out)
	mean := sum / n
	variance := sq/n - mean*mean
	if math.Abs(mean) > 0.01 {
		t.Errorf("weight mean = %v; want ~0", mean)
	}
	if want := 2.0 / in; math.Abs(variance-want)/want > 0.05 {
		t.Errorf("weight variance = %v; want ~%v", variance, want)
	}
	for _, b := range l.Biases() {
		if b != 0 {
			t.Fatalf("bias = %v; want 0", b)
		}
	}
	for _, row := range l.WeightVelocity() {
		for _, v := range row {
			if v != 0 {
				t.Fatalf("velocity = %v; want 0", v)
			}
		}
	}
}

func TestNewDenseLayerFromRejectsBadShapes(t *testing.T) {
	tests := []struct {
		description string
		in, out     int
		weights     [][]float64
		biases      []float64
	}{
		{description: "zero size", in: 0, out: 1, weights: [][]float64{{}}, biases: []float64{0}},
		{description: "row count", in: 1, out: 2, weights: [][]float64{{1}}, biases: []float64{0, 0}},
		{description: "bias count", in: 1, out: 1, weights: [][]float64{{1}}, biases: []float64{0, 0}},
		{description: "column count", in: 2, out: 1, weights: [][]float64{{1}}, biases: []float64{0}},
		{description: "huge input size", in: math.MaxInt, out: 1, weights: [][]float64{{1}}, biases: []float64{0}},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if _, err := NewDenseLayerFrom(tt.in, tt.out, tt.weights, tt.biases); err == nil {
				t.Error("NewDenseLayerFrom returned no error")
			}
		})
	}
}
