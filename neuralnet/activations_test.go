package neuralnet

import "testing"

func TestReLUActivate(t *testing.T) {
	r := ReLU{}
	if got := r.Activate(-1); got != 0 {
		t.Errorf("ReLU.Activate(-1) = %v; want 0", got)
	}
	if got := r.Activate(2); got != 2 {
		t.Errorf("ReLU.Activate(2) = %v; want 2", got)
	}
}

func TestReLUDerivative(t *testing.T) {
	r := ReLU{}
	for _, tt := range []struct {
		x, want float64
	}{{-3, 0}, {0, 0}, {1e-9, 1}, {5, 1}} {
		if got := r.Derivative(tt.x); got != tt.want {
			t.Errorf("ReLU.Derivative(%v) = %v; want %v", tt.x, got, tt.want)
		}
	}
}
