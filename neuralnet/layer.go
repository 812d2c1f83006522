package neuralnet

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Activation is the record of one forward pass through a layer. It is
// threaded explicitly into the backward calls for the same sample, so a
// layer holds no per-sample state and may be evaluated concurrently.
//
// Input aliases the caller's slice and must not be modified until the
// backward pass for this sample has finished.
type Activation struct {
	Input  []float64
	Z      []float64
	Output []float64
}

// DenseLayer is a fully-connected rectified-linear layer.
//
// Weights are outputSize x inputSize: row j holds the incoming weights of
// output unit j. Gradients accumulate across a mini-batch and are only
// cleared by ClearGradients; velocities persist for the life of the layer.
type DenseLayer struct {
	in, out int

	weights *mat.Dense
	biases  *mat.VecDense

	weightGrad *mat.Dense
	biasGrad   *mat.VecDense
	weightVel  *mat.Dense
	biasVel    *mat.VecDense

	activation ActivationFunction
	loss       LossFunction
	optimizer  Optimizer
}

func newDenseLayer(in, out int) *DenseLayer {
	if in <= 0 || out <= 0 {
		panic(errors.Wrapf(ErrDimension, "layer size %dx%d", in, out))
	}
	return &DenseLayer{
		in:         in,
		out:        out,
		weights:    mat.NewDense(out, in, nil),
		biases:     mat.NewVecDense(out, nil),
		weightGrad: mat.NewDense(out, in, nil),
		biasGrad:   mat.NewVecDense(out, nil),
		weightVel:  mat.NewDense(out, in, nil),
		biasVel:    mat.NewVecDense(out, nil),
		activation: ReLU{},
		loss:       BinaryCrossEntropy{},
		optimizer:  Momentum{Coefficient: MomentumCoefficient},
	}
}

// NewDenseLayer creates a layer with He-initialized weights drawn from rng
// and zero biases.
func NewDenseLayer(rng *rand.Rand, in, out int) *DenseLayer {
	l := newDenseLayer(in, out)
	scale := math.Sqrt(2.0 / float64(in))
	w := l.weights.RawMatrix().Data
	for i := range w {
		w[i] = rng.NormFloat64() * scale
	}
	return l
}

// NewDenseLayerFrom restores a layer from persisted parameters. weights must
// have out rows of in columns and biases out entries.
func NewDenseLayerFrom(in, out int, weights [][]float64, biases []float64) (*DenseLayer, error) {
	if in <= 0 || out <= 0 {
		return nil, errors.Errorf("layer size %dx%d", in, out)
	}
	if len(weights) != out {
		return nil, errors.Errorf("layer %dx%d: %d weight rows", in, out, len(weights))
	}
	if len(biases) != out {
		return nil, errors.Errorf("layer %dx%d: %d biases", in, out, len(biases))
	}
	for j, row := range weights {
		if len(row) != in {
			return nil, errors.Errorf("layer %dx%d: weight row %d has %d columns", in, out, j, len(row))
		}
	}
	l := newDenseLayer(in, out)
	for j, row := range weights {
		l.weights.SetRow(j, row)
	}
	copy(l.biases.RawVector().Data, biases)
	return l, nil
}

func (l *DenseLayer) InputSize() int  { return l.in }
func (l *DenseLayer) OutputSize() int { return l.out }

// Forward computes z = W·input + b and ReLU(z).
func (l *DenseLayer) Forward(input []float64) *Activation {
	mustSameLen("layer input", len(input), l.in)
	z := mat.NewVecDense(l.out, nil)
	z.MulVec(l.weights, mat.NewVecDense(l.in, input))
	z.AddVec(z, l.biases)

	zs := z.RawVector().Data
	output := make([]float64, l.out)
	for j, v := range zs {
		output[j] = l.activation.Activate(v)
	}
	return &Activation{Input: input, Z: zs, Output: output}
}

// OutputNodeValues returns activation - target for the final layer.
func (l *DenseLayer) OutputNodeValues(rec *Activation, target []float64) []float64 {
	mustSameLen("output activation", len(rec.Output), l.out)
	mustSameLen("target", len(target), l.out)
	return l.loss.Gradient(rec.Output, target)
}

// HiddenNodeValues propagates next's node values back through next's
// weights and gates them with the ReLU derivative of this layer's z.
func (l *DenseLayer) HiddenNodeValues(rec *Activation, next *DenseLayer, nextNodeValues []float64) []float64 {
	mustSameLen("next layer input", next.in, l.out)
	mustSameLen("next node values", len(nextNodeValues), next.out)
	mustSameLen("hidden activation", len(rec.Z), l.out)

	sum := mat.NewVecDense(l.out, nil)
	sum.MulVec(next.weights.T(), mat.NewVecDense(next.out, nextNodeValues))

	nodeValues := sum.RawVector().Data
	for j := range nodeValues {
		if l.activation.Derivative(rec.Z[j]) == 0 {
			nodeValues[j] = 0
		}
	}
	return nodeValues
}

// AccumulateGradients adds one sample's contribution to the batch gradients.
func (l *DenseLayer) AccumulateGradients(rec *Activation, nodeValues []float64) {
	mustSameLen("node values", len(nodeValues), l.out)
	mustSameLen("cached input", len(rec.Input), l.in)
	nv := mat.NewVecDense(l.out, nodeValues)
	l.biasGrad.AddVec(l.biasGrad, nv)
	l.weightGrad.RankOne(l.weightGrad, 1, nv, mat.NewVecDense(l.in, rec.Input))
}

// ApplyGradients performs one momentum step. It does not clear the
// gradients; call ClearGradients before accumulating the next batch.
func (l *DenseLayer) ApplyGradients(learningRate float64) {
	l.optimizer.Step(l.weights.RawMatrix().Data, l.weightVel.RawMatrix().Data, l.weightGrad.RawMatrix().Data, learningRate)
	l.optimizer.Step(l.biases.RawVector().Data, l.biasVel.RawVector().Data, l.biasGrad.RawVector().Data, learningRate)
}

func (l *DenseLayer) ClearGradients() {
	l.weightGrad.Zero()
	l.biasGrad.Zero()
}

// Weights returns a copy of the weight matrix, one row per output unit.
func (l *DenseLayer) Weights() [][]float64        { return rows(l.weights) }
func (l *DenseLayer) Biases() []float64           { return vec(l.biases) }
func (l *DenseLayer) WeightGradient() [][]float64 { return rows(l.weightGrad) }
func (l *DenseLayer) BiasGradient() []float64     { return vec(l.biasGrad) }
func (l *DenseLayer) WeightVelocity() [][]float64 { return rows(l.weightVel) }
func (l *DenseLayer) BiasVelocity() []float64     { return vec(l.biasVel) }

// clone copies parameters only; gradients and velocities start at zero.
func (l *DenseLayer) clone() *DenseLayer {
	c := newDenseLayer(l.in, l.out)
	c.weights.Copy(l.weights)
	c.biases.CopyVec(l.biases)
	return c
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for j := range out {
		out[j] = mat.Row(nil, j, m)
	}
	return out
}

func vec(v *mat.VecDense) []float64 {
	return append([]float64(nil), v.RawVector().Data...)
}
