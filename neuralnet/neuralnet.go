package neuralnet

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"doodlenet/dataset"
)

// NeuralNetwork is an ordered stack of dense layers; layer i's output size
// equals layer i+1's input size.
type NeuralNetwork struct {
	layers []*DenseLayer
	loss   LossFunction
}

// DefaultArchitecture is used whenever no persisted model can be restored.
func DefaultArchitecture(inputSize, classes int) []int {
	return []int{inputSize, 256, 256, 128, classes}
}

// NewNeuralNetwork builds randomly initialized layers for the given widths,
// input first. At least two widths are required.
func NewNeuralNetwork(rng *rand.Rand, sizes ...int) *NeuralNetwork {
	if len(sizes) < 2 {
		panic(errors.Wrapf(ErrDimension, "network needs at least 2 layer widths, got %d", len(sizes)))
	}
	nn := &NeuralNetwork{
		layers: make([]*DenseLayer, len(sizes)-1),
		loss:   BinaryCrossEntropy{},
	}
	for i := range nn.layers {
		nn.layers[i] = NewDenseLayer(rng, sizes[i], sizes[i+1])
	}
	return nn
}

// FromLayers assembles restored layers, checking that adjacent sizes chain.
func FromLayers(layers ...*DenseLayer) (*NeuralNetwork, error) {
	if len(layers) == 0 {
		return nil, errors.New("network has no layers")
	}
	for i := 1; i < len(layers); i++ {
		if layers[i-1].out != layers[i].in {
			return nil, errors.Errorf("layer %d outputs %d but layer %d expects %d inputs",
				i-1, layers[i-1].out, i, layers[i].in)
		}
	}
	return &NeuralNetwork{layers: layers, loss: BinaryCrossEntropy{}}, nil
}

func (nn *NeuralNetwork) Layers() []*DenseLayer {
	return nn.layers
}

// Sizes returns the layer widths, input first.
func (nn *NeuralNetwork) Sizes() []int {
	sizes := []int{nn.InputSize()}
	for _, l := range nn.layers {
		sizes = append(sizes, l.out)
	}
	return sizes
}

func (nn *NeuralNetwork) InputSize() int  { return nn.layers[0].in }
func (nn *NeuralNetwork) OutputSize() int { return nn.layers[len(nn.layers)-1].out }

// Trace runs a forward pass and returns every layer's activation record.
func (nn *NeuralNetwork) Trace(input []float64) []*Activation {
	trace := make([]*Activation, len(nn.layers))
	out := input
	for i, layer := range nn.layers {
		trace[i] = layer.Forward(out)
		out = trace[i].Output
	}
	return trace
}

// Forward returns the final layer's activation.
func (nn *NeuralNetwork) Forward(input []float64) []float64 {
	trace := nn.Trace(input)
	return trace[len(trace)-1].Output
}

// SampleCost is the clamped binary cross-entropy of one sample.
func (nn *NeuralNetwork) SampleCost(s dataset.Sample) float64 {
	return nn.loss.Compute(nn.Forward(s.Input()), s.Target())
}

// DatasetCost is the mean SampleCost. It panics on an empty collection.
func (nn *NeuralNetwork) DatasetCost(samples []dataset.Sample) float64 {
	mustNotEmpty("cost", samples)
	costs := make([]float64, len(samples))
	for i, s := range samples {
		costs[i] = nn.SampleCost(s)
	}
	return floats.Sum(costs) / float64(len(samples))
}

// Score runs one forward pass and reports both the sample's cost and
// whether it was classified correctly.
func (nn *NeuralNetwork) Score(s dataset.Sample) (cost float64, correct bool) {
	out := nn.Forward(s.Input())
	return nn.loss.Compute(out, s.Target()), s.Target()[floats.MaxIdx(out)] == 1
}

// Classify returns the index of the largest output; ties go to the lowest index.
func (nn *NeuralNetwork) Classify(input []float64) int {
	return floats.MaxIdx(nn.Forward(input))
}

// Accuracy counts samples whose predicted index is the target's hot index.
func (nn *NeuralNetwork) Accuracy(samples []dataset.Sample) int {
	mustNotEmpty("accuracy", samples)
	correct := 0
	for _, s := range samples {
		if s.Target()[nn.Classify(s.Input())] == 1 {
			correct++
		}
	}
	return correct
}

// TrainOnBatch runs one mini-batch step: clear, accumulate every sample's
// gradients, then apply learningRate/len(samples) to every layer.
func (nn *NeuralNetwork) TrainOnBatch(samples []dataset.Sample, learningRate float64) {
	mustNotEmpty("batch", samples)
	for _, l := range nn.layers {
		l.ClearGradients()
	}
	for _, s := range samples {
		nn.backpropagate(s)
	}
	lr := learningRate / float64(len(samples))
	for _, l := range nn.layers {
		l.ApplyGradients(lr)
	}
}

func (nn *NeuralNetwork) backpropagate(s dataset.Sample) {
	trace := nn.Trace(s.Input())
	last := len(nn.layers) - 1

	nodeValues := nn.layers[last].OutputNodeValues(trace[last], s.Target())
	nn.layers[last].AccumulateGradients(trace[last], nodeValues)

	for i := last - 1; i >= 0; i-- {
		nodeValues = nn.layers[i].HiddenNodeValues(trace[i], nn.layers[i+1], nodeValues)
		nn.layers[i].AccumulateGradients(trace[i], nodeValues)
	}
}

// Clone deep-copies the parameters. The copy shares nothing with nn and
// starts with zero gradients and velocities.
func (nn *NeuralNetwork) Clone() *NeuralNetwork {
	layers := make([]*DenseLayer, len(nn.layers))
	for i, l := range nn.layers {
		layers[i] = l.clone()
	}
	return &NeuralNetwork{layers: layers, loss: nn.loss}
}

func mustNotEmpty(what string, samples []dataset.Sample) {
	if len(samples) == 0 {
		panic(errors.Wrapf(ErrDimension, "%s: empty sample collection", what))
	}
}

func (l *DenseLayer) String() string {
	return fmt.Sprintf("dense %d->%d relu", l.in, l.out)
}

func (nn *NeuralNetwork) String() string {
	var sb strings.Builder
	for i, layer := range nn.layers {
		sb.WriteString(fmt.Sprintf("Layer %d: %s\n", i, layer))
	}
	return sb.String()
}
