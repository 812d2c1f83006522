// Package checkpoint persists the best network seen during training.
package checkpoint

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"doodlenet/neuralnet"
)

// layerRecord is one entry of the persisted object, keyed "layer_<i>".
type layerRecord struct {
	In      int         `json:"nIn"`
	Out     int         `json:"nOut"`
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

func layerKey(i int) string { return "layer_" + strconv.Itoa(i) }

// Encode writes every layer's sizes, weights and biases as JSON.
func Encode(w io.Writer, nn *neuralnet.NeuralNetwork) error {
	obj := make(map[string]layerRecord, len(nn.Layers()))
	for i, l := range nn.Layers() {
		obj[layerKey(i)] = layerRecord{
			In:      l.InputSize(),
			Out:     l.OutputSize(),
			Weights: l.Weights(),
			Biases:  l.Biases(),
		}
	}
	return errors.Wrap(json.NewEncoder(w).Encode(obj), "encode network")
}

// Decode rebuilds a network written by Encode, restoring layers in their
// original order.
func Decode(r io.Reader) (*neuralnet.NeuralNetwork, error) {
	var obj map[string]layerRecord
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, errors.Wrap(err, "decode network")
	}
	layers := make([]*neuralnet.DenseLayer, len(obj))
	for i := range layers {
		rec, ok := obj[layerKey(i)]
		if !ok {
			return nil, errors.Errorf("decode network: missing %s", layerKey(i))
		}
		l, err := neuralnet.NewDenseLayerFrom(rec.In, rec.Out, rec.Weights, rec.Biases)
		if err != nil {
			return nil, errors.Wrapf(err, "decode network: %s", layerKey(i))
		}
		layers[i] = l
	}
	nn, err := neuralnet.FromLayers(layers...)
	if err != nil {
		return nil, errors.Wrap(err, "decode network")
	}
	return nn, nil
}
