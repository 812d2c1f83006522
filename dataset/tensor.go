package dataset

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// OneHot encodes labels as an (n, classes) float64 tensor.
func OneHot(labels []int, classes int) (*tensor.Dense, error) {
	norm := make([]float64, len(labels)*classes)
	for i, label := range labels {
		if label < 0 || label >= classes {
			return nil, errors.Errorf("label %d at row %d outside [0,%d)", label, i, classes)
		}
		norm[i*classes+label] = 1.0
	}
	return tensor.New(tensor.WithShape(len(labels), classes), tensor.WithBacking(norm)), nil
}

// FromTensors slices an (n, width) input table and an (n, classes) target
// table into samples. Rows share the tensors' backing arrays.
func FromTensors(inputs, targets *tensor.Dense) (Set, error) {
	if inputs.Dims() != 2 || targets.Dims() != 2 {
		return nil, errors.Errorf("want 2-d tables, got shapes %v and %v", inputs.Shape(), targets.Shape())
	}
	n, width := inputs.Shape()[0], inputs.Shape()[1]
	if targets.Shape()[0] != n {
		return nil, errors.Errorf("%d input rows but %d target rows", n, targets.Shape()[0])
	}
	classes := targets.Shape()[1]

	in, ok := inputs.Data().([]float64)
	if !ok {
		return nil, errors.Errorf("inputs must be float64, got %v", inputs.Dtype())
	}
	tg, ok := targets.Data().([]float64)
	if !ok {
		return nil, errors.Errorf("targets must be float64, got %v", targets.Dtype())
	}

	set := make(Set, n)
	for i := range set {
		s, err := NewSample(in[i*width:(i+1)*width:(i+1)*width], tg[i*classes:(i+1)*classes:(i+1)*classes])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		set[i] = s
	}
	return set, nil
}
