package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// LoadCSV reads the rasterized table produced by the preprocessing tool:
// every row holds `classes` one-hot columns followed by the pixel values.
func LoadCSV(path string, classes int) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open dataset")
	}
	defer f.Close()
	return ReadCSV(f, classes)
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, classes int) (Set, error) {
	if classes <= 0 {
		return nil, errors.Errorf("classes must be > 0 (got %d)", classes)
	}
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	var inputs, targets []float64
	width, rows := -1, 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", rows+1)
		}
		if width < 0 {
			width = len(record) - classes
			if width <= 0 {
				return nil, errors.Errorf("row 1: %d columns, need more than %d", len(record), classes)
			}
		}
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %d", rows+1, i+1)
			}
			if i < classes {
				targets = append(targets, v)
			} else {
				inputs = append(inputs, v)
			}
		}
		rows++
	}
	if rows == 0 {
		return nil, errors.New("dataset is empty")
	}
	return FromTensors(
		tensor.New(tensor.WithShape(rows, width), tensor.WithBacking(inputs)),
		tensor.New(tensor.WithShape(rows, classes), tensor.WithBacking(targets)),
	)
}
