package dataset

import (
	GoMNIST "github.com/petar/GoMNIST"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const mnistClasses = 10

// LoadMNIST reads the gzipped idx training files under dir and scales pixel
// intensities to [0,1].
func LoadMNIST(dir string) (Set, error) {
	train, _, err := GoMNIST.Load(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "load mnist from %s", dir)
	}
	return fromMNIST(train)
}

func fromMNIST(set *GoMNIST.Set) (Set, error) {
	n := set.Count()
	if n == 0 {
		return nil, errors.New("mnist set is empty")
	}
	width := set.NRow * set.NCol
	norm := make([]float64, n*width)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		img, label := set.Get(i)
		if len(img) != width {
			return nil, errors.Errorf("image %d has %d pixels, want %d", i, len(img), width)
		}
		for p, v := range img {
			norm[i*width+p] = float64(v) / 255.0
		}
		labels[i] = int(label)
	}
	targets, err := OneHot(labels, mnistClasses)
	if err != nil {
		return nil, err
	}
	return FromTensors(tensor.New(tensor.WithShape(n, width), tensor.WithBacking(norm)), targets)
}
