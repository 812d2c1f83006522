package dataset

import (
	"math/rand"

	"gorgonia.org/tensor"
)

// Separable generates n two-class points in [-1,1]^dim. The class is the
// sign of the coordinate sum; points closer than margin to the boundary
// are redrawn so the classes are linearly separable.
func Separable(rng *rand.Rand, n, dim int, margin float64) Set {
	inputs := make([]float64, 0, n*dim)
	labels := make([]int, 0, n)
	point := make([]float64, dim)
	for len(labels) < n {
		sum := 0.0
		for d := range point {
			point[d] = rng.Float64()*2 - 1
			sum += point[d]
		}
		if sum > -margin && sum < margin {
			continue
		}
		inputs = append(inputs, point...)
		if sum > 0 {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}
	targets, err := OneHot(labels, 2)
	if err != nil {
		panic(err)
	}
	set, err := FromTensors(tensor.New(tensor.WithShape(n, dim), tensor.WithBacking(inputs)), targets)
	if err != nil {
		panic(err)
	}
	return set
}
