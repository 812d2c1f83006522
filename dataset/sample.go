// Package dataset holds training samples and the loaders that produce them.
package dataset

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Sample is an immutable (input, one-hot target) pair. The slices returned
// by Input and Target are shared and must not be modified.
type Sample struct {
	input  []float64
	target []float64
	label  int
}

// NewSample validates that target is one-hot and takes ownership of both slices.
func NewSample(input, target []float64) (Sample, error) {
	label := -1
	for i, v := range target {
		switch v {
		case 0:
		case 1:
			if label >= 0 {
				return Sample{}, errors.Errorf("target has more than one hot entry (%d and %d)", label, i)
			}
			label = i
		default:
			return Sample{}, errors.Errorf("target entry %d is %v, want 0 or 1", i, v)
		}
	}
	if label < 0 {
		return Sample{}, errors.New("target has no hot entry")
	}
	return Sample{input: input, target: target, label: label}, nil
}

// MustSample is NewSample for inputs known to be valid.
func MustSample(input, target []float64) Sample {
	s, err := NewSample(input, target)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Sample) Input() []float64  { return s.input }
func (s Sample) Target() []float64 { return s.target }

// Label is the index of the hot target entry.
func (s Sample) Label() int { return s.label }

// Set is a read-only collection of samples sharing input and target lengths.
type Set []Sample

func (s Set) InputSize() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0].input)
}

func (s Set) Classes() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0].target)
}

// Random draws n samples with replacement.
func (s Set) Random(rng *rand.Rand, n int) Set {
	out := make(Set, n)
	for i := range out {
		out[i] = s[rng.Intn(len(s))]
	}
	return out
}

// Shuffled returns a fresh permutation of the indices of s. The set itself
// is never reordered.
func (s Set) Shuffled(rng *rand.Rand) []int {
	return rng.Perm(len(s))
}

// Pick resolves indices into samples.
func (s Set) Pick(indices []int) Set {
	out := make(Set, len(indices))
	for i, idx := range indices {
		out[i] = s[idx]
	}
	return out
}

// Batches partitions order into consecutive ranges of at most size
// indices; only the last batch may be shorter.
func Batches(order []int, size int) [][]int {
	if size <= 0 {
		panic(errors.Errorf("dataset: batch size %d", size))
	}
	batches := make([][]int, 0, (len(order)+size-1)/size)
	for start := 0; start < len(order); start += size {
		end := min(start+size, len(order))
		batches = append(batches, order[start:end:end])
	}
	return batches
}

// Split draws n distinct samples for training and returns the rest as the
// validation remainder. If n >= len(s) everything goes to training.
func Split(rng *rand.Rand, s Set, n int) (train, validation Set) {
	if n >= len(s) || n <= 0 {
		return s, nil
	}
	perm := rng.Perm(len(s))
	return s.Pick(perm[:n]), s.Pick(perm[n:])
}
