// Package augment produces randomly perturbed copies of square-grid samples.
package augment

import (
	"math/rand"

	"github.com/pkg/errors"

	"doodlenet/dataset"
)

const (
	wideShiftProb = 0.1
	mirrorProb    = 0.5
	noiseProb     = 0.01
)

// Augmenter shifts, mirrors and salts side x side grids.
type Augmenter struct {
	side int
}

func New(side int) *Augmenter {
	if side <= 0 {
		panic(errors.Errorf("augment: grid side %d", side))
	}
	return &Augmenter{side: side}
}

func (a *Augmenter) Side() int { return a.side }

// Augment returns a perturbed copy of s. The input sample is not modified
// and the target slice is shared with it.
func (a *Augmenter) Augment(rng *rand.Rand, s dataset.Sample) dataset.Sample {
	n := a.side
	src := s.Input()
	if len(src) != n*n {
		panic(errors.Errorf("augment: input length %d, want %d", len(src), n*n))
	}

	out := a.apply(src, drawWarp(rng))
	for i := range out {
		if rng.Float64() < noiseProb {
			out[i] = 1 - out[i]
		}
	}
	return dataset.MustSample(out, s.Target())
}

// warp is one geometric perturbation: a shift by (dx, dy) followed by an
// optional left-right mirror.
type warp struct {
	dx, dy int
	mirror bool
}

// drawWarp shifts by at most 1 pixel per axis, or by up to 2 or 3 with
// probability wideShiftProb.
func drawWarp(rng *rand.Rand) warp {
	maxShift := 1
	if rng.Float64() < wideShiftProb {
		maxShift = 2
		if rng.Intn(2) == 0 {
			maxShift = 3
		}
	}
	dx := rng.Intn(2*maxShift+1) - maxShift
	dy := rng.Intn(2*maxShift+1) - maxShift
	return warp{dx: dx, dy: dy, mirror: rng.Float64() < mirrorProb}
}

// apply moves pixel (row, col) to (row+dy, col+dx), mirrored to column
// n-1-col when w.mirror is set. Pixels shifted in from outside are 0.
func (a *Augmenter) apply(src []float64, w warp) []float64 {
	n := a.side
	out := make([]float64, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			sr, sc := row-w.dy, col-w.dx
			if sr < 0 || sr >= n || sc < 0 || sc >= n {
				continue
			}
			dst := col
			if w.mirror {
				dst = n - 1 - col
			}
			out[row*n+dst] = src[sr*n+sc]
		}
	}
	return out
}
