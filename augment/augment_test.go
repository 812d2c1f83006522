package augment

import (
	"math/rand"
	"reflect"
	"testing"

	"doodlenet/dataset"
)

func gridSample(side int) dataset.Sample {
	input := make([]float64, side*side)
	for i := range input {
		if i%3 == 0 {
			input[i] = 1
		}
	}
	return dataset.MustSample(input, []float64{0, 0, 1})
}

func TestAugmentPreservesShapeAndTarget(t *testing.T) {
	const side = 8
	a := New(side)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		s := gridSample(side)
		before := append([]float64(nil), s.Input()...)
		got := a.Augment(rng, s)
		if len(got.Input()) != len(s.Input()) {
			t.Fatalf("augmented input length %d; want %d", len(got.Input()), len(s.Input()))
		}
		if !reflect.DeepEqual(got.Target(), s.Target()) {
			t.Fatalf("augmented target %v; want %v", got.Target(), s.Target())
		}
		if !reflect.DeepEqual(s.Input(), before) {
			t.Fatal("Augment modified the source sample")
		}
	}
}

func TestAugmentValuesStayInRange(t *testing.T) {
	a := New(6)
	rng := rand.New(rand.NewSource(12))
	for i := 0; i < 100; i++ {
		for _, v := range a.Augment(rng, gridSample(6)).Input() {
			if v != 0 && v != 1 {
				t.Fatalf("binary grid produced value %v", v)
			}
		}
	}
}

func TestAugmentBlankGridMostlyBlank(t *testing.T) {
	const side = 10
	a := New(side)
	blank := dataset.MustSample(make([]float64, side*side), []float64{1, 0})
	rng := rand.New(rand.NewSource(13))
	lit := 0
	const rounds = 100
	for i := 0; i < rounds; i++ {
		for _, v := range a.Augment(rng, blank).Input() {
			if v == 1 {
				lit++
			}
		}
	}
	// Only salt noise can light a pixel of a blank grid: about 1% of them.
	if lit == 0 || lit > rounds*side*side/20 {
		t.Errorf("salt noise lit %d of %d pixels", lit, rounds*side*side)
	}
}

func TestAugmentPanicsOnWrongLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Augment did not panic on a non-square input")
		}
	}()
	New(4).Augment(rand.New(rand.NewSource(1)), dataset.MustSample(make([]float64, 15), []float64{1}))
}

func TestApplyShiftsAndMirrors(t *testing.T) {
	src := []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	tests := []struct {
		description string
		w           warp
		want        []float64
	}{
		{description: "identity", w: warp{}, want: src},
		{description: "right by one", w: warp{dx: 1}, want: []float64{0, 1, 2, 0, 4, 5, 0, 7, 8}},
		{description: "left by one", w: warp{dx: -1}, want: []float64{2, 3, 0, 5, 6, 0, 8, 9, 0}},
		{description: "up by one", w: warp{dy: -1}, want: []float64{4, 5, 6, 7, 8, 9, 0, 0, 0}},
		{description: "down by two", w: warp{dy: 2}, want: []float64{0, 0, 0, 0, 0, 0, 1, 2, 3}},
		{description: "mirror", w: warp{mirror: true}, want: []float64{3, 2, 1, 6, 5, 4, 9, 8, 7}},
		{description: "shift then mirror", w: warp{dx: 1, mirror: true}, want: []float64{2, 1, 0, 5, 4, 0, 8, 7, 0}},
		{description: "shifted off the grid", w: warp{dx: 3}, want: make([]float64, 9)},
	}
	a := New(3)
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := a.apply(src, tt.w); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("apply(%+v) = %v; want %v", tt.w, got, tt.want)
			}
		})
	}
}

func TestDrawWarpBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	const draws = 5000
	wide, mirrored, widest := 0, 0, 0
	for i := 0; i < draws; i++ {
		w := drawWarp(rng)
		if w.dx < -3 || w.dx > 3 || w.dy < -3 || w.dy > 3 {
			t.Fatalf("shift (%d,%d) exceeds 3 pixels", w.dx, w.dy)
		}
		if w.dx < -1 || w.dx > 1 || w.dy < -1 || w.dy > 1 {
			wide++
		}
		if w.dx == 3 || w.dx == -3 || w.dy == 3 || w.dy == -3 {
			widest++
		}
		if w.mirror {
			mirrored++
		}
	}
	// About 7% of draws leave the 3x3 neighbourhood.
	if f := float64(wide) / draws; f < 0.04 || f > 0.11 {
		t.Errorf("wide shift fraction = %.3f; want about 0.07", f)
	}
	if widest == 0 {
		t.Error("no 3 pixel shift in 5000 draws")
	}
	if f := float64(mirrored) / draws; f < 0.45 || f > 0.55 {
		t.Errorf("mirror fraction = %.3f; want about 0.5", f)
	}
}

func TestSinglePixelStaysWithinThreePixels(t *testing.T) {
	const side = 11
	a := New(side)
	src := make([]float64, side*side)
	src[5*side+2] = 1
	rng := rand.New(rand.NewSource(15))
	for i := 0; i < 5000; i++ {
		w := drawWarp(rng)
		out := a.apply(src, w)
		row, col := 5+w.dy, 2+w.dx
		if col < 0 {
			for _, v := range out {
				if v != 0 {
					t.Fatalf("pixel shifted off the grid by %+v is still lit", w)
				}
			}
			continue
		}
		if w.mirror {
			col = side - 1 - col
		}
		for j, v := range out {
			lit := j == row*side+col
			if lit != (v == 1) {
				t.Fatalf("warp %+v: pixel %d = %v; want only (%d,%d) lit", w, j, v, row, col)
			}
		}
	}
}
