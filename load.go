package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"doodlenet/augment"
	"doodlenet/dataset"
)

type source struct {
	csvPath   string
	classes   int
	mnistDir  string
	synthetic int
}

func loadSamples(src source, rng *rand.Rand) (dataset.Set, error) {
	switch {
	case src.csvPath != "":
		return dataset.LoadCSV(src.csvPath, src.classes)
	case src.mnistDir != "":
		return dataset.LoadMNIST(src.mnistDir)
	case src.synthetic > 0:
		return dataset.Separable(rng, src.synthetic, 2, 0.1), nil
	}
	return nil, errors.New("no dataset: pass -csv, -mnist or -synthetic")
}

// savePreviews writes n augmented samples as grayscale PNGs into dir.
func savePreviews(dir string, aug *augment.Augmenter, set dataset.Set, n int, rng *rand.Rand) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create preview dir")
	}
	side := aug.Side()
	for i := 0; i < n; i++ {
		s := aug.Augment(rng, set[rng.Intn(len(set))])
		img := image.NewGray(image.Rect(0, 0, side, side))
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(s.Input()[y*side+x] * 255.0)})
			}
		}
		name := filepath.Join(dir, fmt.Sprintf("preview_%d_label%d.png", i, s.Label()))
		if err := savePNG(name, img); err != nil {
			return err
		}
	}
	return nil
}

func savePNG(name string, img image.Image) error {
	file, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return errors.Wrapf(err, "encode %s", name)
	}
	return file.Close()
}
