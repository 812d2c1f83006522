package checkpoint

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"doodlenet/neuralnet"
)

// FileStore keeps a single JSON checkpoint at Path. Saves go through a
// temporary file in the same directory and are renamed into place.
type FileStore struct {
	Path string
}

func (f FileStore) Save(nn *neuralnet.NeuralNetwork) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create checkpoint dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create checkpoint temp file")
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, nn); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close checkpoint temp file")
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return errors.Wrapf(err, "move checkpoint to %s", f.Path)
	}
	return nil
}

func (f FileStore) Load() (*neuralnet.NeuralNetwork, error) {
	file, err := os.Open(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "open checkpoint")
	}
	defer file.Close()
	return Decode(file)
}
