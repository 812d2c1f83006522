package checkpoint

import (
	"bytes"
	"log"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"doodlenet/neuralnet"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("checkpoint: not found")

// Store saves and restores whole networks.
type Store interface {
	Save(nn *neuralnet.NeuralNetwork) error
	Load() (*neuralnet.NeuralNetwork, error)
}

// MemoryStore keeps the encoded form of the last saved network in memory.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func (m *MemoryStore) Save(nn *neuralnet.NeuralNetwork) error {
	var buf bytes.Buffer
	if err := Encode(&buf, nn); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = buf.Bytes()
	m.saves++
	return nil
}

func (m *MemoryStore) Load() (*neuralnet.NeuralNetwork, error) {
	m.mu.Lock()
	data := m.data
	m.mu.Unlock()
	if data == nil {
		return nil, ErrNotFound
	}
	return Decode(bytes.NewReader(data))
}

// Saves reports how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// LoadOrInit restores the stored network, or falls back to a fresh network
// with the fallback widths when loading fails or the stored network's input
// and output sizes differ from fallback's.
func LoadOrInit(store Store, rng *rand.Rand, fallback []int, logger *log.Logger) *neuralnet.NeuralNetwork {
	if logger == nil {
		logger = log.Default()
	}
	inputSize, classes := fallback[0], fallback[len(fallback)-1]
	nn, err := store.Load()
	switch {
	case err != nil:
		logger.Printf("checkpoint load failed, creating random network layers=%v: %v", fallback, err)
	case nn.InputSize() != inputSize || nn.OutputSize() != classes:
		logger.Printf("checkpoint shape %v does not fit %d inputs / %d classes, creating random network layers=%v",
			nn.Sizes(), inputSize, classes, fallback)
	default:
		logger.Printf("checkpoint loaded layers=%v", nn.Sizes())
		return nn
	}
	return neuralnet.NewNeuralNetwork(rng, fallback...)
}
