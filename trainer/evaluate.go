package trainer

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"doodlenet/dataset"
	"doodlenet/neuralnet"
)

// Evaluate returns the mean cost and the number of correctly classified
// samples, spreading forward passes over workers goroutines. Per-sample
// costs are summed in sample order, so the result does not depend on
// scheduling. nn must not be trained concurrently.
func Evaluate(ctx context.Context, nn *neuralnet.NeuralNetwork, samples []dataset.Sample, workers int) (float64, int, error) {
	if len(samples) == 0 {
		return 0, 0, errors.New("evaluate: no samples")
	}
	if workers <= 0 {
		workers = 1
	}
	costs := make([]float64, len(samples))
	hits := make([]bool, len(samples))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := (len(samples) + workers - 1) / workers
	for start := 0; start < len(samples); start += chunk {
		end := min(start+chunk, len(samples))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				costs[i], hits[i] = nn.Score(samples[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, errors.Wrap(err, "evaluate")
	}

	correct := 0
	for _, hit := range hits {
		if hit {
			correct++
		}
	}
	return floats.Sum(costs) / float64(len(samples)), correct, nil
}
