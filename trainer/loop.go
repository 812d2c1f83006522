package trainer

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"doodlenet/augment"
	"doodlenet/checkpoint"
	"doodlenet/dataset"
	"doodlenet/metrics"
	"doodlenet/neuralnet"
)

// Config captures the knobs of the training loop.
type Config struct {
	BatchSize     int
	EvalSize      int
	EvalRefresh   int // epochs between redraws of the evaluation subsample
	ReportEvery   int // batches between evaluations
	InitialRate   float64
	DecayRate     float64
	AugmentProb   float64
	CostThreshold float64
	IdlePoll      time.Duration
	MaxIterations int64 // 0 trains until stopped
	Workers       int
	GridSide      int // 0 derives the side from a square input size
}

// DefaultConfig mirrors the settings the doodle model was trained with.
func DefaultConfig() Config {
	return Config{
		BatchSize:     32,
		EvalSize:      250,
		EvalRefresh:   4,
		ReportEvery:   200,
		InitialRate:   0.05,
		DecayRate:     0.99,
		AugmentProb:   0.3,
		CostThreshold: 0.001,
		IdlePoll:      time.Second,
		Workers:       1,
	}
}

// Validate verifies the config is runnable.
func (c Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.Errorf("batch size must be > 0 (got %d)", c.BatchSize)
	case c.EvalSize <= 0:
		return errors.Errorf("eval size must be > 0 (got %d)", c.EvalSize)
	case c.EvalRefresh <= 0:
		return errors.Errorf("eval refresh must be > 0 (got %d)", c.EvalRefresh)
	case c.ReportEvery <= 0:
		return errors.Errorf("report interval must be > 0 (got %d)", c.ReportEvery)
	case c.InitialRate <= 0:
		return errors.Errorf("initial rate must be > 0 (got %v)", c.InitialRate)
	case c.DecayRate <= 0 || c.DecayRate > 1:
		return errors.Errorf("decay rate must be in (0,1] (got %v)", c.DecayRate)
	case c.AugmentProb < 0 || c.AugmentProb > 1:
		return errors.Errorf("augment probability must be in [0,1] (got %v)", c.AugmentProb)
	case c.IdlePoll <= 0:
		return errors.Errorf("idle poll must be > 0 (got %v)", c.IdlePoll)
	case c.MaxIterations < 0:
		return errors.Errorf("max iterations must be >= 0 (got %d)", c.MaxIterations)
	case c.GridSide < 0:
		return errors.Errorf("grid side must be >= 0 (got %d)", c.GridSide)
	}
	return nil
}

// LearningRate is the exponentially decayed rate for a 0-based epoch.
func (c Config) LearningRate(epoch int) float64 {
	return c.InitialRate * math.Pow(c.DecayRate, float64(epoch))
}

// Result summarizes a finished run.
type Result struct {
	Epochs     int64
	Iterations int64
	BestCost   float64
	FinalCost  float64
	Saves      int
}

type Option func(*Trainer)

// WithLogger replaces log.Default().
func WithLogger(l *log.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// Trainer owns the network being trained. Other goroutines control it
// through State and read the published snapshot through Model.
type Trainer struct {
	cfg    Config
	net    *neuralnet.NeuralNetwork
	train  dataset.Set
	store  checkpoint.Store
	aug    *augment.Augmenter
	rng    *rand.Rand
	state  *RunState
	logger *log.Logger

	model  atomic.Pointer[neuralnet.NeuralNetwork]
	window metrics.Window

	bestCost float64
	dirty    bool // best cost improved but the save failed
	saves    int
}

// New prepares a trainer. rng drives shuffling, evaluation subsamples and
// augmentation, so a fixed seed reproduces a run.
func New(net *neuralnet.NeuralNetwork, train dataset.Set, store checkpoint.Store, cfg Config, rng *rand.Rand, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "trainer")
	}
	if len(train) == 0 {
		return nil, errors.New("trainer: empty training set")
	}
	if train.InputSize() != net.InputSize() || train.Classes() != net.OutputSize() {
		return nil, errors.Errorf("trainer: samples are %d->%d but network is %d->%d",
			train.InputSize(), train.Classes(), net.InputSize(), net.OutputSize())
	}
	t := &Trainer{
		cfg:      cfg,
		net:      net,
		train:    train,
		store:    store,
		rng:      rng,
		state:    NewRunState(),
		logger:   log.Default(),
		bestCost: math.Inf(1),
	}
	for _, opt := range opts {
		opt(t)
	}
	if cfg.AugmentProb > 0 {
		side := cfg.GridSide
		if side == 0 {
			side = int(math.Round(math.Sqrt(float64(net.InputSize()))))
		}
		if side*side != net.InputSize() {
			return nil, errors.Errorf("trainer: augmentation needs a square grid, input size is %d", net.InputSize())
		}
		t.aug = augment.New(side)
	}
	t.model.Store(net.Clone())
	return t, nil
}

func (t *Trainer) State() *RunState { return t.state }

// Model returns the latest published snapshot, safe for concurrent
// inference while training continues.
func (t *Trainer) Model() *neuralnet.NeuralNetwork { return t.model.Load() }

// Network returns the network being trained. Only use it once Run returned.
func (t *Trainer) Network() *neuralnet.NeuralNetwork { return t.net }

// Run trains until the run state is stopped, the context is cancelled, the
// cost threshold is reached or MaxIterations batches were trained. While
// paused it polls the run state every IdlePoll.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	evalSet := t.train.Random(t.rng, t.cfg.EvalSize)
	cost, _, err := Evaluate(ctx, t.net, evalSet, t.cfg.Workers)
	if err != nil {
		return Result{}, err
	}
	t.bestCost = cost
	t.state.bestCost.Store(cost)
	t.logger.Printf("training ready samples=%d layers=%v initial_cost=%.4f", len(t.train), t.net.Sizes(), cost)

	for epoch := 0; t.waitRunnable(ctx); epoch++ {
		if epoch > 0 && epoch%t.cfg.EvalRefresh == 0 {
			evalSet = t.train.Random(t.rng, t.cfg.EvalSize)
			t.logger.Printf("evaluation set redrawn epoch=%d size=%d", epoch, len(evalSet))
		}
		lr := t.cfg.LearningRate(epoch)
		order := t.train.Shuffled(t.rng)
		for _, indices := range dataset.Batches(order, t.cfg.BatchSize) {
			if !t.waitRunnable(ctx) {
				break
			}
			t.step(indices, lr)
			it := t.state.iteration.Inc()
			if it%int64(t.cfg.ReportEvery) == 0 {
				t.report(ctx, evalSet, epoch, it, lr)
			}
			if t.cfg.MaxIterations > 0 && it >= t.cfg.MaxIterations {
				t.logger.Printf("iteration budget reached step=%d", it)
				t.state.Stop()
			}
		}
		t.state.epoch.Store(int64(epoch + 1))
	}
	t.state.Stop()
	return t.finish(context.WithoutCancel(ctx), evalSet)
}

// waitRunnable parks while paused and reports whether training may go on.
// A cancelled context stops the run.
func (t *Trainer) waitRunnable(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			t.state.Stop()
		}
		if t.state.Stopped() {
			return false
		}
		if t.state.Running() {
			return true
		}
		select {
		case <-ctx.Done():
		case <-time.After(t.cfg.IdlePoll):
		}
	}
}

func (t *Trainer) step(indices []int, lr float64) {
	batch := t.train.Pick(indices)
	if t.aug != nil {
		for i, s := range batch {
			if t.rng.Float64() < t.cfg.AugmentProb {
				batch[i] = t.aug.Augment(t.rng, s)
			}
		}
	}
	start := time.Now()
	t.net.TrainOnBatch(batch, lr)
	t.window.Record(len(batch), time.Since(start))
}

func (t *Trainer) report(ctx context.Context, evalSet dataset.Set, epoch int, it int64, lr float64) {
	cost, correct, err := Evaluate(ctx, t.net, evalSet, t.cfg.Workers)
	if err != nil {
		t.logger.Printf("evaluation skipped step=%d: %v", it, err)
		return
	}
	snap := t.window.Snapshot()
	t.logger.Printf("step=%d epoch=%d cost=%.5f lowest=%.5f accuracy=%.3f lr=%.5f samples_per_sec=%.1f batch_ms=%.2f",
		it, epoch, cost, t.bestCost, float64(correct)/float64(len(evalSet)), lr, snap.SamplesPerSec, snap.AvgBatchMS)

	if cost < t.bestCost {
		t.bestCost = cost
		t.state.bestCost.Store(cost)
		t.checkpoint()
	}
	if cost < t.cfg.CostThreshold {
		t.logger.Printf("cost below threshold, stopping cost=%.6f threshold=%v", cost, t.cfg.CostThreshold)
		t.state.Stop()
	}
}

// checkpoint persists the current network and publishes a snapshot of it.
// A failed save is logged and retried on the way out.
func (t *Trainer) checkpoint() {
	t.model.Store(t.net.Clone())
	if err := t.store.Save(t.net); err != nil {
		t.logger.Printf("checkpoint save failed: %v", err)
		t.dirty = true
		return
	}
	t.dirty = false
	t.saves++
}

func (t *Trainer) finish(ctx context.Context, evalSet dataset.Set) (Result, error) {
	cost, _, err := Evaluate(ctx, t.net, evalSet, t.cfg.Workers)
	if err != nil {
		return Result{}, err
	}
	switch {
	case cost < t.bestCost || t.dirty:
		t.bestCost = math.Min(cost, t.bestCost)
		t.state.bestCost.Store(t.bestCost)
		t.checkpoint()
	default:
		t.restore()
	}
	res := Result{
		Epochs:     t.state.Epoch(),
		Iterations: t.state.Iteration(),
		BestCost:   t.bestCost,
		FinalCost:  cost,
		Saves:      t.saves,
	}
	t.logger.Printf("training stopped steps=%d epochs=%d final_cost=%.5f lowest=%.5f saves=%d",
		res.Iterations, res.Epochs, res.FinalCost, res.BestCost, res.Saves)
	return res, nil
}

// restore swaps in the last persisted network so the in-memory model
// matches the best checkpoint.
func (t *Trainer) restore() {
	nn, err := t.store.Load()
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		t.logger.Printf("no checkpoint to restore, keeping the trained network")
		return
	case err != nil:
		t.logger.Printf("checkpoint restore failed, keeping the trained network: %v", err)
		return
	case nn.InputSize() != t.net.InputSize() || nn.OutputSize() != t.net.OutputSize():
		t.logger.Printf("checkpoint shape %v does not match %v, keeping the trained network", nn.Sizes(), t.net.Sizes())
		return
	}
	t.net = nn
	t.model.Store(nn.Clone())
}
