package config

import (
	"os"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"doodlenet/trainer"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	Classes        int           `yaml:"classes"`
	TrainSubset    int           `yaml:"train_subset"`
	Hidden         []int         `yaml:"hidden"`
	BatchSize      int           `yaml:"batch_size"`
	EvalSize       int           `yaml:"eval_size"`
	EvalRefresh    int           `yaml:"eval_refresh"`
	ReportEvery    int           `yaml:"report_every"`
	InitialRate    float64       `yaml:"initial_rate"`
	DecayRate      float64       `yaml:"decay_rate"`
	AugmentProb    float64       `yaml:"augment_prob"`
	CostThreshold  float64       `yaml:"cost_threshold"`
	IdlePoll       time.Duration `yaml:"idle_poll"`
	MaxIterations  int64         `yaml:"max_iterations"`
	Workers        int           `yaml:"workers"`
	GridSide       int           `yaml:"grid_side"`
	Seed           int64         `yaml:"seed"`
	CheckpointPath string        `yaml:"checkpoint_path"`
	Store          string        `yaml:"store"`
	KeepHistory    int           `yaml:"keep_history"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Classes        int
	Seed           int64
	CheckpointPath string
	Store          string
	MaxIterations  int64
	Workers        int
}

// Default returns the settings the doodle classifier was trained with.
func Default() *Config {
	tc := trainer.DefaultConfig()
	return &Config{
		Classes:        10,
		TrainSubset:    16000,
		Hidden:         []int{256, 256, 128},
		BatchSize:      tc.BatchSize,
		EvalSize:       tc.EvalSize,
		EvalRefresh:    tc.EvalRefresh,
		ReportEvery:    tc.ReportEvery,
		InitialRate:    tc.InitialRate,
		DecayRate:      tc.DecayRate,
		AugmentProb:    tc.AugmentProb,
		CostThreshold:  tc.CostThreshold,
		IdlePoll:       tc.IdlePoll,
		Workers:        defaultWorkers(),
		CheckpointPath: "neural_network.json",
		Store:          "json",
		KeepHistory:    20,
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Classes > 0 {
		c.Classes = o.Classes
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.CheckpointPath != "" {
		c.CheckpointPath = o.CheckpointPath
	}
	if o.Store != "" {
		c.Store = o.Store
	}
	if o.MaxIterations > 0 {
		c.MaxIterations = o.MaxIterations
	}
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Classes <= 0 {
		return errors.Errorf("classes must be > 0 (got %d)", c.Classes)
	}
	for i, h := range c.Hidden {
		if h <= 0 {
			return errors.Errorf("hidden layer %d width must be > 0 (got %d)", i, h)
		}
	}
	switch c.Store {
	case "json", "sqlite":
	default:
		return errors.Errorf("store must be json or sqlite (got %q)", c.Store)
	}
	if c.CheckpointPath == "" {
		return errors.New("checkpoint_path must be set")
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers()
	}
	return errors.Wrap(c.Trainer().Validate(), "invalid trainer settings")
}

// Trainer extracts the training loop settings.
func (c *Config) Trainer() trainer.Config {
	return trainer.Config{
		BatchSize:     c.BatchSize,
		EvalSize:      c.EvalSize,
		EvalRefresh:   c.EvalRefresh,
		ReportEvery:   c.ReportEvery,
		InitialRate:   c.InitialRate,
		DecayRate:     c.DecayRate,
		AugmentProb:   c.AugmentProb,
		CostThreshold: c.CostThreshold,
		IdlePoll:      c.IdlePoll,
		MaxIterations: c.MaxIterations,
		Workers:       c.Workers,
		GridSide:      c.GridSide,
	}
}

// Architecture returns the layer widths for a fresh network.
func (c *Config) Architecture(inputSize int) []int {
	sizes := append([]int{inputSize}, c.Hidden...)
	return append(sizes, c.Classes)
}

func defaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return 1
}
