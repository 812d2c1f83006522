package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/klauspost/cpuid/v2"

	"doodlenet/augment"
	"doodlenet/checkpoint"
	"doodlenet/config"
	"doodlenet/dataset"
	"doodlenet/trainer"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (built-in defaults when empty)")
	csvPath := flag.String("csv", "", "Rasterized dataset table: one-hot columns followed by pixels")
	mnistDir := flag.String("mnist", "", "Directory holding the gzipped MNIST idx files")
	synthetic := flag.Int("synthetic", 0, "Train on N generated, linearly separable 2-d points")
	classes := flag.Int("classes", 0, "Number of categories in the CSV table")
	ckptPath := flag.String("checkpoint", "", "Checkpoint file or database")
	store := flag.String("store", "", "Checkpoint store: json or sqlite")
	seed := flag.Int64("seed", 0, "PRNG seed (0 seeds from the clock)")
	maxIter := flag.Int64("max-iterations", 0, "Stop after N batches")
	workers := flag.Int("workers", 0, "Evaluation goroutines")
	autostart := flag.Bool("autostart", false, "Start training without waiting for the start command")
	preview := flag.Int("preview", 0, "Write N augmented samples as PNG files into ./preview and exit")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	cfg.ApplyOverrides(config.Overrides{
		Classes:        *classes,
		Seed:           *seed,
		CheckpointPath: *ckptPath,
		Store:          *store,
		MaxIterations:  *maxIter,
		Workers:        *workers,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	log.Printf("cpu=%q cores=%d workers=%d seed=%d", cpuid.CPU.BrandName, cpuid.CPU.LogicalCores, cfg.Workers, cfg.Seed)

	all, err := loadSamples(source{csvPath: *csvPath, classes: cfg.Classes, mnistDir: *mnistDir, synthetic: *synthetic}, rng)
	if err != nil {
		log.Fatalf("load dataset: %v", err)
	}
	train, validation := dataset.Split(rng, all, cfg.TrainSubset)
	log.Printf("dataset samples=%d train=%d validation=%d inputs=%d classes=%d",
		len(all), len(train), len(validation), all.InputSize(), all.Classes())

	if all.Classes() != cfg.Classes {
		log.Printf("dataset has %d classes, overriding configured %d", all.Classes(), cfg.Classes)
		cfg.Classes = all.Classes()
	}
	side := int(math.Round(math.Sqrt(float64(all.InputSize()))))
	if cfg.GridSide > 0 {
		side = cfg.GridSide
	}
	square := side*side == all.InputSize()
	if !square {
		log.Printf("inputs are not a square grid, augmentation disabled")
		cfg.AugmentProb = 0
	}

	if *preview > 0 {
		if !square {
			log.Fatalf("preview needs square grid inputs, got %d values", all.InputSize())
		}
		if err := savePreviews("preview", augment.New(side), train, *preview, rng); err != nil {
			log.Fatalf("preview: %v", err)
		}
		return
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("checkpoint store: %v", err)
	}
	defer closeStore()

	net := checkpoint.LoadOrInit(st, rng, cfg.Architecture(all.InputSize()), nil)
	tr, err := trainer.New(net, train, st, cfg.Trainer(), rng)
	if err != nil {
		log.Fatalf("trainer: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(validation) == 0 {
		validation = train
	}
	go control(ctx, tr, st, validation, cfg.Workers)
	if *autostart {
		tr.State().Start()
	} else {
		log.Printf("waiting for commands: start, pause, stop, status, eval")
	}

	if _, err := tr.Run(ctx); err != nil {
		log.Fatalf("training failed: %v", err)
	}
}

func openStore(cfg *config.Config) (checkpoint.Store, func() error, error) {
	if cfg.Store == "sqlite" {
		db, err := checkpoint.OpenSQLite(cfg.CheckpointPath, cfg.KeepHistory)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	return checkpoint.FileStore{Path: cfg.CheckpointPath}, func() error { return nil }, nil
}

// control reads run commands from stdin until EOF.
func control(ctx context.Context, tr *trainer.Trainer, st checkpoint.Store, validation dataset.Set, workers int) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		state := tr.State()
		switch cmd := strings.TrimSpace(scanner.Text()); cmd {
		case "start":
			state.Start()
		case "pause":
			state.Pause()
		case "stop":
			state.Stop()
		case "status":
			log.Printf("running=%t stopped=%t epoch=%d step=%d lowest=%.5f",
				state.Running(), state.Stopped(), state.Epoch(), state.Iteration(), state.BestCost())
			if db, ok := st.(*checkpoint.SQLiteStore); ok {
				logHistory(db)
			}
		case "eval":
			cost, correct, err := trainer.Evaluate(ctx, tr.Model(), validation, workers)
			if err != nil {
				log.Printf("eval: %v", err)
				continue
			}
			log.Printf("validation cost=%.5f accuracy=%.4f (%d/%d)",
				cost, float64(correct)/float64(len(validation)), correct, len(validation))
		case "":
		default:
			log.Printf("unknown command %q", cmd)
		}
	}
}

func logHistory(db *checkpoint.SQLiteStore) {
	history, err := db.History()
	if err != nil {
		log.Printf("checkpoint history: %v", err)
		return
	}
	if len(history) == 0 {
		log.Printf("no checkpoints saved yet")
		return
	}
	latest := history[0]
	log.Printf("checkpoints=%d latest id=%d layers=%d saved=%s",
		len(history), latest.ID, latest.Layers, latest.Created.Format(time.RFC3339))
}
