package metrics

import "time"

// Window accumulates batch timings between two reports.
type Window struct {
	samples int
	compute time.Duration
	batches int
}

// Record adds one trained batch to the window.
func (w *Window) Record(batchSize int, compute time.Duration) {
	w.samples += batchSize
	w.compute += compute
	w.batches++
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Batches: w.batches}
	if w.compute > 0 {
		snap.SamplesPerSec = float64(w.samples) / w.compute.Seconds()
	}
	if w.batches > 0 {
		snap.AvgBatchMS = (w.compute.Seconds() * 1000) / float64(w.batches)
	}

	w.samples = 0
	w.compute = 0
	w.batches = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	SamplesPerSec float64
	AvgBatchMS    float64
	Batches       int
}
