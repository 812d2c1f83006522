package trainer

import (
	"math"

	"go.uber.org/atomic"
)

// RunState is the only state shared between the training goroutine and
// controllers. Idle -> Running via Start, Running -> Idle via Pause, and
// any state -> Stopped via Stop. Stopped is terminal.
type RunState struct {
	running   atomic.Bool
	stopped   atomic.Bool
	epoch     atomic.Int64
	iteration atomic.Int64
	bestCost  atomic.Float64
}

func NewRunState() *RunState {
	s := &RunState{}
	s.bestCost.Store(math.Inf(1))
	return s
}

// Start lets the loop train. It has no effect once stopped.
func (s *RunState) Start() {
	if !s.stopped.Load() {
		s.running.Store(true)
	}
}

// Pause parks the loop at the next batch boundary.
func (s *RunState) Pause() { s.running.Store(false) }

// Stop ends the run at the next batch boundary.
func (s *RunState) Stop() {
	s.stopped.Store(true)
	s.running.Store(false)
}

func (s *RunState) Running() bool { return s.running.Load() && !s.stopped.Load() }
func (s *RunState) Stopped() bool { return s.stopped.Load() }

func (s *RunState) Epoch() int64      { return s.epoch.Load() }
func (s *RunState) Iteration() int64  { return s.iteration.Load() }
func (s *RunState) BestCost() float64 { return s.bestCost.Load() }
