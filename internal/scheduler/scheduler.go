// Package scheduler runs work units with bounded parallelism under a global
// wall-clock deadline.
//
// A run moves through Admitting, Draining, and Done. Units are admitted in
// batches of the concurrency limit; before each batch the deadline is
// checked, and once it has passed no further batch is admitted. In-flight
// units are never cancelled mid-flight: work already charged to the remote
// service is allowed to finish or individually time out.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/observability"
)

// ExecuteFunc settles one work unit. It must not return until the unit has
// succeeded, exhausted its retries, or timed out; the outcome is always a
// TaskResult, never an error.
type ExecuteFunc func(ctx context.Context, unit domain.WorkUnit) domain.TaskResult

// OnSettle is invoked once per settled unit, in true completion order, from
// the single collector goroutine. completed counts settled units so far.
type OnSettle func(result domain.TaskResult, completed int)

// RunState is the per-run state owned by the scheduler. It is mutated only
// by the collector, which is the sole writer, and must not be read while the
// run is in flight.
type RunState struct {
	StartedAt   time.Time
	Deadline    time.Time
	Completed   int
	Failed      int
	Admitted    int
	DeadlineHit bool
	Results     map[int]domain.TaskResult
}

// Scheduler drives an ExecuteFunc over ordered work units.
type Scheduler struct {
	execute     ExecuteFunc
	logger      *observability.Logger
	concurrency int
}

// New creates a scheduler with the given concurrency limit.
func New(execute ExecuteFunc, logger *observability.Logger, concurrency int) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		execute:     execute,
		logger:      logger.WithComponent("scheduler"),
		concurrency: concurrency,
	}
}

// Run executes units in admission order, capping in-flight work at the
// concurrency limit, and returns once every admitted unit has settled.
// onSettle may be nil. The returned state reports whether the deadline cut
// admission short; the caller decides what partial means.
func (s *Scheduler) Run(ctx context.Context, units []domain.WorkUnit, deadline time.Time, onSettle OnSettle) *RunState {
	state := &RunState{
		StartedAt: time.Now(),
		Deadline:  deadline,
		Results:   make(map[int]domain.TaskResult, len(units)),
	}

	for start := 0; start < len(units); start += s.concurrency {
		if !time.Now().Before(deadline) || ctx.Err() != nil {
			state.DeadlineHit = true
			s.logger.Warn().
				Int("admitted", state.Admitted).
				Int("total", len(units)).
				Msg("Deadline reached, draining without admitting further batches")
			break
		}

		end := start + s.concurrency
		if end > len(units) {
			end = len(units)
		}
		batch := units[start:end]
		state.Admitted += len(batch)

		s.runBatch(ctx, batch, state, onSettle)
	}

	s.logger.Info().
		Int("admitted", state.Admitted).
		Int("completed", state.Completed).
		Int("failed", state.Failed).
		Bool("deadline_hit", state.DeadlineHit).
		Dur("elapsed", time.Since(state.StartedAt)).
		Msg("Run settled")

	return state
}

// runBatch executes one batch concurrently and joins it before returning.
// Every unit settles independently; a failure never aborts its siblings.
// Results flow through a channel to the collector below, which is the only
// writer of state, so completion-order callbacks and state mutation are
// serialized without locking.
func (s *Scheduler) runBatch(ctx context.Context, batch []domain.WorkUnit, state *RunState, onSettle OnSettle) {
	results := make(chan domain.TaskResult, len(batch))

	var wg sync.WaitGroup
	for _, unit := range batch {
		wg.Add(1)
		go func(u domain.WorkUnit) {
			defer wg.Done()
			results <- s.execute(ctx, u)
		}(unit)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		state.Results[result.Index] = result
		if result.OK {
			state.Completed++
		} else {
			state.Failed++
		}
		if onSettle != nil {
			onSettle(result, state.Completed+state.Failed)
		}
	}
}
