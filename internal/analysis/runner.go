// Package analysis layers statistical robustness checks over the
// backtest engine: repeated resampled runs executed on a worker pool,
// walk-forward validation, bootstrap and permutation tests, and Monte
// Carlo resampling of equity curves. Every driver takes an explicit
// seed so a study can be reproduced bit for bit.
package analysis

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/11e3/quantlab/internal/backtest"
	"github.com/11e3/quantlab/internal/frame"
)

// Task is one engine run scheduled on the pool.
type Task struct {
	ID     string
	Label  string // fold index, resample number, free-form
	Frames map[string]*frame.Frame
	Config backtest.Config
}

// TaskResult pairs a task with its outcome. Failed is set when the run
// errored or panicked; Result is nil in that case.
type TaskResult struct {
	Task   Task
	Result *backtest.Result
	Err    error
	Failed bool
}

// Runner executes backtest tasks concurrently. Each worker drives its
// own simulation; the engine itself is stateless so one instance is
// shared.
type Runner struct {
	engine  *backtest.Engine
	workers int
	log     *zap.Logger
}

// NewRunner creates a Runner. Workers defaults to GOMAXPROCS when
// non-positive.
func NewRunner(engine *backtest.Engine, workers int, log *zap.Logger) *Runner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{engine: engine, workers: workers, log: log}
}

// Run executes all tasks and returns results in task order. A panic in
// one run marks that task failed without sinking the batch: one
// degenerate resample must not void a ten-thousand-run study.
func (r *Runner) Run(ctx context.Context, tasks []Task) []TaskResult {
	results := make([]TaskResult, len(tasks))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = r.runOne(ctx, tasks[i])
			}
		}()
	}

	for i := range tasks {
		select {
		case <-ctx.Done():
			for j := i; j < len(tasks); j++ {
				results[j] = TaskResult{Task: tasks[j], Err: ctx.Err(), Failed: true}
			}
			close(indexes)
			wg.Wait()
			return results
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()
	return results
}

func (r *Runner) runOne(ctx context.Context, task Task) (tr TaskResult) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	tr.Task = task

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("run panicked",
				zap.String("task", task.ID),
				zap.String("label", task.Label),
				zap.Any("panic", rec),
			)
			tr.Result = nil
			tr.Failed = true
		}
	}()

	res, err := r.engine.Run(ctx, task.Frames, task.Config)
	if err != nil {
		r.log.Warn("run failed",
			zap.String("task", task.ID),
			zap.String("label", task.Label),
			zap.Error(err),
		)
		tr.Err = err
		tr.Failed = true
		return tr
	}
	tr.Result = res
	return tr
}

// Succeeded filters a batch down to its successful results.
func Succeeded(results []TaskResult) []*backtest.Result {
	out := make([]*backtest.Result, 0, len(results))
	for _, tr := range results {
		if !tr.Failed && tr.Result != nil {
			out = append(out, tr.Result)
		}
	}
	return out
}
