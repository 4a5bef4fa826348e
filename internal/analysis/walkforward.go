package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/11e3/quantlab/internal/backtest"
	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/frame"
)

// WalkForward slides a train/test window across the full history and
// compares in-sample to out-of-sample performance fold by fold. A
// strategy whose edge survives only in-sample is overfit; the walk
// forward efficiency makes that visible as a single number.
type WalkForward struct {
	TrainDays int // calendar days per training window
	TestDays  int // calendar days per test window
	StepDays  int // slide between folds, defaults to TestDays
}

// Fold is one train/test split. Bounds are inclusive.
type Fold struct {
	Index      int       `json:"index"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	TestStart  time.Time `json:"test_start"`
	TestEnd    time.Time `json:"test_end"`
}

// FoldResult carries both runs for one fold.
type FoldResult struct {
	Fold        Fold             `json:"fold"`
	InSample    *backtest.Result `json:"in_sample"`
	OutOfSample *backtest.Result `json:"out_of_sample"`
}

// WalkForwardReport aggregates every fold.
type WalkForwardReport struct {
	Folds []FoldResult `json:"folds"`

	// Efficiency is mean out-of-sample return over mean in-sample
	// return. Near 1 means the edge generalizes; near 0 or negative
	// means it was fitted to the training windows.
	Efficiency float64 `json:"efficiency"`

	InSample    Distribution `json:"in_sample_dist"`
	OutOfSample Distribution `json:"out_of_sample_dist"`
}

// Validate checks the window parameters.
func (w WalkForward) Validate() error {
	if w.TrainDays < 1 || w.TestDays < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("walkforward: train and test days must be positive, got %d / %d",
				w.TrainDays, w.TestDays))
	}
	if w.StepDays < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("walkforward: step days cannot be negative, got %d", w.StepDays))
	}
	return nil
}

// Folds computes the splits covering the given calendar. The last
// partial test window is kept: discarding the most recent data would
// bias the study toward older regimes.
func (w WalkForward) Folds(calendar []time.Time) []Fold {
	if len(calendar) == 0 {
		return nil
	}
	step := w.StepDays
	if step <= 0 {
		step = w.TestDays
	}

	first := calendar[0]
	last := calendar[len(calendar)-1]

	var folds []Fold
	for i := 0; ; i++ {
		trainStart := first.AddDate(0, 0, i*step)
		trainEnd := trainStart.AddDate(0, 0, w.TrainDays-1)
		testStart := trainEnd.AddDate(0, 0, 1)
		testEnd := testStart.AddDate(0, 0, w.TestDays-1)

		if testStart.After(last) {
			break
		}
		if testEnd.After(last) {
			testEnd = last
		}
		folds = append(folds, Fold{
			Index:      i,
			TrainStart: trainStart,
			TrainEnd:   trainEnd,
			TestStart:  testStart,
			TestEnd:    testEnd,
		})
		if !testEnd.Before(last) {
			break
		}
	}
	return folds
}

// Run executes every fold on the runner and aggregates the report.
// Folds whose window holds no data for any ticker are skipped.
func (w WalkForward) Run(ctx context.Context, runner *Runner, frames map[string]*frame.Frame, cfg backtest.Config, metric Metric) (*WalkForwardReport, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	folds := w.Folds(frame.Calendar(frames))
	if len(folds) == 0 {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("walkforward: history shorter than one train+test window"))
	}

	tasks := make([]Task, 0, 2*len(folds))
	kept := make([]Fold, 0, len(folds))
	for _, fold := range folds {
		train := sliceFrames(frames, fold.TrainStart, fold.TrainEnd)
		test := sliceFrames(frames, fold.TestStart, fold.TestEnd)
		if len(train) == 0 || len(test) == 0 {
			continue
		}
		tasks = append(tasks,
			Task{Label: fmt.Sprintf("fold-%d-train", fold.Index), Frames: train, Config: cfg},
			Task{Label: fmt.Sprintf("fold-%d-test", fold.Index), Frames: test, Config: cfg},
		)
		kept = append(kept, fold)
	}
	if len(kept) == 0 {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("walkforward: no fold contains data"))
	}

	results := runner.Run(ctx, tasks)

	report := &WalkForwardReport{Folds: make([]FoldResult, 0, len(kept))}
	var isSample, oosSample []float64
	for i, fold := range kept {
		train, test := results[2*i], results[2*i+1]
		if train.Failed || test.Failed {
			continue
		}
		report.Folds = append(report.Folds, FoldResult{
			Fold:        fold,
			InSample:    train.Result,
			OutOfSample: test.Result,
		})
		isSample = append(isSample, metric(train.Result.Metrics))
		oosSample = append(oosSample, metric(test.Result.Metrics))
	}
	if len(report.Folds) == 0 {
		return nil, core.WrapError(core.ErrStrategyFailed,
			fmt.Errorf("walkforward: every fold failed"))
	}

	report.InSample = NewDistribution(isSample)
	report.OutOfSample = NewDistribution(oosSample)
	if report.InSample.Mean != 0 {
		report.Efficiency = report.OutOfSample.Mean / report.InSample.Mean
	}
	return report, nil
}

// sliceFrames restricts every frame to [start, end], dropping tickers
// with no bars inside the window.
func sliceFrames(frames map[string]*frame.Frame, start, end time.Time) map[string]*frame.Frame {
	out := make(map[string]*frame.Frame, len(frames))
	for ticker, f := range frames {
		s := f.Slice(start, end)
		if s.Len() > 0 {
			out[ticker] = s
		}
	}
	return out
}
