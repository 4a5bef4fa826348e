package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/11e3/quantlab/internal/analysis"
)

var (
	backtestTickers []string
	backtestFrom    string
	backtestTo      string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run a strategy against historical bars",
	Long:  "Run a single deterministic backtest and archive the equity curve, trade ledger, and metric summary.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktestCmd,
}

func init() {
	backtestCmd.Flags().StringSliceVar(&backtestTickers, "tickers", nil, "tickers to include (default: all stored)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date YYYY-MM-DD (required)")

	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	from, to, err := parseRange(backtestFrom, backtestTo)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	strat, err := a.strategyFor(args[0])
	if err != nil {
		return err
	}
	history, err := a.loadBars(ctx, backtestTickers, from, to)
	if err != nil {
		return err
	}
	frames, err := strat.Build(history)
	if err != nil {
		return err
	}

	a.metrics.InFlightInc()
	started := time.Now()
	res := a.runner.Run(ctx, []analysis.Task{{
		Label:  "backtest",
		Frames: frames,
		Config: a.cfg.EngineConfig(),
	}})
	a.metrics.InFlightDec()

	if res[0].Failed {
		a.metrics.RecordRun("backtest", "error", time.Since(started).Seconds(), 0)
		return res[0].Err
	}
	result := res[0].Result
	a.metrics.RecordRun("backtest", "ok", time.Since(started).Seconds(), result.Metrics.TotalTrades)

	runID, err := a.saveRun(ctx, strat.Name(), "backtest", result, result.Metrics)
	if err != nil {
		return err
	}

	fmt.Printf("=== Backtest: %s ===\n", strat.Description())
	fmt.Printf("Period: %s to %s, %d trading days\n\n", backtestFrom, backtestTo, len(result.Dates))
	printMetrics(result.Metrics)
	fmt.Printf("\nRun ID: %s\n", runID)
	return nil
}
