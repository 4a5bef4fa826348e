package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/11e3/quantlab/internal/analysis"
)

var (
	mcTickers    []string
	mcFrom       string
	mcTo         string
	mcIterations int
	mcSeed       int64
	mcRuin       float64
)

var montecarloCmd = &cobra.Command{
	Use:   "montecarlo [strategy]",
	Short: "Monte Carlo equity path study",
	Long: `Run the strategy once, then resample its daily returns with replacement
to map the spread of equity outcomes the same return stream could have
produced, including the probability of ever touching the ruin threshold.`,
	Args: cobra.ExactArgs(1),
	RunE: runMontecarloCmd,
}

func init() {
	montecarloCmd.Flags().StringSliceVar(&mcTickers, "tickers", nil, "tickers to include (default: all stored)")
	montecarloCmd.Flags().StringVar(&mcFrom, "from", "", "start date YYYY-MM-DD (required)")
	montecarloCmd.Flags().StringVar(&mcTo, "to", "", "end date YYYY-MM-DD (required)")
	montecarloCmd.Flags().IntVar(&mcIterations, "iterations", 0, "resampled paths (default from config)")
	montecarloCmd.Flags().Int64Var(&mcSeed, "seed", 0, "random seed (default from config)")
	montecarloCmd.Flags().Float64Var(&mcRuin, "ruin", 0, "equity fraction treated as ruin (default from config)")

	montecarloCmd.MarkFlagRequired("from")
	montecarloCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(montecarloCmd)
}

func runMontecarloCmd(cmd *cobra.Command, args []string) error {
	from, to, err := parseRange(mcFrom, mcTo)
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
	history, err := a.loadBars(ctx, mcTickers, from, to)
	if err != nil {
		return err
	}
	frames, err := strat.Build(history)
	if err != nil {
		return err
	}

	started := time.Now()
	base := a.runner.Run(ctx, []analysis.Task{{
		Label:  "montecarlo-base",
		Frames: frames,
		Config: a.cfg.EngineConfig(),
	}})
	if base[0].Failed {
		a.metrics.RecordRun("montecarlo", "error", time.Since(started).Seconds(), 0)
		return base[0].Err
	}

	ruin := a.cfg.Analysis.RuinPct
	if mcRuin > 0 {
		ruin = mcRuin
	}
	study := analysis.MonteCarlo{
		Iterations:    orDefault(mcIterations, a.cfg.Analysis.Iterations),
		Seed:          seedOrDefault(mcSeed, a.cfg.Analysis.Seed),
		RuinThreshold: ruin,
	}
	reportOut, err := study.Run(base[0].Result)
	if err != nil {
		a.metrics.RecordRun("montecarlo", "error", time.Since(started).Seconds(), 0)
		return err
	}
	a.metrics.RecordRun("montecarlo", "ok", time.Since(started).Seconds(), base[0].Result.Metrics.TotalTrades)
	a.metrics.RecordResamples("montecarlo", reportOut.Iterations)

	fmt.Printf("=== Monte Carlo: %s ===\n", strat.Description())
	fmt.Printf("Iterations: %d, ruin threshold %.0f%%\n\n", reportOut.Iterations, ruin*100)
	fmt.Printf("  Final equity:  mean %.0f, p5 %.0f, p95 %.0f\n",
		reportOut.FinalEquity.Mean, reportOut.FinalEquity.P5, reportOut.FinalEquity.P95)
	fmt.Printf("  Max drawdown:  mean %.2f%%, p5 %.2f%%\n",
		reportOut.MaxDrawdown.Mean*100, reportOut.MaxDrawdown.P5*100)
	fmt.Printf("  Ruin prob:     %.2f%%\n", reportOut.RuinProbability*100)

	runID, err := a.saveRun(ctx, strat.Name(), "montecarlo", base[0].Result, reportOut)
	if err != nil {
		return err
	}
	fmt.Printf("\nRun ID: %s\n", runID)
	return nil
}
