package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "quantlab",
	Short: "quantlab - backtest engine and overfitting lab",
	Long: `quantlab runs trading strategies against historical daily bars and
quantifies how much of their measured edge is real: walk-forward
validation, block bootstrap, permutation tests, and Monte Carlo
resampling over a deterministic execution engine.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
