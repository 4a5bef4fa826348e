package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	runsStrategy string
	runsLimit    int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted study runs",
	RunE:  runRunsCmd,
}

func init() {
	runsCmd.Flags().StringVar(&runsStrategy, "strategy", "", "filter by strategy name")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum rows")

	rootCmd.AddCommand(runsCmd)
}

func runRunsCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	runs, err := a.results.List(cmd.Context(), runsStrategy, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	fmt.Printf("%-36s  %-12s  %-12s  %-16s  %8s  %8s\n",
		"ID", "STRATEGY", "KIND", "CREATED", "RETURN", "SHARPE")
	for _, r := range runs {
		fmt.Printf("%-36s  %-12s  %-12s  %-16s  %+7.2f%%  %8.2f\n",
			r.ID, r.Strategy, r.Kind, r.CreatedAt.Format("2006-01-02 15:04"),
			r.Metrics.TotalReturn*100, r.Metrics.Sharpe)
	}
	return nil
}
