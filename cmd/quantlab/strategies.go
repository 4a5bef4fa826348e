package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List registered strategies",
	RunE:  runStrategiesCmd,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategiesCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	for _, s := range a.registry.All() {
		enabled := ""
		if sc, ok := a.cfg.Strategies[s.Name()]; ok && sc.Enabled {
			enabled = " (enabled)"
		}
		fmt.Printf("%-12s %s%s\n", s.Name(), s.Description(), enabled)
	}
	return nil
}
