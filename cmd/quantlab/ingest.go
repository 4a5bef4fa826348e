package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/11e3/quantlab/internal/core"
)

var ingestTicker string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.csv]",
	Short: "Load a CSV of daily bars into the bar store",
	Long: `Load daily bars from a CSV file into the Parquet bar store. Expected
columns: ticker,date,open,high,low,close,volume with a header row. The
date is YYYY-MM-DD. Rows merge into existing history, newest data wins
on duplicate dates.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestCmd,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTicker, "ticker", "", "override the ticker column for every row")

	rootCmd.AddCommand(ingestCmd)
}

func runIngestCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if len(rows) < 2 {
		return fmt.Errorf("%s has no data rows", args[0])
	}

	loaded := make([]core.Bar, 0, len(rows)-1)
	for i, row := range rows[1:] {
		bar, err := parseBarRow(row)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", args[0], i+2, err)
		}
		if ingestTicker != "" {
			bar.Ticker = strings.ToUpper(ingestTicker)
		}
		loaded = append(loaded, bar)
	}

	if err := a.bars.Write(cmd.Context(), loaded); err != nil {
		return err
	}
	fmt.Printf("ingested %d bars from %s\n", len(loaded), args[0])
	return nil
}

func parseBarRow(row []string) (core.Bar, error) {
	if len(row) < 7 {
		return core.Bar{}, fmt.Errorf("expected 7 columns, got %d", len(row))
	}
	day, err := time.Parse("2006-01-02", strings.TrimSpace(row[1]))
	if err != nil {
		return core.Bar{}, fmt.Errorf("invalid date %q", row[1])
	}

	vals := make([]float64, 5)
	for i, col := range row[2:7] {
		v, err := strconv.ParseFloat(strings.TrimSpace(col), 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("invalid number %q", col)
		}
		vals[i] = v
	}

	return core.Bar{
		Ticker:   strings.ToUpper(strings.TrimSpace(row[0])),
		Interval: "1d",
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
		Time:     day,
	}, nil
}
