// Package bars stores daily OHLCV history as Parquet files on disk,
// one file per ticker. Parquet keeps multi-year histories compact and
// loads column-wise, which is how the rest of the pipeline consumes
// them.
package bars

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/11e3/quantlab/internal/core"
)

// Store reads and writes bar history under a data directory.
// Layout: <dataDir>/bars/<TICKER>.parquet
type Store struct {
	dataDir string
}

// NewStore creates a Store rooted at the given data directory.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// record is the on-disk Parquet schema.
type record struct {
	Ticker    string  `parquet:"ticker"`
	Interval  string  `parquet:"interval"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// Write merges bars into each ticker's file, deduplicating on
// timestamp with incoming bars winning. Bars may span tickers.
func (s *Store) Write(_ context.Context, bars []core.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	groups := make(map[string][]record)
	for _, b := range bars {
		groups[b.Ticker] = append(groups[b.Ticker], record{
			Ticker:    b.Ticker,
			Interval:  b.Interval,
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	for ticker, incoming := range groups {
		path := s.path(ticker)
		existing, err := parquet.ReadFile[record](path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			// An unreadable history must not be silently replaced by
			// the incoming bars alone.
			return core.WrapError(core.ErrStoreFailed,
				fmt.Errorf("reading existing bars for %s: %w", ticker, err))
		}
		merged := merge(existing, incoming)

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating bar dir: %w", err)
		}
		if err := parquet.WriteFile(path, merged); err != nil {
			return core.WrapError(core.ErrStoreFailed,
				fmt.Errorf("writing bars for %s: %w", ticker, err))
		}
	}
	return nil
}

// Read returns the ticker's bars inside [start, end], ascending.
func (s *Store) Read(_ context.Context, ticker string, start, end time.Time) ([]core.Bar, error) {
	records, err := parquet.ReadFile[record](s.path(ticker))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.WrapError(core.ErrNoData,
				fmt.Errorf("no bar history for %s", ticker))
		}
		return nil, core.WrapError(core.ErrStoreFailed,
			fmt.Errorf("reading bars for %s: %w", ticker, err))
	}

	bars := make([]core.Bar, 0, len(records))
	for _, r := range records {
		ts := time.UnixMilli(r.Timestamp).UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		bars = append(bars, core.Bar{
			Ticker:   r.Ticker,
			Interval: r.Interval,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
			Time:     ts,
		})
	}
	return bars, nil
}

// ReadAll loads every requested ticker. Tickers without history are
// reported, not skipped: a study silently missing a ticker would bias
// its results.
func (s *Store) ReadAll(ctx context.Context, tickers []string, start, end time.Time) (map[string][]core.Bar, error) {
	out := make(map[string][]core.Bar, len(tickers))
	for _, ticker := range tickers {
		bars, err := s.Read(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		out[ticker] = bars
	}
	return out, nil
}

// Tickers lists every ticker with stored history, sorted.
func (s *Store) Tickers(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, "bars"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var tickers []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		tickers = append(tickers, strings.TrimSuffix(name, ".parquet"))
	}
	sort.Strings(tickers)
	return tickers, nil
}

func (s *Store) path(ticker string) string {
	return filepath.Join(s.dataDir, "bars", strings.ToUpper(ticker)+".parquet")
}

// merge deduplicates records on timestamp, incoming records winning,
// and returns them in ascending time order.
func merge(existing, incoming []record) []record {
	seen := make(map[int64]record, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]record, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
