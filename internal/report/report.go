// Package report renders run outcomes into portable artifacts: CSV for
// equity curves and trade ledgers, JSON for the metric summary. The
// Reporter writes them through the archive store so a study's full
// evidence lives next to its summary row.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/11e3/quantlab/internal/backtest"
	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/storage/archive"
)

const dateLayout = "2006-01-02"

// EquityCSV renders the equity curve as date,equity rows.
func EquityCSV(dates []time.Time, equity []float64) ([]byte, error) {
	if len(dates) != len(equity) {
		return nil, fmt.Errorf("report: %d dates vs %d equity points", len(dates), len(equity))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "equity"}); err != nil {
		return nil, err
	}
	for i, d := range dates {
		err := w.Write([]string{
			d.Format(dateLayout),
			strconv.FormatFloat(equity[i], 'f', 2, 64),
		})
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// TradesCSV renders the trade ledger. Open trades carry an empty exit
// date and exit price.
func TradesCSV(trades []core.Trade) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"ticker", "entry_date", "entry_price", "exit_date", "exit_price",
		"amount", "invested", "pnl", "pnl_pct", "whipsaw", "commission", "slippage",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, t := range trades {
		exitDate, exitPrice := "", ""
		if t.IsClosed() {
			exitDate = t.ExitDate.Format(dateLayout)
			exitPrice = strconv.FormatFloat(t.ExitPrice, 'f', 4, 64)
		}
		row := []string{
			t.Ticker,
			t.EntryDate.Format(dateLayout),
			strconv.FormatFloat(t.EntryPrice, 'f', 4, 64),
			exitDate,
			exitPrice,
			strconv.FormatFloat(t.Amount, 'f', 6, 64),
			strconv.FormatFloat(t.Invested, 'f', 2, 64),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			strconv.FormatFloat(t.PnLPct, 'f', 6, 64),
			strconv.FormatBool(t.IsWhipsaw),
			strconv.FormatFloat(t.Commission, 'f', 4, 64),
			strconv.FormatFloat(t.Slippage, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Summary is the JSON artifact describing one run.
type Summary struct {
	RunID     string       `json:"run_id"`
	Strategy  string       `json:"strategy"`
	Kind      string       `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
	Days      int          `json:"days"`
	Metrics   core.Metrics `json:"metrics"`
}

// SummaryJSON renders the metric summary, indented for human eyes.
func SummaryJSON(s Summary) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Reporter writes a run's artifacts to the archive.
type Reporter struct {
	store archive.Store
	log   *zap.Logger
}

// NewReporter creates a Reporter. A nil logger disables logging.
func NewReporter(store archive.Store, log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{store: store, log: log}
}

// Write archives the equity curve, trade ledger, and summary under the
// run's key prefix and returns the stored keys.
func (r *Reporter) Write(ctx context.Context, runID, strategy, kind string, res *backtest.Result) ([]string, error) {
	equity, err := EquityCSV(res.Dates, res.EquityCurve)
	if err != nil {
		return nil, err
	}
	trades, err := TradesCSV(res.Trades)
	if err != nil {
		return nil, err
	}
	summary, err := SummaryJSON(Summary{
		RunID:     runID,
		Strategy:  strategy,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Days:      len(res.Dates),
		Metrics:   res.Metrics,
	})
	if err != nil {
		return nil, err
	}

	artifacts := map[string][]byte{
		"equity.csv":   equity,
		"trades.csv":   trades,
		"summary.json": summary,
	}

	keys := make([]string, 0, len(artifacts))
	for _, name := range []string{"equity.csv", "trades.csv", "summary.json"} {
		key := archive.RunKey(runID, name)
		if err := r.store.Put(ctx, key, artifacts[name]); err != nil {
			return nil, fmt.Errorf("archiving %s: %w", name, err)
		}
		keys = append(keys, key)
	}

	r.log.Info("run archived",
		zap.String("run", runID),
		zap.String("strategy", strategy),
		zap.Int("artifacts", len(keys)),
	)
	return keys, nil
}
