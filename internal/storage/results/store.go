// Package results persists completed study outcomes to SQLite so runs
// can be compared across sessions. Equity curves and trade ledgers are
// archived as files; this store keeps the queryable summary row.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/11e3/quantlab/internal/core"
)

// Run is one persisted study outcome.
type Run struct {
	ID        string       `json:"id"`
	Strategy  string       `json:"strategy"`
	Kind      string       `json:"kind"` // backtest, walkforward, bootstrap, permutation, montecarlo
	CreatedAt time.Time    `json:"created_at"`
	Metrics   core.Metrics `json:"metrics"`
	Config    string       `json:"config"`  // JSON of the engine config
	Summary   string       `json:"summary"` // JSON of the study report, kind-specific
}

// Store persists runs in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	strategy       TEXT NOT NULL,
	kind           TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	total_return   REAL NOT NULL,
	cagr           REAL NOT NULL,
	sharpe         REAL NOT NULL,
	max_drawdown   REAL NOT NULL,
	calmar         REAL NOT NULL,
	win_rate       REAL NOT NULL,
	profit_factor  REAL NOT NULL,
	total_trades   INTEGER NOT NULL,
	config_json    TEXT NOT NULL,
	summary_json   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy, created_at DESC);
`

// NewStore opens (or creates) the run database at the given DSN.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("applying schema: %w", err))
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts a run. A zero CreatedAt is stamped with the current
// time.
func (s *Store) Save(ctx context.Context, run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, strategy, kind, created_at,
			total_return, cagr, sharpe, max_drawdown, calmar,
			win_rate, profit_factor, total_trades,
			config_json, summary_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.Kind, run.CreatedAt.UnixMilli(),
		run.Metrics.TotalReturn, run.Metrics.CAGR, run.Metrics.Sharpe,
		run.Metrics.MaxDrawdown, run.Metrics.Calmar,
		run.Metrics.WinRate, run.Metrics.ProfitFactor, run.Metrics.TotalTrades,
		run.Config, run.Summary,
	)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("saving run %s: %w", run.ID, err))
	}
	return nil
}

// Get retrieves a run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, kind, created_at,
		       total_return, cagr, sharpe, max_drawdown, calmar,
		       win_rate, profit_factor, total_trades,
		       config_json, summary_json
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("run %s", id))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. An empty strategy
// matches every strategy.
func (s *Store) List(ctx context.Context, strategy string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, strategy, kind, created_at,
		       total_return, cagr, sharpe, max_drawdown, calmar,
		       win_rate, profit_factor, total_trades,
		       config_json, summary_json
		FROM runs`
	args := []any{}
	if strategy != "" {
		query += ` WHERE strategy = ?`
		args = append(args, strategy)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return runs, nil
}

// EncodeSummary marshals a study report for the summary column.
func EncodeSummary(report any) (string, error) {
	b, err := json.Marshal(report)
	if err != nil {
		return "", core.WrapError(core.ErrStoreFailed, fmt.Errorf("encoding summary: %w", err))
	}
	return string(b), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var createdAt int64
	err := sc.Scan(
		&run.ID, &run.Strategy, &run.Kind, &createdAt,
		&run.Metrics.TotalReturn, &run.Metrics.CAGR, &run.Metrics.Sharpe,
		&run.Metrics.MaxDrawdown, &run.Metrics.Calmar,
		&run.Metrics.WinRate, &run.Metrics.ProfitFactor, &run.Metrics.TotalTrades,
		&run.Config, &run.Summary,
	)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &run, nil
}
