package results

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/11e3/quantlab/internal/core"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, created time.Time) *Run {
	return &Run{
		ID:        id,
		Strategy:  "vbreakout",
		Kind:      "backtest",
		CreatedAt: created,
		Metrics: core.Metrics{
			TotalReturn: 0.12,
			CAGR:        0.10,
			Sharpe:      1.3,
			MaxDrawdown: -0.08,
			Calmar:      1.25,
			WinRate:     0.55,
			TotalTrades: 42,
		},
		Config:  `{"initial_capital":1000}`,
		Summary: `{}`,
	}
}

func TestStoreSaveGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Save(ctx, sampleRun("r1", created)); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Strategy != "vbreakout" || got.Kind != "backtest" {
		t.Errorf("run = %+v", got)
	}
	if got.Metrics.Sharpe != 1.3 || got.Metrics.TotalTrades != 42 {
		t.Errorf("metrics = %+v", got.Metrics)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created at = %v, want %v", got.CreatedAt, created)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := s.Save(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	runs, err := s.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].ID != "new" || runs[2].ID != "old" {
		t.Errorf("order = %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestStoreListFiltersStrategy(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a := sampleRun("a", time.Now().UTC())
	b := sampleRun("b", time.Now().UTC())
	b.Strategy = "trend"
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}

	runs, err := s.List(ctx, "trend", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "b" {
		t.Errorf("runs = %+v, want only b", runs)
	}
}

func TestStoreDuplicateIDRejected(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	run := sampleRun("dup", time.Now().UTC())
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, run); !errors.Is(err, core.ErrStoreFailed) {
		t.Errorf("error = %v, want ErrStoreFailed on duplicate id", err)
	}
}

func TestEncodeSummary(t *testing.T) {
	got, err := EncodeSummary(map[string]int{"folds": 5})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got != `{"folds":5}` {
		t.Errorf("summary = %s", got)
	}
}
