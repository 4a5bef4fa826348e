package bars

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/11e3/quantlab/internal/core"
)

func mkBar(ticker string, day int, close float64) core.Bar {
	return core.Bar{
		Ticker:   ticker,
		Interval: "1d",
		Open:     close - 1,
		High:     close + 1,
		Low:      close - 2,
		Close:    close,
		Volume:   1000,
		Time:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
	}
}

func TestStoreWriteRead(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	in := []core.Bar{mkBar("AAA", 0, 100), mkBar("AAA", 1, 101), mkBar("BBB", 0, 50)}
	if err := s.Write(ctx, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.Read(ctx, "AAA",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d bars, want 2", len(got))
	}
	if got[0].Close != 100 || got[1].Close != 101 {
		t.Errorf("closes = %v, %v", got[0].Close, got[1].Close)
	}
	if !got[0].Time.Before(got[1].Time) {
		t.Error("bars not ascending")
	}
}

func TestStoreMergeOverwritesDuplicates(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	if err := s.Write(ctx, []core.Bar{mkBar("AAA", 0, 100)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Same timestamp, revised close: the rewrite wins.
	if err := s.Write(ctx, []core.Bar{mkBar("AAA", 0, 105)}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := s.Read(ctx, "AAA",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d bars, want 1 after dedup", len(got))
	}
	if got[0].Close != 105 {
		t.Errorf("close = %v, want the revised 105", got[0].Close)
	}
}

func TestStoreWriteRefusesCorruptHistory(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	ctx := context.Background()

	// A history file that is not parquet must fail the write, not be
	// silently replaced by the incoming bars alone.
	if err := os.MkdirAll(filepath.Join(dir, "bars"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "bars", "AAA.parquet")
	if err := os.WriteFile(path, []byte("not parquet"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	err := s.Write(ctx, []core.Bar{mkBar("AAA", 0, 100)})
	if !errors.Is(err, core.ErrStoreFailed) {
		t.Fatalf("error = %v, want ErrStoreFailed", err)
	}

	kept, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("reread: %v", readErr)
	}
	if string(kept) != "not parquet" {
		t.Error("corrupt history was overwritten")
	}
}

func TestStoreReadRange(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	var in []core.Bar
	for d := 0; d < 10; d++ {
		in = append(in, mkBar("AAA", d, 100+float64(d)))
	}
	if err := s.Write(ctx, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.Read(ctx, "AAA",
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d bars in range, want 3", len(got))
	}
}

func TestStoreReadMissingTicker(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Read(context.Background(), "NOPE", time.Time{}, time.Now())
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestStoreTickers(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	empty, err := s.Tickers(ctx)
	if err != nil {
		t.Fatalf("tickers on empty store: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("tickers = %v, want none", empty)
	}

	if err := s.Write(ctx, []core.Bar{mkBar("BBB", 0, 1), mkBar("AAA", 0, 1)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := s.Tickers(ctx)
	if err != nil {
		t.Fatalf("tickers: %v", err)
	}
	if len(got) != 2 || got[0] != "AAA" || got[1] != "BBB" {
		t.Errorf("tickers = %v, want [AAA BBB]", got)
	}
}

func TestStoreReadAllFailsOnMissing(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	if err := s.Write(ctx, []core.Bar{mkBar("AAA", 0, 1)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := s.ReadAll(ctx, []string{"AAA", "GONE"}, time.Time{}, time.Now())
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData for the missing ticker", err)
	}
}
