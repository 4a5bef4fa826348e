package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/11e3/quantlab/internal/analysis"
	"github.com/11e3/quantlab/internal/backtest"
	"github.com/11e3/quantlab/internal/config"
	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/logger"
	"github.com/11e3/quantlab/internal/metrics"
	"github.com/11e3/quantlab/internal/report"
	"github.com/11e3/quantlab/internal/storage/archive"
	"github.com/11e3/quantlab/internal/storage/bars"
	"github.com/11e3/quantlab/internal/storage/results"
	"github.com/11e3/quantlab/internal/strategy"
	"github.com/11e3/quantlab/internal/strategy/pair"
	"github.com/11e3/quantlab/internal/strategy/trend"
	"github.com/11e3/quantlab/internal/strategy/vbreakout"
)

// app wires the configured components behind every command.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	bars     *bars.Store
	results  *results.Store
	archive  archive.Store
	registry *strategy.Registry
	runner   *analysis.Runner
	reporter *report.Reporter
	metrics  *metrics.Registry
}

func newApp() (*app, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	log, err := logger.New(cfg.Logging.Development || debug, level)
	if err != nil {
		return nil, err
	}

	store, err := newArchive(cfg)
	if err != nil {
		return nil, err
	}
	runDB, err := results.NewStore(cfg.Storage.ResultsDSN)
	if err != nil {
		return nil, err
	}

	registry := strategy.NewRegistry(log)
	registry.Register(vbreakout.New(0.5, 20))
	registry.Register(trend.New(55, 14, 2))
	registry.Register(pair.New("", "", 60, 2.0, 0.5))

	engine := backtest.NewEngine(backtest.FixedCost{
		SlippageRate: cfg.Backtest.SlippageRate,
		FeeRate:      cfg.Backtest.FeeRate,
	}, log)

	a := &app{
		cfg:      cfg,
		log:      log,
		bars:     bars.NewStore(cfg.Storage.DataDir),
		results:  runDB,
		archive:  store,
		registry: registry,
		runner:   analysis.NewRunner(engine, cfg.Analysis.Workers, log),
		reporter: report.NewReporter(store, log),
		metrics:  metrics.NewRegistry(),
	}
	a.serveMetrics()
	return a, nil
}

func newArchive(cfg *config.Config) (archive.Store, error) {
	switch cfg.Storage.Archive.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.Storage.Archive.S3.Bucket,
			Endpoint:  cfg.Storage.Archive.S3.Endpoint,
			Region:    cfg.Storage.Archive.S3.Region,
			AccessKey: cfg.Storage.Archive.S3.AccessKey,
			SecretKey: cfg.Storage.Archive.S3.SecretKey,
			Prefix:    cfg.Storage.Archive.S3.Prefix,
		})
	default:
		return archive.NewLocal(cfg.Storage.Archive.Path)
	}
}

func (a *app) close() {
	if err := a.results.Close(); err != nil {
		a.log.Warn("closing run store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// serveMetrics exposes the Prometheus endpoint when enabled.
func (a *app) serveMetrics() {
	if !a.cfg.Metrics.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.metrics.Handler())
	go func() {
		if err := http.ListenAndServe(a.cfg.Metrics.Addr, mux); err != nil {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("metrics listening",
		zap.String("addr", a.cfg.Metrics.Addr),
		zap.String("path", a.cfg.Metrics.Path),
	)
}

// strategyFor resolves a registered strategy and applies its configured
// parameters.
func (a *app) strategyFor(name string) (strategy.Strategy, error) {
	s, err := a.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if sc, ok := a.cfg.Strategies[name]; ok {
		if err := s.Init(strategy.Config{Enabled: sc.Enabled, Params: sc.Params}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// loadBars reads history for the requested tickers.
func (a *app) loadBars(ctx context.Context, tickers []string, from, to time.Time) (map[string][]core.Bar, error) {
	if len(tickers) == 0 {
		all, err := a.bars.Tickers(ctx)
		if err != nil {
			return nil, err
		}
		tickers = all
	}
	if len(tickers) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no tickers in %s", a.cfg.Storage.DataDir))
	}
	return a.bars.ReadAll(ctx, tickers, from, to)
}

// saveRun persists the summary row and archives the artifacts.
func (a *app) saveRun(ctx context.Context, strategyName, kind string, res *backtest.Result, summary any) (string, error) {
	runID := uuid.NewString()

	encoded, err := results.EncodeSummary(summary)
	if err != nil {
		return "", err
	}
	cfgJSON, err := json.Marshal(res.Config)
	if err != nil {
		return "", err
	}

	if err := a.results.Save(ctx, &results.Run{
		ID:       runID,
		Strategy: strategyName,
		Kind:     kind,
		Metrics:  res.Metrics,
		Config:   string(cfgJSON),
		Summary:  encoded,
	}); err != nil {
		return "", err
	}
	if _, err := a.reporter.Write(ctx, runID, strategyName, kind, res); err != nil {
		return "", err
	}
	return runID, nil
}

// parseRange parses the --from/--to flags.
func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date (expected YYYY-MM-DD): %w", err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to date (expected YYYY-MM-DD): %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date")
	}
	return start, end, nil
}

// printMetrics renders a metrics block to stdout.
func printMetrics(m core.Metrics) {
	fmt.Printf("  Total return:   %+.2f%%\n", m.TotalReturn*100)
	fmt.Printf("  CAGR:           %+.2f%%\n", m.CAGR*100)
	fmt.Printf("  Sharpe:         %.2f\n", m.Sharpe)
	fmt.Printf("  Max drawdown:   %.2f%%\n", m.MaxDrawdown*100)
	fmt.Printf("  Calmar:         %.2f\n", m.Calmar)
	fmt.Printf("  Win rate:       %.1f%%\n", m.WinRate*100)
	fmt.Printf("  Profit factor:  %.2f\n", m.ProfitFactor)
	fmt.Printf("  Trades:         %d (%d whipsaw)\n", m.TotalTrades, m.WhipsawTrades)
}
