package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"galileo/internal/backtest"
	"galileo/internal/config"
	"galileo/internal/domain"
	"galileo/internal/notifier"
	"galileo/internal/provider"
	"galileo/internal/regime"
	"galileo/internal/signal"
	"galileo/internal/store"
	"galileo/internal/util"
)

// historyDays is how much trailing history the daily pipeline fetches so
// 200-period averages and selection windows are warm.
const historyDays = 420

// warmupDays is how many trailing dates the detector replays to rebuild its
// one-step memory before emitting today's events.
const warmupDays = 15

type pipeline struct {
	cfg      *config.Config
	universe []domain.Instrument
	fetcher  *provider.Prefetcher
	gate     *regime.Gate
	detector *signal.Detector
	selector *backtest.Selector
	notify   notifier.Notifier
	log      *slog.Logger
}

func main() {
	cfgPath := "config/galileo.yaml"
	if p := os.Getenv("GALILEO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	csvPath := filepath.Join(cfg.Universe.Dir, cfg.Universe.Screener+".csv")
	universe, err := backtest.LoadUniverseCSV(csvPath)
	if err != nil {
		log.Fatalf("loading universe %s: %v", csvPath, err)
	}

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	alpaca := provider.NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	fetcher := provider.NewPrefetcher(
		provider.NewCached(alpaca, bars),
		cfg.Fetch.MaxWorkers,
		cfg.Fetch.MaxRetries,
		time.Duration(cfg.Fetch.RetryDelayMS)*time.Millisecond,
		cfg.Fetch.RateLimitPerMin,
	)

	var notify notifier.Notifier = notifier.Noop{}
	if cfg.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	pl := &pipeline{
		cfg:      cfg,
		universe: universe,
		fetcher:  fetcher,
		gate: regime.NewGate(regime.Config{
			MALong:       cfg.Market.MALong,
			MAShort:      cfg.Market.MAShort,
			VolThreshold: cfg.Market.VolThreshold,
		}),
		detector: signal.NewDetector(signal.DefaultConfig()),
		selector: &backtest.Selector{MinObservations: cfg.Backtest.MinObservations},
		notify:   notify,
		log:      logger.With("component", "daily-pipeline"),
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule.DailyCron, func() {
		if err := pl.run(ctx); err != nil {
			logger.Error("daily pipeline failed", "err", err)
		}
	}); err != nil {
		log.Fatalf("registering cron %q: %v", cfg.Schedule.DailyCron, err)
	}
	c.Start()
	defer c.Stop()

	logger.Info("galileo-daily running", "cron", cfg.Schedule.DailyCron, "universe", len(universe))

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, executing pipeline now")
		if err := pl.run(ctx); err != nil {
			logger.Error("daily pipeline failed", "err", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping")
}

// run executes one daily pass: regime check, candidate selection, signal
// scan, and notification.
func (pl *pipeline) run(ctx context.Context) error {
	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -historyDays)

	tickers := make([]string, 0, len(pl.universe)+2)
	for _, inst := range pl.universe {
		tickers = append(tickers, inst.Ticker)
	}
	tickers = append(tickers, pl.cfg.Market.BenchmarkTicker, pl.cfg.Market.VolatilityTicker)

	series, excluded, err := pl.fetcher.Fetch(ctx, tickers, start, end)
	if err != nil {
		return err
	}
	if len(excluded) > 0 {
		pl.log.Warn("tickers excluded from today's scan", "count", len(excluded))
	}

	bench, ok := series[pl.cfg.Market.BenchmarkTicker]
	if !ok || len(bench.Bars) == 0 {
		return fmt.Errorf("benchmark %s: %w", pl.cfg.Market.BenchmarkTicker, domain.ErrNoData)
	}
	asOf := bench.Bars[len(bench.Bars)-1].Date

	state, err := pl.gate.Evaluate(bench, series[pl.cfg.Market.VolatilityTicker], asOf)
	if err != nil {
		return fmt.Errorf("regime gate: %w", err)
	}
	pl.log.Info("regime", "holdCash", state.HoldCash, "reason", state.Reason)

	cohort, err := pl.selector.Select(ctx, pl.universe, series, asOf,
		pl.cfg.Backtest.LookbackMonths, pl.cfg.Backtest.LagMonths, pl.cfg.Backtest.NumStocks)
	if err != nil {
		return fmt.Errorf("selection: %w", err)
	}

	events := pl.scanSignals(series, asOf)
	pl.log.Info("scan complete", "cohort", len(cohort.Entries), "signals", len(events))

	msg := notifier.FormatDailyReport(state, cohort, events)
	if tg, ok := pl.notify.(*notifier.Telegram); ok {
		return tg.SendWithRetry(ctx, msg, 3)
	}
	return pl.notify.Send(ctx, msg)
}

// scanSignals replays each universe ticker's recent dates to rebuild the
// detector's one-step memory, then keeps only events dated asOf.
func (pl *pipeline) scanSignals(series map[string]*domain.PriceSeries, asOf time.Time) []domain.SignalEvent {
	var out []domain.SignalEvent
	for _, inst := range pl.universe {
		ps, ok := series[inst.Ticker]
		if !ok || len(ps.Bars) == 0 {
			continue
		}

		replayFrom := len(ps.Bars) - warmupDays
		if replayFrom < 0 {
			replayFrom = 0
		}

		var memory *signal.DayState
		for _, bar := range ps.Bars[replayFrom:] {
			if bar.Date.After(asOf) {
				break
			}
			events, state, err := pl.detector.Evaluate(ps, bar.Date, memory)
			if err != nil {
				continue
			}
			memory = &state
			if !bar.Date.Equal(asOf) {
				continue
			}
			out = append(out, events...)
		}
	}
	return out
}
