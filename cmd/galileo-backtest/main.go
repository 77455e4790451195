package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"galileo/internal/backtest"
	"galileo/internal/config"
	"galileo/internal/notifier"
	"galileo/internal/provider"
	"galileo/internal/regime"
	"galileo/internal/store"
	"galileo/internal/util"
)

func main() {
	var (
		universePath = flag.String("universe", "", "screener snapshot CSV (default <universe.dir>/<screener>.csv)")
		startStr     = flag.String("start", "", "override backtest start date (YYYY-MM-DD)")
		endStr       = flag.String("end", "", "override backtest end date (YYYY-MM-DD)")
		jsonOut      = flag.String("json", "", "write the full report as JSON to this file")
		noCache      = flag.Bool("no-cache", false, "skip the same-day result cache")
		notify       = flag.Bool("notify", false, "send the report summary to Telegram")
	)
	flag.Parse()

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

	p := cfg.Backtest
	if *startStr != "" {
		p.StartDate, err = time.Parse("2006-01-02", *startStr)
		if err != nil {
			log.Fatalf("parsing -start: %v", err)
		}
	}
	if *endStr != "" {
		p.EndDate, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("parsing -end: %v", err)
		}
	}

	csvPath := *universePath
	if csvPath == "" {
		csvPath = filepath.Join(cfg.Universe.Dir, cfg.Universe.Screener+".csv")
	}
	universe, err := backtest.LoadUniverseCSV(csvPath)
	if err != nil {
		log.Fatalf("loading universe %s: %v", csvPath, err)
	}
	logger.Info("universe loaded", "file", csvPath, "instruments", len(universe))

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	alpaca := provider.NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	fetcher := provider.NewPrefetcher(
		provider.NewCached(alpaca, bars),
		cfg.Fetch.MaxWorkers,
		cfg.Fetch.MaxRetries,
		time.Duration(cfg.Fetch.RetryDelayMS)*time.Millisecond,
		cfg.Fetch.RateLimitPerMin,
	)

	var cache *backtest.ResultCache
	if !*noCache && cfg.Storage.SQLitePath != "" {
		results, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Warn("opening result cache failed, continuing without", "err", err)
		} else {
			defer results.Close()
			cache = backtest.NewResultCache(results)
		}
	}

	sim := backtest.NewSimulator(backtest.SimulatorConfig{
		Fetcher:          fetcher,
		Universe:         universe,
		BenchmarkTicker:  cfg.Market.BenchmarkTicker,
		VolatilityTicker: cfg.Market.VolatilityTicker,
		Gate: regime.NewGate(regime.Config{
			MALong:       cfg.Market.MALong,
			MAShort:      cfg.Market.MAShort,
			VolThreshold: cfg.Market.VolThreshold,
		}),
		Cache:  cache,
		Logger: logger.With("component", "simulator"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	started := time.Now()
	report, err := sim.Run(ctx, &p)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
	logger.Info("backtest complete",
		"elapsed", time.Since(started).Round(time.Millisecond),
		"finalValue", fmt.Sprintf("%.2f", report.FinalValue),
		"totalReturn", fmt.Sprintf("%.4f", report.TotalReturn),
		"trades", len(report.TradeLog),
	)

	fmt.Println(notifier.FormatBacktestReport(report))

	if *jsonOut != "" {
		raw, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("encoding report: %v", err)
		}
		if err := os.WriteFile(*jsonOut, raw, 0o644); err != nil {
			log.Fatalf("writing %s: %v", *jsonOut, err)
		}
		logger.Info("report written", "file", *jsonOut)
	}

	if *notify && cfg.Telegram.Enabled {
		tg := notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err := tg.SendWithRetry(ctx, notifier.FormatBacktestReport(report), 3); err != nil {
			logger.Error("telegram delivery failed", "err", err)
		}
	}
}
