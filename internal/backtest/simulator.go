package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"galileo/internal/domain"
	"galileo/internal/metrics"
	"galileo/internal/regime"
	"galileo/internal/signal"
)

// maHistorySlack is how far before the simulation start the benchmark and
// ticker history is fetched, in calendar days, so 200-period averages and
// ATR windows are warm on the first simulated date.
const maHistorySlack = 420

// Fetcher loads price history for many tickers at once. Per-ticker failures
// surface as exclusions, not errors.
type Fetcher interface {
	Fetch(ctx context.Context, tickers []string, start, end time.Time) (map[string]*domain.PriceSeries, []domain.ExcludedTicker, error)
}

// SimulatorConfig wires a Simulator's collaborators.
type SimulatorConfig struct {
	Fetcher          Fetcher
	Universe         []domain.Instrument
	BenchmarkTicker  string
	VolatilityTicker string
	Gate             *regime.Gate     // nil gets the default gate
	Detector         *signal.Detector // nil gets the default detector
	Cache            *ResultCache     // nil disables result caching
	Logger           *slog.Logger
}

// Simulator runs the point-in-time portfolio simulation: a single
// sequential pass over trading dates with selection, rebalancing, signal
// stops, and mark-to-market.
type Simulator struct {
	fetcher  Fetcher
	universe []domain.Instrument
	bench    string
	volTkr   string
	gate     *regime.Gate
	detector *signal.Detector
	cache    *ResultCache
	log      *slog.Logger
}

// NewSimulator creates a Simulator from the given wiring.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	gate := cfg.Gate
	if gate == nil {
		gate = regime.NewGate(regime.DefaultConfig())
	}
	detector := cfg.Detector
	if detector == nil {
		detector = signal.NewDetector(signal.DefaultConfig())
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default().With("component", "simulator")
	}
	return &Simulator{
		fetcher:  cfg.Fetcher,
		universe: cfg.Universe,
		bench:    cfg.BenchmarkTicker,
		volTkr:   cfg.VolatilityTicker,
		gate:     gate,
		detector: detector,
		cache:    cfg.Cache,
		log:      log,
	}
}

// Run executes one simulation for the given parameter set and returns its
// report. Run-level failures (invalid parameters, no eligible candidates)
// return typed errors and write nothing to the cache.
func (s *Simulator) Run(ctx context.Context, p *Params) (*domain.PerformanceReport, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		report, err := s.cache.Get(ctx, p)
		if err != nil {
			s.log.Warn("cache lookup failed", "err", err)
		} else if report != nil {
			s.log.Info("cache hit", "start", p.StartDate.Format("2006-01-02"), "end", p.EndDate.Format("2006-01-02"))
			return report, nil
		}
	}

	series, excluded, err := s.fetchAll(ctx, p)
	if err != nil {
		return nil, err
	}

	universeSet := make(map[string]struct{}, len(s.universe))
	for _, inst := range s.universe {
		universeSet[inst.Ticker] = struct{}{}
	}

	dates := tradingDates(series, universeSet, p.StartDate, p.EndDate)
	if len(dates) == 0 {
		return nil, fmt.Errorf("no trading dates in [%s, %s]: %w",
			p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"), domain.ErrNoData)
	}

	benchSeries := series[s.bench]
	volSeries := series[s.volTkr]
	if p.EnableMarketFilter && benchSeries == nil {
		s.log.Warn("benchmark series unavailable, market filter disabled", "benchmark", s.bench)
	}

	var (
		port          = domain.NewPortfolioState(p.InitialCapital)
		cost          = CostModel{Fee: p.TransactionFee, Slippage: p.Slippage}
		selector      = &Selector{MinObservations: p.minObservations()}
		lastClose     = make(map[string]float64)
		memory        = make(map[string]*signal.DayState)
		lastRebalance time.Time
		tradeLog      []domain.TradeRecord
		valueHistory  []domain.ValuePoint
		signals       []domain.SignalEvent
		totalCosts    float64
		cashDays      int
		prevValue     = p.InitialCapital
	)

	priceOf := func(ticker string) (float64, bool) {
		c, ok := lastClose[ticker]
		return c, ok
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Today's closes, with carry-forward for gapped tickers.
		todays := make(map[string]float64)
		for ticker, ps := range series {
			if bar, ok := ps.At(date); ok {
				lastClose[ticker] = bar.Close
				todays[ticker] = bar.Close
			}
		}

		// Defensive regime: freeze positions, book a zero return.
		if p.EnableMarketFilter && benchSeries != nil {
			state, gerr := s.gate.Evaluate(benchSeries, volSeries, date)
			switch {
			case errors.Is(gerr, domain.ErrInsufficientData):
				s.log.Debug("regime gate lacks history, staying invested", "date", date.Format("2006-01-02"))
			case gerr != nil:
				s.log.Warn("regime gate failed, staying invested", "date", date.Format("2006-01-02"), "err", gerr)
			case state.HoldCash:
				cashDays++
				valueHistory = append(valueHistory, domain.ValuePoint{Date: date, Value: prevValue})
				continue
			}
		}

		if ShouldRebalance(date, lastRebalance, p.RebalanceFrequency) {
			cohort, serr := selector.Select(ctx, s.universe, series, date, p.LookbackMonths, p.LagMonths, p.NumStocks)
			if serr != nil {
				return nil, serr
			}
			weights := Allocate(cohort.Entries, p.WeightMethod, func(t string) bool {
				_, ok := todays[t]
				return ok
			})
			if len(weights) > 0 {
				trades, costs := s.rebalanceInto(port, weights, todays, priceOf, cost, date)
				tradeLog = append(tradeLog, trades...)
				totalCosts += costs
			}
			lastRebalance = date
		}

		// Signal scan across universe tickers that traded today. Stops force
		// sells of held positions; breakouts are recorded only.
		for _, ticker := range sortedKeys(todays) {
			if _, ok := universeSet[ticker]; !ok {
				continue
			}
			events, state, derr := s.detector.Evaluate(series[ticker], date, memory[ticker])
			if derr != nil {
				continue
			}
			memory[ticker] = &state

			for _, ev := range events {
				signals = append(signals, ev)
				if !ev.Kind.ForcesSell() {
					continue
				}
				pos, held := port.Positions[ticker]
				if !held {
					continue
				}
				proceeds, c := cost.Sell(pos.Shares, todays[ticker])
				port.Cash += proceeds
				totalCosts += c
				delete(port.Positions, ticker)
				tradeLog = append(tradeLog, domain.TradeRecord{
					Date:   date,
					Action: domain.TradeSell,
					Ticker: ticker,
					Shares: pos.Shares,
					Price:  todays[ticker],
					Cost:   c,
				})
			}
		}

		value := port.Value(priceOf)
		valueHistory = append(valueHistory, domain.ValuePoint{Date: date, Value: value})
		prevValue = value
	}

	report := s.buildReport(p, dates, valueHistory, tradeLog, signals, excluded, totalCosts, cashDays, prevValue)

	if s.cache != nil {
		if err := s.cache.Put(ctx, p, report); err != nil {
			s.log.Warn("cache write failed", "err", err)
		}
	}
	return report, nil
}

// fetchAll prefetches universe, benchmark, and volatility history with
// enough lead time for selection windows and long moving averages.
func (s *Simulator) fetchAll(ctx context.Context, p *Params) (map[string]*domain.PriceSeries, []domain.ExcludedTicker, error) {
	selStart := p.StartDate.AddDate(0, -(p.LookbackMonths + p.LagMonths), 0)
	maStart := p.StartDate.AddDate(0, 0, -maHistorySlack)
	histStart := selStart
	if maStart.Before(histStart) {
		histStart = maStart
	}

	seen := make(map[string]struct{}, len(s.universe)+2)
	var tickers []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		tickers = append(tickers, t)
	}
	for _, inst := range s.universe {
		add(inst.Ticker)
	}
	add(s.bench)
	add(s.volTkr)

	return s.fetcher.Fetch(ctx, tickers, histStart, p.EndDate)
}

// rebalanceInto liquidates current holdings and buys the target weights
// from the resulting cash. Buys are sized from available cash so the
// balance never overdraws.
func (s *Simulator) rebalanceInto(port *domain.PortfolioState, weights domain.WeightVector, todays map[string]float64, priceOf func(string) (float64, bool), cost CostModel, date time.Time) ([]domain.TradeRecord, float64) {
	var (
		trades     []domain.TradeRecord
		totalCosts float64
	)

	for _, ticker := range sortedPositionTickers(port) {
		price, ok := priceOf(ticker)
		if !ok {
			continue
		}
		pos := port.Positions[ticker]
		proceeds, c := cost.Sell(pos.Shares, price)
		port.Cash += proceeds
		totalCosts += c
		delete(port.Positions, ticker)
		trades = append(trades, domain.TradeRecord{
			Date:   date,
			Action: domain.TradeSell,
			Ticker: ticker,
			Shares: pos.Shares,
			Price:  price,
			Cost:   c,
		})
	}

	investable := port.Cash
	for _, ticker := range sortedKeys(weights) {
		alloc := math.Min(investable*weights[ticker], port.Cash)
		price := todays[ticker]
		shares, c := cost.Buy(alloc, price)
		if shares <= 0 {
			continue
		}
		port.Cash -= alloc
		totalCosts += c
		port.Positions[ticker] = &domain.Position{
			Ticker:    ticker,
			Shares:    shares,
			CostBasis: alloc,
		}
		trades = append(trades, domain.TradeRecord{
			Date:   date,
			Action: domain.TradeBuy,
			Ticker: ticker,
			Shares: shares,
			Price:  price,
			Cost:   c,
		})
	}
	return trades, totalCosts
}

func (s *Simulator) buildReport(p *Params, dates []time.Time, valueHistory []domain.ValuePoint, tradeLog []domain.TradeRecord, signals []domain.SignalEvent, excluded []domain.ExcludedTicker, totalCosts float64, cashDays int, finalValue float64) *domain.PerformanceReport {
	values := make([]float64, len(valueHistory))
	for i, vp := range valueHistory {
		values[i] = vp.Value
	}
	returns := make([]float64, 0, len(values))
	prev := p.InitialCapital
	for _, v := range values {
		if prev > 0 {
			returns = append(returns, v/prev-1)
		}
		prev = v
	}

	first := dates[0]
	last := dates[len(dates)-1]
	elapsedDays := int(last.Sub(first).Hours() / 24)

	return &domain.PerformanceReport{
		StartDate:        first,
		EndDate:          last,
		InitialCapital:   p.InitialCapital,
		FinalValue:       finalValue,
		TotalReturn:      finalValue/p.InitialCapital - 1,
		AnnualizedReturn: metrics.CAGR(p.InitialCapital, finalValue, elapsedDays),
		MaxDrawdown:      metrics.MaxDrawdown(values),
		SharpeRatio:      metrics.SharpeRatio(returns, p.RiskFreeRate, metrics.TradingDaysPerYear),
		WinRate:          metrics.WinRate(returns),
		CashHoldingDays:  cashDays,
		TotalCosts:       totalCosts,
		TradeLog:         tradeLog,
		ValueHistory:     valueHistory,
		Signals:          signals,
		Excluded:         excluded,
	}
}

// tradingDates returns the sorted union of universe ticker dates inside
// [start, end].
func tradingDates(series map[string]*domain.PriceSeries, universe map[string]struct{}, start, end time.Time) []time.Time {
	set := make(map[time.Time]struct{})
	for ticker, ps := range series {
		if _, ok := universe[ticker]; !ok {
			continue
		}
		for _, b := range ps.Bars {
			if !b.Date.Before(start) && !b.Date.After(end) {
				set[b.Date] = struct{}{}
			}
		}
	}

	dates := make([]time.Time, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedPositionTickers(port *domain.PortfolioState) []string {
	return sortedKeys(port.Positions)
}
