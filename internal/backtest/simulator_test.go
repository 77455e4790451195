package backtest

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"galileo/internal/domain"
)

// staticFetcher serves preset series and counts Fetch calls.
type staticFetcher struct {
	series   map[string]*domain.PriceSeries
	excluded []domain.ExcludedTicker
	calls    int
}

var _ Fetcher = (*staticFetcher)(nil)

func (f *staticFetcher) Fetch(_ context.Context, _ []string, _, _ time.Time) (map[string]*domain.PriceSeries, []domain.ExcludedTicker, error) {
	f.calls++
	return f.series, f.excluded, nil
}

func frictionlessParams(start, end time.Time) *Params {
	return &Params{
		NumStocks:          2,
		RebalanceFrequency: Daily,
		WeightMethod:       WeightEqual,
		InitialCapital:     10000,
		LookbackMonths:     1,
		MinObservations:    20,
		StartDate:          start,
		EndDate:            end,
	}
}

func TestRunEqualWeightDailyRebalance(t *testing.T) {
	// Two tickers, equal weight, daily rebalancing, zero costs. One ticker
	// returns +10% then −10%, the other is flat: 10000 → 10500 → 9975.
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	jan31 := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	feb2 := time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC)

	mover := append(flat(100, 31), 110, 99)
	series := map[string]*domain.PriceSeries{
		"AAA": dailySeries("AAA", jan1, mover),
		"BBB": dailySeries("BBB", jan1, flat(100, 33)),
	}
	sim := NewSimulator(SimulatorConfig{
		Fetcher:  &staticFetcher{series: series},
		Universe: []domain.Instrument{{Ticker: "AAA"}, {Ticker: "BBB"}},
	})

	report, err := sim.Run(context.Background(), frictionlessParams(jan31, feb2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantValues := []float64{10000, 10500, 9975}
	if len(report.ValueHistory) != len(wantValues) {
		t.Fatalf("value history has %d points, want %d", len(report.ValueHistory), len(wantValues))
	}
	for i, want := range wantValues {
		if got := report.ValueHistory[i].Value; math.Abs(got-want) > 1e-6 {
			t.Errorf("value[%d] = %v, want %v", i, got, want)
		}
	}
	if math.Abs(report.FinalValue-9975) > 1e-6 {
		t.Errorf("final value = %v, want 9975", report.FinalValue)
	}
	if math.Abs(report.TotalReturn-(-0.0025)) > 1e-9 {
		t.Errorf("total return = %v, want -0.0025", report.TotalReturn)
	}
	if report.TotalCosts != 0 {
		t.Errorf("total costs = %v, want 0 without fees", report.TotalCosts)
	}
}

func TestRunAppliesTransactionCosts(t *testing.T) {
	// Single $10,000 buy at $100 with fee 0.002 and slippage 0.001:
	// executed price 100.1, shares = 10000/(100.1×1.002).
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	simDate := jan1.AddDate(0, 0, 39)

	series := map[string]*domain.PriceSeries{
		"CCC": dailySeries("CCC", jan1, flat(100, 40)),
	}
	sim := NewSimulator(SimulatorConfig{
		Fetcher:  &staticFetcher{series: series},
		Universe: []domain.Instrument{{Ticker: "CCC"}},
	})

	p := &Params{
		NumStocks:          1,
		RebalanceFrequency: Monthly,
		WeightMethod:       WeightEqual,
		InitialCapital:     10000,
		TransactionFee:     0.002,
		Slippage:           0.001,
		LookbackMonths:     1,
		MinObservations:    20,
		StartDate:          simDate,
		EndDate:            simDate,
	}
	report, err := sim.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.TradeLog) != 1 {
		t.Fatalf("trade log has %d entries, want 1 buy", len(report.TradeLog))
	}
	buy := report.TradeLog[0]
	wantShares := 10000 / (100.1 * 1.002)
	if math.Abs(buy.Shares-wantShares) > 1e-6 {
		t.Errorf("shares = %v, want %v", buy.Shares, wantShares)
	}
	wantCost := 10000 - wantShares*100
	if math.Abs(report.TotalCosts-wantCost) > 1e-6 {
		t.Errorf("total costs = %v, want %v", report.TotalCosts, wantCost)
	}
	if math.Abs(report.FinalValue-wantShares*100) > 1e-6 {
		t.Errorf("final value = %v, want %v (cost drag only)", report.FinalValue, wantShares*100)
	}
}

func TestRunSameDayCacheHit(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	jan31 := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	feb2 := time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC)

	series := map[string]*domain.PriceSeries{
		"AAA": dailySeries("AAA", jan1, append(flat(100, 31), 110, 99)),
		"BBB": dailySeries("BBB", jan1, flat(100, 33)),
	}
	fetcher := &staticFetcher{series: series}
	sim := NewSimulator(SimulatorConfig{
		Fetcher:  fetcher,
		Universe: []domain.Instrument{{Ticker: "AAA"}, {Ticker: "BBB"}},
		Cache:    NewResultCache(newMemoryResultStore()),
	})

	p := frictionlessParams(jan31, feb2)
	first, err := sim.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := sim.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if fetcher.calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (second run served from cache)", fetcher.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached report differs from computed report")
	}
}

func TestRunHoldsCashInDefensiveRegime(t *testing.T) {
	jan1 := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	benchCloses := append(flat(100, 250), 50, 50, 50)
	bench := dailySeries("SPY", jan1, benchCloses)

	// Universe dates align with the last three benchmark dates.
	simStart := bench.Bars[250].Date
	simEnd := bench.Bars[252].Date
	universeStart := simStart.AddDate(0, 0, -40)

	series := map[string]*domain.PriceSeries{
		"AAA": dailySeries("AAA", universeStart, flat(100, 43)),
		"SPY": bench,
	}
	sim := NewSimulator(SimulatorConfig{
		Fetcher:         &staticFetcher{series: series},
		Universe:        []domain.Instrument{{Ticker: "AAA"}},
		BenchmarkTicker: "SPY",
	})

	p := frictionlessParams(simStart, simEnd)
	p.NumStocks = 1
	p.EnableMarketFilter = true
	report, err := sim.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.CashHoldingDays != 3 {
		t.Errorf("cash holding days = %d, want 3", report.CashHoldingDays)
	}
	if len(report.TradeLog) != 0 {
		t.Errorf("trade log has %d entries, want 0 while defensive", len(report.TradeLog))
	}
	if report.FinalValue != 10000 {
		t.Errorf("final value = %v, want untouched capital", report.FinalValue)
	}
	for i, vp := range report.ValueHistory {
		if vp.Value != 10000 {
			t.Errorf("value[%d] = %v, want frozen 10000", i, vp.Value)
		}
	}
}

func TestRunHardStopForcesSell(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	closes := append(flat(100, 70), 90)
	series := map[string]*domain.PriceSeries{
		"DDD": dailySeries("DDD", jan1, closes),
	}
	sim := NewSimulator(SimulatorConfig{
		Fetcher:  &staticFetcher{series: series},
		Universe: []domain.Instrument{{Ticker: "DDD"}},
	})

	simStart := jan1.AddDate(0, 0, 69)
	simEnd := jan1.AddDate(0, 0, 70)
	p := frictionlessParams(simStart, simEnd)
	p.NumStocks = 1
	p.RebalanceFrequency = Monthly

	report, err := sim.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var hardStops, sells int
	for _, ev := range report.Signals {
		if ev.Kind == domain.SignalHardStop {
			hardStops++
		}
	}
	for _, tr := range report.TradeLog {
		if tr.Action == domain.TradeSell {
			sells++
		}
	}
	if hardStops != 1 {
		t.Fatalf("hard stops = %d, want 1", hardStops)
	}
	if sells != 1 {
		t.Fatalf("sells = %d, want 1 forced liquidation", sells)
	}
	// Fully in cash after the stop: 10000 held shares marked down 10%.
	if math.Abs(report.FinalValue-9000) > 1e-6 {
		t.Errorf("final value = %v, want 9000", report.FinalValue)
	}
}

func TestRunInvalidParameters(t *testing.T) {
	fetcher := &staticFetcher{}
	sim := NewSimulator(SimulatorConfig{Fetcher: fetcher})

	p := frictionlessParams(time.Now(), time.Now())
	p.NumStocks = 0
	if _, err := sim.Run(context.Background(), p); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Fatalf("err = %v, want ErrInvalidParameters", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0 on invalid params", fetcher.calls)
	}
}

func TestRunNoEligibleCandidates(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	series := map[string]*domain.PriceSeries{
		"THIN": dailySeries("THIN", jan1, flat(100, 5)),
	}
	sim := NewSimulator(SimulatorConfig{
		Fetcher:  &staticFetcher{series: series},
		Universe: []domain.Instrument{{Ticker: "THIN"}},
	})

	p := frictionlessParams(jan1.AddDate(0, 0, 4), jan1.AddDate(0, 0, 4))
	if _, err := sim.Run(context.Background(), p); !errors.Is(err, domain.ErrNoEligibleCandidates) {
		t.Fatalf("err = %v, want ErrNoEligibleCandidates", err)
	}
}

func TestRunReportsExcludedTickers(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	series := map[string]*domain.PriceSeries{
		"AAA": dailySeries("AAA", jan1, flat(100, 33)),
	}
	excluded := []domain.ExcludedTicker{{Ticker: "GHOST", Reason: "fetch failed: no data"}}
	sim := NewSimulator(SimulatorConfig{
		Fetcher:  &staticFetcher{series: series, excluded: excluded},
		Universe: []domain.Instrument{{Ticker: "AAA"}, {Ticker: "GHOST"}},
	})

	p := frictionlessParams(jan1.AddDate(0, 0, 31), jan1.AddDate(0, 0, 32))
	p.NumStocks = 1
	report, err := sim.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Excluded) != 1 || report.Excluded[0].Ticker != "GHOST" {
		t.Errorf("excluded = %v, want GHOST passthrough", report.Excluded)
	}
}
