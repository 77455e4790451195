package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"galileo/internal/domain"
)

func dailySeries(ticker string, start time.Time, closes []float64) *domain.PriceSeries {
	bars := make([]domain.Bar, len(closes))
	d := start
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol: ticker,
			Date:   d,
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
		d = d.AddDate(0, 0, 1)
	}
	return &domain.PriceSeries{Ticker: ticker, Bars: bars}
}

// ramp produces n closes moving linearly from first to last.
func ramp(first, last float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = first + (last-first)*float64(i)/float64(n-1)
	}
	return out
}

func flat(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestSelectRanksByTrailingReturn(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	selection := start.AddDate(0, 2, 0)

	universe := []domain.Instrument{
		{Ticker: "SLOW"}, {Ticker: "FAST"}, {Ticker: "DOWN"},
	}
	series := map[string]*domain.PriceSeries{
		"SLOW": dailySeries("SLOW", start, ramp(100, 110, 61)),
		"FAST": dailySeries("FAST", start, ramp(100, 150, 61)),
		"DOWN": dailySeries("DOWN", start, ramp(100, 80, 61)),
	}

	sel := &Selector{MinObservations: 20}
	cohort, err := sel.Select(context.Background(), universe, series, selection, 2, 0, 3)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	want := []string{"FAST", "SLOW", "DOWN"}
	got := cohort.Tickers()
	if len(got) != len(want) {
		t.Fatalf("cohort = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d = %s, want %s", i+1, got[i], want[i])
		}
		if cohort.Entries[i].Rank != i+1 {
			t.Errorf("entry %s rank = %d, want %d", got[i], cohort.Entries[i].Rank, i+1)
		}
	}
}

func TestSelectTiesBreakLexically(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	selection := start.AddDate(0, 2, 0)

	universe := []domain.Instrument{{Ticker: "ZZZ"}, {Ticker: "AAA"}}
	series := map[string]*domain.PriceSeries{
		"ZZZ": dailySeries("ZZZ", start, flat(100, 61)),
		"AAA": dailySeries("AAA", start, flat(100, 61)),
	}

	sel := &Selector{MinObservations: 20}
	cohort, err := sel.Select(context.Background(), universe, series, selection, 2, 0, 2)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := cohort.Tickers(); got[0] != "AAA" || got[1] != "ZZZ" {
		t.Errorf("tie order = %v, want [AAA ZZZ]", got)
	}
}

func TestSelectTruncatesToTopN(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	selection := start.AddDate(0, 2, 0)

	universe := []domain.Instrument{{Ticker: "AAA"}, {Ticker: "BBB"}, {Ticker: "CCC"}}
	series := map[string]*domain.PriceSeries{
		"AAA": dailySeries("AAA", start, ramp(100, 130, 61)),
		"BBB": dailySeries("BBB", start, ramp(100, 120, 61)),
		"CCC": dailySeries("CCC", start, ramp(100, 110, 61)),
	}

	sel := &Selector{MinObservations: 20}
	cohort, err := sel.Select(context.Background(), universe, series, selection, 2, 0, 2)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := cohort.Tickers(); len(got) != 2 || got[0] != "AAA" || got[1] != "BBB" {
		t.Errorf("cohort = %v, want top 2 [AAA BBB]", got)
	}
}

func TestSelectExcludesThinHistory(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	selection := start.AddDate(0, 2, 0)

	universe := []domain.Instrument{{Ticker: "FULL"}, {Ticker: "THIN"}}
	series := map[string]*domain.PriceSeries{
		"FULL": dailySeries("FULL", start, flat(100, 61)),
		// Listed mid-window: only 10 rows inside it.
		"THIN": dailySeries("THIN", selection.AddDate(0, 0, -9), flat(100, 10)),
	}

	sel := &Selector{MinObservations: 20}
	cohort, err := sel.Select(context.Background(), universe, series, selection, 2, 0, 5)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := cohort.Tickers(); len(got) != 1 || got[0] != "FULL" {
		t.Errorf("cohort = %v, want [FULL] with THIN excluded silently", got)
	}
}

func TestSelectNoEligibleCandidates(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	universe := []domain.Instrument{{Ticker: "THIN"}}
	series := map[string]*domain.PriceSeries{
		"THIN": dailySeries("THIN", start, flat(100, 5)),
	}

	sel := &Selector{MinObservations: 20}
	_, err := sel.Select(context.Background(), universe, series, start.AddDate(0, 2, 0), 2, 0, 5)
	if !errors.Is(err, domain.ErrNoEligibleCandidates) {
		t.Fatalf("err = %v, want ErrNoEligibleCandidates", err)
	}
}

func TestSelectIgnoresPricesAfterWindow(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	selection := start.AddDate(0, 3, 0)

	// One-month lag: the window is [selection−3mo, selection−1mo].
	base := map[string]*domain.PriceSeries{
		"AAA": dailySeries("AAA", start, ramp(100, 120, 91)),
		"BBB": dailySeries("BBB", start, ramp(100, 110, 91)),
	}
	universe := []domain.Instrument{{Ticker: "AAA"}, {Ticker: "BBB"}}

	sel := &Selector{MinObservations: 20}
	before, err := sel.Select(context.Background(), universe, base, selection, 2, 1, 2)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	// Mutate every close after the window end. The ranking must not move.
	windowEnd := selection.AddDate(0, -1, 0)
	tampered := make(map[string]*domain.PriceSeries, len(base))
	for ticker, ps := range base {
		bars := make([]domain.Bar, len(ps.Bars))
		copy(bars, ps.Bars)
		for i := range bars {
			if bars[i].Date.After(windowEnd) {
				bars[i].Close *= 10
				bars[i].High *= 10
				bars[i].Low *= 10
			}
		}
		tampered[ticker] = &domain.PriceSeries{Ticker: ticker, Bars: bars}
	}

	after, err := sel.Select(context.Background(), universe, tampered, selection, 2, 1, 2)
	if err != nil {
		t.Fatalf("Select on tampered series: %v", err)
	}

	if len(before.Entries) != len(after.Entries) {
		t.Fatalf("cohort sizes differ: %d vs %d", len(before.Entries), len(after.Entries))
	}
	for i := range before.Entries {
		if before.Entries[i] != after.Entries[i] {
			t.Errorf("entry %d changed: %+v vs %+v", i, before.Entries[i], after.Entries[i])
		}
	}
}
