package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"galileo/internal/domain"
)

// Selector ranks universe tickers by trailing return inside a lagged
// evaluation window, excluding anything the window might leak future prices
// into.
type Selector struct {
	// MinObservations is the minimum number of daily rows a ticker needs
	// inside the window to be ranked. Zero means DefaultMinObservations.
	MinObservations int
}

// Select builds the cohort for selectionDate. The evaluation window is
// [selectionDate − lag − lookback, selectionDate − lag] in calendar months;
// no price after the window end influences the ranking. Tickers with too
// little history inside the window are skipped silently. It fails with
// ErrNoEligibleCandidates only when zero tickers qualify.
func (s *Selector) Select(ctx context.Context, universe []domain.Instrument, series map[string]*domain.PriceSeries, selectionDate time.Time, lookbackMonths, lagMonths, topN int) (domain.Cohort, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cohort{}, err
	}

	windowEnd := selectionDate.AddDate(0, -lagMonths, 0)
	windowStart := windowEnd.AddDate(0, -lookbackMonths, 0)

	minObs := s.MinObservations
	if minObs <= 0 {
		minObs = DefaultMinObservations
	}

	var entries []domain.CohortEntry
	for _, inst := range universe {
		ps, ok := series[inst.Ticker]
		if !ok {
			continue
		}
		window := ps.Window(windowStart, windowEnd)
		if len(window) < minObs {
			continue
		}
		first := window[0].Close
		last := window[len(window)-1].Close
		if first <= 0 {
			continue
		}
		entries = append(entries, domain.CohortEntry{
			Ticker:         inst.Ticker,
			TrailingReturn: (last - first) / first,
			MarketCap:      inst.MarketCap,
		})
	}

	if len(entries) == 0 {
		return domain.Cohort{}, fmt.Errorf("selection on %s: %w",
			selectionDate.Format("2006-01-02"), domain.ErrNoEligibleCandidates)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TrailingReturn != entries[j].TrailingReturn {
			return entries[i].TrailingReturn > entries[j].TrailingReturn
		}
		return entries[i].Ticker < entries[j].Ticker
	})

	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Cohort{SelectionDate: selectionDate, Entries: entries}, nil
}
