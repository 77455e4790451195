package backtest

import (
	"galileo/internal/domain"
)

// Allocate produces target weights for the cohort entries. Only tickers for
// which hasPrice reports true are eligible; the rest are dropped and the
// surviving weights renormalize to sum 1. An empty vector means nothing is
// tradable today.
func Allocate(entries []domain.CohortEntry, method WeightMethod, hasPrice func(ticker string) bool) domain.WeightVector {
	var eligible []domain.CohortEntry
	for _, e := range entries {
		if hasPrice(e.Ticker) {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		return domain.WeightVector{}
	}

	raw := make(domain.WeightVector, len(eligible))
	switch method {
	case WeightMarketCap:
		for _, e := range eligible {
			if e.MarketCap > 0 {
				raw[e.Ticker] = e.MarketCap
			}
		}
	case WeightMomentum:
		for _, e := range eligible {
			if e.TrailingReturn > 0 {
				raw[e.Ticker] = e.TrailingReturn
			}
		}
	}

	// equal weighting, and the fallback when the chosen method produced no
	// positive contributions.
	if raw.Sum() <= 0 {
		raw = make(domain.WeightVector, len(eligible))
		for _, e := range eligible {
			raw[e.Ticker] = 1
		}
	}

	total := raw.Sum()
	weights := make(domain.WeightVector, len(raw))
	for ticker, v := range raw {
		weights[ticker] = v / total
	}
	return weights
}
