// Package provider fetches daily price history for tickers, with a
// Parquet-backed read-through cache and a concurrent prefetcher.
package provider

import (
	"context"
	"fmt"
	"time"

	"galileo/internal/domain"
)

// PriceProvider returns daily price history for a single ticker.
type PriceProvider interface {
	// GetHistory returns the daily bars for ticker within [start, end],
	// sorted by date. It returns an error wrapping domain.ErrNoData when
	// the ticker has no bars in the range.
	GetHistory(ctx context.Context, ticker string, start, end time.Time) (*domain.PriceSeries, error)
}

// Static is an in-memory PriceProvider backed by fixed series. It is used
// in tests and for replaying saved datasets.
type Static struct {
	Series map[string]*domain.PriceSeries
}

// Compile-time interface check.
var _ PriceProvider = (*Static)(nil)

// NewStatic creates a Static provider from the given series, keyed by ticker.
func NewStatic(series ...*domain.PriceSeries) *Static {
	m := make(map[string]*domain.PriceSeries, len(series))
	for _, s := range series {
		m[s.Ticker] = s
	}
	return &Static{Series: m}
}

// GetHistory returns the bars for ticker restricted to [start, end].
func (p *Static) GetHistory(_ context.Context, ticker string, start, end time.Time) (*domain.PriceSeries, error) {
	s, ok := p.Series[ticker]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ticker, domain.ErrNoData)
	}

	var bars []domain.Bar
	for _, b := range s.Bars {
		if !b.Date.Before(start) && !b.Date.After(end) {
			bars = append(bars, b)
		}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, domain.ErrNoData)
	}
	return &domain.PriceSeries{Ticker: ticker, Bars: bars}, nil
}
