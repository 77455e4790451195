package provider

import (
	"context"
	"log/slog"
	"time"

	"galileo/internal/domain"
	"galileo/internal/store"
)

// coverageSlack absorbs weekends and holidays when judging whether cached
// bars span a requested range.
const coverageSlack = 7 * 24 * time.Hour

// Compile-time interface check.
var _ PriceProvider = (*Cached)(nil)

// Cached is a read-through cache in front of another PriceProvider. Bars
// are served from the store when they cover the requested range; otherwise
// the remote provider is consulted and the result written back.
type Cached struct {
	remote PriceProvider
	bars   store.BarStore
	log    *slog.Logger
}

// NewCached wraps remote with a read-through cache over the given bar store.
func NewCached(remote PriceProvider, bars store.BarStore) *Cached {
	return &Cached{
		remote: remote,
		bars:   bars,
		log:    slog.Default().With("component", "provider-cache"),
	}
}

// GetHistory returns bars for ticker within [start, end], preferring the
// local store over the remote provider.
func (p *Cached) GetHistory(ctx context.Context, ticker string, start, end time.Time) (*domain.PriceSeries, error) {
	cached, err := p.bars.ReadBars(ctx, ticker, start, end)
	if err == nil && covers(cached, start, end) {
		return &domain.PriceSeries{Ticker: ticker, Bars: cached}, nil
	}

	series, err := p.remote.GetHistory(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	if werr := p.bars.WriteBars(ctx, series.Bars); werr != nil {
		// A write failure must not fail the read path.
		p.log.Warn("writing bars to cache failed", "ticker", ticker, "err", werr)
	}
	return series, nil
}

// covers reports whether the cached bars plausibly span [start, end]. The
// endpoints only need to fall within coverageSlack of the requested bounds
// since markets close on weekends and holidays.
func covers(bars []domain.Bar, start, end time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	first := bars[0].Date
	last := bars[len(bars)-1].Date
	if first.Sub(start) > coverageSlack {
		return false
	}
	if end.Sub(last) > coverageSlack {
		return false
	}
	return true
}
