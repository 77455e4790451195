package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"galileo/internal/domain"
	"galileo/internal/util"
)

// Prefetcher fetches history for many tickers concurrently. Per-ticker
// failures become exclusions rather than aborting the whole run.
type Prefetcher struct {
	provider   PriceProvider
	maxWorkers int
	maxRetries int
	retryDelay time.Duration
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewPrefetcher creates a Prefetcher over the given provider. rateLimitPerMin
// of zero disables rate limiting.
func NewPrefetcher(p PriceProvider, maxWorkers, maxRetries int, retryDelay time.Duration, rateLimitPerMin int) *Prefetcher {
	var limiter *util.RateLimiter
	if rateLimitPerMin > 0 {
		limiter = util.NewRateLimiter(rateLimitPerMin)
	}
	return &Prefetcher{
		provider:   p,
		maxWorkers: max(maxWorkers, 1),
		maxRetries: max(maxRetries, 1),
		retryDelay: retryDelay,
		limiter:    limiter,
		log:        slog.Default().With("component", "prefetcher"),
	}
}

// Fetch retrieves history for all tickers within [start, end]. It returns
// the series that loaded successfully, keyed by ticker, plus the tickers
// that were excluded and why. The only error returned is context
// cancellation.
func (f *Prefetcher) Fetch(ctx context.Context, tickers []string, start, end time.Time) (map[string]*domain.PriceSeries, []domain.ExcludedTicker, error) {
	var (
		mu       sync.Mutex
		series   = make(map[string]*domain.PriceSeries, len(tickers))
		excluded []domain.ExcludedTicker
	)

	tickerCh := make(chan string, len(tickers))
	for _, t := range tickers {
		tickerCh <- t
	}
	close(tickerCh)

	var wg sync.WaitGroup
	workers := min(f.maxWorkers, len(tickers))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerCh {
				if ctx.Err() != nil {
					return
				}

				s, err := f.fetchOne(ctx, ticker, start, end)

				mu.Lock()
				if err != nil {
					f.log.Warn("ticker excluded", "ticker", ticker, "err", err)
					excluded = append(excluded, domain.ExcludedTicker{
						Ticker: ticker,
						Reason: fmt.Sprintf("fetch failed: %v", err),
					})
				} else {
					series[ticker] = s
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	sort.Slice(excluded, func(i, j int) bool { return excluded[i].Ticker < excluded[j].Ticker })

	f.log.Info("prefetch complete",
		"requested", len(tickers),
		"loaded", len(series),
		"excluded", len(excluded),
	)
	return series, excluded, nil
}

func (f *Prefetcher) fetchOne(ctx context.Context, ticker string, start, end time.Time) (*domain.PriceSeries, error) {
	var s *domain.PriceSeries
	err := util.Retry(ctx, f.maxRetries, f.retryDelay, func() error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var err error
		s, err = f.provider.GetHistory(ctx, ticker, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
