// Package store provides on-disk persistence for daily bar data and for
// cached backtest results.
package store

import (
	"context"
	"time"

	"galileo/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with any existing data.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end].
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bar data.
	ListSymbols(ctx context.Context) ([]string, error)
}

// CachedResult is a previously computed backtest report together with the
// date it was produced on.
type CachedResult struct {
	Fingerprint string
	RunDate     string // YYYY-MM-DD
	Report      *domain.PerformanceReport
}

// ResultStore persists finished backtest reports keyed by parameter
// fingerprint. Freshness policy (whether a stored result is still usable)
// is the caller's concern.
type ResultStore interface {
	// GetResult returns the stored result for a fingerprint, or nil when
	// no result has been stored.
	GetResult(ctx context.Context, fingerprint string) (*CachedResult, error)

	// PutResult inserts or replaces the stored result for a fingerprint.
	PutResult(ctx context.Context, res *CachedResult) error
}
