package backtest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"galileo/internal/domain"
	"galileo/internal/store"
)

// Fingerprint derives a stable key from the full parameter set. The params
// are round-tripped through a map so the hash is independent of field order.
func Fingerprint(p *Params) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}

	// Re-encoding through a map sorts the keys canonically.
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", fmt.Errorf("canonicalize params: %w", err)
	}
	canonical, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("canonicalize params: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16], nil
}

// ResultCache caches finished reports keyed by parameter fingerprint.
// Entries are valid only on the calendar day they were written; older
// entries read as absent.
type ResultCache struct {
	store store.ResultStore
	now   func() time.Time
}

// NewResultCache creates a ResultCache over the given store.
func NewResultCache(s store.ResultStore) *ResultCache {
	return &ResultCache{store: s, now: time.Now}
}

// Get returns the cached report for the params, or nil when absent or stale.
func (c *ResultCache) Get(ctx context.Context, p *Params) (*domain.PerformanceReport, error) {
	fp, err := Fingerprint(p)
	if err != nil {
		return nil, err
	}
	res, err := c.store.GetResult(ctx, fp)
	if err != nil {
		return nil, err
	}
	if res == nil || res.RunDate != c.today() {
		return nil, nil
	}
	return res.Report, nil
}

// Put stores the report under the params' fingerprint, stamped with today.
func (c *ResultCache) Put(ctx context.Context, p *Params, report *domain.PerformanceReport) error {
	fp, err := Fingerprint(p)
	if err != nil {
		return err
	}
	return c.store.PutResult(ctx, &store.CachedResult{
		Fingerprint: fp,
		RunDate:     c.today(),
		Report:      report,
	})
}

func (c *ResultCache) today() string {
	return c.now().Format("2006-01-02")
}
