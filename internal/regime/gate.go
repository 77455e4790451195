// Package regime implements the market regime gate: a benchmark index
// checked against its long and short moving averages, combined with a
// volatility index threshold, deciding a global invest / hold-cash state.
package regime

import (
	"fmt"
	"time"

	"galileo/internal/domain"
	"galileo/internal/signal"
)

// Config holds the gate thresholds.
type Config struct {
	MALong       int     // long benchmark average, default 200
	MAShort      int     // short benchmark average, default 120
	VolThreshold float64 // volatility index level above which the short break matters
}

// DefaultConfig returns the production gate: MA200/MA120, threshold 20.
func DefaultConfig() Config {
	return Config{MALong: 200, MAShort: 120, VolThreshold: 20}
}

// Gate evaluates the regime from benchmark and volatility series.
type Gate struct {
	cfg Config
}

// NewGate creates a Gate with the given thresholds.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Evaluate decides the regime as of the given date using only observations
// on or before it. hold_cash is true when the benchmark closes below its
// long average, or below its short average while volatility exceeds the
// threshold. Returns ErrInsufficientData when the benchmark has fewer than
// MALong observations.
func (g *Gate) Evaluate(bench, vol *domain.PriceSeries, asOf time.Time) (domain.RegimeState, error) {
	benchBars := bench.Window(time.Time{}, asOf)
	if len(benchBars) < g.cfg.MALong {
		return domain.RegimeState{}, fmt.Errorf(
			"benchmark %s: %d observations, need %d: %w",
			bench.Ticker, len(benchBars), g.cfg.MALong, domain.ErrInsufficientData)
	}

	closes := make([]float64, len(benchBars))
	for i, b := range benchBars {
		closes[i] = b.Close
	}

	maLong, err := signal.SMA(closes, g.cfg.MALong)
	if err != nil {
		return domain.RegimeState{}, fmt.Errorf("benchmark MA%d: %w", g.cfg.MALong, err)
	}
	maShort, err := signal.SMA(closes, g.cfg.MAShort)
	if err != nil {
		return domain.RegimeState{}, fmt.Errorf("benchmark MA%d: %w", g.cfg.MAShort, err)
	}

	price := benchBars[len(benchBars)-1].Close

	// A missing volatility observation disables the short-average leg only;
	// the long-average check still decides the regime.
	var volClose float64
	if vol != nil {
		if volBar, ok := vol.LastOn(asOf); ok {
			volClose = volBar.Close
		}
	}

	state := domain.RegimeState{
		BenchmarkPrice: price,
		MALong:         maLong,
		MAShort:        maShort,
		Volatility:     volClose,
		VolThreshold:   g.cfg.VolThreshold,
		AsOf:           asOf,
	}

	switch {
	case price < maLong:
		state.HoldCash = true
		state.Reason = fmt.Sprintf("benchmark %.2f below MA%d %.2f", price, g.cfg.MALong, maLong)
	case price < maShort && volClose > g.cfg.VolThreshold:
		state.HoldCash = true
		state.Reason = fmt.Sprintf("benchmark %.2f below MA%d %.2f with volatility %.2f above %.2f",
			price, g.cfg.MAShort, maShort, volClose, g.cfg.VolThreshold)
	default:
		state.Reason = "benchmark above trend"
	}

	return state, nil
}
