package signal

import (
	"fmt"
	"time"

	"galileo/internal/domain"
)

// Config holds the detector's indicator periods and thresholds.
type Config struct {
	MAFast          int     // trailing-stop reference average
	MASlow          int     // hard-stop crossover average
	ATRPeriod       int
	BufferFloor     float64 // minimum buffer below the fast average, fraction
	ATRBufferFactor float64 // buffer contribution per unit of ATR%
	BreakoutMonths  int     // trailing breakout window
	BreakoutMinBars int     // minimum bars inside the breakout window
}

// DefaultConfig returns the production thresholds: MA20 trailing stop with a
// max(1%, 0.5×ATR14%) buffer, MA60 hard stop, 3-month breakout.
func DefaultConfig() Config {
	return Config{
		MAFast:          20,
		MASlow:          60,
		ATRPeriod:       14,
		BufferFloor:     0.01,
		ATRBufferFactor: 0.5,
		BreakoutMonths:  3,
		BreakoutMinBars: 10,
	}
}

// DayState is the one-step memory the engine carries across the simulated
// date loop for each ticker. It is JSON-serializable so a stored snapshot
// reconstructs the exact same evaluation as a live pass.
type DayState struct {
	Date        time.Time `json:"date"`
	Close       float64   `json:"close"`
	MAFast      float64   `json:"ma_fast"`
	MASlow      float64   `json:"ma_slow"`
	BelowBuffer bool      `json:"below_buffer"` // close was below MAFast minus buffer
	AboveSlowMA bool      `json:"above_slow_ma"`
	Valid       bool      `json:"valid"` // both averages were computable
}

// Detector evaluates the three exit/entry triggers for one ticker at a time.
// It is stateless across runs; all state flows through DayState.
type Detector struct {
	cfg Config
}

// NewDetector creates a Detector with the given thresholds.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Evaluate computes signal events for the ticker on asOf, which must be a
// trading date present in the series. prev is the previous available
// trading day's derived state; when prev is nil or invalid the trailing-stop
// and hard-stop checks are skipped as insufficient history rather than
// recomputed through a different path. The returned DayState is the memory
// for the next evaluation.
func (d *Detector) Evaluate(series *domain.PriceSeries, asOf time.Time, prev *DayState) ([]domain.SignalEvent, DayState, error) {
	today, ok := series.At(asOf)
	if !ok {
		return nil, DayState{}, fmt.Errorf("%s on %s: %w",
			series.Ticker, asOf.Format("2006-01-02"), domain.ErrNoData)
	}

	// All bars up to and including asOf.
	hist := series.Window(time.Time{}, asOf)
	cls := closes(hist)

	state := DayState{Date: today.Date, Close: today.Close}

	maFast, errFast := SMA(cls, d.cfg.MAFast)
	maSlow, errSlow := SMA(cls, d.cfg.MASlow)
	if errFast == nil && errSlow == nil {
		state.MAFast = maFast
		state.MASlow = maSlow
		state.AboveSlowMA = today.Close >= maSlow
		state.BelowBuffer = today.Close < maFast*(1-d.buffer(hist, today.Close))
		state.Valid = true
	}

	var events []domain.SignalEvent

	if state.Valid && prev != nil && prev.Valid {
		// Hard stop: prior close at or above its slow average, today below.
		if prev.AboveSlowMA && today.Close < maSlow {
			events = append(events, domain.SignalEvent{
				Kind:      domain.SignalHardStop,
				Ticker:    series.Ticker,
				Date:      today.Date,
				Price:     today.Close,
				Reference: maSlow,
				Magnitude: (today.Close - maSlow) / maSlow,
			})
		}

		// Trailing stop: below-buffer today and yesterday, with the fast
		// average itself flat or declining.
		declining := prev.MAFast > 0 && maFast-prev.MAFast <= 0
		if state.BelowBuffer && prev.BelowBuffer && declining {
			events = append(events, domain.SignalEvent{
				Kind:      domain.SignalTrailingStop,
				Ticker:    series.Ticker,
				Date:      today.Date,
				Price:     today.Close,
				Reference: maFast,
				Magnitude: (today.Close - maFast) / maFast,
			})
		}
	}

	// Breakout needs no one-step memory, only the trailing window.
	if ev, ok := d.breakout(series, today); ok {
		events = append(events, ev)
	}

	return events, state, nil
}

// buffer computes the trailing-stop buffer: max(floor, factor × ATR%).
// When the ATR window is short the floor alone applies.
func (d *Detector) buffer(hist []domain.Bar, close float64) float64 {
	buf := d.cfg.BufferFloor
	if atr, err := ATR(hist, d.cfg.ATRPeriod); err == nil && close > 0 {
		if v := d.cfg.ATRBufferFactor * atr / close; v > buf {
			buf = v
		}
	}
	return buf
}

// breakout fires when today's close exceeds the maximum high of the trailing
// window excluding today.
func (d *Detector) breakout(series *domain.PriceSeries, today domain.Bar) (domain.SignalEvent, bool) {
	windowStart := today.Date.AddDate(0, -d.cfg.BreakoutMonths, 0)
	window := series.Window(windowStart, today.Date.AddDate(0, 0, -1))
	if len(window) < d.cfg.BreakoutMinBars {
		return domain.SignalEvent{}, false
	}

	priorHigh := MaxHigh(window)
	if today.Close <= priorHigh {
		return domain.SignalEvent{}, false
	}
	return domain.SignalEvent{
		Kind:      domain.SignalBreakout,
		Ticker:    series.Ticker,
		Date:      today.Date,
		Price:     today.Close,
		Reference: priorHigh,
		Magnitude: (today.Close - priorHigh) / priorHigh,
	}, true
}
