// Package domain defines the shared record types of the backtesting engine:
// price series, cohorts, portfolio state, signal events, and reports.
package domain

import (
	"fmt"
	"sort"
	"time"
)

// Market cap tiers recognised by the screener universe files.
const (
	ScreenerLarge = "large"
	ScreenerMega  = "mega"
)

// Bar is a single daily OHLC observation for one ticker.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is an ordered daily price history for a single ticker.
// Dates must be strictly increasing with no duplicates.
type PriceSeries struct {
	Ticker string
	Bars   []Bar
}

// Validate checks the strictly-increasing-dates invariant.
func (s *PriceSeries) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("%s: bars out of order at index %d (%s then %s)",
				s.Ticker, i,
				s.Bars[i-1].Date.Format("2006-01-02"),
				s.Bars[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// At returns the bar for the exact date, if one exists.
func (s *PriceSeries) At(date time.Time) (Bar, bool) {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Date.Before(date)
	})
	if i < len(s.Bars) && sameDay(s.Bars[i].Date, date) {
		return s.Bars[i], true
	}
	return Bar{}, false
}

// LastOn returns the most recent bar on or before the given date. This is the
// "previous available trading-day observation" used throughout the engine
// when calendars have gaps (weekends, holidays, provider holes).
func (s *PriceSeries) LastOn(date time.Time) (Bar, bool) {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return s.Bars[i].Date.After(endOfDay(date))
	})
	if i == 0 {
		return Bar{}, false
	}
	return s.Bars[i-1], true
}

// Window returns the bars with start ≤ date ≤ end.
func (s *PriceSeries) Window(start, end time.Time) []Bar {
	lo := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Date.Before(start)
	})
	hi := sort.Search(len(s.Bars), func(i int) bool {
		return s.Bars[i].Date.After(endOfDay(end))
	})
	return s.Bars[lo:hi]
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// Instrument is one entry of the selectable universe.
type Instrument struct {
	Ticker    string
	MarketCap float64 // dollars; 0 when unknown
}

// CohortEntry is one ranked instrument inside a Cohort.
type CohortEntry struct {
	Ticker         string  `json:"ticker"`
	Rank           int     `json:"rank"`
	TrailingReturn float64 `json:"trailing_return"`
	MarketCap      float64 `json:"market_cap,omitempty"`
}

// Cohort is the ranked instrument set produced at a selection date. Entries
// are sorted descending by trailing return and immutable once created.
type Cohort struct {
	SelectionDate time.Time     `json:"selection_date"`
	Entries       []CohortEntry `json:"entries"`
}

// Tickers returns the cohort tickers in rank order.
func (c Cohort) Tickers() []string {
	out := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Ticker
	}
	return out
}

// WeightVector maps ticker → portfolio weight in (0, 1]. A non-empty vector
// sums to 1 within floating tolerance.
type WeightVector map[string]float64

// Sum returns the total weight.
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Position is a single holding, owned exclusively by PortfolioState and
// mutated only by the simulator.
type Position struct {
	Ticker    string  `json:"ticker"`
	Shares    float64 `json:"shares"`
	CostBasis float64 `json:"cost_basis"` // total cash spent to open, costs included
}

// PortfolioState is the simulator's mutable state: cash plus open positions.
// Cash never goes negative; trades are sized against available cash.
type PortfolioState struct {
	Cash      float64
	Positions map[string]*Position
	AsOf      time.Time
}

// NewPortfolioState creates a state holding only cash.
func NewPortfolioState(capital float64) *PortfolioState {
	return &PortfolioState{
		Cash:      capital,
		Positions: make(map[string]*Position),
	}
}

// Value returns cash plus the mark-to-market value of all positions, priced
// via the supplied lookup. Positions without a price contribute their last
// known valuation through the caller's carry-forward lookup.
func (p *PortfolioState) Value(priceOf func(ticker string) (float64, bool)) float64 {
	total := p.Cash
	for _, pos := range p.Positions {
		if price, ok := priceOf(pos.Ticker); ok {
			total += pos.Shares * price
		}
	}
	return total
}

// SignalKind enumerates the detector's event kinds.
type SignalKind string

const (
	SignalTrailingStop SignalKind = "trailing_stop"
	SignalHardStop     SignalKind = "hard_stop"
	SignalBreakout     SignalKind = "breakout"
)

// ForcesSell reports whether this event kind forces a liquidation.
func (k SignalKind) ForcesSell() bool {
	return k == SignalTrailingStop || k == SignalHardStop
}

// SignalEvent is a single detector trigger for one ticker on one date.
type SignalEvent struct {
	Kind      SignalKind `json:"kind"`
	Ticker    string     `json:"ticker"`
	Date      time.Time  `json:"date"`
	Price     float64    `json:"price"`     // trigger close
	Reference float64    `json:"reference"` // the moving average or prior high crossed
	Magnitude float64    `json:"magnitude"` // signed distance from reference, fraction
}

// RegimeState is the market regime gate's decision for one date.
type RegimeState struct {
	BenchmarkPrice float64   `json:"benchmark_price"`
	MALong         float64   `json:"ma_long"`
	MAShort        float64   `json:"ma_short"`
	Volatility     float64   `json:"volatility"`
	VolThreshold   float64   `json:"vol_threshold"`
	HoldCash       bool      `json:"hold_cash"`
	Reason         string    `json:"reason"`
	AsOf           time.Time `json:"as_of"`
}

// TradeAction is the side of a trade record.
type TradeAction string

const (
	TradeBuy  TradeAction = "BUY"
	TradeSell TradeAction = "SELL"
)

// TradeRecord is one executed simulated trade.
type TradeRecord struct {
	Date   time.Time   `json:"date"`
	Action TradeAction `json:"action"`
	Ticker string      `json:"ticker"`
	Shares float64     `json:"shares"`
	Price  float64     `json:"price"` // unadjusted market price
	Cost   float64     `json:"cost"`  // slippage + fee drag, dollars
}

// ValuePoint is one (date, portfolio value) observation.
type ValuePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ExcludedTicker records why a ticker was dropped from a degraded run.
type ExcludedTicker struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// PerformanceReport is the immutable output of one simulation run. All
// returns are fractions (0.05 = 5%), drawdown is ≤ 0.
type PerformanceReport struct {
	StartDate        time.Time        `json:"start_date"`
	EndDate          time.Time        `json:"end_date"`
	InitialCapital   float64          `json:"initial_capital"`
	FinalValue       float64          `json:"final_value"`
	TotalReturn      float64          `json:"total_return"`
	AnnualizedReturn float64          `json:"annualized_return"`
	MaxDrawdown      float64          `json:"max_drawdown"`
	SharpeRatio      float64          `json:"sharpe_ratio"`
	WinRate          float64          `json:"win_rate"`
	CashHoldingDays  int              `json:"cash_holding_days"`
	TotalCosts       float64          `json:"total_costs"`
	TradeLog         []TradeRecord    `json:"trade_log"`
	ValueHistory     []ValuePoint     `json:"value_history"`
	Signals          []SignalEvent    `json:"signals,omitempty"`
	Excluded         []ExcludedTicker `json:"excluded,omitempty"`
}
