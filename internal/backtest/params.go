// Package backtest implements the point-in-time portfolio simulation engine:
// candidate selection, rebalancing, weighting, transaction costs, and the
// orchestrating simulator.
package backtest

import (
	"fmt"
	"time"

	"galileo/internal/domain"
)

// Frequency is the rebalancing cadence.
type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
)

// WeightMethod selects how cohort weights are assigned.
type WeightMethod string

const (
	WeightEqual     WeightMethod = "equal"
	WeightMarketCap WeightMethod = "market_cap"
	WeightMomentum  WeightMethod = "momentum"
)

// Params is the full recognised parameter set for one simulation run. It is
// passed explicitly into the simulator; there is no process-wide mutable
// default.
type Params struct {
	NumStocks          int          `yaml:"num_stocks" json:"num_stocks"`
	RebalanceFrequency Frequency    `yaml:"rebalance_frequency" json:"rebalance_frequency"`
	WeightMethod       WeightMethod `yaml:"weight_method" json:"weight_method"`
	EnableMarketFilter bool         `yaml:"enable_market_filter" json:"enable_market_filter"`
	InitialCapital     float64      `yaml:"initial_capital" json:"initial_capital"`
	TransactionFee     float64      `yaml:"transaction_fee" json:"transaction_fee"`
	Slippage           float64      `yaml:"slippage" json:"slippage"`
	LookbackMonths     int          `yaml:"lookback_months" json:"lookback_months"`
	LagMonths          int          `yaml:"lag_months" json:"lag_months"`
	RiskFreeRate       float64      `yaml:"risk_free_rate" json:"risk_free_rate"`
	StartDate          time.Time    `yaml:"start_date" json:"start_date"`
	EndDate            time.Time    `yaml:"end_date" json:"end_date"`
	// MinObservations is the minimum number of daily rows a ticker must have
	// inside the selection window to be ranked.
	MinObservations int `yaml:"min_observations" json:"min_observations"`
}

// DefaultMinObservations applies when MinObservations is unset.
const DefaultMinObservations = 30

// Validate checks the recognised-option contract. Violations are fatal
// before the simulation starts.
func (p *Params) Validate() error {
	switch p.RebalanceFrequency {
	case Daily, Weekly, Monthly, Quarterly:
	default:
		return fmt.Errorf("%w: rebalance_frequency %q", domain.ErrInvalidParameters, p.RebalanceFrequency)
	}

	switch p.WeightMethod {
	case WeightEqual, WeightMarketCap, WeightMomentum:
	default:
		return fmt.Errorf("%w: weight_method %q", domain.ErrInvalidParameters, p.WeightMethod)
	}

	if p.NumStocks <= 0 {
		return fmt.Errorf("%w: num_stocks must be positive, got %d", domain.ErrInvalidParameters, p.NumStocks)
	}
	if p.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial_capital must be positive, got %v", domain.ErrInvalidParameters, p.InitialCapital)
	}
	if p.TransactionFee < 0 {
		return fmt.Errorf("%w: transaction_fee must be non-negative, got %v", domain.ErrInvalidParameters, p.TransactionFee)
	}
	if p.Slippage < 0 {
		return fmt.Errorf("%w: slippage must be non-negative, got %v", domain.ErrInvalidParameters, p.Slippage)
	}
	if p.LookbackMonths < 1 {
		return fmt.Errorf("%w: lookback_months must be at least 1, got %d", domain.ErrInvalidParameters, p.LookbackMonths)
	}
	if p.LagMonths < 0 {
		return fmt.Errorf("%w: lag_months must be non-negative, got %d", domain.ErrInvalidParameters, p.LagMonths)
	}
	if p.RiskFreeRate < 0 {
		return fmt.Errorf("%w: risk_free_rate must be non-negative, got %v", domain.ErrInvalidParameters, p.RiskFreeRate)
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() || p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: start_date must precede end_date", domain.ErrInvalidParameters)
	}
	if p.MinObservations < 0 {
		return fmt.Errorf("%w: min_observations must be non-negative, got %d", domain.ErrInvalidParameters, p.MinObservations)
	}
	return nil
}

// minObservations returns the effective minimum-row threshold.
func (p *Params) minObservations() int {
	if p.MinObservations > 0 {
		return p.MinObservations
	}
	return DefaultMinObservations
}
