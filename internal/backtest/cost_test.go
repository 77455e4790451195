package backtest

import (
	"math"
	"testing"
)

func TestCostModelBuy(t *testing.T) {
	m := CostModel{Fee: 0.002, Slippage: 0.001}

	if got := m.BuyPrice(100); math.Abs(got-100.1) > 1e-9 {
		t.Errorf("BuyPrice(100) = %v, want 100.1", got)
	}

	shares, cost := m.Buy(10000, 100)
	wantShares := 10000 / (100.1 * 1.002)
	if math.Abs(shares-wantShares) > 1e-9 {
		t.Errorf("shares = %v, want %v", shares, wantShares)
	}
	wantCost := 10000 - wantShares*100
	if math.Abs(cost-wantCost) > 1e-9 {
		t.Errorf("cost = %v, want %v", cost, wantCost)
	}
	// Sanity on magnitude: ~0.3% one-way drag on $10k.
	if cost < 25 || cost > 35 {
		t.Errorf("cost = %v, outside plausible drag range", cost)
	}
}

func TestCostModelSell(t *testing.T) {
	m := CostModel{Fee: 0.002, Slippage: 0.001}

	proceeds, cost := m.Sell(100, 50)
	wantProceeds := 100 * 50 * 0.999 * 0.998
	if math.Abs(proceeds-wantProceeds) > 1e-9 {
		t.Errorf("proceeds = %v, want %v", proceeds, wantProceeds)
	}
	if math.Abs(cost-(5000-wantProceeds)) > 1e-9 {
		t.Errorf("cost = %v, want %v", cost, 5000-wantProceeds)
	}
}

func TestCostModelZeroCost(t *testing.T) {
	m := CostModel{}

	shares, cost := m.Buy(5000, 100)
	if shares != 50 || cost != 0 {
		t.Errorf("frictionless buy = (%v, %v), want (50, 0)", shares, cost)
	}
	proceeds, cost := m.Sell(50, 100)
	if proceeds != 5000 || cost != 0 {
		t.Errorf("frictionless sell = (%v, %v), want (5000, 0)", proceeds, cost)
	}
}

func TestCostModelDegenerate(t *testing.T) {
	m := CostModel{Fee: 0.002, Slippage: 0.001}

	if shares, cost := m.Buy(0, 100); shares != 0 || cost != 0 {
		t.Errorf("Buy(0, 100) = (%v, %v), want zeros", shares, cost)
	}
	if shares, cost := m.Buy(1000, 0); shares != 0 || cost != 0 {
		t.Errorf("Buy(1000, 0) = (%v, %v), want zeros", shares, cost)
	}
	if proceeds, cost := m.Sell(0, 100); proceeds != 0 || cost != 0 {
		t.Errorf("Sell(0, 100) = (%v, %v), want zeros", proceeds, cost)
	}
}
