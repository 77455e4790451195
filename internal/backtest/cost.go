package backtest

// CostModel applies deterministic slippage and percentage fees to simulated
// trades. Slippage degrades the execution price against the trader; the fee
// is charged on the executed notional. The same model is applied on every
// rebalancing leg and on signal-forced sells.
type CostModel struct {
	Fee      float64 // fraction of notional, e.g. 0.002
	Slippage float64 // fraction of price, e.g. 0.001
}

// BuyPrice returns the executed price for a buy at the given market price.
func (m CostModel) BuyPrice(price float64) float64 {
	return price * (1 + m.Slippage)
}

// SellPrice returns the executed price for a sell at the given market price.
func (m CostModel) SellPrice(price float64) float64 {
	return price * (1 - m.Slippage)
}

// Buy sizes a purchase from a cash allocation. The full allocation is spent;
// shares come out of what remains after slippage and fee. cost is the drag
// in dollars versus buying at the unadjusted market price.
func (m CostModel) Buy(alloc, price float64) (shares, cost float64) {
	if alloc <= 0 || price <= 0 {
		return 0, 0
	}
	shares = alloc / (m.BuyPrice(price) * (1 + m.Fee))
	cost = alloc - shares*price
	return shares, cost
}

// Sell liquidates shares at the given market price. proceeds is the cash
// received after slippage and fee; cost is the drag in dollars versus
// selling at the unadjusted market price.
func (m CostModel) Sell(shares, price float64) (proceeds, cost float64) {
	if shares <= 0 || price <= 0 {
		return 0, 0
	}
	proceeds = shares * m.SellPrice(price) * (1 - m.Fee)
	cost = shares*price - proceeds
	return proceeds, cost
}
