package backtest

// CostModel maps a raw reference price to an executed fill price plus
// the fee rate charged on the filled notional. Implementations must be
// pure: no side effects, no history, so a model can be swapped for a
// market-condition-aware one without touching the engine.
type CostModel interface {
	// ExecuteBuy returns the fill price for a buy at the given
	// reference price and the fee rate applied to the notional.
	ExecuteBuy(price float64) (executed, feeRate float64)
	// ExecuteSell is the sell-side counterpart. For non-negative
	// rates, ExecuteBuy(p) >= p >= ExecuteSell(p).
	ExecuteSell(price float64) (executed, feeRate float64)
}

// FixedCost applies constant slippage and fee rates.
type FixedCost struct {
	SlippageRate float64
	FeeRate      float64
}

// ExecuteBuy fills above the reference price by the slippage rate.
func (m FixedCost) ExecuteBuy(price float64) (float64, float64) {
	return price * (1 + m.SlippageRate), m.FeeRate
}

// ExecuteSell fills below the reference price by the slippage rate.
func (m FixedCost) ExecuteSell(price float64) (float64, float64) {
	return price * (1 - m.SlippageRate), m.FeeRate
}
