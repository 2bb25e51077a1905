package slippage

import (
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/backtester/common"
)

// ApplySlippageToPrice moves the price against the order: buys pay more and
// sells receive less by the slippage rate
func ApplySlippageToPrice(direction common.Side, price, slippageRate decimal.Decimal) decimal.Decimal {
	if !slippageRate.IsPositive() {
		return price
	}
	one := decimal.NewFromInt(1)
	switch direction {
	case common.Buy:
		return price.Mul(one.Add(slippageRate))
	case common.Sell:
		return price.Mul(one.Sub(slippageRate))
	}
	return price
}

// EnsurePriceFitsWithinHL bounds a slipped price to what actually traded during the bar
func EnsurePriceFitsWithinHL(price, high, low decimal.Decimal) decimal.Decimal {
	if price.LessThan(low) {
		return low
	}
	if price.GreaterThan(high) {
		return high
	}
	return price
}
