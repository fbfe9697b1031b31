package utils

import (
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/shopspring/decimal"
)

// CalculateMaxQuantity calculates the maximum quantity that can be bought with the given balance, commission
// included, respecting decimal precision.
func CalculateMaxQuantity(balance decimal.Decimal, price decimal.Decimal, commissionFee commission_fee.CommissionFee, decimalPrecision int32) decimal.Decimal {
	// Handle edge cases
	if !price.IsPositive() || !balance.IsPositive() {
		return decimal.Zero
	}

	maxQty := balance.Div(price)

	// Iteratively refine by accounting for fees
	for i := 0; i < 10; i++ {
		totalCost := maxQty.Mul(price).Add(commissionFee.Calculate(maxQty, price))
		if totalCost.LessThanOrEqual(balance) {
			break
		}

		maxQty = maxQty.Mul(balance.Div(totalCost))
	}

	maxQty = RoundToDecimalPrecision(maxQty, decimalPrecision)

	// rounding can leave a fixed minimum fee uncovered
	step := decimal.New(1, -decimalPrecision)
	for i := 0; i < 10 && maxQty.IsPositive(); i++ {
		if maxQty.Mul(price).Add(commissionFee.Calculate(maxQty, price)).LessThanOrEqual(balance) {
			return maxQty
		}

		maxQty = maxQty.Sub(step)
	}

	if !maxQty.IsPositive() {
		return decimal.Zero
	}

	return maxQty
}

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
// A precision of 0 gives whole shares.
func RoundToDecimalPrecision(quantity decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	return quantity.RoundFloor(decimalPrecision)
}

// CalculateOrderQuantity converts a notional into a quantity at price, rounded down to the precision.
func CalculateOrderQuantity(notional decimal.Decimal, price decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	if !price.IsPositive() || !notional.IsPositive() {
		return decimal.Zero
	}

	return RoundToDecimalPrecision(notional.Div(price), decimalPrecision)
}

// CalculateOrderQuantityByPercentage calculates the quantity of an order by the given percentage of the balance.
func CalculateOrderQuantityByPercentage(balance decimal.Decimal, price decimal.Decimal, commissionFee commission_fee.CommissionFee, percentage decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	return CalculateMaxQuantity(balance.Mul(percentage), price, commissionFee, decimalPrecision)
}
