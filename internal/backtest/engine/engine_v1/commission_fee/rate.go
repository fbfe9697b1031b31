package commission_fee

import "github.com/shopspring/decimal"

// RateCommissionFee charges a fixed fraction of the filled notional.
type RateCommissionFee struct {
	rate decimal.Decimal
}

func NewRateCommissionFee(rate decimal.Decimal) CommissionFee {
	return &RateCommissionFee{rate: rate}
}

// Calculate returns price * quantity * rate. Non-positive quantities cost nothing.
func (c *RateCommissionFee) Calculate(quantity decimal.Decimal, price decimal.Decimal) decimal.Decimal {
	if !quantity.IsPositive() {
		return decimal.Zero
	}

	return price.Mul(quantity).Mul(c.rate)
}
