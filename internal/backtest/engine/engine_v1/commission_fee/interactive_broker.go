package commission_fee

import "github.com/shopspring/decimal"

var (
	interactiveBrokerPerShare = decimal.RequireFromString("0.005")
	interactiveBrokerMinimum  = decimal.NewFromInt(1)
)

type InteractiveBrokerCommissionFee struct {
}

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{}
}

// Calculate charges 0.005 USD per share with a 1 USD minimum per order.
func (c *InteractiveBrokerCommissionFee) Calculate(quantity decimal.Decimal, _ decimal.Decimal) decimal.Decimal {
	fee := interactiveBrokerPerShare.Mul(quantity)
	if fee.LessThan(interactiveBrokerMinimum) {
		return interactiveBrokerMinimum
	}

	return fee
}
