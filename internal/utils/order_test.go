package utils

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsTestSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (suite *UtilsTestSuite) TestCalculateMaxQuantity() {
	tests := []struct {
		name          string
		balance       string
		price         string
		commissionFee commission_fee.CommissionFee
		precision     int32
		expectedQty   string
	}{
		{
			name:          "Simple case with no commission",
			balance:       "1000",
			price:         "100",
			commissionFee: commission_fee.NewZeroCommissionFee(),
			precision:     0,
			expectedQty:   "10",
		},
		{
			name:          "Case with minimum commission",
			balance:       "1000",
			price:         "100",
			commissionFee: commission_fee.NewInteractiveBrokerCommissionFee(),
			precision:     0,
			expectedQty:   "9",
		},
		{
			name:          "Fractional shares with rate commission",
			balance:       "1001",
			price:         "100",
			commissionFee: commission_fee.NewRateCommissionFee(d("0.001")),
			precision:     2,
			expectedQty:   "10",
		},
		{
			name:          "Zero balance",
			balance:       "0",
			price:         "100",
			commissionFee: commission_fee.NewInteractiveBrokerCommissionFee(),
			precision:     0,
			expectedQty:   "0",
		},
		{
			name:          "Zero price",
			balance:       "1000",
			price:         "0",
			commissionFee: commission_fee.NewInteractiveBrokerCommissionFee(),
			precision:     0,
			expectedQty:   "0",
		},
		{
			name:          "Balance less than price",
			balance:       "50",
			price:         "100",
			commissionFee: commission_fee.NewZeroCommissionFee(),
			precision:     0,
			expectedQty:   "0",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			qty := CalculateMaxQuantity(d(tc.balance), d(tc.price), tc.commissionFee, tc.precision)
			suite.True(qty.Equal(d(tc.expectedQty)), "got %s", qty)

			cost := qty.Mul(d(tc.price)).Add(tc.commissionFee.Calculate(qty, d(tc.price)))
			if qty.IsPositive() {
				suite.True(cost.LessThanOrEqual(d(tc.balance)))
			}
		})
	}
}

func (suite *UtilsTestSuite) TestRoundToDecimalPrecision() {
	tests := []struct {
		name      string
		quantity  string
		precision int32
		expected  string
	}{
		{"whole shares", "50.9", 0, "50"},
		{"two digits", "1.23456", 2, "1.23"},
		{"already rounded", "1.5", 4, "1.5"},
		{"eight digits", "0.123456789", 8, "0.12345678"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.True(RoundToDecimalPrecision(d(tc.quantity), tc.precision).Equal(d(tc.expected)))
		})
	}
}

func (suite *UtilsTestSuite) TestCalculateOrderQuantity() {
	suite.True(CalculateOrderQuantity(d("5000"), d("100"), 8).Equal(d("50")))
	suite.True(CalculateOrderQuantity(d("1000"), d("300"), 0).Equal(d("3")))
	suite.True(CalculateOrderQuantity(d("1000"), d("300"), 2).Equal(d("3.33")))
	suite.True(CalculateOrderQuantity(d("1000"), decimal.Zero, 2).IsZero())
	suite.True(CalculateOrderQuantity(decimal.Zero, d("10"), 2).IsZero())
}

func (suite *UtilsTestSuite) TestCalculateOrderQuantityByPercentage() {
	qty := CalculateOrderQuantityByPercentage(d("10000"), d("100"), commission_fee.NewZeroCommissionFee(), d("0.5"), 8)
	suite.True(qty.Equal(d("50")))
}
