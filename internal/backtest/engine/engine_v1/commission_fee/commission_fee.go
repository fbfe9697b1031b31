package commission_fee

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

type CommissionFee interface {
	// Calculate the commission fee for filling quantity at price and returns the fee in USD
	Calculate(quantity decimal.Decimal, price decimal.Decimal) decimal.Decimal
}

type Broker string

const (
	BrokerRate              Broker = types.BrokerRate
	BrokerInteractiveBroker Broker = types.BrokerInteractiveBroker
	BrokerZero              Broker = types.BrokerZero
)

var AllBrokers = []any{
	BrokerRate,
	BrokerInteractiveBroker,
	BrokerZero,
}

// GetCommissionFeeHandler returns the commission model of broker. rate is only used by the rate model,
// which is also the fallback for unknown brokers.
func GetCommissionFeeHandler(broker Broker, rate decimal.Decimal) CommissionFee {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewRateCommissionFee(rate)
	}
}
