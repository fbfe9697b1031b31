package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// MA indicator implements Simple Moving Average calculation.
type MA struct {
	name types.IndicatorType
}

// NewMA creates the simple moving average registered as "ma".
func NewMA() Indicator {
	return &MA{name: types.IndicatorTypeMA}
}

// NewSMA creates the simple moving average registered as "sma".
func NewSMA() Indicator {
	return &MA{name: types.IndicatorTypeSMA}
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return m.name
}

func (m *MA) Outputs() []string {
	return []string{"value"}
}

// Calculate expects parameters: period (int, default 20).
func (m *MA) Calculate(series []types.MarketData, params Params) (Value, error) {
	period, err := params.Period("period", 20)
	if err != nil {
		return Value{}, err
	}

	return NewValue("value", map[string][]float64{
		"value": smaSeries(closes(series), period),
	}), nil
}
