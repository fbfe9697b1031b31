package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// EMA indicator implements Exponential Moving Average calculation.
type EMA struct{}

// NewEMA creates a new EMA indicator.
func NewEMA() Indicator {
	return &EMA{}
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

func (e *EMA) Outputs() []string {
	return []string{"value"}
}

// Calculate expects parameters: period (int, default 20).
// The first value is the SMA of the first period closes; later values use alpha = 2/(period+1).
func (e *EMA) Calculate(series []types.MarketData, params Params) (Value, error) {
	period, err := params.Period("period", 20)
	if err != nil {
		return Value{}, err
	}

	return NewValue("value", map[string][]float64{
		"value": emaSeries(closes(series), period),
	}), nil
}
