package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// WilliamsR indicator implements Williams %R, ranging from -100 to 0.
type WilliamsR struct{}

// NewWilliamsR creates a new Williams %R indicator.
func NewWilliamsR() Indicator {
	return &WilliamsR{}
}

// Name returns the name of the indicator.
func (w *WilliamsR) Name() types.IndicatorType {
	return types.IndicatorTypeWilliamsR
}

func (w *WilliamsR) Outputs() []string {
	return []string{"value"}
}

// Calculate expects parameters: period (int, default 14).
func (w *WilliamsR) Calculate(series []types.MarketData, params Params) (Value, error) {
	period, err := params.Period("period", 14)
	if err != nil {
		return Value{}, err
	}

	out := nanSeries(len(series))
	for i := period - 1; i < len(series); i++ {
		highest, lowest := highestLowest(series, i, period)
		if highest == lowest {
			out[i] = 0

			continue
		}

		out[i] = -100 * (highest - series[i].Close) / (highest - lowest)
	}

	return NewValue("value", map[string][]float64{"value": out}), nil
}
