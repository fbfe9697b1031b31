package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// VWAP indicator implements the cumulative volume weighted average of typical prices.
type VWAP struct{}

// NewVWAP creates a new VWAP indicator.
func NewVWAP() Indicator {
	return &VWAP{}
}

// Name returns the name of the indicator.
func (v *VWAP) Name() types.IndicatorType {
	return types.IndicatorTypeVWAP
}

func (v *VWAP) Outputs() []string {
	return []string{"value"}
}

// Calculate takes an optional period (int). Without it the average runs over the whole series.
func (v *VWAP) Calculate(series []types.MarketData, params Params) (Value, error) {
	period, err := params.Int("period", 0)
	if err != nil {
		return Value{}, err
	}

	out := nanSeries(len(series))
	tp := typicalPrices(series)

	for i := range series {
		start := 0
		if period > 0 {
			if i < period-1 {
				continue
			}

			start = i - period + 1
		}

		weighted := 0.0
		volume := 0.0

		for j := start; j <= i; j++ {
			weighted += tp[j] * series[j].Volume
			volume += series[j].Volume
		}

		if volume == 0 {
			out[i] = math.NaN()

			continue
		}

		out[i] = weighted / volume
	}

	return NewValue("value", map[string][]float64{"value": out}), nil
}
