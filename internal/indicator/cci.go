package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// CCI indicator implements the Commodity Channel Index.
type CCI struct{}

// NewCCI creates a new CCI indicator.
func NewCCI() Indicator {
	return &CCI{}
}

// Name returns the name of the indicator.
func (c *CCI) Name() types.IndicatorType {
	return types.IndicatorTypeCCI
}

func (c *CCI) Outputs() []string {
	return []string{"value"}
}

// Calculate expects parameters: period (int, default 20).
func (c *CCI) Calculate(series []types.MarketData, params Params) (Value, error) {
	period, err := params.Period("period", 20)
	if err != nil {
		return Value{}, err
	}

	tp := typicalPrices(series)
	mean := smaSeries(tp, period)
	out := nanSeries(len(series))

	for i := period - 1; i < len(series); i++ {
		deviation := 0.0
		for j := i - period + 1; j <= i; j++ {
			deviation += math.Abs(tp[j] - mean[i])
		}

		deviation /= float64(period)
		if deviation == 0 {
			out[i] = 0

			continue
		}

		out[i] = (tp[i] - mean[i]) / (0.015 * deviation)
	}

	return NewValue("value", map[string][]float64{"value": out}), nil
}
