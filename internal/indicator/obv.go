package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// OBV indicator implements On Balance Volume. It is defined from the first bar.
type OBV struct{}

// NewOBV creates a new OBV indicator.
func NewOBV() Indicator {
	return &OBV{}
}

// Name returns the name of the indicator.
func (o *OBV) Name() types.IndicatorType {
	return types.IndicatorTypeOBV
}

func (o *OBV) Outputs() []string {
	return []string{"value"}
}

// Calculate takes no parameters.
func (o *OBV) Calculate(series []types.MarketData, _ Params) (Value, error) {
	out := nanSeries(len(series))
	if len(series) == 0 {
		return NewValue("value", map[string][]float64{"value": out}), nil
	}

	obv := series[0].Volume
	out[0] = obv

	for i := 1; i < len(series); i++ {
		switch {
		case series[i].Close > series[i-1].Close:
			obv += series[i].Volume
		case series[i].Close < series[i-1].Close:
			obv -= series[i].Volume
		}

		out[i] = obv
	}

	return NewValue("value", map[string][]float64{"value": out}), nil
}
