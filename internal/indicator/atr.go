package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// ATR indicator implements Average True Range with Wilder's smoothing.
type ATR struct{}

// NewATR creates a new ATR indicator.
func NewATR() Indicator {
	return &ATR{}
}

// Name returns the name of the indicator.
func (a *ATR) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

func (a *ATR) Outputs() []string {
	return []string{"value"}
}

// Calculate expects parameters: period (int, default 14). The first value needs period+1 bars.
func (a *ATR) Calculate(series []types.MarketData, params Params) (Value, error) {
	period, err := params.Period("period", 14)
	if err != nil {
		return Value{}, err
	}

	out := nanSeries(len(series))
	if len(series) < period+1 {
		return NewValue("value", map[string][]float64{"value": out}), nil
	}

	atr := 0.0
	for i := 1; i <= period; i++ {
		atr += trueRange(series[i], series[i-1].Close)
	}

	atr /= float64(period)
	out[period] = atr

	for i := period + 1; i < len(series); i++ {
		atr = (atr*float64(period-1) + trueRange(series[i], series[i-1].Close)) / float64(period)
		out[i] = atr
	}

	return NewValue("value", map[string][]float64{"value": out}), nil
}

// trueRange is the largest of high-low, |high-prevClose| and |low-prevClose|.
func trueRange(bar types.MarketData, prevClose float64) float64 {
	return math.Max(
		math.Max(
			bar.High-bar.Low,
			math.Abs(bar.High-prevClose),
		),
		math.Abs(bar.Low-prevClose),
	)
}
