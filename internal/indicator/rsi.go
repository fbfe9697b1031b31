package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// RSI indicator implements the Relative Strength Index with Wilder's smoothing.
type RSI struct{}

// NewRSI creates a new RSI indicator.
func NewRSI() Indicator {
	return &RSI{}
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

func (r *RSI) Outputs() []string {
	return []string{"value"}
}

// Calculate expects parameters: period (int, default 14). The first value needs period+1 bars.
func (r *RSI) Calculate(series []types.MarketData, params Params) (Value, error) {
	period, err := params.Period("period", 14)
	if err != nil {
		return Value{}, err
	}

	out := nanSeries(len(series))
	if len(series) < period+1 {
		return NewValue("value", map[string][]float64{"value": out}), nil
	}

	avgGain := 0.0
	avgLoss := 0.0

	// First average over the first period changes
	for i := 1; i <= period; i++ {
		gain, loss := priceChange(series[i-1].Close, series[i].Close)
		avgGain += gain
		avgLoss += loss
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	// Subsequent averages using Wilder's smoothing method
	for i := period + 1; i < len(series); i++ {
		gain, loss := priceChange(series[i-1].Close, series[i].Close)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return NewValue("value", map[string][]float64{"value": out}), nil
}

func priceChange(prev, current float64) (gain float64, loss float64) {
	change := current - prev
	if change > 0 {
		return change, 0
	}

	return 0, -change
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}

		return 100 // Perfect uptrend
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
