package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MACD indicator implements Moving Average Convergence Divergence.
// Outputs: macd (primary), signal and histogram.
type MACD struct{}

// NewMACD creates a new MACD indicator.
func NewMACD() Indicator {
	return &MACD{}
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

func (m *MACD) Outputs() []string {
	return []string{"macd", "signal", "histogram"}
}

// Calculate expects parameters: fast_period (12), slow_period (26), signal_period (9).
func (m *MACD) Calculate(series []types.MarketData, params Params) (Value, error) {
	fastPeriod, err := params.Period("fast_period", 12)
	if err != nil {
		return Value{}, err
	}

	slowPeriod, err := params.Period("slow_period", 26)
	if err != nil {
		return Value{}, err
	}

	signalPeriod, err := params.Period("signal_period", 9)
	if err != nil {
		return Value{}, err
	}

	if fastPeriod >= slowPeriod {
		return Value{}, errors.Newf(errors.ErrCodeInvalidParameter, "fast_period (%d) must be less than slow_period (%d)", fastPeriod, slowPeriod)
	}

	prices := closes(series)
	fast := emaSeries(prices, fastPeriod)
	slow := emaSeries(prices, slowPeriod)

	macd := nanSeries(len(series))
	for i := range series {
		macd[i] = fast[i] - slow[i]
	}

	signal := emaSeries(macd, signalPeriod)

	histogram := nanSeries(len(series))
	for i := range series {
		histogram[i] = macd[i] - signal[i]
	}

	return NewValue("macd", map[string][]float64{
		"macd":      macd,
		"signal":    signal,
		"histogram": histogram,
	}), nil
}
