package indicator

import (
	"github.com/montanaflynn/stats"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// BollingerBands indicator implements Bollinger Bands.
// Outputs: middle (primary), upper and lower.
type BollingerBands struct{}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands() Indicator {
	return &BollingerBands{}
}

// Name returns the name of the indicator.
func (bb *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

func (bb *BollingerBands) Outputs() []string {
	return []string{"middle", "upper", "lower"}
}

// Calculate expects parameters: period (20) and num_std (2.0).
// The bands use the population standard deviation of the window.
func (bb *BollingerBands) Calculate(series []types.MarketData, params Params) (Value, error) {
	period, err := params.Period("period", 20)
	if err != nil {
		return Value{}, err
	}

	numStd, err := params.Float("num_std", 2.0)
	if err != nil {
		return Value{}, err
	}

	if numStd <= 0 {
		return Value{}, errors.Newf(errors.ErrCodeInvalidParameter, "num_std must be positive, got %g", numStd)
	}

	prices := closes(series)
	middle := smaSeries(prices, period)
	upper := nanSeries(len(series))
	lower := nanSeries(len(series))

	for i := period - 1; i < len(prices); i++ {
		stdDev, err := stats.StandardDeviationPopulation(stats.Float64Data(prices[i-period+1 : i+1]))
		if err != nil {
			return Value{}, errors.Wrap(errors.ErrCodeIndicatorCalculation, "failed to calculate standard deviation", err)
		}

		upper[i] = middle[i] + numStd*stdDev
		lower[i] = middle[i] - numStd*stdDev
	}

	return NewValue("middle", map[string][]float64{
		"middle": middle,
		"upper":  upper,
		"lower":  lower,
	}), nil
}
