package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Stochastic indicator implements the slow stochastic oscillator.
// Outputs: k (primary) and d.
type Stochastic struct{}

// NewStochastic creates a new stochastic oscillator.
func NewStochastic() Indicator {
	return &Stochastic{}
}

// Name returns the name of the indicator.
func (s *Stochastic) Name() types.IndicatorType {
	return types.IndicatorTypeStochastic
}

func (s *Stochastic) Outputs() []string {
	return []string{"k", "d"}
}

// Calculate expects parameters: k_period (14), d_period (3) and slowing (3).
// A flat window (highest == lowest) gives a raw %K of 0.
func (s *Stochastic) Calculate(series []types.MarketData, params Params) (Value, error) {
	kPeriod, err := params.Period("k_period", 14)
	if err != nil {
		return Value{}, err
	}

	dPeriod, err := params.Period("d_period", 3)
	if err != nil {
		return Value{}, err
	}

	slowing, err := params.Period("slowing", 3)
	if err != nil {
		return Value{}, err
	}

	fastK := nanSeries(len(series))
	for i := kPeriod - 1; i < len(series); i++ {
		highest, lowest := highestLowest(series, i, kPeriod)
		if highest == lowest {
			fastK[i] = 0

			continue
		}

		fastK[i] = 100 * (series[i].Close - lowest) / (highest - lowest)
	}

	k := smaSeries(fastK, slowing)
	d := smaSeries(k, dPeriod)

	return NewValue("k", map[string][]float64{
		"k": k,
		"d": d,
	}), nil
}
