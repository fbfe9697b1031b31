package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// MFI indicator implements the Money Flow Index, a volume-weighted RSI of typical prices.
type MFI struct{}

// NewMFI creates a new MFI indicator.
func NewMFI() Indicator {
	return &MFI{}
}

// Name returns the name of the indicator.
func (m *MFI) Name() types.IndicatorType {
	return types.IndicatorTypeMFI
}

func (m *MFI) Outputs() []string {
	return []string{"value"}
}

// Calculate expects parameters: period (int, default 14). The first value needs period+1 bars.
func (m *MFI) Calculate(series []types.MarketData, params Params) (Value, error) {
	period, err := params.Period("period", 14)
	if err != nil {
		return Value{}, err
	}

	tp := typicalPrices(series)
	out := nanSeries(len(series))

	for i := period; i < len(series); i++ {
		positive := 0.0
		negative := 0.0

		for j := i - period + 1; j <= i; j++ {
			flow := tp[j] * series[j].Volume

			switch {
			case tp[j] > tp[j-1]:
				positive += flow
			case tp[j] < tp[j-1]:
				negative += flow
			}
		}

		out[i] = rsiFromAverages(positive, negative)
	}

	return NewValue("value", map[string][]float64{"value": out}), nil
}
