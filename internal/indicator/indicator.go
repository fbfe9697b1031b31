package indicator

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Indicator computes a technical indicator over a bar series.
//
// Calculate must be pure: the same series and params always give the same Value. The series is
// ordered oldest first and ends at the bar being evaluated. Not enough history is not an error,
// the returned Value simply holds NaN for the bars that cannot be computed yet.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Outputs lists the output names. The first one is the primary output.
	Outputs() []string
	// Calculate returns the indicator series aligned with the input series.
	Calculate(series []types.MarketData, params Params) (Value, error)
}

// Params are the user-supplied indicator parameters, as decoded from YAML or JSON.
type Params map[string]any

// Int reads an integer parameter, falling back to def when it is absent.
func (p Params) Int(name string, def int) (int, error) {
	raw, ok := p[name]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.Newf(errors.ErrCodeInvalidType, "parameter %s must be an integer, got %g", name, v)
		}

		return int(v), nil
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrCodeInvalidType, err, "parameter %s must be an integer", name)
		}

		return i, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "parameter %s has unsupported type %T", name, raw)
	}
}

// Float reads a float parameter, falling back to def when it is absent.
func (p Params) Float(name string, def float64) (float64, error) {
	raw, ok := p[name]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrCodeInvalidType, err, "parameter %s must be a number", name)
		}

		return f, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "parameter %s has unsupported type %T", name, raw)
	}
}

// Period reads a strictly positive integer parameter.
func (p Params) Period(name string, def int) (int, error) {
	period, err := p.Int(name, def)
	if err != nil {
		return 0, err
	}

	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "%s must be a positive integer, got %d", name, period)
	}

	return period, nil
}

// Value holds the output series of one indicator evaluation. Every series has the same length
// as the input bars and NaN marks bars without enough history.
type Value struct {
	primary string
	outputs map[string][]float64
}

// NewValue builds a Value from named output series.
func NewValue(primary string, outputs map[string][]float64) Value {
	return Value{primary: primary, outputs: outputs}
}

// Unavailable is the Value of an indicator evaluated over no bars at all.
func Unavailable(primary string) Value {
	return Value{primary: primary, outputs: map[string][]float64{}}
}

// Primary is the name of the default output.
func (v Value) Primary() string {
	return v.primary
}

// Fields lists the output names in sorted order.
func (v Value) Fields() []string {
	names := make([]string, 0, len(v.outputs))
	for name := range v.outputs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Series returns the full series of an output. An empty field selects the primary output.
func (v Value) Series(field string) ([]float64, bool) {
	if field == "" {
		field = v.primary
	}

	series, ok := v.outputs[field]

	return series, ok
}

// HasField reports whether field names an output of this indicator.
func (v Value) HasField(field string) bool {
	if field == "" || field == v.primary {
		return true
	}

	_, ok := v.outputs[field]

	return ok
}

// At returns the output value back bars before the last one (0 is the current bar).
// It returns NaN when the field is unknown or there is not enough history.
func (v Value) At(field string, back int) float64 {
	series, ok := v.Series(field)
	if !ok {
		return math.NaN()
	}

	idx := len(series) - 1 - back
	if idx < 0 || idx >= len(series) {
		return math.NaN()
	}

	return series[idx]
}

// Current is the output value at the last bar.
func (v Value) Current(field string) float64 {
	return v.At(field, 0)
}

// Previous is the output value at the bar before the last one.
func (v Value) Previous(field string) float64 {
	return v.At(field, 1)
}

// Available reports whether the primary output has a value at the last bar.
func (v Value) Available() bool {
	return !math.IsNaN(v.Current(""))
}

// String is used in debug logs.
func (v Value) String() string {
	return fmt.Sprintf("%s=%g", v.primary, v.Current(""))
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}

func closes(series []types.MarketData) []float64 {
	out := make([]float64, len(series))
	for i, bar := range series {
		out[i] = bar.Close
	}

	return out
}

func typicalPrices(series []types.MarketData) []float64 {
	out := make([]float64, len(series))
	for i, bar := range series {
		out[i] = (bar.High + bar.Low + bar.Close) / 3
	}

	return out
}

// firstValid is the index of the first non-NaN value, or len(values) if there is none.
func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}

	return len(values)
}

// smaSeries is the simple moving average of values. NaN inputs delay the start of the output.
func smaSeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	start := firstValid(values)

	sum := 0.0
	for i := start; i < len(values); i++ {
		sum += values[i]
		if i-start >= period {
			sum -= values[i-period]
		}

		if i-start >= period-1 {
			out[i] = sum / float64(period)
		}
	}

	return out
}

// emaSeries is the exponential moving average seeded with the SMA of the first period values,
// using alpha = 2/(period+1).
func emaSeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	start := firstValid(values)

	if len(values)-start < period {
		return out
	}

	seed := 0.0
	for i := start; i < start+period; i++ {
		seed += values[i]
	}

	ema := seed / float64(period)
	out[start+period-1] = ema

	alpha := 2.0 / float64(period+1)
	for i := start + period; i < len(values); i++ {
		ema = values[i]*alpha + ema*(1-alpha)
		out[i] = ema
	}

	return out
}

// highestLowest returns the highest high and lowest low of the period bars ending at i.
func highestLowest(series []types.MarketData, i, period int) (float64, float64) {
	highest := math.Inf(-1)
	lowest := math.Inf(1)

	for j := i - period + 1; j <= i; j++ {
		highest = math.Max(highest, series[j].High)
		lowest = math.Min(lowest, series[j].Low)
	}

	return highest, lowest
}
