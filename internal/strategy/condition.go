package strategy

import (
	"math"
	"strings"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

// Reasons a condition evaluation is suppressed and treated as false.
const (
	SuppressedUnknownIndicator    = "unknown_indicator"
	SuppressedUnknownField        = "unknown_field"
	SuppressedInsufficientHistory = "insufficient_history"
	SuppressedMissingOperand      = "missing_operand"
	SuppressedUnsupportedOperator = "unsupported_operator"
	SuppressedIndicatorError      = "indicator_error"
)

// ConditionEvaluator evaluates single entry and exit rules.
//
// Evaluation never fails: a lookup that cannot be resolved makes the condition false. Every such
// case is counted by reason and logged at debug level so a misconfigured strategy can be spotted
// in the run diagnostics. An evaluator belongs to one run and is not safe for concurrent use.
type ConditionEvaluator struct {
	logger     *logger.Logger
	suppressed map[string]int
}

// NewConditionEvaluator creates an evaluator with empty diagnostics.
func NewConditionEvaluator(log *logger.Logger) *ConditionEvaluator {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &ConditionEvaluator{
		logger:     log,
		suppressed: map[string]int{},
	}
}

// Evaluate reports whether condition holds for the current bar.
// values maps indicator names (and bar fields) to their series up to and including bar.
func (e *ConditionEvaluator) Evaluate(condition types.Condition, values map[string]indicator.Value, bar types.MarketData) bool {
	switch condition.Operator {
	case types.OperatorCrossAbove, types.OperatorCrossBelow:
		return e.evaluateCrossover(condition, values, bar)
	case types.OperatorGreaterThan, types.OperatorLessThan, types.OperatorGreaterThanOrEqual,
		types.OperatorLessThanOrEqual, types.OperatorEqual:
		return e.evaluateComparison(condition, values, bar)
	default:
		e.suppress(SuppressedUnsupportedOperator, condition, bar)

		return false
	}
}

// Suppressed returns a copy of the suppressed evaluation counts by reason.
func (e *ConditionEvaluator) Suppressed() map[string]int {
	out := make(map[string]int, len(e.suppressed))
	for reason, n := range e.suppressed {
		out[reason] = n
	}

	return out
}

// RecordSuppressed counts a failure found outside Evaluate, such as an indicator that could not be computed.
func (e *ConditionEvaluator) RecordSuppressed(reason string) {
	e.suppressed[reason]++
}

func (e *ConditionEvaluator) evaluateComparison(condition types.Condition, values map[string]indicator.Value, bar types.MarketData) bool {
	left, reason := lookup(values, condition.Left(), condition.Field, 0)
	if reason != "" {
		e.suppress(reason, condition, bar)

		return false
	}

	var right float64

	switch {
	case condition.Value != nil:
		right = *condition.Value
	case condition.Indicator2 != "":
		right, reason = lookup(values, condition.Indicator2, "", 0)
		if reason != "" {
			e.suppress(reason, condition, bar)

			return false
		}
	default:
		e.suppress(SuppressedMissingOperand, condition, bar)

		return false
	}

	switch condition.Operator {
	case types.OperatorGreaterThan:
		return left > right
	case types.OperatorLessThan:
		return left < right
	case types.OperatorGreaterThanOrEqual:
		return left >= right
	case types.OperatorLessThanOrEqual:
		return left <= right
	default:
		return left == right
	}
}

// evaluateCrossover is true only on the bar where the relation between the two series flips.
func (e *ConditionEvaluator) evaluateCrossover(condition types.Condition, values map[string]indicator.Value, bar types.MarketData) bool {
	if condition.Indicator1 == "" || condition.Indicator2 == "" {
		e.suppress(SuppressedMissingOperand, condition, bar)

		return false
	}

	operands := [4]struct {
		name string
		back int
	}{
		{condition.Indicator1, 1},
		{condition.Indicator2, 1},
		{condition.Indicator1, 0},
		{condition.Indicator2, 0},
	}

	var v [4]float64

	for i, operand := range operands {
		field := ""
		if i%2 == 0 {
			field = condition.Field
		}

		value, reason := lookup(values, operand.name, field, operand.back)
		if reason != "" {
			e.suppress(reason, condition, bar)

			return false
		}

		v[i] = value
	}

	prev1, prev2, cur1, cur2 := v[0], v[1], v[2], v[3]

	if condition.Operator == types.OperatorCrossAbove {
		return prev1 <= prev2 && cur1 > cur2
	}

	return prev1 >= prev2 && cur1 < cur2
}

func (e *ConditionEvaluator) suppress(reason string, condition types.Condition, bar types.MarketData) {
	e.suppressed[reason]++

	e.logger.Debug("Condition evaluation suppressed",
		zap.String("reason", reason),
		zap.String("condition", condition.String()),
		zap.String("symbol", bar.Symbol),
		zap.Time("time", bar.Time),
	)
}

// lookup resolves name (optionally "indicator.field") back bars before the current one.
// A non-empty reason means the value could not be resolved.
func lookup(values map[string]indicator.Value, name string, field string, back int) (float64, string) {
	if name == "" {
		return 0, SuppressedMissingOperand
	}

	if idx := strings.Index(name, "."); idx > 0 {
		if _, ok := values[name]; !ok {
			name, field = name[:idx], name[idx+1:]
		}
	}

	value, ok := values[name]
	if !ok {
		return 0, SuppressedUnknownIndicator
	}

	if !value.HasField(field) {
		return 0, SuppressedUnknownField
	}

	result := value.At(field, back)
	if math.IsNaN(result) {
		return 0, SuppressedInsufficientHistory
	}

	return result, ""
}
