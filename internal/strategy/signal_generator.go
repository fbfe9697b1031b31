package strategy

import (
	"sort"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// barFields are always addressable by name in conditions unless an indicator of the same name is configured.
var barFields = []string{"open", "high", "low", "close", "volume"}

// SignalGenerator turns a strategy's entry and exit conditions into signals.
type SignalGenerator struct {
	strategy  types.StrategyConfig
	registry  indicator.IndicatorRegistry
	evaluator *ConditionEvaluator
	logger    *logger.Logger
	// indicatorNames is the sorted list of configured indicators, for a deterministic evaluation order.
	indicatorNames []string
}

// NewSignalGenerator creates a generator for one run of strategy.
func NewSignalGenerator(strategy types.StrategyConfig, registry indicator.IndicatorRegistry, log *logger.Logger) *SignalGenerator {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if registry == nil {
		registry = indicator.NewDefaultIndicatorRegistry()
	}

	names := make([]string, 0, len(strategy.Indicators))
	for name := range strategy.Indicators {
		names = append(names, name)
	}

	sort.Strings(names)

	return &SignalGenerator{
		strategy:       strategy,
		registry:       registry,
		evaluator:      NewConditionEvaluator(log),
		logger:         log,
		indicatorNames: names,
	}
}

// Generate evaluates every entry and every exit condition against history, whose last bar is the
// current one. Each matching condition yields one signal, entries first, in configuration order.
func (g *SignalGenerator) Generate(symbol string, history []types.MarketData) []types.Signal {
	if len(history) == 0 {
		return nil
	}

	bar := history[len(history)-1]
	values := g.Indicators(history)
	price := decimal.NewFromFloat(bar.Close)

	var signals []types.Signal

	for i, condition := range g.strategy.EntryConditions {
		if !g.evaluator.Evaluate(condition, values, bar) {
			continue
		}

		direction := types.SignalDirectionBullish
		if condition.Side == types.OrderSideSell {
			direction = types.SignalDirectionBearish
		}

		signals = append(signals, newSignal(types.SignalTypeEntry, direction, symbol, bar, price, i, condition))
	}

	for i, condition := range g.strategy.ExitConditions {
		if !g.evaluator.Evaluate(condition, values, bar) {
			continue
		}

		// exits act against the side being closed
		direction := types.SignalDirectionBearish
		if condition.Side == types.OrderSideSell {
			direction = types.SignalDirectionBullish
		}

		signals = append(signals, newSignal(types.SignalTypeExit, direction, symbol, bar, price, i, condition))
	}

	return signals
}

// Indicators computes every configured indicator over history and adds the bar fields.
// An indicator that fails to compute is left out and counted in the diagnostics.
func (g *SignalGenerator) Indicators(history []types.MarketData) map[string]indicator.Value {
	values := make(map[string]indicator.Value, len(g.indicatorNames)+len(barFields))

	for _, field := range barFields {
		values[field] = barFieldValue(history, field)
	}

	for _, name := range g.indicatorNames {
		config := g.strategy.Indicators[name]

		value, err := indicator.Compute(g.registry, config, history)
		if err != nil {
			delete(values, name)
			g.evaluator.RecordSuppressed(SuppressedIndicatorError)
			g.logger.Debug("Indicator calculation failed",
				zap.String("indicator", name),
				zap.String("type", config.Type),
				zap.Error(err),
			)

			continue
		}

		values[name] = value
	}

	return values
}

// Diagnostics returns the suppressed evaluation counts by reason.
func (g *SignalGenerator) Diagnostics() map[string]int {
	return g.evaluator.Suppressed()
}

func newSignal(signalType types.SignalType, direction types.SignalDirection, symbol string, bar types.MarketData, price decimal.Decimal, index int, condition types.Condition) types.Signal {
	orderType := condition.OrderType
	if orderType == "" {
		orderType = types.OrderTypeMarket
	}

	return types.Signal{
		Time:        bar.Time,
		Type:        signalType,
		Direction:   direction,
		Symbol:      symbol,
		Price:       price,
		Condition:   index,
		OrderType:   orderType,
		PriceOffset: decimal.NewFromFloat(condition.PriceOffset),
		Reason:      condition.String(),
	}
}

func barFieldValue(history []types.MarketData, field string) indicator.Value {
	series := make([]float64, len(history))
	for i, bar := range history {
		series[i], _ = bar.Field(field)
	}

	return indicator.NewValue("value", map[string][]float64{"value": series})
}
