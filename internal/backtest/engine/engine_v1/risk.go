package engine

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RiskMonitor force-closes positions that breach their stop loss, trailing stop, take profit or
// per-trade loss limit. It runs before signals are processed on every timestamp.
type RiskMonitor struct {
	stopLoss        optional.Option[decimal.Decimal]
	takeProfit      optional.Option[decimal.Decimal]
	trailingStop    optional.Option[decimal.Decimal]
	maxLossPerTrade optional.Option[decimal.Decimal]
	commission      commission_fee.CommissionFee
	logger          *logger.Logger
}

// NewRiskMonitor builds the exit policy of a run. The backtest config's stop_loss and take_profit
// win over the strategy's risk management percentages.
func NewRiskMonitor(config types.BacktestConfig, strategy types.StrategyConfig, commission commission_fee.CommissionFee, logger *logger.Logger) *RiskMonitor {
	monitor := &RiskMonitor{
		stopLoss:        config.StopLoss,
		takeProfit:      config.TakeProfit,
		trailingStop:    optional.None[decimal.Decimal](),
		maxLossPerTrade: optional.None[decimal.Decimal](),
		commission:      commission,
		logger:          logger,
	}

	rm := strategy.RiskManagement
	if rm == nil {
		return monitor
	}

	if monitor.stopLoss.IsNone() && rm.UseStopLoss && rm.StopLossPct > 0 {
		monitor.stopLoss = optional.Some(decimal.NewFromFloat(rm.StopLossPct))
	}

	if monitor.takeProfit.IsNone() && rm.UseTakeProfit && rm.TakeProfitPct > 0 {
		monitor.takeProfit = optional.Some(decimal.NewFromFloat(rm.TakeProfitPct))
	}

	if rm.UseTrailingStop && rm.TrailingStopPct > 0 {
		monitor.trailingStop = optional.Some(decimal.NewFromFloat(rm.TrailingStopPct))
	}

	if rm.MaxLossPerTrade > 0 {
		monitor.maxLossPerTrade = optional.Some(decimal.NewFromFloat(rm.MaxLossPerTrade))
	}

	return monitor
}

// Check marks every open position that has a bar at this timestamp to the bar's close and
// force-closes the ones that breach a limit. Closed trades are returned in symbol order.
func (r *RiskMonitor) Check(state *BacktestState, bars map[string]types.MarketData, at time.Time) []types.Trade {
	var closed []types.Trade

	for _, symbol := range state.openSymbols() {
		bar, ok := bars[symbol]
		if !ok {
			continue
		}

		price := decimal.NewFromFloat(bar.Close)
		state.Mark(symbol, price, at)

		reason, breached := r.breach(state.positions[symbol], state.Equity())
		if !breached {
			continue
		}

		position := state.positions[symbol]
		commission := r.commission.Calculate(position.Quantity, price)

		trade, err := state.ForceClose(symbol, price, commission, at, reason)
		if err != nil {
			r.logger.Error("Failed to force close position", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		closed = append(closed, trade)
	}

	return closed
}

// breach decides whether position must be closed at its current price.
func (r *RiskMonitor) breach(position *types.Position, equity decimal.Decimal) (types.TradeCloseReason, bool) {
	one := decimal.NewFromInt(1)
	price := position.CurrentPrice
	long := position.PositionType == types.PositionTypeLong

	if r.stopLoss.IsSome() {
		sl := r.stopLoss.Unwrap()
		if long && price.LessThanOrEqual(position.EntryPrice.Mul(one.Sub(sl))) {
			return types.TradeCloseReasonStopLoss, true
		}

		if !long && price.GreaterThanOrEqual(position.EntryPrice.Mul(one.Add(sl))) {
			return types.TradeCloseReasonStopLoss, true
		}
	}

	if r.maxLossPerTrade.IsSome() && position.UnrealizedPnL.IsNegative() {
		limit := equity.Mul(r.maxLossPerTrade.Unwrap())
		if position.UnrealizedPnL.Abs().GreaterThanOrEqual(limit) {
			return types.TradeCloseReasonStopLoss, true
		}
	}

	if r.trailingStop.IsSome() {
		trail := r.trailingStop.Unwrap()
		if long && price.LessThanOrEqual(position.HighWaterMark.Mul(one.Sub(trail))) {
			return types.TradeCloseReasonTrailingStop, true
		}

		if !long && price.GreaterThanOrEqual(position.LowWaterMark.Mul(one.Add(trail))) {
			return types.TradeCloseReasonTrailingStop, true
		}
	}

	if r.takeProfit.IsSome() {
		tp := r.takeProfit.Unwrap()
		if long && price.GreaterThanOrEqual(position.EntryPrice.Mul(one.Add(tp))) {
			return types.TradeCloseReasonTakeProfit, true
		}

		if !long && price.LessThanOrEqual(position.EntryPrice.Mul(one.Sub(tp))) {
			return types.TradeCloseReasonTakeProfit, true
		}
	}

	return "", false
}
