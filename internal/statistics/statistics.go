// Package statistics derives the performance figures of a finished run from its equity curve,
// closed trades and orders. Everything here is a pure function of its inputs.
package statistics

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// TradingDaysPerYear is the annualisation convention for returns and ratios.
const TradingDaysPerYear = 252

// CalculateMetrics computes the return and risk metrics of a run.
// All metrics are zero when no trade was closed.
func CalculateMetrics(curve []types.EquityCurvePoint, trades []types.Trade) types.Metrics {
	if len(trades) == 0 || len(curve) == 0 {
		return types.Metrics{}
	}

	equity := equitySeries(curve)
	returns := Returns(equity)
	drawdown, duration := MaxDrawdown(equity)

	return types.Metrics{
		TotalReturn:         TotalReturn(equity),
		AnnualizedReturn:    AnnualizedReturn(equity),
		SharpeRatio:         SharpeRatio(returns),
		SortinoRatio:        SortinoRatio(returns),
		MaxDrawdown:         drawdown,
		MaxDrawdownDuration: duration,
		WinRate:             winRate(trades),
	}
}

// CalculateTradeStats summarises the closed trades. Slippage is summed over every filled order.
// The zero value is returned when no trade was closed.
func CalculateTradeStats(curve []types.EquityCurvePoint, trades []types.Trade, orders []types.Order) types.TradeStats {
	if len(trades) == 0 {
		return types.TradeStats{}
	}

	metrics := CalculateMetrics(curve, trades)

	var (
		wins, losses         []decimal.Decimal
		grossWin, grossLoss  decimal.Decimal
		totalPnL, commission decimal.Decimal
		largestWin           decimal.Decimal
		largestLoss          decimal.Decimal
	)

	for _, trade := range trades {
		totalPnL = totalPnL.Add(trade.PnL)
		commission = commission.Add(trade.Commission)

		if trade.IsWin() {
			if len(wins) == 0 || trade.PnL.GreaterThan(largestWin) {
				largestWin = trade.PnL
			}

			wins = append(wins, trade.PnL)
			grossWin = grossWin.Add(trade.PnL)

			continue
		}

		if len(losses) == 0 || trade.PnL.LessThan(largestLoss) {
			largestLoss = trade.PnL
		}

		losses = append(losses, trade.PnL)
		grossLoss = grossLoss.Add(trade.PnL)
	}

	return types.TradeStats{
		TotalTrades:         len(trades),
		WinningTrades:       len(wins),
		LosingTrades:        len(losses),
		WinRate:             metrics.WinRate,
		AverageWin:          average(wins),
		AverageLoss:         average(losses),
		LargestWin:          largestWin,
		LargestLoss:         largestLoss,
		ProfitFactor:        ProfitFactor(grossWin, grossLoss, len(losses)),
		SharpeRatio:         metrics.SharpeRatio,
		SortinoRatio:        metrics.SortinoRatio,
		MaxDrawdown:         metrics.MaxDrawdown,
		MaxDrawdownDuration: metrics.MaxDrawdownDuration,
		TotalPnL:            totalPnL,
		TotalCommission:     commission,
		TotalSlippage:       totalSlippage(orders),
		TradeHoldingTime:    holdingTime(trades),
	}
}

// ProfitFactor is grossWin / |grossLoss|. It is +Inf when there are wins and no losing trades,
// and 0 when there are no wins. Break-even trades count as losing trades, so wins next to only
// break-even trades leave grossLoss at zero; that case is math.MaxFloat64, the largest finite value.
func ProfitFactor(grossWin, grossLoss decimal.Decimal, losingTrades int) types.ProfitFactor {
	if !grossWin.IsPositive() {
		return 0
	}

	if losingTrades == 0 {
		return types.ProfitFactor(math.Inf(1))
	}

	if grossLoss.IsZero() {
		return types.ProfitFactor(math.MaxFloat64)
	}

	return types.ProfitFactor(grossWin.Div(grossLoss.Abs()).InexactFloat64())
}

// Returns are the period-over-period percentage changes of the equity series.
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(equity)-1)

	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}

		returns = append(returns, equity[i]/equity[i-1]-1)
	}

	return returns
}

// TotalReturn is last / first - 1.
func TotalReturn(equity []float64) float64 {
	if len(equity) == 0 || equity[0] == 0 {
		return 0
	}

	return equity[len(equity)-1]/equity[0] - 1
}

// AnnualizedReturn compounds the total return to a 252 period year.
func AnnualizedReturn(equity []float64) float64 {
	periods := len(equity) - 1
	if periods <= 0 {
		return 0
	}

	growth := 1 + TotalReturn(equity)
	if growth <= 0 {
		return -1
	}

	return math.Pow(growth, float64(TradingDaysPerYear)/float64(periods)) - 1
}

// SharpeRatio is sqrt(252) * mean / sample std. It is 0 with fewer than two returns or no variance.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	return annualisedRatio(returns, returns)
}

// SortinoRatio is like SharpeRatio but only the negative returns make up the denominator.
// It is 0 with fewer than two negative returns.
func SortinoRatio(returns []float64) float64 {
	var downside []float64

	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	if len(downside) < 2 {
		return 0
	}

	return annualisedRatio(returns, downside)
}

// MaxDrawdown returns the largest peak-to-trough decline as a fraction of the peak, and the
// longest run of consecutive points spent below a previous peak.
func MaxDrawdown(equity []float64) (float64, int) {
	var (
		peak     float64
		maxDD    float64
		run      int
		longest  int
		hasValue bool
	)

	for _, value := range equity {
		if !hasValue || value >= peak {
			peak = value
			hasValue = true
			run = 0

			continue
		}

		run++
		if run > longest {
			longest = run
		}

		if peak > 0 {
			if dd := (peak - value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD, longest
}

func annualisedRatio(returns []float64, deviation []float64) float64 {
	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}

	std, err := stats.StandardDeviationSample(deviation)
	if err != nil || std == 0 || math.IsNaN(std) {
		return 0
	}

	return math.Sqrt(TradingDaysPerYear) * mean / std
}

func equitySeries(curve []types.EquityCurvePoint) []float64 {
	equity := make([]float64, len(curve))
	for i, point := range curve {
		equity[i] = point.Equity.InexactFloat64()
	}

	return equity
}

func winRate(trades []types.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	wins := 0

	for _, trade := range trades {
		if trade.IsWin() {
			wins++
		}
	}

	return float64(wins) / float64(len(trades))
}

func average(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	return decimal.Sum(values[0], values[1:]...).Div(decimal.NewFromInt(int64(len(values))))
}

func totalSlippage(orders []types.Order) decimal.Decimal {
	total := decimal.Zero

	for _, order := range orders {
		if order.Status == types.OrderStatusFilled {
			total = total.Add(order.Slippage)
		}
	}

	return total
}

func holdingTime(trades []types.Trade) types.TradeHoldingTime {
	var (
		minimum, maximum time.Duration
		sum              time.Duration
	)

	for i, trade := range trades {
		held := trade.HoldingTime()
		if i == 0 || held < minimum {
			minimum = held
		}

		if held > maximum {
			maximum = held
		}

		sum += held
	}

	avg := sum / time.Duration(len(trades))

	return types.TradeHoldingTime{
		Min: int(minimum.Seconds()),
		Max: int(maximum.Seconds()),
		Avg: int(math.Round(avg.Seconds())),
	}
}
