package engine

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// testStart is the start date of every test config. Bars begin one day later.
var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// assertDecimal compares numerically, so 100 and 100.00 are equal.
func assertDecimal(a *assert.Assertions, expected string, actual decimal.Decimal) {
	a.Truef(d(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func value(v float64) *float64 {
	return &v
}

func day(i int) time.Time {
	return testStart.AddDate(0, 0, i+1)
}

// dailyBars returns one flat bar per close, starting on day(0).
func dailyBars(symbol string, closes ...float64) []types.MarketData {
	bars := make([]types.MarketData, len(closes))
	for i, c := range closes {
		bars[i] = bar(symbol, day(i), c, c, c, c)
	}

	return bars
}

func bar(symbol string, at time.Time, open, high, low, close float64) types.MarketData {
	return types.MarketData{
		Symbol: symbol,
		Time:   at,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: 1000,
	}
}

// testConfig is a frictionless config: 10000 capital, no commission, no slippage, half of equity per entry.
func testConfig(symbols ...string) types.BacktestConfig {
	config := types.DefaultBacktestConfig()
	config.StartDate = testStart
	config.EndDate = testStart.AddDate(1, 0, 0)
	config.InitialCapital = decimal.NewFromInt(10000)
	config.Symbols = symbols
	config.Timeframe = types.TimeframeOneDay
	config.CommissionRate = decimal.Zero
	config.SlippageRate = decimal.Zero
	config.PositionSize = d("0.5")

	return config
}

func marketOrder(id string, symbol string, side types.OrderSide, positionType types.PositionType, isEntry bool, quantity string) *types.Order {
	return &types.Order{
		OrderID:      id,
		Symbol:       symbol,
		Type:         types.OrderTypeMarket,
		Side:         side,
		PositionType: positionType,
		IsEntry:      isEntry,
		Quantity:     d(quantity),
		CreatedAt:    day(0),
		Status:       types.OrderStatusPending,
		Reason:       types.Reason{Reason: types.OrderReasonStrategy},
		StrategyName: "test",
	}
}

func entrySignal(symbol string, direction types.SignalDirection, at time.Time, price string) types.Signal {
	return types.Signal{
		Time:      at,
		Type:      types.SignalTypeEntry,
		Direction: direction,
		Symbol:    symbol,
		Price:     d(price),
		OrderType: types.OrderTypeMarket,
		Reason:    "close > 0",
	}
}

func exitSignal(symbol string, direction types.SignalDirection, at time.Time, price string) types.Signal {
	signal := entrySignal(symbol, direction, at, price)
	signal.Type = types.SignalTypeExit

	return signal
}
