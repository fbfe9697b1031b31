package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// BacktestEngineV1TestSuite runs whole backtests against in-memory bars.
type BacktestEngineV1TestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func (suite *BacktestEngineV1TestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()
}

// thresholdStrategy buys at or below entry and sells at or above exit.
func thresholdStrategy(entry float64, exit float64) types.StrategyConfig {
	return types.StrategyConfig{
		Name:    "threshold",
		Version: "1.2.0",
		EntryConditions: []types.Condition{
			{Indicator: "close", Operator: types.OperatorLessThanOrEqual, Value: value(entry)},
		},
		ExitConditions: []types.Condition{
			{Indicator: "close", Operator: types.OperatorGreaterThanOrEqual, Value: value(exit)},
		},
	}
}

func crossoverStrategy() types.StrategyConfig {
	return types.StrategyConfig{
		Name: "sma_crossover",
		Indicators: map[string]types.IndicatorConfig{
			"fast": {Type: "sma", Params: map[string]any{"period": 5}},
			"slow": {Type: "sma", Params: map[string]any{"period": 20}},
		},
		EntryConditions: []types.Condition{
			{Indicator1: "fast", Indicator2: "slow", Operator: types.OperatorCrossAbove},
		},
		ExitConditions: []types.Condition{
			{Indicator1: "fast", Indicator2: "slow", Operator: types.OperatorCrossBelow},
		},
	}
}

func generatedBars(symbol string, seed int64, count int) []types.MarketData {
	config := mocks.DefaultConfig()
	config.Symbol = symbol
	config.StartTime = day(0)
	config.Interval = 24 * time.Hour
	config.Count = count
	config.Volatility = 0.02

	return mocks.NewDataGenerator(seed).Generate(config)
}

func (suite *BacktestEngineV1TestSuite) run(bars []types.MarketData, strategyConfig types.StrategyConfig, config types.BacktestConfig, callbacks engine.LifecycleCallbacks) (*types.BacktestResult, error) {
	backtest := NewBacktestEngineV1(datasource.NewInMemoryIndexedDataSource(bars...), suite.logger)

	return backtest.Run(context.Background(), strategyConfig, config, callbacks)
}

func (suite *BacktestEngineV1TestSuite) TestSingleProfitableTrade() {
	bars := dailyBars("AAPL", 100, 101, 102, 103, 104, 105, 106, 107, 108, 110)

	result, err := suite.run(bars, thresholdStrategy(100, 110), testConfig("AAPL"), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.Require().NotNil(result)

	suite.Equal(types.RunStatusCompleted, result.Status)
	suite.Equal(types.StrategyInfo{Name: "threshold", Version: "1.2.0"}, result.Strategy)

	suite.Require().Len(result.Trades, 1)
	trade := result.Trades[0]
	assertDecimal(suite.Assert(), "50", trade.Quantity)
	assertDecimal(suite.Assert(), "100", trade.EntryPrice)
	assertDecimal(suite.Assert(), "110", trade.ExitPrice)
	assertDecimal(suite.Assert(), "500", trade.PnL)
	suite.Equal(types.TradeCloseReasonSignal, trade.Reason)
	suite.Equal(day(0), trade.EntryTime)
	suite.Equal(day(9), trade.ExitTime)

	suite.Empty(result.Positions)
	suite.Require().Len(result.Orders, 2)

	for _, order := range result.Orders {
		suite.Equal(types.OrderStatusFilled, order.Status)
	}

	suite.Require().Len(result.EquityCurve, 11)
	assertDecimal(suite.Assert(), "10000", result.EquityCurve[0].Equity)
	suite.Equal(testStart, result.EquityCurve[0].Time)
	assertDecimal(suite.Assert(), "10500", result.EquityCurve[10].Equity)

	suite.Equal(1, result.Stats.TotalTrades)
	suite.Equal(1, result.Stats.WinningTrades)
	suite.True(result.Stats.ProfitFactor.IsInfinite())
	suite.InDelta(0.05, result.Metrics["total_return"], 1e-9)

	data, err := json.Marshal(result)
	suite.Require().NoError(err)
	suite.Contains(string(data), `"profit_factor":"inf"`)
}

func (suite *BacktestEngineV1TestSuite) TestStopLossExit() {
	config := testConfig("AAPL")
	config.StopLoss = optional.Some(d("0.02"))

	strategyConfig := types.StrategyConfig{
		Name: "enter_once",
		EntryConditions: []types.Condition{
			{Indicator: "close", Operator: types.OperatorGreaterThanOrEqual, Value: value(100)},
		},
	}

	result, err := suite.run(dailyBars("AAPL", 100, 99, 97, 96), strategyConfig, config, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.TradeCloseReasonStopLoss, result.Trades[0].Reason)
	assertDecimal(suite.Assert(), "97", result.Trades[0].ExitPrice)
	assertDecimal(suite.Assert(), "-150", result.Trades[0].PnL)
	suite.Equal(day(2), result.Trades[0].ExitTime)
	suite.Empty(result.Positions)
	assertDecimal(suite.Assert(), "9850", result.EquityCurve[len(result.EquityCurve)-1].Equity)
}

func (suite *BacktestEngineV1TestSuite) TestMissingSymbolIsSkipped() {
	bars := dailyBars("AAPL", 100, 101, 102, 103, 104, 105, 106, 107, 108, 110)

	result, err := suite.run(bars, thresholdStrategy(100, 110), testConfig("AAPL", "MSFT"), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(types.RunStatusCompleted, result.Status)
	suite.Equal([]string{"MSFT"}, result.Diagnostics.SkippedSymbols)

	for _, trade := range result.Trades {
		suite.Equal("AAPL", trade.Symbol)
	}

	suite.Len(result.Trades, 1)
}

func (suite *BacktestEngineV1TestSuite) TestInvalidConfigFailsBeforeFetching() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	// no expectations: any fetch fails the test
	ds := mocks.NewMockDataSource(ctrl)

	config := testConfig("AAPL")
	config.PositionSize = d("1.5")

	result, err := NewBacktestEngineV1(ds, suite.logger).Run(context.Background(), thresholdStrategy(100, 110), config, engine.LifecycleCallbacks{})
	suite.Nil(result)
	suite.True(errors.IsConfigurationError(err))

	result, err = NewBacktestEngineV1(ds, suite.logger).Run(context.Background(), types.StrategyConfig{}, testConfig("AAPL"), engine.LifecycleCallbacks{})
	suite.Nil(result)
	suite.True(errors.IsConfigurationError(err))
}

func (suite *BacktestEngineV1TestSuite) TestNoDatasource() {
	result, err := NewBacktestEngineV1(nil, suite.logger).Run(context.Background(), thresholdStrategy(100, 110), testConfig("AAPL"), engine.LifecycleCallbacks{})
	suite.Nil(result)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoDatasource))
}

func (suite *BacktestEngineV1TestSuite) TestAllSymbolsMissingFails() {
	var endStatus types.RunStatus

	var endErr error

	onEnd := engine.OnRunEndCallback(func(runID string, status types.RunStatus, err error) {
		endStatus = status
		endErr = err
	})

	result, err := suite.run(dailyBars("AAPL", 100, 101), thresholdStrategy(100, 110), testConfig("MSFT", "GOOG"), engine.LifecycleCallbacks{OnRunEnd: &onEnd})
	suite.Require().Error(err)
	suite.True(errors.IsDataUnavailable(err))

	suite.Require().NotNil(result)
	suite.Equal(types.RunStatusFailed, result.Status)
	suite.Equal([]string{"MSFT", "GOOG"}, result.Diagnostics.SkippedSymbols)
	suite.Len(result.EquityCurve, 1)
	suite.Empty(result.Trades)

	suite.Equal(types.RunStatusFailed, endStatus)
	suite.Equal(err, endErr)
}

func (suite *BacktestEngineV1TestSuite) TestFetchErrorFailsRun() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	ds := mocks.NewMockDataSource(ctrl)
	ds.EXPECT().
		GetBars(gomock.Any(), "AAPL", types.TimeframeOneDay, testStart, testStart.AddDate(1, 0, 0)).
		Return(nil, errors.New(errors.ErrCodeQueryFailed, "connection reset"))

	result, err := NewBacktestEngineV1(ds, suite.logger).Run(context.Background(), thresholdStrategy(100, 110), testConfig("AAPL"), engine.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeHistoricalDataFailed))
	suite.False(errors.IsDataUnavailable(err))
	suite.Require().NotNil(result)
	suite.Equal(types.RunStatusFailed, result.Status)
}

func (suite *BacktestEngineV1TestSuite) TestCancelledContextFailsRun() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backtest := NewBacktestEngineV1(datasource.NewInMemoryIndexedDataSource(dailyBars("AAPL", 100, 101)...), suite.logger)

	result, err := backtest.Run(ctx, thresholdStrategy(100, 110), testConfig("AAPL"), engine.LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.ErrorIs(err, context.Canceled)
	suite.Equal(types.RunStatusFailed, result.Status)
}

func (suite *BacktestEngineV1TestSuite) TestRunsAreDeterministic() {
	bars := append(generatedBars("AAPL", 7, 250), generatedBars("MSFT", 11, 250)...)
	config := testConfig("AAPL", "MSFT")
	config.CommissionRate = d("0.001")
	config.SlippageRate = d("0.0005")
	config.StopLoss = optional.Some(d("0.05"))

	first, err := suite.run(bars, crossoverStrategy(), config, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	second, err := suite.run(bars, crossoverStrategy(), config, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	firstJSON, err := json.Marshal(first)
	suite.Require().NoError(err)

	secondJSON, err := json.Marshal(second)
	suite.Require().NoError(err)

	suite.Equal(string(firstJSON), string(secondJSON))
	suite.NotEmpty(first.Orders)
}

func (suite *BacktestEngineV1TestSuite) TestLedgerInvariants() {
	bars := generatedBars("AAPL", 42, 300)
	config := testConfig("AAPL")
	config.CommissionRate = d("0.001")
	config.SlippageRate = d("0.001")
	config.PositionSize = d("0.9")

	result, err := suite.run(bars, crossoverStrategy(), config, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.Require().NotEmpty(result.Trades)

	curve := result.EquityCurve
	suite.Require().Len(curve, len(bars)+1)
	suite.Equal(config.StartDate, curve[0].Time)
	assertDecimal(suite.Assert(), "10000", curve[0].Equity)

	index := make(map[time.Time]int, len(curve))
	for i, point := range curve {
		index[point.Time] = i

		suite.True(point.Equity.Equal(point.Cash.Add(point.PositionsValue)))
		suite.False(point.Cash.IsNegative())

		if i > 0 {
			suite.True(point.Time.After(curve[i-1].Time))
		}
	}

	// a buy never spends more than the cash held before its timestamp
	for _, order := range result.Orders {
		if order.Status != types.OrderStatusFilled || order.Side != types.OrderSideBuy {
			continue
		}

		cost := order.FilledPrice.Mul(order.Quantity).Add(order.Commission)
		before := curve[index[order.FilledAt]-1]
		suite.True(cost.LessThanOrEqual(before.Cash), "order %s costs %s with %s available", order.OrderID, cost, before.Cash)
	}

	exits := 0
	for _, order := range result.Orders {
		if order.Status == types.OrderStatusFilled && !order.IsEntry {
			exits++
		}
	}

	suite.Equal(len(result.Trades), exits)
	suite.LessOrEqual(len(result.Positions), 1)

	for _, trade := range result.Trades {
		suite.Equal(types.PositionTypeLong, trade.PositionType)
		suite.Equal(trade.ExitPrice.Sub(trade.EntryPrice).Sign(), trade.PnL.Sign())
		suite.False(trade.ExitTime.Before(trade.EntryTime))
	}

	suite.Equal(len(result.Trades), result.Stats.TotalTrades)
	suite.Equal(result.Stats.TotalTrades, result.Stats.WinningTrades+result.Stats.LosingTrades)
}

func (suite *BacktestEngineV1TestSuite) TestTimestampsAreTheUnionOfAllSymbols() {
	bars := append(dailyBars("AAPL", 100, 100, 100, 100, 100), dailyBars("MSFT", 50, 50, 50, 50, 50)...)
	for i := range bars[5:] {
		bars[5+i].Time = day(i + 2)
	}

	result, err := suite.run(bars, thresholdStrategy(0, 1000), testConfig("AAPL", "MSFT"), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Len(result.EquityCurve, 8)
	suite.Equal(day(6), result.EquityCurve[7].Time)
}

func (suite *BacktestEngineV1TestSuite) TestOpenPositionIsReportedAtEnd() {
	result, err := suite.run(dailyBars("AAPL", 100, 101, 102), thresholdStrategy(100, 1000), testConfig("AAPL"), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Empty(result.Trades)
	suite.Require().Len(result.Positions, 1)
	assertDecimal(suite.Assert(), "102", result.Positions[0].CurrentPrice)
	assertDecimal(suite.Assert(), "100", result.Positions[0].UnrealizedPnL)
	suite.Equal(0, result.Stats.TotalTrades)
	suite.Equal(types.ProfitFactor(0), result.Stats.ProfitFactor)
	assertDecimal(suite.Assert(), "10100", result.EquityCurve[3].Equity)
}

func (suite *BacktestEngineV1TestSuite) TestDiagnostics() {
	strategyConfig := types.StrategyConfig{
		Name: "diagnostics",
		EntryConditions: []types.Condition{
			{Indicator: "close", Operator: types.OperatorGreaterThan, Value: value(0)},
			{Indicator: "rsi_14", Operator: types.OperatorLessThan, Value: value(30)},
		},
	}

	result, err := suite.run(dailyBars("AAPL", 100, 101, 102, 103), strategyConfig, testConfig("AAPL"), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(4, result.Diagnostics.SuppressedEvaluations[strategy.SuppressedUnknownIndicator])
	suite.Equal(3, result.Diagnostics.DroppedSignals[DroppedPositionExists])
	suite.Empty(result.Diagnostics.SkippedSymbols)
}

func (suite *BacktestEngineV1TestSuite) TestCallbacks() {
	var (
		runIDs   []string
		symbols  []string
		total    int
		progress []int
		status   types.RunStatus
	)

	onStart := engine.OnRunStartCallback(func(runID string, s []string, totalTimestamps int) error {
		runIDs = append(runIDs, runID)
		symbols = s
		total = totalTimestamps

		return nil
	})
	onProcess := engine.OnProcessDataCallback(func(current int, _ int) error {
		progress = append(progress, current)

		return nil
	})
	onEnd := engine.OnRunEndCallback(func(runID string, s types.RunStatus, err error) {
		runIDs = append(runIDs, runID)
		status = s
	})

	marker, err := NewBacktestMarker(suite.logger)
	suite.Require().NoError(err)
	defer marker.Close()

	onSignal := engine.OnSignalCallback(marker.Mark)

	bars := dailyBars("AAPL", 100, 101, 102, 103, 104, 105, 106, 107, 108, 110)
	_, err = suite.run(bars, thresholdStrategy(100, 110), testConfig("AAPL", "MSFT"), engine.LifecycleCallbacks{
		OnRunStart:    &onStart,
		OnProcessData: &onProcess,
		OnSignal:      &onSignal,
		OnRunEnd:      &onEnd,
	})
	suite.Require().NoError(err)

	suite.Equal([]string{"AAPL"}, symbols)
	suite.Equal(10, total)
	suite.Equal([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, progress)
	suite.Equal(types.RunStatusCompleted, status)
	suite.Require().Len(runIDs, 2)
	suite.Equal(runIDs[0], runIDs[1])

	marks, err := marker.GetMarks()
	suite.Require().NoError(err)
	suite.Require().Len(marks, 2)
	suite.Equal(types.SignalTypeEntry, marks[0].Signal.Type)
	suite.Equal(types.SignalOutcomeOrderPlaced, marks[0].Outcome)
	suite.Equal(types.SignalTypeExit, marks[1].Signal.Type)
	suite.InDelta(110.0, marks[1].Bar.Close, 1e-9)
}

func (suite *BacktestEngineV1TestSuite) TestCallbackErrorAbortsRun() {
	onProcess := engine.OnProcessDataCallback(func(current int, _ int) error {
		if current == 3 {
			return errors.New(errors.ErrCodeUnknown, "stop")
		}

		return nil
	})

	bars := dailyBars("AAPL", 100, 101, 102, 103, 104, 105)
	result, err := suite.run(bars, thresholdStrategy(100, 110), testConfig("AAPL"), engine.LifecycleCallbacks{OnProcessData: &onProcess})
	suite.True(errors.HasCode(err, errors.ErrCodeCallbackFailed))
	suite.Require().NotNil(result)
	suite.Equal(types.RunStatusFailed, result.Status)
	suite.Len(result.EquityCurve, 4)

	onStart := engine.OnRunStartCallback(func(string, []string, int) error {
		return errors.New(errors.ErrCodeUnknown, "refused")
	})

	result, err = suite.run(bars, thresholdStrategy(100, 110), testConfig("AAPL"), engine.LifecycleCallbacks{OnRunStart: &onStart})
	suite.True(errors.HasCode(err, errors.ErrCodeCallbackFailed))
	suite.Len(result.EquityCurve, 1)
}

func (suite *BacktestEngineV1TestSuite) TestBarsOutsideTheRangeAreIgnored() {
	bars := dailyBars("AAPL", 100, 101, 102)
	bars = append(bars, bar("AAPL", testStart.AddDate(-1, 0, 0), 1, 1, 1, 1))

	config := testConfig("AAPL")
	config.EndDate = day(1)

	result, err := suite.run(bars, thresholdStrategy(0, 1000), config, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.Len(result.EquityCurve, 3)
}

func (suite *BacktestEngineV1TestSuite) TestConcurrentRunsShareOneEngine() {
	bars := generatedBars("AAPL", 3, 120)
	backtest := NewBacktestEngineV1(datasource.NewInMemoryIndexedDataSource(bars...), suite.logger)

	results := make(chan *types.BacktestResult, 4)
	for range 4 {
		go func() {
			result, err := backtest.Run(context.Background(), crossoverStrategy(), testConfig("AAPL"), engine.LifecycleCallbacks{})
			suite.NoError(err)
			results <- result
		}()
	}

	var equities []decimal.Decimal
	for range 4 {
		result := <-results
		suite.Require().NotNil(result)
		equities = append(equities, result.EquityCurve[len(result.EquityCurve)-1].Equity)
	}

	for _, equity := range equities[1:] {
		suite.True(equity.Equal(equities[0]))
	}
}

func (suite *BacktestEngineV1TestSuite) TestGetConfigSchema() {
	schema, err := NewBacktestEngineV1(nil, suite.logger).GetConfigSchema()
	suite.Require().NoError(err)
	suite.True(strings.Contains(schema, "initial_capital"))
	suite.True(strings.Contains(schema, "backtest-config"))
}

func (suite *BacktestEngineV1TestSuite) TestExitSideDoesNotFilterExits() {
	bars := dailyBars("AAPL", 100, 101, 102, 103, 104, 105, 106, 107, 108, 110)

	strategy := thresholdStrategy(100, 110)
	strategy.EntryConditions[0].Side = types.OrderSideBuy
	strategy.ExitConditions[0].Side = types.OrderSideSell

	result, err := suite.run(bars, strategy, testConfig("AAPL"), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)
	assertDecimal(suite.Assert(), "500", result.Trades[0].PnL)
	suite.Empty(result.Positions)
	suite.Zero(result.Diagnostics.DroppedSignals[DroppedNoPosition])
}

func (suite *BacktestEngineV1TestSuite) TestShortClosedByExitWithoutSide() {
	bars := dailyBars("AAPL", 110, 108, 105, 102, 100)

	strategy := types.StrategyConfig{
		Name: "fade",
		EntryConditions: []types.Condition{
			{Indicator: "close", Operator: types.OperatorGreaterThanOrEqual, Value: value(110), Side: types.OrderSideSell},
		},
		ExitConditions: []types.Condition{
			{Indicator: "close", Operator: types.OperatorLessThanOrEqual, Value: value(100)},
		},
	}

	config := testConfig("AAPL")
	config.EnableShorting = true

	result, err := suite.run(bars, strategy, config, engine.LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.PositionTypeShort, result.Trades[0].PositionType)
	assertDecimal(suite.Assert(), "110", result.Trades[0].EntryPrice)
	assertDecimal(suite.Assert(), "100", result.Trades[0].ExitPrice)
	suite.True(result.Trades[0].PnL.IsPositive())
	suite.Empty(result.Positions)
}
