package store

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type DuckDBStoreTestSuite struct {
	suite.Suite
	store *DuckDBStore
	clock time.Time
	ctx   context.Context
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, new(DuckDBStoreTestSuite))
}

func (suite *DuckDBStoreTestSuite) SetupTest() {
	store, err := NewDuckDBStore(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)

	suite.clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		suite.clock = suite.clock.Add(time.Minute)

		return suite.clock
	}

	suite.store = store
	suite.ctx = context.Background()
}

func (suite *DuckDBStoreTestSuite) TearDownTest() {
	suite.store.Close()
}

func strategyConfig(name string) types.StrategyConfig {
	threshold := 30.0

	return types.StrategyConfig{
		Name:        name,
		Description: "buys oversold",
		Version:     "1.0.0",
		Indicators: map[string]types.IndicatorConfig{
			"rsi": {Type: "rsi", Params: map[string]any{"period": 14}},
		},
		EntryConditions: []types.Condition{
			{Indicator: "rsi", Operator: types.OperatorLessThan, Value: &threshold},
		},
	}
}

func (suite *DuckDBStoreTestSuite) create(userID string, name string) *types.Strategy {
	strategy, err := suite.store.CreateStrategy(suite.ctx, userID, strategyConfig(name))
	suite.Require().NoError(err)

	return strategy
}

func (suite *DuckDBStoreTestSuite) TestCreateAndGetStrategy() {
	created := suite.create("alice", "rsi_dip")

	suite.NotEmpty(created.ID)
	suite.Equal("alice", created.UserID)
	suite.Equal("rsi_dip", created.Name)
	suite.Equal("buys oversold", created.Description)
	suite.True(created.IsActive)
	suite.False(created.IsPublic)

	loaded, err := suite.store.GetStrategy(suite.ctx, "alice", created.ID)
	suite.Require().NoError(err)
	suite.Equal(created.ID, loaded.ID)
	suite.Equal(created.Config.Name, loaded.Config.Name)
	suite.Equal(14, int(loaded.Config.Indicators["rsi"].Params["period"].(float64)))
	suite.Require().Len(loaded.Config.EntryConditions, 1)
	suite.Equal(30.0, *loaded.Config.EntryConditions[0].Value)
	suite.True(created.CreatedAt.Equal(loaded.CreatedAt))
	suite.Nil(loaded.Performance)
}

func (suite *DuckDBStoreTestSuite) TestCreateStrategyValidates() {
	_, err := suite.store.CreateStrategy(suite.ctx, "alice", types.StrategyConfig{})
	suite.True(errors.IsConfigurationError(err))

	_, err = suite.store.CreateStrategy(suite.ctx, "", strategyConfig("rsi_dip"))
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *DuckDBStoreTestSuite) TestGetStrategyVisibility() {
	created := suite.create("alice", "rsi_dip")

	_, err := suite.store.GetStrategy(suite.ctx, "bob", created.ID)
	suite.True(errors.HasCode(err, errors.ErrCodeForbidden))

	_, err = suite.store.GetStrategy(suite.ctx, "alice", "missing")
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))

	shared, err := suite.store.ShareStrategy(suite.ctx, "alice", created.ID, true)
	suite.Require().NoError(err)
	suite.True(shared.IsPublic)
	suite.True(shared.UpdatedAt.After(created.UpdatedAt))

	loaded, err := suite.store.GetStrategy(suite.ctx, "bob", created.ID)
	suite.Require().NoError(err)
	suite.True(loaded.IsPublic)

	_, err = suite.store.ShareStrategy(suite.ctx, "bob", created.ID, false)
	suite.True(errors.HasCode(err, errors.ErrCodeForbidden))
}

func (suite *DuckDBStoreTestSuite) TestListStrategies() {
	first := suite.create("alice", "first")
	second := suite.create("alice", "second")
	public := suite.create("bob", "public")
	suite.create("bob", "private")

	_, err := suite.store.ShareStrategy(suite.ctx, "bob", public.ID, true)
	suite.Require().NoError(err)

	own, err := suite.store.ListStrategies(suite.ctx, "alice", false)
	suite.Require().NoError(err)
	suite.Require().Len(own, 2)
	suite.Equal(second.ID, own[0].ID)
	suite.Equal(first.ID, own[1].ID)

	all, err := suite.store.ListStrategies(suite.ctx, "alice", true)
	suite.Require().NoError(err)
	suite.Require().Len(all, 3)
	suite.Equal(public.ID, all[0].ID)

	none, err := suite.store.ListStrategies(suite.ctx, "carol", false)
	suite.Require().NoError(err)
	suite.NotNil(none)
	suite.Empty(none)
}

func (suite *DuckDBStoreTestSuite) TestUpdateStrategy() {
	created := suite.create("alice", "rsi_dip")

	config := strategyConfig("rsi_dip_v2")
	config.Description = "tighter"

	updated, err := suite.store.UpdateStrategy(suite.ctx, "alice", created.ID, config)
	suite.Require().NoError(err)
	suite.Equal("rsi_dip_v2", updated.Name)

	loaded, err := suite.store.GetStrategy(suite.ctx, "alice", created.ID)
	suite.Require().NoError(err)
	suite.Equal("rsi_dip_v2", loaded.Name)
	suite.Equal("tighter", loaded.Description)
	suite.Equal("rsi_dip_v2", loaded.Config.Name)
	suite.True(loaded.UpdatedAt.After(loaded.CreatedAt))

	_, err = suite.store.UpdateStrategy(suite.ctx, "bob", created.ID, config)
	suite.True(errors.HasCode(err, errors.ErrCodeForbidden))

	_, err = suite.store.UpdateStrategy(suite.ctx, "alice", created.ID, types.StrategyConfig{})
	suite.True(errors.IsConfigurationError(err))

	_, err = suite.store.UpdateStrategy(suite.ctx, "alice", "missing", config)
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))
}

func (suite *DuckDBStoreTestSuite) TestDeleteStrategyDeletesResults() {
	created := suite.create("alice", "rsi_dip")

	stored, err := suite.store.SaveResult(suite.ctx, "alice", created.ID, sampleResult())
	suite.Require().NoError(err)

	suite.True(errors.HasCode(suite.store.DeleteStrategy(suite.ctx, "bob", created.ID), errors.ErrCodeForbidden))
	suite.Require().NoError(suite.store.DeleteStrategy(suite.ctx, "alice", created.ID))

	_, err = suite.store.GetStrategy(suite.ctx, "alice", created.ID)
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))

	_, err = suite.store.GetResult(suite.ctx, "alice", stored.ID)
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))
}

func sampleResult() *types.BacktestResult {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	config := types.DefaultBacktestConfig()
	config.StartDate = start
	config.EndDate = start.AddDate(0, 1, 0)
	config.Symbols = []string{"AAPL"}
	config.Timeframe = types.TimeframeOneDay

	return &types.BacktestResult{
		Config:   config,
		Strategy: types.StrategyInfo{Name: "rsi_dip", Version: "1.0.0"},
		Status:   types.RunStatusCompleted,
		Stats: types.TradeStats{
			TotalTrades:   1,
			WinningTrades: 1,
			WinRate:       1,
			TotalPnL:      decimal.NewFromInt(500),
		},
		EquityCurve: []types.EquityCurvePoint{
			{Time: start, Equity: decimal.NewFromInt(10000), Cash: decimal.NewFromInt(10000), PositionsValue: decimal.Zero},
		},
		Trades: []types.Trade{
			{Symbol: "AAPL", PositionType: types.PositionTypeLong, EntryPrice: decimal.NewFromInt(100), ExitPrice: decimal.NewFromInt(110), Quantity: decimal.NewFromInt(50), PnL: decimal.NewFromInt(500)},
		},
		Positions:   []types.Position{},
		Orders:      []types.Order{},
		Metrics:     map[string]float64{"total_return": 0.05, "sharpe_ratio": 1.2},
		Diagnostics: types.NewDiagnostics(),
	}
}

func (suite *DuckDBStoreTestSuite) TestSaveAndGetResult() {
	created := suite.create("alice", "rsi_dip")

	stored, err := suite.store.SaveResult(suite.ctx, "alice", created.ID, sampleResult())
	suite.Require().NoError(err)
	suite.NotEmpty(stored.ID)

	loaded, err := suite.store.GetResult(suite.ctx, "alice", stored.ID)
	suite.Require().NoError(err)
	suite.Equal(created.ID, loaded.StrategyID)
	suite.Equal(types.RunStatusCompleted, loaded.Result.Status)
	suite.Equal([]string{"AAPL"}, loaded.Result.Config.Symbols)
	suite.Require().Len(loaded.Result.Trades, 1)
	suite.True(loaded.Result.Trades[0].PnL.Equal(decimal.NewFromInt(500)))
	suite.InDelta(0.05, loaded.Result.Metrics["total_return"], 1e-12)

	strategy, err := suite.store.GetStrategy(suite.ctx, "alice", created.ID)
	suite.Require().NoError(err)
	suite.Equal(1.2, strategy.Performance["sharpe_ratio"])

	_, err = suite.store.GetResult(suite.ctx, "bob", stored.ID)
	suite.True(errors.HasCode(err, errors.ErrCodeForbidden))

	_, err = suite.store.GetResult(suite.ctx, "alice", "missing")
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))
}

func (suite *DuckDBStoreTestSuite) TestSaveResultOnSharedStrategy() {
	created := suite.create("alice", "rsi_dip")

	_, err := suite.store.SaveResult(suite.ctx, "bob", created.ID, sampleResult())
	suite.True(errors.HasCode(err, errors.ErrCodeForbidden))

	_, err = suite.store.ShareStrategy(suite.ctx, "alice", created.ID, true)
	suite.Require().NoError(err)

	stored, err := suite.store.SaveResult(suite.ctx, "bob", created.ID, sampleResult())
	suite.Require().NoError(err)
	suite.Equal("bob", stored.UserID)

	// another user's run does not touch the owner's performance
	strategy, err := suite.store.GetStrategy(suite.ctx, "alice", created.ID)
	suite.Require().NoError(err)
	suite.Nil(strategy.Performance)

	_, err = suite.store.SaveResult(suite.ctx, "alice", created.ID, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *DuckDBStoreTestSuite) TestListAndDeleteResults() {
	first := suite.create("alice", "first")
	second := suite.create("alice", "second")

	r1, err := suite.store.SaveResult(suite.ctx, "alice", first.ID, sampleResult())
	suite.Require().NoError(err)
	r2, err := suite.store.SaveResult(suite.ctx, "alice", second.ID, sampleResult())
	suite.Require().NoError(err)
	r3, err := suite.store.SaveResult(suite.ctx, "alice", first.ID, sampleResult())
	suite.Require().NoError(err)

	all, err := suite.store.ListResults(suite.ctx, "alice", "")
	suite.Require().NoError(err)
	suite.Require().Len(all, 3)
	suite.Equal(r3.ID, all[0].ID)
	suite.Equal(r2.ID, all[1].ID)
	suite.Equal(r1.ID, all[2].ID)

	forFirst, err := suite.store.ListResults(suite.ctx, "alice", first.ID)
	suite.Require().NoError(err)
	suite.Len(forFirst, 2)

	others, err := suite.store.ListResults(suite.ctx, "bob", "")
	suite.Require().NoError(err)
	suite.Empty(others)

	suite.True(errors.HasCode(suite.store.DeleteResult(suite.ctx, "bob", r1.ID), errors.ErrCodeForbidden))
	suite.Require().NoError(suite.store.DeleteResult(suite.ctx, "alice", r1.ID))

	forFirst, err = suite.store.ListResults(suite.ctx, "alice", first.ID)
	suite.Require().NoError(err)
	suite.Require().Len(forFirst, 1)
	suite.Equal(r3.ID, forFirst[0].ID)
}
