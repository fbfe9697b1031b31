package datasource

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	dataSource *DuckDBDataSource
	start      time.Time
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (suite *DuckDBDataSourceTestSuite) SetupSuite() {
	suite.start = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	data := append(createMinuteBars("AAPL", 60, suite.start), createMinuteBars("MSFT", 30, suite.start)...)
	path := filepath.Join(suite.T().TempDir(), "bars.parquet")
	suite.Require().NoError(writeTestDataToParquet(data, path))

	ds, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(ds.Initialize(path))

	suite.dataSource = ds
}

func (suite *DuckDBDataSourceTestSuite) TearDownSuite() {
	if suite.dataSource != nil {
		suite.dataSource.Close()
	}
}

func (suite *DuckDBDataSourceTestSuite) TestGetBarsAtNativeResolution() {
	bars, err := suite.dataSource.GetBars(context.Background(), "AAPL", types.TimeframeOneMinute,
		suite.start, suite.start.Add(9*time.Minute))
	suite.Require().NoError(err)
	suite.Len(bars, 10)
	suite.Equal("AAPL", bars[0].Symbol)
	suite.Equal(suite.start, bars[0].Time)
	suite.Equal(100.5, bars[0].Close)
}

func (suite *DuckDBDataSourceTestSuite) TestGetBarsAggregatesToTimeframe() {
	bars, err := suite.dataSource.GetBars(context.Background(), "AAPL", types.TimeframeFifteenMinutes,
		suite.start, suite.start.Add(time.Hour))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 4)

	first := bars[0]
	suite.Equal(suite.start, first.Time)
	suite.Equal(100.0, first.Open)
	suite.Equal(115.0, first.High)
	suite.Equal(99.0, first.Low)
	suite.Equal(114.5, first.Close)
	suite.Equal(15000.0, first.Volume)
}

func (suite *DuckDBDataSourceTestSuite) TestUnknownSymbolIsUnavailable() {
	_, err := suite.dataSource.GetBars(context.Background(), "TSLA", types.TimeframeOneMinute,
		suite.start, suite.start.Add(time.Hour))
	suite.True(errors.IsDataUnavailable(err))
}

func (suite *DuckDBDataSourceTestSuite) TestInvalidTimeframe() {
	_, err := suite.dataSource.GetBars(context.Background(), "AAPL", types.Timeframe("7x"),
		suite.start, suite.start.Add(time.Hour))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))
}

func (suite *DuckDBDataSourceTestSuite) TestSymbols() {
	symbols, err := suite.dataSource.Symbols(context.Background())
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT"}, symbols)
}

func (suite *DuckDBDataSourceTestSuite) TestInitializeRequiresPath() {
	ds, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	defer ds.Close()

	suite.True(errors.HasCode(ds.Initialize(), errors.ErrCodeMissingParameter))
}
