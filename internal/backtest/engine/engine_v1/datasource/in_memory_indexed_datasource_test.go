package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type InMemoryIndexedDataSourceTestSuite struct {
	suite.Suite
	start time.Time
}

func TestInMemoryIndexedDataSourceSuite(t *testing.T) {
	suite.Run(t, new(InMemoryIndexedDataSourceTestSuite))
}

func (suite *InMemoryIndexedDataSourceTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
}

func (suite *InMemoryIndexedDataSourceTestSuite) TestGetBarsInclusiveRange() {
	ds := NewInMemoryIndexedDataSource(createMinuteBars("TEST", 100, suite.start)...)

	bars, err := ds.GetBars(context.Background(), "TEST", types.TimeframeOneMinute,
		suite.start.Add(10*time.Minute), suite.start.Add(19*time.Minute))
	suite.Require().NoError(err)
	suite.Len(bars, 10)
	suite.Equal(suite.start.Add(10*time.Minute), bars[0].Time)
	suite.Equal(suite.start.Add(19*time.Minute), bars[9].Time)
}

func (suite *InMemoryIndexedDataSourceTestSuite) TestUnorderedInputIsSorted() {
	bars := createMinuteBars("TEST", 5, suite.start)
	ds := NewInMemoryIndexedDataSource(bars[3], bars[0], bars[4], bars[1], bars[2])

	result, err := ds.GetBars(context.Background(), "TEST", types.TimeframeOneMinute, suite.start, suite.start.Add(time.Hour))
	suite.Require().NoError(err)

	for i := 1; i < len(result); i++ {
		suite.True(result[i].Time.After(result[i-1].Time))
	}
}

func (suite *InMemoryIndexedDataSourceTestSuite) TestReturnedSliceIsACopy() {
	ds := NewInMemoryIndexedDataSource(createMinuteBars("TEST", 3, suite.start)...)

	first, err := ds.GetBars(context.Background(), "TEST", types.TimeframeOneMinute, suite.start, suite.start.Add(time.Hour))
	suite.Require().NoError(err)

	first[0].Close = -1

	second, err := ds.GetBars(context.Background(), "TEST", types.TimeframeOneMinute, suite.start, suite.start.Add(time.Hour))
	suite.Require().NoError(err)
	suite.Equal(100.5, second[0].Close)
}

func (suite *InMemoryIndexedDataSourceTestSuite) TestMissingSymbolAndEmptyRange() {
	ds := NewInMemoryIndexedDataSource(createMinuteBars("TEST", 3, suite.start)...)

	_, err := ds.GetBars(context.Background(), "OTHER", types.TimeframeOneMinute, suite.start, suite.start.Add(time.Hour))
	suite.True(errors.IsDataUnavailable(err))

	_, err = ds.GetBars(context.Background(), "TEST", types.TimeframeOneMinute, suite.start.Add(time.Hour), suite.start.Add(2*time.Hour))
	suite.True(errors.IsDataUnavailable(err))
}

func (suite *InMemoryIndexedDataSourceTestSuite) TestSymbols() {
	ds := NewInMemoryIndexedDataSource(createMinuteBars("MSFT", 1, suite.start)...)
	ds.Add(createMinuteBars("AAPL", 1, suite.start)...)

	suite.Equal([]string{"AAPL", "MSFT"}, ds.Symbols())
}

func (suite *InMemoryIndexedDataSourceTestSuite) TestPreload() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	ctx := context.Background()
	end := suite.start.Add(time.Hour)
	underlying := mocks.NewMockDataSource(ctrl)

	underlying.EXPECT().
		GetBars(ctx, "AAPL", types.TimeframeOneMinute, suite.start, end).
		Return(createMinuteBars("AAPL", 10, suite.start), nil)
	underlying.EXPECT().
		GetBars(ctx, "GONE", types.TimeframeOneMinute, suite.start, end).
		Return(nil, NewDataUnavailableError("GONE", types.TimeframeOneMinute, suite.start, end))

	ds := NewInMemoryIndexedDataSource()
	suite.Require().NoError(ds.Preload(ctx, underlying, []string{"AAPL", "GONE"}, types.TimeframeOneMinute, suite.start, end))
	suite.Equal([]string{"AAPL"}, ds.Symbols())
}

func (suite *InMemoryIndexedDataSourceTestSuite) TestPreloadPropagatesOtherErrors() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	underlying := mocks.NewMockDataSource(ctrl)
	underlying.EXPECT().
		GetBars(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New(errors.ErrCodeQueryFailed, "boom"))

	ds := NewInMemoryIndexedDataSource()
	err := ds.Preload(context.Background(), underlying, []string{"AAPL"}, types.TimeframeOneDay, suite.start, suite.start)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeQueryFailed))
}
