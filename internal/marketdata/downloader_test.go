package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type DownloaderTestSuite struct {
	suite.Suite
	logger *logger.Logger
	start  time.Time
}

func TestDownloaderSuite(t *testing.T) {
	suite.Run(t, new(DownloaderTestSuite))
}

func (suite *DownloaderTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *DownloaderTestSuite) params(symbols ...string) DownloadParams {
	return DownloadParams{
		Symbols:   symbols,
		Timeframe: types.TimeframeOneDay,
		StartDate: suite.start,
		EndDate:   suite.start.AddDate(0, 1, 0),
		DataPath:  filepath.Join(suite.T().TempDir(), "data"),
	}
}

func (suite *DownloaderTestSuite) source() *datasource.InMemoryIndexedDataSource {
	config := mocks.DefaultConfig()
	config.StartTime = suite.start
	config.Interval = 24 * time.Hour
	config.Count = 20

	generator := mocks.NewDataGenerator(1)

	return datasource.NewInMemoryIndexedDataSource(generator.GenerateMultiSymbol([]string{"AAPL", "MSFT"}, config)...)
}

func (suite *DownloaderTestSuite) TestDownloadIsReadableByDuckDBDataSource() {
	var progress []string

	downloader := NewDownloader(suite.source(), suite.logger, func(current int, total int, symbol string) {
		suite.Equal(2, total)
		progress = append(progress, symbol)
	})

	params := suite.params("AAPL", "MSFT")
	path, err := downloader.Download(context.Background(), params)
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(params.DataPath, "AAPL-MSFT_2024-01-01_2024-02-01_1d.parquet"), path)
	suite.Equal([]string{"AAPL", "MSFT"}, progress)

	_, err = os.Stat(path)
	suite.Require().NoError(err)

	ds, err := datasource.NewDataSource(":memory:", suite.logger)
	suite.Require().NoError(err)
	defer ds.Close()

	suite.Require().NoError(ds.Initialize(path))

	expected, err := suite.source().GetBars(context.Background(), "MSFT", types.TimeframeOneDay, params.StartDate, params.EndDate)
	suite.Require().NoError(err)

	bars, err := ds.GetBars(context.Background(), "MSFT", types.TimeframeOneDay, params.StartDate, params.EndDate)
	suite.Require().NoError(err)
	suite.Require().Len(bars, len(expected))
	suite.True(bars[0].Time.Equal(expected[0].Time))
	suite.InDelta(expected[0].Close, bars[0].Close, 1e-9)

	symbols, err := ds.Symbols(context.Background())
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT"}, symbols)
}

func (suite *DownloaderTestSuite) TestMissingSymbol() {
	downloader := NewDownloader(suite.source(), suite.logger, nil)

	_, err := downloader.Download(context.Background(), suite.params("AAPL", "GOOG"))
	suite.True(errors.HasCode(err, errors.ErrCodeHistoricalDataFailed))
	suite.True(errors.IsDataUnavailable(err))

	params := suite.params("AAPL", "GOOG")
	params.SkipMissing = true

	path, err := downloader.Download(context.Background(), params)
	suite.Require().NoError(err)
	suite.FileExists(path)

	params = suite.params("GOOG")
	params.SkipMissing = true

	_, err = downloader.Download(context.Background(), params)
	suite.True(errors.IsDataUnavailable(err))
}

func (suite *DownloaderTestSuite) TestInvalidParams() {
	downloader := NewDownloader(suite.source(), suite.logger, nil)

	params := suite.params()
	_, err := downloader.Download(context.Background(), params)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	params = suite.params("AAPL")
	params.EndDate = params.StartDate.AddDate(0, 0, -1)
	_, err = downloader.Download(context.Background(), params)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *DownloaderTestSuite) TestSourceErrorAbortsDownload() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	source := mocks.NewMockDataSource(ctrl)
	source.EXPECT().
		GetBars(gomock.Any(), "AAPL", types.TimeframeOneDay, gomock.Any(), gomock.Any()).
		Return(nil, errors.New(errors.ErrCodeDataSourceUnavailable, "rate limited"))

	params := suite.params("AAPL", "MSFT")
	params.SkipMissing = true

	_, err := NewDownloader(source, suite.logger, nil).Download(context.Background(), params)
	suite.True(errors.HasCode(err, errors.ErrCodeHistoricalDataFailed))
	suite.NoFileExists(filepath.Join(params.DataPath, params.FileName()))
}
