package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// OnDownloadProgress is called after each symbol is fetched.
type OnDownloadProgress = func(current int, total int, symbol string)

// DownloadParams selects the bars to download.
type DownloadParams struct {
	Symbols   []string        `validate:"required,min=1,unique,dive,required"`
	Timeframe types.Timeframe `validate:"required"`
	StartDate time.Time       `validate:"required"`
	EndDate   time.Time       `validate:"required,gtfield=StartDate"`
	// DataPath is the directory the parquet file is written to.
	DataPath string `validate:"required"`
	// SkipMissing keeps going when a symbol has no bars in the range.
	SkipMissing bool
}

// FileName is SYMBOLS_START_END_TIMEFRAME.parquet.
func (p DownloadParams) FileName() string {
	return fmt.Sprintf("%s_%s_%s_%s.parquet",
		strings.ReplaceAll(strings.Join(p.Symbols, "-"), "/", ""),
		p.StartDate.Format("2006-01-02"),
		p.EndDate.Format("2006-01-02"),
		p.Timeframe)
}

// Downloader copies bars from a data source into a parquet file the DuckDB data source can read.
type Downloader struct {
	source     datasource.DataSource
	logger     *logger.Logger
	validate   *validator.Validate
	onProgress OnDownloadProgress
}

func NewDownloader(source datasource.DataSource, logger *logger.Logger, onProgress OnDownloadProgress) *Downloader {
	return &Downloader{
		source:     source,
		logger:     logger,
		validate:   validator.New(),
		onProgress: onProgress,
	}
}

// Download fetches every symbol in turn and returns the path of the written file.
func (d *Downloader) Download(ctx context.Context, params DownloadParams) (path string, err error) {
	if err := d.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	if err := params.Timeframe.Validate(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(params.DataPath, 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create data directory", err)
	}

	writer := NewParquetWriter(filepath.Join(params.DataPath, params.FileName()), d.logger)
	if err := writer.Initialize(); err != nil {
		return "", err
	}

	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for i, symbol := range params.Symbols {
		bars, err := d.source.GetBars(ctx, symbol, params.Timeframe, params.StartDate, params.EndDate)
		if err != nil {
			if params.SkipMissing && errors.IsDataUnavailable(err) {
				d.logger.Warn("No bars to download, skipping symbol", zap.String("symbol", symbol))
			} else {
				return "", errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "failed to download %s", symbol)
			}
		}

		for _, bar := range bars {
			if err := writer.Write(bar); err != nil {
				return "", err
			}
		}

		d.logger.Debug("Downloaded symbol", zap.String("symbol", symbol), zap.Int("bars", len(bars)))

		if d.onProgress != nil {
			d.onProgress(i+1, len(params.Symbols), symbol)
		}
	}

	if writer.Written() == 0 {
		return "", errors.Newf(errors.ErrCodeDataUnavailable, "no bars for any of %v", params.Symbols)
	}

	return writer.Finalize()
}
