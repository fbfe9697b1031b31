package datasource

import (
	"context"
	"net/http"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// polygonPageLimit is the largest page the aggregates endpoint serves.
const polygonPageLimit = 50000

// PolygonDataSource fetches split-adjusted aggregates from the Polygon REST API.
type PolygonDataSource struct {
	client *polygon.Client
	logger *logger.Logger
}

// NewPolygonDataSource creates a data source authenticated with apiKey.
func NewPolygonDataSource(apiKey string, logger *logger.Logger) (*PolygonDataSource, error) {
	return NewPolygonDataSourceWithClient(apiKey, nil, logger)
}

// NewPolygonDataSourceWithClient is NewPolygonDataSource with a custom HTTP client. A nil client uses the default one.
func NewPolygonDataSourceWithClient(apiKey string, httpClient *http.Client, logger *logger.Logger) (*PolygonDataSource, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon api key is required")
	}

	client := polygon.New(apiKey)
	if httpClient != nil {
		client = polygon.NewWithClient(apiKey, httpClient)
	}

	return &PolygonDataSource{
		client: client,
		logger: logger,
	}, nil
}

// GetBars implements DataSource.
func (p *PolygonDataSource) GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start time.Time, end time.Time) ([]types.MarketData, error) {
	if err := timeframe.Validate(); err != nil {
		return nil, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: timeframe.Multiplier(),
		Timespan:   timeframe.Timespan(),
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithAdjusted(true).WithOrder(models.Asc).WithLimit(polygonPageLimit)

	iter := p.client.ListAggs(ctx, params)

	var result []types.MarketData

	for iter.Next() {
		agg := iter.Item()
		at := time.Time(agg.Timestamp).UTC()

		if at.Before(start) || at.After(end) {
			continue
		}

		result = append(result, types.MarketData{
			Id:     "",
			Symbol: symbol,
			Time:   at,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeHistoricalDataFailed, iter.Err(), "error iterating polygon aggregates for %s", symbol)
	}

	if len(result) == 0 {
		return nil, NewDataUnavailableError(symbol, timeframe, start, end)
	}

	sortBars(result)

	p.logger.Debug("Downloaded bars from polygon",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int("bars", len(result)),
	)

	return result, nil
}

// Close implements DataSource.
func (p *PolygonDataSource) Close() error {
	return nil
}
