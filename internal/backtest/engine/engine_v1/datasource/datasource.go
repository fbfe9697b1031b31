package datasource

import (
	"context"
	"sort"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// DataSource supplies historical bars.
type DataSource interface {
	// GetBars returns the bars of symbol with start <= time <= end, ordered by time.
	// It fails with ErrCodeDataUnavailable when there are none.
	GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start time.Time, end time.Time) ([]types.MarketData, error)
	// Close closes the data source and releases any resources
	Close() error
}

// NewDataUnavailableError is returned by every DataSource when a range holds no bars.
func NewDataUnavailableError(symbol string, timeframe types.Timeframe, start time.Time, end time.Time) error {
	return errors.Newf(errors.ErrCodeDataUnavailable, "no %s bars for %s between %s and %s",
		timeframe, symbol, start.Format(time.RFC3339), end.Format(time.RFC3339))
}

// sortBars orders bars by time, keeping the input order of equal timestamps.
func sortBars(bars []types.MarketData) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
}
