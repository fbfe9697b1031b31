package datasource

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// bucketInterval is the DuckDB interval literal of one bar of timeframe, e.g. "15 minute".
func bucketInterval(timeframe types.Timeframe) (string, error) {
	if err := timeframe.Validate(); err != nil {
		return "", err
	}

	return fmt.Sprintf("%d %s", timeframe.Multiplier(), timeframe.Timespan()), nil
}
