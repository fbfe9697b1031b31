package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// InMemoryIndexedDataSource serves bars held in memory. Bars are indexed by symbol and kept sorted,
// so a range lookup is two binary searches. The timeframe argument of GetBars is ignored: bars are
// returned at whatever resolution they were added with.
type InMemoryIndexedDataSource struct {
	// data[symbol] is sorted by time
	data map[string][]types.MarketData
	mu   sync.RWMutex
}

// NewInMemoryIndexedDataSource creates a data source holding bars, which may mix symbols and be unordered.
func NewInMemoryIndexedDataSource(bars ...types.MarketData) *InMemoryIndexedDataSource {
	ds := &InMemoryIndexedDataSource{
		data: make(map[string][]types.MarketData),
		mu:   sync.RWMutex{},
	}

	ds.Add(bars...)

	return ds
}

// Add indexes more bars.
func (ds *InMemoryIndexedDataSource) Add(bars ...types.MarketData) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	touched := make(map[string]struct{})

	for _, bar := range bars {
		ds.data[bar.Symbol] = append(ds.data[bar.Symbol], bar)
		touched[bar.Symbol] = struct{}{}
	}

	for symbol := range touched {
		sortBars(ds.data[symbol])
	}
}

// Preload copies every symbol's range from underlying into memory. Symbols without data are skipped.
func (ds *InMemoryIndexedDataSource) Preload(ctx context.Context, underlying DataSource, symbols []string, timeframe types.Timeframe, start time.Time, end time.Time) error {
	for _, symbol := range symbols {
		bars, err := underlying.GetBars(ctx, symbol, timeframe, start, end)
		if err != nil {
			if errors.IsDataUnavailable(err) {
				continue
			}

			return err
		}

		ds.Add(bars...)
	}

	return nil
}

// Symbols lists the indexed symbols in sorted order.
func (ds *InMemoryIndexedDataSource) Symbols() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	symbols := make([]string, 0, len(ds.data))
	for symbol := range ds.data {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// GetBars implements DataSource.
func (ds *InMemoryIndexedDataSource) GetBars(_ context.Context, symbol string, timeframe types.Timeframe, start time.Time, end time.Time) ([]types.MarketData, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	bars := ds.data[symbol]

	from := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Time.Before(start)
	})
	to := sort.Search(len(bars), func(i int) bool {
		return bars[i].Time.After(end)
	})

	if from >= to {
		return nil, NewDataUnavailableError(symbol, timeframe, start, end)
	}

	result := make([]types.MarketData, to-from)
	copy(result, bars[from:to])

	return result, nil
}

// Close implements DataSource.
func (ds *InMemoryIndexedDataSource) Close() error {
	return nil
}
