package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DataGenerator produces seeded, reproducible bar series for backtest tests.
type DataGenerator struct {
	rng *rand.Rand
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Regime overrides the drift for a stretch of bars, e.g. a rally followed by a sell-off
// to force moving average crossovers.
type Regime struct {
	Bars int
	// Drift is the expected return per bar.
	Drift float64
}

// GeneratorConfig configures a generated series.
type GeneratorConfig struct {
	Symbol    string
	StartTime time.Time
	// Interval is the spacing between bars.
	Interval time.Duration
	Count    int
	// InitialPrice is the open of the first bar.
	InitialPrice float64
	// Volatility is the standard deviation of the per-bar return.
	Volatility float64
	// Trend is the total drift spread over Count bars. Ignored while a Regime is active.
	Trend float64
	// Regimes apply in order from the first bar; bars after the last regime use Trend.
	Regimes        []Regime
	VolumeBase     float64
	VolumeVariance float64
	// SkipWeekends leaves out bars that fall on Saturday or Sunday. Count still counts emitted bars.
	SkipWeekends bool
}

// DefaultConfig is one year of daily bars starting 2024-01-01.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       24 * time.Hour,
		Count:          252,
		InitialPrice:   100.0,
		Volatility:     0.01,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate returns Count bars following a geometric random walk.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	bars := make([]types.MarketData, 0, config.Count)
	price := config.InitialPrice
	at := config.StartTime

	for len(bars) < config.Count {
		if config.SkipWeekends && isWeekend(at) {
			at = at.Add(config.Interval)

			continue
		}

		bar := g.nextBar(config, price, config.driftAt(len(bars)))
		bar.Symbol = config.Symbol
		bar.Time = at
		bars = append(bars, bar)

		price = bar.Close
		at = at.Add(config.Interval)
	}

	return bars
}

// GenerateMultiSymbol generates one series per symbol on the same timestamps, each with a
// slightly different starting price and volatility.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.MarketData {
	var bars []types.MarketData

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		bars = append(bars, g.Generate(config)...)
	}

	return bars
}

// FromCloses builds flat bars (open = high = low = close) from a list of closes, one per interval.
func FromCloses(symbol string, start time.Time, interval time.Duration, closes ...float64) []types.MarketData {
	bars := make([]types.MarketData, len(closes))
	for i, c := range closes {
		bars[i] = types.MarketData{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * interval),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}

	return bars
}

func (c GeneratorConfig) driftAt(index int) float64 {
	for _, regime := range c.Regimes {
		if index < regime.Bars {
			return regime.Drift
		}

		index -= regime.Bars
	}

	if c.Count == 0 {
		return 0
	}

	return c.Trend / float64(c.Count)
}

func (g *DataGenerator) nextBar(config GeneratorConfig, open float64, drift float64) types.MarketData {
	// Box-Muller
	z := math.Sqrt(-2*math.Log(1-g.rng.Float64())) * math.Cos(2*math.Pi*g.rng.Float64())

	closePrice := open * (1 + config.Volatility*z + drift)
	if closePrice <= 0 {
		closePrice = open * 0.99
	}

	high := math.Max(open, closePrice) + g.rng.Float64()*config.Volatility*open*0.5
	low := math.Min(open, closePrice) - g.rng.Float64()*config.Volatility*open*0.5

	if low <= 0 {
		low = math.Min(open, closePrice) * 0.99
	}

	volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
	if volume < 0 {
		volume = config.VolumeBase * 0.1
	}

	return types.MarketData{
		Open:   round(open, 4),
		High:   round(high, 4),
		Low:    round(low, 4),
		Close:  round(closePrice, 4),
		Volume: round(volume, 2),
	}
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func round(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
