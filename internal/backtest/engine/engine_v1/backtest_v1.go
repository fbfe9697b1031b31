package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/statistics"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds the number of symbols loaded at once.
const maxConcurrentFetches = 8

// BacktestEngineV1 runs backtests against a data source. It holds no per-run state, so one engine
// can serve concurrent runs.
type BacktestEngineV1 struct {
	datasource        datasource.DataSource
	indicatorRegistry indicator.IndicatorRegistry
	log               *logger.Logger
}

func NewBacktestEngineV1(ds datasource.DataSource, log *logger.Logger) engine.Engine {
	return NewBacktestEngineV1WithRegistry(ds, indicator.NewDefaultIndicatorRegistry(), log)
}

// NewBacktestEngineV1WithRegistry is NewBacktestEngineV1 with a custom indicator registry.
func NewBacktestEngineV1WithRegistry(ds datasource.DataSource, registry indicator.IndicatorRegistry, log *logger.Logger) engine.Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BacktestEngineV1{
		datasource:        ds,
		indicatorRegistry: registry,
		log:               log,
	}
}

// symbolSeries is the loaded history of one symbol.
type symbolSeries struct {
	symbol string
	bars   []types.MarketData
	// cursor is the number of bars at or before the current timestamp.
	cursor int
}

// backtestRun is the state of a single Run call.
type backtestRun struct {
	id        string
	status    types.RunStatus
	config    types.BacktestConfig
	strategy  types.StrategyConfig
	state     *BacktestState
	trading   *BacktestTrading
	risk      *RiskMonitor
	generator *strategy.SignalGenerator
	series    []*symbolSeries
	skipped   []string
	log       *logger.Logger
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, strategyConfig types.StrategyConfig, config types.BacktestConfig, callbacks engine.LifecycleCallbacks) (result *types.BacktestResult, err error) {
	if err := b.preRunCheck(strategyConfig, config); err != nil {
		return nil, err
	}

	run := b.newRun(strategyConfig, config)

	defer func() {
		run.log.Info("Backtest finished", zap.String("status", string(run.status)), zap.Error(err))

		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(run.id, run.status, err)
		}
	}()

	run.status = types.RunStatusRunning
	run.state.Snapshot(config.StartDate)

	if err := run.load(ctx, b.datasource); err != nil {
		return run.fail(err)
	}

	timestamps := run.timestamps()

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(run.id, run.symbols(), len(timestamps)); err != nil {
			return run.fail(errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err))
		}
	}

	for i, at := range timestamps {
		if err := run.step(at, callbacks.OnSignal); err != nil {
			return run.fail(errors.Wrap(errors.ErrCodeCallbackFailed, "signal callback failed", err))
		}

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(i+1, len(timestamps)); err != nil {
				return run.fail(errors.Wrap(errors.ErrCodeCallbackFailed, "process data callback failed", err))
			}
		}
	}

	run.trading.ExpirePendingOrders()
	run.status = types.RunStatusCompleted

	return run.result(), nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	schema, err := GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) preRunCheck(strategyConfig types.StrategyConfig, config types.BacktestConfig) error {
	if err := config.Validate(); err != nil {
		b.log.Error("Invalid backtest config", zap.Error(err))

		return err
	}

	if err := strategyConfig.Validate(); err != nil {
		b.log.Error("Invalid strategy", zap.String("strategy", strategyConfig.Name), zap.Error(err))

		return err
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	return nil
}

func (b *BacktestEngineV1) newRun(strategyConfig types.StrategyConfig, config types.BacktestConfig) *backtestRun {
	id := uuid.NewString()
	log := &logger.Logger{Logger: b.log.With(zap.String("run_id", id), zap.String("strategy", strategyConfig.Name))}
	commission := commission_fee.GetCommissionFeeHandler(commission_fee.Broker(config.Broker), config.CommissionRate)
	state := NewBacktestState(config.InitialCapital, log)

	return &backtestRun{
		id:        id,
		status:    types.RunStatusInitialized,
		config:    config,
		strategy:  strategyConfig,
		state:     state,
		trading:   NewBacktestTrading(state, config, strategyConfig, commission, log),
		risk:      NewRiskMonitor(config, strategyConfig, commission, log),
		generator: strategy.NewSignalGenerator(strategyConfig, b.indicatorRegistry, log),
		series:    nil,
		skipped:   []string{},
		log:       log,
	}
}

// load fetches every symbol concurrently. Symbols without data are skipped; the run fails when
// no symbol has data or when any other fetch error occurs.
func (r *backtestRun) load(ctx context.Context, ds datasource.DataSource) error {
	loaded := make([][]types.MarketData, len(r.config.Symbols))
	missing := make([]bool, len(r.config.Symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i, symbol := range r.config.Symbols {
		g.Go(func() error {
			bars, err := ds.GetBars(gctx, symbol, r.config.Timeframe, r.config.StartDate, r.config.EndDate)
			if err != nil {
				if errors.IsDataUnavailable(err) {
					missing[i] = true

					return nil
				}

				return errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "failed to load %s", symbol)
			}

			loaded[i] = bars

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.log.Error("Failed to load historical data", zap.Error(err))

		return err
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeHistoricalDataFailed, "historical data fetch cancelled", err)
	}

	for i, symbol := range r.config.Symbols {
		bars := inRange(loaded[i], r.config.StartDate, r.config.EndDate)
		if missing[i] || len(bars) == 0 {
			r.skipped = append(r.skipped, symbol)
			r.log.Warn("No historical data, skipping symbol", zap.String("symbol", symbol))

			continue
		}

		r.series = append(r.series, &symbolSeries{symbol: symbol, bars: bars, cursor: 0})
	}

	if len(r.series) == 0 {
		return errors.Newf(errors.ErrCodeDataUnavailable, "no historical data for any of %v between %s and %s",
			r.config.Symbols, r.config.StartDate.Format(time.RFC3339), r.config.EndDate.Format(time.RFC3339))
	}

	return nil
}

// timestamps is the sorted union of the bar times of every loaded symbol.
func (r *backtestRun) timestamps() []time.Time {
	seen := make(map[int64]time.Time)
	for _, s := range r.series {
		for _, bar := range s.bars {
			seen[bar.Time.UnixNano()] = bar.Time
		}
	}

	timestamps := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		timestamps = append(timestamps, t)
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i].Before(timestamps[j])
	})

	return timestamps
}

// step simulates one timestamp: risk exits, signals, orders, then the equity snapshot.
// An error from onSignal stops the step before pending orders are processed.
func (r *backtestRun) step(at time.Time, onSignal *engine.OnSignalCallback) error {
	bars := make(map[string]types.MarketData)
	histories := make([]*symbolSeries, 0, len(r.series))

	for _, s := range r.series {
		advanced := false
		for s.cursor < len(s.bars) && !s.bars[s.cursor].Time.After(at) {
			s.cursor++
			advanced = true
		}

		if advanced && s.bars[s.cursor-1].Time.Equal(at) {
			bars[s.symbol] = s.bars[s.cursor-1]
			histories = append(histories, s)
		}
	}

	r.trading.UpdateCurrentTime(at)
	r.risk.Check(r.state, bars, at)

	var signals []types.Signal
	for _, s := range histories {
		signals = append(signals, r.generator.Generate(s.symbol, s.bars[:s.cursor])...)
	}

	outcomes := r.trading.ProcessSignals(signals)

	if onSignal != nil {
		for i, signal := range signals {
			mark := types.Mark{Bar: bars[signal.Symbol], Signal: signal, Outcome: outcomes[i]}
			if err := (*onSignal)(r.id, mark); err != nil {
				return err
			}
		}
	}

	r.trading.ProcessPendingOrders(bars)
	r.state.Snapshot(at)

	return nil
}

// fail moves the run to failed and reports what was simulated before err.
func (r *backtestRun) fail(err error) (*types.BacktestResult, error) {
	r.status = types.RunStatusFailed
	r.trading.ExpirePendingOrders()

	return r.result(), err
}

func (r *backtestRun) symbols() []string {
	symbols := make([]string, len(r.series))
	for i, s := range r.series {
		symbols[i] = s.symbol
	}

	return symbols
}

// result assembles the BacktestResult from the ledger. It is only called once the run has
// stopped, so the ledger is never read mid-run.
func (r *backtestRun) result() *types.BacktestResult {
	trades := r.state.GetAllTrades()
	orders := r.state.GetAllOrders()
	curve := r.state.GetEquityCurve()

	diagnostics := types.NewDiagnostics()
	for reason, count := range r.generator.Diagnostics() {
		diagnostics.SuppressedEvaluations[reason] = count
	}

	for reason, count := range r.trading.DroppedSignals() {
		diagnostics.DroppedSignals[reason] = count
	}

	diagnostics.SkippedSymbols = append(diagnostics.SkippedSymbols, r.skipped...)

	return &types.BacktestResult{
		Config: r.config,
		Strategy: types.StrategyInfo{
			Name:    r.strategy.Name,
			Version: r.strategy.SemVer().String(),
		},
		Status:      r.status,
		Stats:       statistics.CalculateTradeStats(curve, trades, orders),
		EquityCurve: curve,
		Trades:      trades,
		Positions:   r.state.GetAllPositions(),
		Orders:      orders,
		Metrics:     statistics.CalculateMetrics(curve, trades).ToMap(),
		Diagnostics: diagnostics,
	}
}

// inRange keeps the bars with start <= time <= end, in order.
func inRange(bars []types.MarketData, start, end time.Time) []types.MarketData {
	result := make([]types.MarketData, 0, len(bars))
	for _, bar := range bars {
		if bar.Time.Before(start) || bar.Time.After(end) {
			continue
		}

		result = append(result, bar)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Time.Before(result[j].Time)
	})

	return result
}
