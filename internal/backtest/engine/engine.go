package engine

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnRunStartCallback is called once the historical data is loaded, before the first timestamp is simulated.
// runID identifies the run in logs. symbols are the symbols that returned data.
type OnRunStartCallback func(runID string, symbols []string, totalTimestamps int) error

// OnProcessDataCallback is called after each simulated timestamp.
type OnProcessDataCallback func(current int, total int) error

// OnSignalCallback is called for every signal generated at a timestamp, after the order manager
// has decided whether it becomes an order.
type OnSignalCallback func(runID string, mark types.Mark) error

// OnRunEndCallback is called when the run reaches a terminal status (always called via defer).
// err is nil for completed runs.
type OnRunEndCallback func(runID string, status types.RunStatus, err error)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnProcessData *OnProcessDataCallback
	OnSignal      *OnSignalCallback
	OnRunEnd      *OnRunEndCallback
}

// Engine replays historical bars through a strategy.
type Engine interface {
	// Run validates config and strategy, loads the bars of every configured symbol and simulates the
	// strategy over them. Only configuration errors and a total lack of data are returned as errors;
	// rejected orders and failed condition evaluations are reported inside the result.
	// The context is honoured while historical data is being fetched.
	Run(ctx context.Context, strategy types.StrategyConfig, config types.BacktestConfig, callbacks LifecycleCallbacks) (*types.BacktestResult, error)
	// GetConfigSchema returns the JSON schema of the backtest configuration
	GetConfigSchema() (string, error)
}
